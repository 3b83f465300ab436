package records

import (
	"slices"
	"strings"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

// ViewBuilder filters and orders record collections for the history view.
type ViewBuilder struct {
	dates *DateResolver
}

// NewViewBuilder returns a builder resolving dates with d. A nil d uses the
// default resolver.
func NewViewBuilder(d *DateResolver) *ViewBuilder {
	if d == nil {
		d = defaultResolver
	}
	return &ViewBuilder{dates: d}
}

var defaultViewBuilder = NewViewBuilder(nil)

// BuildView applies f and sort key k with the default builder.
func BuildView(recs []domain.Record, f domain.Filters, k domain.SortKey) []domain.Record {
	return defaultViewBuilder.Build(recs, f, k)
}

// Filter applies f with the default builder, keeping input order.
func Filter(recs []domain.Record, f domain.Filters) []domain.Record {
	return defaultViewBuilder.Filter(recs, f)
}

// Build returns a new slice holding the records matching every set filter,
// stably ordered by k. recs is not modified.
func (v *ViewBuilder) Build(recs []domain.Record, f domain.Filters, k domain.SortKey) []domain.Record {
	out := v.Filter(recs, f)
	v.Sort(out, k)
	return out
}

// Filter returns a new slice with the records matching f, in input order.
// Item and supplier match case-insensitive substrings; the date bounds are
// inclusive and compared as YYYY-MM-DD strings.
func (v *ViewBuilder) Filter(recs []domain.Record, f domain.Filters) []domain.Record {
	item := strings.ToLower(strings.TrimSpace(f.ItemName))
	supplier := strings.ToLower(strings.TrimSpace(f.SupplierName))
	start := strings.TrimSpace(f.StartDate)
	end := strings.TrimSpace(f.EndDate)

	out := make([]domain.Record, 0, len(recs))
	for _, r := range recs {
		if item != "" && !strings.Contains(strings.ToLower(r.ItemName), item) {
			continue
		}
		if supplier != "" && !strings.Contains(strings.ToLower(r.SupplierName), supplier) {
			continue
		}
		if start != "" || end != "" {
			day := v.dates.ResolveDateOnly(r)
			if start != "" && day < start {
				continue
			}
			if end != "" && day > end {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Sort orders recs in place by k; unknown keys sort newest first. Equal
// keys keep their relative order.
func (v *ViewBuilder) Sort(recs []domain.Record, k domain.SortKey) {
	switch domain.ParseSortKey(string(k)) {
	case domain.SortAmountAsc:
		slices.SortStableFunc(recs, func(a, b domain.Record) int {
			return -compareDesc(Finite(a.TotalAmount), Finite(b.TotalAmount))
		})
	case domain.SortAmountDesc:
		slices.SortStableFunc(recs, func(a, b domain.Record) int {
			return compareDesc(Finite(a.TotalAmount), Finite(b.TotalAmount))
		})
	case domain.SortDateAsc:
		v.sortByDate(recs, false)
	default:
		v.sortByDate(recs, true)
	}
}

func (v *ViewBuilder) sortByDate(recs []domain.Record, desc bool) {
	type keyed struct {
		rec domain.Record
		at  time.Time
	}
	// Resolve once per record so the fallback clock cannot move mid-sort.
	ks := make([]keyed, len(recs))
	for i, r := range recs {
		ks[i] = keyed{rec: r, at: v.dates.Resolve(r)}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		if desc {
			return b.at.Compare(a.at)
		}
		return a.at.Compare(b.at)
	})
	for i, k := range ks {
		recs[i] = k.rec
	}
}

// DaySummary is the data-entry view of a single calendar day.
type DaySummary struct {
	Date        string          `json:"date"`
	Count       int             `json:"count"`
	TotalAmount float64         `json:"totalAmount"`
	Records     []domain.Record `json:"records"`
}

// DailySummary collects the records whose resolved date is day (YYYY-MM-DD)
// in input order.
func (v *ViewBuilder) DailySummary(recs []domain.Record, day string) DaySummary {
	day = strings.TrimSpace(day)
	ds := DaySummary{Date: day, Records: v.Filter(recs, domain.Filters{StartDate: day, EndDate: day})}
	for _, r := range ds.Records {
		ds.Count++
		ds.TotalAmount += Finite(r.TotalAmount)
	}
	return ds
}

// DailySummary uses the default builder.
func DailySummary(recs []domain.Record, day string) DaySummary {
	return defaultViewBuilder.DailySummary(recs, day)
}
