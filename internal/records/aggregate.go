package records

import (
	"slices"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

// RecentLimit is how many records Summary.RecentTransactions holds.
const RecentLimit = 5

// ItemStat accumulates the records of one item name.
type ItemStat struct {
	ItemName    string  `json:"itemName"`
	TotalWeight float64 `json:"totalWeight"`
	TotalAmount float64 `json:"totalAmount"`
	Count       int     `json:"count"`
}

// SupplierStat accumulates the records of one supplier.
type SupplierStat struct {
	SupplierName string  `json:"supplierName"`
	TotalAmount  float64 `json:"totalAmount"`
	Count        int     `json:"count"`
}

// Summary is the dashboard view of a record collection. ItemStats and
// SupplierStats are in order of first appearance.
type Summary struct {
	Count              int             `json:"count"`
	TotalWeight        float64         `json:"totalWeight"`
	TotalAmount        float64         `json:"totalAmount"`
	ItemStats          []ItemStat      `json:"itemStats"`
	SupplierStats      []SupplierStat  `json:"supplierStats"`
	RecentTransactions []domain.Record `json:"recentTransactions"`
}

// Item returns the stats for name.
func (s Summary) Item(name string) (ItemStat, bool) {
	for _, st := range s.ItemStats {
		if st.ItemName == name {
			return st, true
		}
	}
	return ItemStat{}, false
}

// Supplier returns the stats for name.
func (s Summary) Supplier(name string) (SupplierStat, bool) {
	for _, st := range s.SupplierStats {
		if st.SupplierName == name {
			return st, true
		}
	}
	return SupplierStat{}, false
}

// SuppliersByAmount returns the supplier stats ordered by total amount,
// highest first. Suppliers with equal totals keep first-seen order.
func (s Summary) SuppliersByAmount() []SupplierStat {
	out := slices.Clone(s.SupplierStats)
	slices.SortStableFunc(out, func(a, b SupplierStat) int {
		return compareDesc(a.TotalAmount, b.TotalAmount)
	})
	return out
}

// Aggregate computes the dashboard summary of recs. Numbers are coerced
// again here so a non-finite value never reaches a total.
func Aggregate(recs []domain.Record) Summary {
	sum := Summary{
		ItemStats:          []ItemStat{},
		SupplierStats:      []SupplierStat{},
		RecentTransactions: []domain.Record{},
	}
	itemIdx := make(map[string]int)
	supplierIdx := make(map[string]int)

	for _, r := range recs {
		weight := Finite(r.Weight)
		total := Finite(r.TotalAmount)

		sum.Count++
		sum.TotalWeight += weight
		sum.TotalAmount += total

		i, ok := itemIdx[r.ItemName]
		if !ok {
			i = len(sum.ItemStats)
			itemIdx[r.ItemName] = i
			sum.ItemStats = append(sum.ItemStats, ItemStat{ItemName: r.ItemName})
		}
		sum.ItemStats[i].TotalWeight += weight
		sum.ItemStats[i].TotalAmount += total
		sum.ItemStats[i].Count++

		j, ok := supplierIdx[r.SupplierName]
		if !ok {
			j = len(sum.SupplierStats)
			supplierIdx[r.SupplierName] = j
			sum.SupplierStats = append(sum.SupplierStats, SupplierStat{SupplierName: r.SupplierName})
		}
		sum.SupplierStats[j].TotalAmount += total
		sum.SupplierStats[j].Count++
	}

	sum.RecentTransactions = Recent(recs, RecentLimit)
	return sum
}

// AggregateRaw normalizes v (see NormalizeMany) and aggregates the result.
func AggregateRaw(v any) Summary {
	return Aggregate(NormalizeMany(v))
}

// Recent returns up to n records with the latest resolved dates, newest
// first. Records whose dates do not parse rank as the Unix epoch.
func Recent(recs []domain.Record, n int) []domain.Record {
	type keyed struct {
		rec domain.Record
		at  time.Time
	}
	ks := make([]keyed, 0, len(recs))
	for _, r := range recs {
		at, ok := resolveRecord(r)
		if !ok {
			at = time.Unix(0, 0).UTC()
		}
		ks = append(ks, keyed{rec: r, at: at})
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return b.at.Compare(a.at)
	})

	n = max(0, min(n, len(ks)))
	out := make([]domain.Record, 0, n)
	for _, k := range ks[:n] {
		out = append(out, k.rec)
	}
	return out
}

func compareDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}
