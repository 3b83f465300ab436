package records

import (
	"reflect"
	"slices"
	"testing"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

func fourDays() []domain.Record {
	return []domain.Record{
		{ID: "a", ItemName: "Iron", SupplierName: "Musa Bello", TransactionDate: "2024-01-01", TotalAmount: 10},
		{ID: "b", ItemName: "Copper", SupplierName: "Ada", TransactionDate: "2024-01-02", TotalAmount: 40},
		{ID: "c", ItemName: "Iron rods", SupplierName: "musa", TransactionDate: "2024-01-03", TotalAmount: 20},
		{ID: "d", ItemName: "Pot", SupplierName: "Chidi", TransactionDate: "2024-01-04", TotalAmount: 30},
	}
}

func ids(recs []domain.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestBuildView_StartDateAmountDesc(t *testing.T) {
	got := BuildView(fourDays(), domain.Filters{StartDate: "2024-01-02"}, domain.SortAmountDesc)

	var amounts []float64
	for _, r := range got {
		amounts = append(amounts, r.TotalAmount)
	}
	if want := []float64{40, 30, 20}; !slices.Equal(amounts, want) {
		t.Errorf("amounts = %v, want %v", amounts, want)
	}
}

func TestBuildView_Filters(t *testing.T) {
	tests := []struct {
		name    string
		filters domain.Filters
		want    []string
	}{
		{"no filters", domain.Filters{}, []string{"d", "c", "b", "a"}},
		{"item substring any case", domain.Filters{ItemName: "IRON"}, []string{"c", "a"}},
		{"supplier substring any case", domain.Filters{SupplierName: "musa"}, []string{"c", "a"}},
		{"inclusive range", domain.Filters{StartDate: "2024-01-02", EndDate: "2024-01-03"}, []string{"c", "b"}},
		{"end only", domain.Filters{EndDate: "2024-01-01"}, []string{"a"}},
		{"combined", domain.Filters{ItemName: "iron", StartDate: "2024-01-02"}, []string{"c"}},
		{"no match", domain.Filters{SupplierName: "nobody"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(BuildView(fourDays(), tt.filters, domain.SortDateDesc))
			if !slices.Equal(got, tt.want) {
				t.Errorf("BuildView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildView_SortKeys(t *testing.T) {
	tests := []struct {
		key  domain.SortKey
		want []string
	}{
		{domain.SortDateAsc, []string{"a", "b", "c", "d"}},
		{domain.SortDateDesc, []string{"d", "c", "b", "a"}},
		{domain.SortAmountAsc, []string{"a", "c", "d", "b"}},
		{domain.SortAmountDesc, []string{"b", "d", "c", "a"}},
		{"price-sideways", []string{"d", "c", "b", "a"}},
		{"", []string{"d", "c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := ids(BuildView(fourDays(), domain.Filters{}, tt.key))
			if !slices.Equal(got, tt.want) {
				t.Errorf("BuildView(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestBuildView_StableOnTies(t *testing.T) {
	recs := []domain.Record{
		{ID: "1", TransactionDate: "2024-01-01", TotalAmount: 5},
		{ID: "2", TransactionDate: "2024-01-01", TotalAmount: 5},
		{ID: "3", TransactionDate: "2024-01-01", TotalAmount: 5},
	}

	for _, k := range []domain.SortKey{domain.SortDateAsc, domain.SortDateDesc, domain.SortAmountAsc, domain.SortAmountDesc} {
		if got := ids(BuildView(recs, domain.Filters{}, k)); !slices.Equal(got, []string{"1", "2", "3"}) {
			t.Errorf("BuildView(%q) = %v, want input order", k, got)
		}
	}
}

func TestBuildView_DoesNotMutateInput(t *testing.T) {
	recs := fourDays()
	before := slices.Clone(recs)

	_ = BuildView(recs, domain.Filters{StartDate: "2024-01-02"}, domain.SortAmountDesc)

	if !reflect.DeepEqual(recs, before) {
		t.Errorf("input was modified: %v", ids(recs))
	}
}

func TestFilter_EndDateIncludesWholeDay(t *testing.T) {
	recs := []domain.Record{
		{ID: "late", TransactionDate: "bad", CreatedAt: "2024-01-04T23:59:00Z"},
		{ID: "next", TransactionDate: "bad", CreatedAt: "2024-01-05T00:00:01Z"},
	}

	got := ids(Filter(recs, domain.Filters{EndDate: "2024-01-04"}))

	if !slices.Equal(got, []string{"late"}) {
		t.Errorf("Filter() = %v, want [late]", got)
	}
}

func TestDailySummary(t *testing.T) {
	recs := append(fourDays(), domain.Record{ID: "e", TransactionDate: "2024-01-03", TotalAmount: 5.5})

	got := DailySummary(recs, "2024-01-03")

	if got.Date != "2024-01-03" {
		t.Errorf("Date = %q", got.Date)
	}
	if got.Count != 2 || got.TotalAmount != 25.5 {
		t.Errorf("Count/TotalAmount = %d/%v, want 2/25.5", got.Count, got.TotalAmount)
	}
	if !slices.Equal(ids(got.Records), []string{"c", "e"}) {
		t.Errorf("Records = %v", ids(got.Records))
	}

	empty := DailySummary(recs, "2023-12-31")
	if empty.Count != 0 || len(empty.Records) != 0 {
		t.Errorf("expected an empty day, got %+v", empty)
	}
}
