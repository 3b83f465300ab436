package domain

import "testing"

func TestIsPot(t *testing.T) {
	tests := []struct {
		item string
		want bool
	}{
		{"Pot", true},
		{"pot", true},
		{" pot ", true},
		{"  POT ", true},
		{"Iron", false},
		{"Pottery", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			if got := IsPot(tt.item); got != tt.want {
				t.Errorf("IsPot(%q) = %v, want %v", tt.item, got, tt.want)
			}
		})
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in   string
		want SortKey
	}{
		{"date-asc", SortDateAsc},
		{"DATE-DESC", SortDateDesc},
		{"amount-asc", SortAmountAsc},
		{" amount-desc ", SortAmountDesc},
		{"weight-desc", SortDateDesc},
		{"", SortDateDesc},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseSortKey(tt.in); got != tt.want {
				t.Errorf("ParseSortKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecord_StorageMapUsesUnderscoreKeys(t *testing.T) {
	r := Record{ID: "1", ItemName: "Iron", SupplierName: "Musa", TransactionDate: "2024-01-02", TotalAmount: 10}
	m := r.StorageMap()

	for _, key := range []string{"item_name", "supplier_name", "transaction_date", "total_amount", "price_per_kg"} {
		if _, ok := m[key]; !ok {
			t.Errorf("StorageMap() missing key %q", key)
		}
	}
	if _, ok := m["itemName"]; ok {
		t.Error("StorageMap() should not carry display keys")
	}
}
