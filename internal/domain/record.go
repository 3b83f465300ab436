package domain

import (
	"strings"
)

// PotItem is the item category that carries a direct total amount instead of
// a weight times price-per-kg computation.
const PotItem = "Pot"

// DateLayout is the ISO-8601 calendar date layout used for transaction dates.
const DateLayout = "2006-01-02"

// Record is one scrap-metal purchase in its canonical, display-named form.
// Every record read from a backend or the local mirror is normalized into
// this shape before anything else looks at it.
type Record struct {
	ID           string  `json:"id"`
	ItemName     string  `json:"itemName"`
	Weight       float64 `json:"weight"`       // kilograms
	PricePerKg   float64 `json:"pricePerKg"`   // 0 for the Pot variant
	Amount       float64 `json:"amount"`       // 0 unless the Pot variant
	SupplierName string  `json:"supplierName"`

	// TransactionDate is when the purchase happened (YYYY-MM-DD), not when it
	// was recorded.
	TransactionDate string  `json:"transactionDate"`
	TotalAmount     float64 `json:"totalAmount"`

	// Optional creation instants. Records written by the legacy local-only
	// path carry Timestamp; backend rows carry CreatedAt.
	Timestamp   string `json:"timestamp,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	DisplayDate string `json:"displayDate,omitempty"`

	// Raw is the input the record was normalized from. Diagnostics only.
	Raw map[string]any `json:"_raw,omitempty"`
}

// IsPot reports whether item names the Pot variant.
func IsPot(item string) bool {
	return strings.EqualFold(strings.TrimSpace(item), PotItem)
}

// IsPot reports whether the record uses the direct amount override.
func (r Record) IsPot() bool {
	return IsPot(r.ItemName)
}

// Map returns the record as a display-named map, the same shape Normalize
// accepts. Optional instants are omitted when empty.
func (r Record) Map() map[string]any {
	m := map[string]any{
		"id":              r.ID,
		"itemName":        r.ItemName,
		"weight":          r.Weight,
		"pricePerKg":      r.PricePerKg,
		"amount":          r.Amount,
		"supplierName":    r.SupplierName,
		"transactionDate": r.TransactionDate,
		"totalAmount":     r.TotalAmount,
	}
	if r.Timestamp != "" {
		m["timestamp"] = r.Timestamp
	}
	if r.CreatedAt != "" {
		m["createdAt"] = r.CreatedAt
	}
	if r.DisplayDate != "" {
		m["displayDate"] = r.DisplayDate
	}
	if r.Raw != nil {
		m["_raw"] = r.Raw
	}
	return m
}

// StorageMap returns the record with backend (underscore) field names.
func (r Record) StorageMap() map[string]any {
	m := map[string]any{
		"id":               r.ID,
		"item_name":        r.ItemName,
		"weight":           r.Weight,
		"price_per_kg":     r.PricePerKg,
		"amount":           r.Amount,
		"supplier_name":    r.SupplierName,
		"transaction_date": r.TransactionDate,
		"total_amount":     r.TotalAmount,
	}
	if r.CreatedAt != "" {
		m["created_at"] = r.CreatedAt
	}
	if r.Timestamp != "" {
		m["timestamp"] = r.Timestamp
	}
	return m
}

// Filters narrows a record collection. Empty fields do not filter.
type Filters struct {
	ItemName     string `json:"itemName,omitempty"`
	SupplierName string `json:"supplierName,omitempty"`
	StartDate    string `json:"startDate,omitempty"` // inclusive, YYYY-MM-DD
	EndDate      string `json:"endDate,omitempty"`   // inclusive, YYYY-MM-DD
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f == Filters{}
}

// SortKey selects the ordering of a record view.
type SortKey string

const (
	SortDateAsc    SortKey = "date-asc"
	SortDateDesc   SortKey = "date-desc"
	SortAmountAsc  SortKey = "amount-asc"
	SortAmountDesc SortKey = "amount-desc"
)

// ParseSortKey maps s onto a known sort key; anything else is date-desc.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortDateAsc, SortDateDesc, SortAmountAsc, SortAmountDesc:
		return k
	default:
		return SortDateDesc
	}
}
