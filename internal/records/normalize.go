// Package records holds the schema-tolerant core of the service: turning
// records of unknown shape into domain.Record values, resolving their dates,
// and building dashboard summaries and filtered, sorted views over them.
package records

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/google/uuid"
)

// Accepted keys per canonical field, in lookup order. Display names come
// first so records that have not yet round-tripped through storage win.
var (
	idKeys              = []string{"id", "_id"}
	itemNameKeys        = []string{"itemName", "item_name"}
	weightKeys          = []string{"weight"}
	pricePerKgKeys      = []string{"pricePerKg", "price_per_kg"}
	amountKeys          = []string{"amount"}
	supplierNameKeys    = []string{"supplierName", "supplier_name"}
	transactionDateKeys = []string{"transactionDate", "transaction_date"}
	totalAmountKeys     = []string{"totalAmount", "total_amount"}
	timestampKeys       = []string{"timestamp"}
	createdAtKeys       = []string{"createdAt", "created_at"}
	displayDateKeys     = []string{"displayDate", "display_date"}
)

const rawKey = "_raw"

// Normalizer converts raw records into domain.Record values. The zero value
// is not usable; use NewNormalizer.
type Normalizer struct {
	now   func() time.Time
	newID func(time.Time) string
}

// NewNormalizer returns a Normalizer using the wall clock and LocalID.
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now, newID: LocalID}
}

// WithClock returns a copy of n that reads the current time from now.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	c := *n
	c.now = now
	return &c
}

var defaultNormalizer = NewNormalizer()

// Normalize converts raw using the default normalizer.
func Normalize(raw map[string]any) domain.Record {
	return defaultNormalizer.Normalize(raw)
}

// NormalizeMany converts a sequence using the default normalizer.
func NormalizeMany(v any) []domain.Record {
	return defaultNormalizer.NormalizeMany(v)
}

// Normalize never fails: missing strings become "", missing or non-numeric
// numbers become 0, a missing id is generated and a missing transaction date
// becomes today. Normalizing an already normalized record's Map() yields the
// same record.
func (n *Normalizer) Normalize(raw map[string]any) domain.Record {
	if raw == nil {
		raw = map[string]any{}
	}

	rec := domain.Record{
		ItemName:     lookupString(raw, itemNameKeys),
		Weight:       ToFloat(lookup(raw, weightKeys)),
		PricePerKg:   ToFloat(lookup(raw, pricePerKgKeys)),
		Amount:       ToFloat(lookup(raw, amountKeys)),
		SupplierName: lookupString(raw, supplierNameKeys),
		TotalAmount:  ToFloat(lookup(raw, totalAmountKeys)),
		Timestamp:    lookupString(raw, timestampKeys),
		CreatedAt:    lookupString(raw, createdAtKeys),
		DisplayDate:  lookupString(raw, displayDateKeys),
	}

	now := n.now()
	rec.ID = lookupString(raw, idKeys)
	if rec.ID == "" {
		rec.ID = n.newID(now)
	}

	rec.TransactionDate = lookupDate(raw, transactionDateKeys)
	if rec.TransactionDate == "" {
		rec.TransactionDate = now.Format(domain.DateLayout)
	}

	if prev, ok := raw[rawKey].(map[string]any); ok {
		rec.Raw = prev
	} else {
		rec.Raw = maps.Clone(raw)
	}

	return rec
}

// NormalizeMany maps Normalize over a sequence without skipping elements.
// Accepted inputs are []map[string]any, []any, []domain.Record and a JSON
// array as []byte or json.RawMessage. Anything else yields an empty slice.
func (n *Normalizer) NormalizeMany(v any) []domain.Record {
	switch list := v.(type) {
	case []map[string]any:
		out := make([]domain.Record, 0, len(list))
		for _, raw := range list {
			out = append(out, n.Normalize(raw))
		}
		return out
	case []domain.Record:
		out := make([]domain.Record, 0, len(list))
		for _, r := range list {
			out = append(out, n.Normalize(r.Map()))
		}
		return out
	case []any:
		out := make([]domain.Record, 0, len(list))
		for _, item := range list {
			out = append(out, n.normalizeAny(item))
		}
		return out
	case json.RawMessage:
		return n.NormalizeMany([]byte(list))
	case []byte:
		var items []any
		if err := json.Unmarshal(list, &items); err != nil {
			return []domain.Record{}
		}
		return n.NormalizeMany(items)
	default:
		return []domain.Record{}
	}
}

func (n *Normalizer) normalizeAny(item any) domain.Record {
	switch r := item.(type) {
	case map[string]any:
		return n.Normalize(r)
	case domain.Record:
		return n.Normalize(r.Map())
	case *domain.Record:
		if r != nil {
			return n.Normalize(r.Map())
		}
	}
	return n.Normalize(nil)
}

var localSeq atomic.Uint64

// LocalID builds a record id from the instant, a process-wide counter and a
// random suffix. Ids from one process never repeat.
func LocalID(now time.Time) string {
	seq := localSeq.Add(1)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), strconv.FormatUint(seq, 36), suffix)
}

// lookup returns the first value under keys that is neither nil nor "".
func lookup(raw map[string]any, keys []string) any {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			continue
		}
		return v
	}
	return nil
}

func lookupString(raw map[string]any, keys []string) string {
	return toString(lookup(raw, keys))
}

func lookupDate(raw map[string]any, keys []string) string {
	switch v := lookup(raw, keys).(type) {
	case time.Time:
		return v.Format(domain.DateLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(domain.DateLayout)
	case civil.Date:
		return v.String()
	default:
		s := toString(v)
		if t, ok := parseDateString(s); ok {
			return t.Format(domain.DateLayout)
		}
		return s
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case time.Time:
		return s.Format(time.RFC3339Nano)
	case *time.Time:
		if s == nil {
			return ""
		}
		return s.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
