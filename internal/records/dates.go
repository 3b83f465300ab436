package records

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/scrap-tracker/internal/domain"
)

// Layouts tried in order after zone-marker repair. Layouts without a zone
// are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	domain.DateLayout,
}

// Date candidates, highest priority first: the display override, the
// transaction date, the creation instant, then the generic timestamp.
var recordDateSources = []func(domain.Record) any{
	func(r domain.Record) any { return r.DisplayDate },
	func(r domain.Record) any { return r.TransactionDate },
	func(r domain.Record) any { return r.CreatedAt },
	func(r domain.Record) any { return r.Timestamp },
}

var rawDateSources = []func(map[string]any) any{
	func(m map[string]any) any { return lookup(m, displayDateKeys) },
	func(m map[string]any) any { return lookup(m, transactionDateKeys) },
	func(m map[string]any) any { return lookup(m, createdAtKeys) },
	func(m map[string]any) any { return lookup(m, timestampKeys) },
}

// DateResolver picks the single authoritative instant of a record.
type DateResolver struct {
	now func() time.Time
}

// NewDateResolver returns a resolver that falls back to the wall clock.
func NewDateResolver() *DateResolver {
	return &DateResolver{now: time.Now}
}

// WithClock returns a copy of d whose fallback instant comes from now.
func (d *DateResolver) WithClock(now func() time.Time) *DateResolver {
	c := *d
	c.now = now
	return &c
}

var defaultResolver = NewDateResolver()

// ResolveDate resolves r with the default resolver.
func ResolveDate(r domain.Record) time.Time { return defaultResolver.Resolve(r) }

// ResolveDateOnly resolves r to a YYYY-MM-DD string with the default resolver.
func ResolveDateOnly(r domain.Record) string { return defaultResolver.ResolveDateOnly(r) }

// ResolveRawDate resolves a raw, not yet normalized record.
func ResolveRawDate(raw map[string]any) time.Time { return defaultResolver.ResolveRaw(raw) }

// Resolve returns the first candidate date of r that parses, or the current
// time when none does.
func (d *DateResolver) Resolve(r domain.Record) time.Time {
	if t, ok := resolveRecord(r); ok {
		return t
	}
	return d.now()
}

// ResolveRaw is Resolve for a record that has not been normalized.
func (d *DateResolver) ResolveRaw(raw map[string]any) time.Time {
	for _, src := range rawDateSources {
		if t, ok := ParseDate(src(raw)); ok {
			return t
		}
	}
	return d.now()
}

// ResolveDateOnly is the calendar date of Resolve, in the zone the date was
// written in, so any time of day matches its own day.
func (d *DateResolver) ResolveDateOnly(r domain.Record) string {
	return d.Resolve(r).Format(domain.DateLayout)
}

func resolveRecord(r domain.Record) (time.Time, bool) {
	for _, src := range recordDateSources {
		if t, ok := ParseDate(src(r)); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a date-like value: time values, numeric epoch
// milliseconds, or a string in one of the accepted layouts after
// RepairZoneMarker.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	case civil.Date:
		if !x.IsValid() {
			return time.Time{}, false
		}
		return x.In(time.UTC), true
	case float64, int, int64, json.Number:
		return fromMillis(ToFloat(x))
	case string:
		return parseDateString(x)
	default:
		return time.Time{}, false
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if len(s) >= 10 && isDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromMillis(float64(ms))
	}

	s = RepairZoneMarker(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RepairZoneMarker fixes legacy date-times that carry a spurious second
// marker before the zone, such as "2024-03-01T10:00:00.000ZT00:00:00.000Z",
// "...ZZ" or "...Z+00:00". Everything from the spurious marker onward is
// dropped and a single "Z" appended. Other strings are returned unchanged.
func RepairZoneMarker(s string) string {
	t := strings.IndexByte(s, 'T')
	if t < 0 {
		return s
	}
	rest := s[t+1:]

	cut := -1
	if i := strings.IndexByte(rest, 'T'); i >= 0 {
		cut = t + 1 + i
	}
	if z := strings.IndexByte(rest, 'Z'); z >= 0 && t+1+z < len(s)-1 {
		if cut < 0 || t+1+z < cut {
			cut = t + 1 + z
		}
	}
	if cut < 0 {
		return s
	}
	return strings.TrimRight(s[:cut], "Z") + "Z"
}

func fromMillis(ms float64) (time.Time, bool) {
	if ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
