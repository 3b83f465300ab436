package records

import (
	"testing"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

func TestRepairZoneMarker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-01T10:00:00.000ZT00:00:00.000Z", "2024-03-01T10:00:00.000Z"},
		{"2024-03-01T10:00:00.000ZZ", "2024-03-01T10:00:00.000Z"},
		{"2024-03-01T10:00:00.000Z+00:00", "2024-03-01T10:00:00.000Z"},
		{"2024-03-01T10:00:00T00:00:00", "2024-03-01T10:00:00Z"},
		{"2024-03-01T10:00:00.000Z", "2024-03-01T10:00:00.000Z"},
		{"2024-03-01T10:00:00+01:00", "2024-03-01T10:00:00+01:00"},
		{"2024-03-01", "2024-03-01"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RepairZoneMarker(tt.in); got != tt.want {
				t.Errorf("RepairZoneMarker(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Time
		ok    bool
	}{
		{"date only", "2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"rfc3339", "2024-01-02T10:15:00Z", time.Date(2024, 1, 2, 10, 15, 0, 0, time.UTC), true},
		{"rfc3339 millis", "2024-01-02T10:15:00.250Z", time.Date(2024, 1, 2, 10, 15, 0, 250e6, time.UTC), true},
		{"no zone is utc", "2024-01-02T10:15:00", time.Date(2024, 1, 2, 10, 15, 0, 0, time.UTC), true},
		{"minutes only", "2024-01-02T10:15", time.Date(2024, 1, 2, 10, 15, 0, 0, time.UTC), true},
		{"postgres text", "2024-01-02 10:15:00.123456+00", time.Date(2024, 1, 2, 10, 15, 0, 123456000, time.UTC), true},
		{"epoch millis string", "1704067200000", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"epoch millis number", float64(1704067200000), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"time value", time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), true},
		{"doubled marker", "2024-03-01T10:00:00.000ZZ", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"short digits", "20240102", time.Time{}, false},
		{"garbage", "yesterday", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"nil", nil, time.Time{}, false},
		{"zero time", time.Time{}, time.Time{}, false},
		{"negative millis", -5, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.value)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%v) ok = %v, want %v", tt.value, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDate(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestResolve_RepairedEqualsClean(t *testing.T) {
	clean := "2024-03-01T10:00:00.000Z"
	broken := []string{
		"2024-03-01T10:00:00.000ZT00:00:00.000Z",
		"2024-03-01T10:00:00.000ZZ",
		"2024-03-01T10:00:00.000Z+00:00",
	}
	want := ResolveDate(domain.Record{CreatedAt: clean, TransactionDate: "bad"})

	for _, s := range broken {
		got := ResolveDate(domain.Record{CreatedAt: s, TransactionDate: "bad"})
		if !got.Equal(want) {
			t.Errorf("ResolveDate(createdAt=%q) = %v, want %v", s, got, want)
		}
	}
}

func TestResolve_Priority(t *testing.T) {
	d := NewDateResolver().WithClock(fixedClock)

	tests := []struct {
		name string
		rec  domain.Record
		want time.Time
	}{
		{
			name: "display date wins",
			rec:  domain.Record{DisplayDate: "2024-05-01", TransactionDate: "2024-01-01", CreatedAt: "2023-01-01T00:00:00Z"},
			want: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "transaction date before creation",
			rec:  domain.Record{TransactionDate: "2024-01-01", CreatedAt: "2023-01-01T00:00:00Z", Timestamp: "2022-01-01T00:00:00Z"},
			want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "malformed transaction date falls to creation",
			rec:  domain.Record{TransactionDate: "01/02/2024", CreatedAt: "2023-06-01T12:00:00Z", Timestamp: "2022-01-01T00:00:00Z"},
			want: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "timestamp last",
			rec:  domain.Record{TransactionDate: "soon", Timestamp: "2022-01-01T00:00:00.000Z"},
			want: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "nothing parses",
			rec:  domain.Record{TransactionDate: "n/a"},
			want: fixedNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Resolve(tt.rec); !got.Equal(tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveDateOnly_KeepsWrittenZone(t *testing.T) {
	rec := domain.Record{DisplayDate: "2024-01-02T00:30:00+01:00"}
	if got := ResolveDateOnly(rec); got != "2024-01-02" {
		t.Errorf("ResolveDateOnly() = %q, want 2024-01-02", got)
	}
}

func TestResolveRaw(t *testing.T) {
	d := NewDateResolver().WithClock(fixedClock)

	tests := []struct {
		name string
		raw  map[string]any
		want time.Time
	}{
		{
			name: "storage naming",
			raw:  map[string]any{"transaction_date": "", "created_at": "2024-02-03 10:00:00+00"},
			want: time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "display naming",
			raw:  map[string]any{"transactionDate": "2024-02-04"},
			want: time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "empty map",
			raw:  map[string]any{},
			want: fixedNow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.ResolveRaw(tt.raw); !got.Equal(tt.want) {
				t.Errorf("ResolveRaw() = %v, want %v", got, tt.want)
			}
		})
	}
}
