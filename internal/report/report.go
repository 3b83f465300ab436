// Package report renders record views as downloadable CSV and XLSX files.
package report

import (
	"time"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps s onto a known format; anything else is CSV.
func ParseFormat(s string) Format {
	if Format(s) == FormatXLSX {
		return FormatXLSX
	}
	return FormatCSV
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Header is the column row of every report.
var Header = []string{
	"Transaction Date",
	"Item",
	"Weight (kg)",
	"Price per kg (" + records.CurrencySymbol + ")",
	"Total Amount (" + records.CurrencySymbol + ")",
	"Supplier",
	"Created Date",
}

const createdLayout = "2006-01-02 15:04:05"

// Row returns the report cells of r. Numbers carry two decimals and no
// currency symbol.
func Row(r domain.Record) []string {
	return []string{
		records.ResolveDateOnly(r),
		r.ItemName,
		records.FormatNumber(r.Weight),
		records.FormatNumber(r.PricePerKg),
		records.FormatNumber(r.TotalAmount),
		r.SupplierName,
		createdDate(r),
	}
}

// createdDate is the creation instant in UTC, or "" when the record has none.
func createdDate(r domain.Record) string {
	for _, v := range []string{r.CreatedAt, r.Timestamp} {
		if t, ok := records.ParseDate(v); ok {
			return t.UTC().Format(createdLayout)
		}
	}
	return ""
}

// Filename names an export generated at now.
func Filename(f Format, now time.Time) string {
	return "scrap-records-" + now.Format("20060102-150405") + "." + string(f)
}
