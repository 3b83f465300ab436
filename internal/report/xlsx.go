package report

import (
	"fmt"
	"io"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the records.
const SheetName = "Records"

// WriteXLSX writes recs as a workbook with one sheet. Weight, price and
// total are numeric cells shown with two decimals.
func WriteXLSX(w io.Writer, recs []domain.Record) error {
	data, err := XLSX(recs)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("WriteXLSX: %w", err)
	}
	return nil
}

// XLSX renders recs into memory.
func XLSX(recs []domain.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("XLSX: sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("XLSX: header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("XLSX: header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("XLSX: header style: %w", err)
	}

	twoDecimals, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("XLSX: number style: %w", err)
	}

	for i, r := range recs {
		cells := Row(r)
		row := []any{
			cells[0],
			cells[1],
			records.Finite(r.Weight),
			records.Finite(r.PricePerKg),
			records.Finite(r.TotalAmount),
			cells[5],
			cells[6],
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("XLSX: row %d: %w", i, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("XLSX: row %d: %w", i, err)
		}
	}

	if len(recs) > 0 {
		last := fmt.Sprintf("E%d", len(recs)+1)
		if err := f.SetCellStyle(SheetName, "C2", last, twoDecimals); err != nil {
			return nil, fmt.Errorf("XLSX: number style: %w", err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "G", 18); err != nil {
		return nil, fmt.Errorf("XLSX: column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("XLSX: write: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes recs in format f.
func Render(w io.Writer, f Format, recs []domain.Record) error {
	if f == FormatXLSX {
		return WriteXLSX(w, recs)
	}
	return WriteCSV(w, recs)
}
