package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

// WriteCSV writes recs in order under the literal Header line. Every data
// field is double-quoted.
func WriteCSV(w io.Writer, recs []domain.Record) error {
	bw := bufio.NewWriter(w)
	if err := writeCSVLine(bw, Header, false); err != nil {
		return fmt.Errorf("WriteCSV: header: %w", err)
	}
	for _, r := range recs {
		if err := writeCSVLine(bw, Row(r), true); err != nil {
			return fmt.Errorf("WriteCSV: row %s: %w", r.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("WriteCSV: flush: %w", err)
	}
	return nil
}

// CSV renders recs into memory.
func CSV(recs []domain.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSVLine(w *bufio.Writer, fields []string, quote bool) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if quote {
			f = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		if _, err := w.WriteString(f); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}
