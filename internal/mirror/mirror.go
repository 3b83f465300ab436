// Package mirror keeps the local copy of the record collection in a single
// named slot, either a JSON file or a Redis key.
package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
)

// DefaultSlot is the slot name the records are mirrored under.
const DefaultSlot = "scrapRecords"

// Encode renders recs as the JSON array stored in the slot.
func Encode(recs []domain.Record) ([]byte, error) {
	if recs == nil {
		recs = []domain.Record{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("Encode: %w", err)
	}
	return data, nil
}

// Decode reads a slot's contents. Blank or unreadable data decodes to no
// records; elements of an unexpected shape are normalized with defaults.
func Decode(data []byte) []domain.Record {
	if len(data) == 0 {
		return []domain.Record{}
	}
	return records.NormalizeMany(data)
}
