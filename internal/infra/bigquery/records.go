package bigquery

import (
	bq "github.com/dvloznov/scrap-tracker/internal/bigquery"
)

const recordsTable = "records"

// RecordRow is re-exported from the shared package.
type RecordRow = bq.RecordRow

// RecordRepository is re-exported from the shared package.
type RecordRepository = bq.RecordRepository

// Dataset locates the dataset holding the records table.
type Dataset struct {
	ProjectID string
	DatasetID string
}

// table returns the quoted, fully qualified name of table.
func (d Dataset) table(name string) string {
	return "`" + d.ProjectID + "." + d.DatasetID + "." + name + "`"
}
