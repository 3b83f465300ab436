package jobs

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/gcs"
	"github.com/dvloznov/scrap-tracker/internal/logger"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/report"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

// RecordLister is the read side of the record store.
type RecordLister interface {
	List(ctx context.Context, f domain.Filters) (store.ListResult, error)
}

// ExportPrefix is the object prefix reports are uploaded under.
const ExportPrefix = "exports"

// NewExportHandler returns a JobHandler that renders the job's view and
// uploads it to bucket. A remote fallback while listing is not a failure:
// the report is built from local data and the job's Source says so.
func NewExportHandler(lister RecordLister, storage gcs.StorageService, bucket string) JobHandler {
	return func(ctx context.Context, job Job) error {
		exportJob, ok := job.(*ExportReportJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}
		log := logger.FromContext(ctx).With().Str("job_id", exportJob.JobID).Logger()

		res, err := lister.List(ctx, exportJob.Filters)
		if err != nil && !store.IsRemoteFallback(err) {
			return fmt.Errorf("export %s: listing records: %w", exportJob.JobID, err)
		}
		if err != nil {
			log.Warn().Err(err).Msg("exporting local records")
		}

		view := records.BuildView(res.Records, exportJob.Filters, exportJob.Sort)
		format := report.ParseFormat(exportJob.Format)

		var buf bytes.Buffer
		if err := report.Render(&buf, format, view); err != nil {
			return fmt.Errorf("export %s: rendering: %w", exportJob.JobID, err)
		}

		objectName := path.Join(ExportPrefix, exportJob.JobID, report.Filename(format, time.Now().UTC()))
		uri, err := storage.UploadBytes(ctx, bucket, objectName, format.ContentType(), buf.Bytes())
		if err != nil {
			return fmt.Errorf("export %s: uploading: %w", exportJob.JobID, err)
		}

		exportJob.ObjectURI = uri
		exportJob.RecordCount = len(view)
		exportJob.Source = res.Source

		log.Info().
			Str("object_uri", uri).
			Int("records", len(view)).
			Msg("Export uploaded")
		return nil
	}
}
