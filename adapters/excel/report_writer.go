package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"flakewatch/app"
	"flakewatch/domain/stability"
)

const (
	summarySheet = "Summary"
	bucketSheet  = "Buckets"
)

// ReportWriter exports an analysis report to an xlsx workbook: one summary
// row per entity, plus a detail sheet listing every eligible bucket.
type ReportWriter struct{}

// NewReportWriter creates a new report writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write saves the report to path.
func (w *ReportWriter) Write(path string, report *app.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummary(f, report); err != nil {
		return err
	}
	if err := w.writeBuckets(f, report); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save report to %s: %w", path, err)
	}
	return nil
}

func (w *ReportWriter) writeSummary(f *excelize.File, report *app.Report) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	headers := []interface{}{
		"entity", "chi_square_stat", "degrees_of_freedom", "p_value", "verdict",
		"total_failures", "total_events", "failure_rate", "spike",
		"bucket_count", "first_event", "last_event",
	}
	if err := f.SetSheetRow(summarySheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}

	for i, res := range report.Results {
		pValue := interface{}(nil)
		if res.PValue != nil {
			pValue = *res.PValue
		}
		row := []interface{}{
			res.EntityID, res.ChiSquareStat, res.DegreesOfFreedom, pValue,
			string(res.Verdict), res.TotalFailures, res.TotalEvents,
			res.FailureRate, res.Spike, res.BucketCount,
			formatTime(res.FirstEvent), formatTime(res.LastEvent),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+2, err)
		}
	}
	return nil
}

func (w *ReportWriter) writeBuckets(f *excelize.File, report *app.Report) error {
	if _, err := f.NewSheet(bucketSheet); err != nil {
		return fmt.Errorf("failed to create bucket sheet: %w", err)
	}

	headers := []interface{}{"entity", "period", "failures", "successes", "total", "failure_rate"}
	if err := f.SetSheetRow(bucketSheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write bucket header: %w", err)
	}

	rowNum := 2
	for _, res := range report.Results {
		for _, b := range res.Buckets {
			if err := w.writeBucketRow(f, rowNum, b); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func (w *ReportWriter) writeBucketRow(f *excelize.File, rowNum int, b stability.Bucket) error {
	row := []interface{}{
		b.EntityID, formatTime(b.Period), b.Failures, b.Successes, b.Total(), b.FailureRate(),
	}
	cell := fmt.Sprintf("A%d", rowNum)
	if err := f.SetSheetRow(bucketSheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write bucket row %d: %w", rowNum, err)
	}
	return nil
}
