package excel

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"flakewatch/app"
	"flakewatch/domain/core"
	"flakewatch/domain/stability"
)

func TestReportWriter_WriteRoundTrip(t *testing.T) {
	p := 0.0123
	report := &app.Report{
		ID:          uuid.New(),
		GeneratedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Granularity: core.GranularityMonth,
		Results: []app.EntityResult{
			{
				TestResult: stability.TestResult{
					EntityID:         "sharks",
					ChiSquareStat:    12.5,
					DegreesOfFreedom: 3,
					PValue:           &p,
					Verdict:          stability.VerdictReject,
					Converged:        true,
				},
				TotalFailures: 30,
				TotalEvents:   400,
				FailureRate:   0.075,
				BucketCount:   4,
				Buckets: []stability.Bucket{
					{EntityID: "sharks", Period: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Failures: 5, Successes: 95},
				},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewReportWriter().Write(path, report))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	entity, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	require.Equal(t, "sharks", entity)

	verdict, err := f.GetCellValue("Summary", "E2")
	require.NoError(t, err)
	require.Equal(t, "REJECT", verdict)

	bucketEntity, err := f.GetCellValue("Buckets", "A2")
	require.NoError(t, err)
	require.Equal(t, "sharks", bucketEntity)
}
