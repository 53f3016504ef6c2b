package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"flakewatch/adapters/excel"
	"flakewatch/adapters/postgres"
	"flakewatch/app"
	"flakewatch/domain/core"
	"flakewatch/domain/stability"
	"flakewatch/internal"
	"flakewatch/ports"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "flakewatch",
		Short: "Chi-square stability analysis of per-entity failure rates",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type analysisFlags struct {
	entity        string
	since         string
	granularity   string
	minBucketSize int
	alpha         float64
}

func (f *analysisFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.entity, "entity", "", "Analyze a specific entity (default: all)")
	cmd.Flags().StringVar(&f.since, "since", "", "Limit data to one period back: day, week, month, year")
	cmd.Flags().StringVar(&f.granularity, "granularity", "month", "Bucket period: day, week, month, year")
	cmd.Flags().IntVar(&f.minBucketSize, "min-bucket-size", stability.DefaultConfig().MinBucketSize, "Exclude buckets with total <= this value")
	cmd.Flags().Float64Var(&f.alpha, "alpha", stability.DefaultConfig().Alpha, "p-value cutoff for a REJECT verdict")
}

func (f *analysisFlags) run(ctx context.Context) (*app.Report, error) {
	granularity, err := core.ParseGranularity(f.granularity)
	if err != nil {
		return nil, err
	}

	filter := ports.RunFilter{EntityID: f.entity}
	if f.since != "" {
		window, err := core.ParseGranularity(f.since)
		if err != nil {
			return nil, err
		}
		filter.Since = window.Lookback(time.Now().UTC())
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	service := app.NewStabilityService(
		postgres.NewRunRepository(db),
		stability.Config{MinBucketSize: f.minBucketSize, Alpha: f.alpha},
		internal.NewDefaultLogger(),
	)
	return service.Analyze(ctx, filter, granularity)
}

func newAnalyzeCmd() *cobra.Command {
	flags := &analysisFlags{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the stability test and print a summary table",
		Long: `Run the chi-square stability test over the run table and print one row per
entity, ordered by ascending p-value (most significant shifts first).

Example: flakewatch analyze --granularity month --since year`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := flags.run(cmd.Context())
			if err != nil {
				return err
			}
			printReport(report, flags.entity != "")
			return nil
		},
	}
	flags.register(cmd)

	return cmd
}

func newExportCmd() *cobra.Command {
	flags := &analysisFlags{}
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run the stability test and write an xlsx report",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := flags.run(cmd.Context())
			if err != nil {
				return err
			}
			if err := excel.NewReportWriter().Write(out, report); err != nil {
				return err
			}
			fmt.Printf("wrote %d entities to %s\n", len(report.Results), out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&out, "out", "flakewatch.xlsx", "Output xlsx path")

	return cmd
}

func printReport(report *app.Report, detailed bool) {
	if len(report.Results) == 0 {
		fmt.Println("No entities with sufficient data to make a decision.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tSTAT\tDF\tP-VALUE\tVERDICT\tRATE\tSPIKE\tBUCKETS\tFIRST\tLAST")
	for _, res := range report.Results {
		pValue := "undefined"
		if res.PValue != nil {
			pValue = fmt.Sprintf("%.4g", *res.PValue)
		}
		fmt.Fprintf(w, "%s\t%.3f\t%d\t%s\t%s\t%.1f%%\t%+.1f%%\t%d\t%s\t%s\n",
			res.EntityID, res.ChiSquareStat, res.DegreesOfFreedom, pValue, res.Verdict,
			res.FailureRate*100, res.Spike*100, res.BucketCount,
			res.FirstEvent.Format("2006-01-02"), res.LastEvent.Format("2006-01-02"))
	}
	w.Flush()

	if !detailed {
		return
	}
	for _, res := range report.Results {
		fmt.Printf("\n%s — %s\n", res.EntityID, res.Description())
		dw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(dw, "PERIOD\tFAILURES\tTOTAL\tRATE")
		for _, b := range res.Buckets {
			fmt.Fprintf(dw, "%s\t%d\t%d\t%.1f%%\n", b.Period.Format("2006-01-02"), b.Failures, b.Total(), b.FailureRate()*100)
		}
		dw.Flush()
	}
}
