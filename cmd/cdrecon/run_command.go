package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cdrecon/internal/config"
	"cdrecon/internal/engine"
	"cdrecon/internal/recon"
	"cdrecon/internal/report"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir         string
		reconDate         string
		timeTolerance     int64
		durationTolerance int64
	)

	cmd := &cobra.Command{
		Use:   "run <carrier-a.csv> <carrier-b.csv>",
		Short: "Reconcile two carrier exports in one pass",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			day, err := engine.ParseDay(reconDate)
			if err != nil {
				return err
			}

			matching := recon.Config{
				MaxTimeDelta:     cfg.Matching.TimeTolerance,
				MaxDurationDelta: cfg.Matching.DurationTolerance,
				GroupCeiling:     cfg.Matching.GroupCeiling,
				Workers:          cfg.Matching.Workers,
			}
			if cmd.Flags().Changed("time-tolerance") {
				matching.MaxTimeDelta = timeTolerance
			}
			if cmd.Flags().Changed("duration-tolerance") {
				matching.MaxDurationDelta = durationTolerance
			}

			dir := outputDir
			if dir == "" {
				dir = "."
			}
			dir, err = config.ExpandPath(dir)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outcome, err := engine.Execute(runCtx, cfg, logger, engine.Params{
				CarrierAPath: args[0],
				CarrierBPath: args[1],
				OutputDir:    dir,
				Day:          day,
				Matching:     matching,
			})
			if err != nil {
				return err
			}

			printSummary(cmd, outcome.Summary, outcome.Files)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for report files (default: current directory)")
	cmd.Flags().StringVar(&reconDate, "date", "", "Reconciliation date anchoring time-of-day values (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&timeTolerance, "time-tolerance", 0, "Maximum call-time difference in seconds")
	cmd.Flags().Int64Var(&durationTolerance, "duration-tolerance", 0, "Maximum duration difference in seconds")
	return cmd
}

func printSummary(cmd *cobra.Command, summary report.Summary, files report.Files) {
	title := cases.Title(language.English)
	labelA := title.String(summary.CarrierA)
	labelB := title.String(summary.CarrierB)

	rows := [][]string{
		{labelA + " records", strconv.Itoa(summary.RecordsA)},
		{labelB + " records", strconv.Itoa(summary.RecordsB)},
		{"Matched", strconv.Itoa(summary.Matched)},
		{labelA + " only", strconv.Itoa(summary.UnmatchedA)},
		{labelB + " only", strconv.Itoa(summary.UnmatchedB)},
		{"Match rate", fmt.Sprintf("%.2f%%", summary.MatchRate*100)},
	}
	if summary.RejectedA+summary.RejectedB > 0 {
		rows = append(rows, []string{"Rejected rows", strconv.Itoa(summary.RejectedA + summary.RejectedB)})
	}
	if summary.DuplicatesA+summary.DuplicatesB > 0 {
		rows = append(rows, []string{"Duplicate rows dropped", strconv.Itoa(summary.DuplicatesA + summary.DuplicatesB)})
	}
	if len(summary.OversizedGroups) > 0 {
		rows = append(rows, []string{"Oversized groups", strconv.Itoa(len(summary.OversizedGroups))})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, 1))

	for _, path := range []string{files.Matched, files.AOnly, files.BOnly, files.Summary, files.Workbook} {
		if path != "" {
			fmt.Fprintf(out, "Wrote %s\n", path)
		}
	}
}
