package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/vistaforge/renderpress"
	"github.com/vistaforge/renderpress/core"
	"github.com/vistaforge/renderpress/hooks"
)

// timeUnit keeps reported durations readable.
const timeUnit = time.Millisecond

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every task the manifest declares",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Bool("legacy", false, "Treat the manifest as the legacy JSON schema")
	runCmd.Flags().Bool("metrics", false, "Print per-operation timing totals after the run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	engine := renderpress.New(cfg)
	engine.SetLogger(hooks.NewSlogLogger(buildSlog(cmd, cfg)))

	metrics := hooks.NewInMemoryMetrics()
	engine.SetMetrics(metrics)

	engine.Start()
	defer engine.Stop()

	manifestPath, _ := cmd.Flags().GetString("manifest")
	legacy, _ := cmd.Flags().GetBool("legacy")

	var summary *core.Summary
	if legacy {
		summary, err = engine.RunLegacy(cmd.Context(), manifestPath)
	} else {
		summary, err = engine.RunManifest(cmd.Context(), manifestPath)
	}
	if err != nil {
		return err
	}

	printSummary(cmd, summary)

	if showMetrics, _ := cmd.Flags().GetBool("metrics"); showMetrics {
		printMetrics(cmd, metrics.Snapshot())
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", summary.Failed, summary.Failed+summary.Succeeded)
	}
	return nil
}

func printSummary(cmd *cobra.Command, s *core.Summary) {
	out := cmd.OutOrStdout()
	for _, r := range s.Results {
		switch r.State {
		case core.TaskSucceeded:
			fmt.Fprintf(out, "  ok   %s -> %s (%s)\n", r.Task.ID, r.OutputPath, r.Elapsed.Round(timeUnit))
		case core.TaskFailed:
			fmt.Fprintf(out, "  FAIL %s: %v\n", r.Task.ID, r.Err)
		}
	}
	fmt.Fprintf(out, "%d succeeded, %d failed in %s\n",
		s.Succeeded, s.Failed, s.Elapsed.Round(timeUnit))
}

func printMetrics(cmd *cobra.Command, snap hooks.MetricsSnapshot) {
	out := cmd.OutOrStdout()
	ops := make([]string, 0, len(snap.OpDurationsMs))
	for op := range snap.OpDurationsMs {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(out, "  %-20s %5d calls %8d ms\n", op, snap.OpCalls[op], snap.OpDurationsMs[op])
	}
	fmt.Fprintf(out, "  output bytes: %d\n", snap.TotalThroughputB)
}
