package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vistaforge/renderpress/core"
	"github.com/vistaforge/renderpress/manifest"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the tasks a manifest would run, without processing anything",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().Bool("legacy", false, "Treat the manifest as the legacy JSON schema")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		path = cfg.ManifestPath
	}

	var renders []core.Render
	if legacy, _ := cmd.Flags().GetBool("legacy"); legacy {
		renders, err = manifest.LoadLegacy(path, cfg.TargetSize.Width, cfg.TargetSize.Height)
		if err == nil {
			renders, err = manifest.MergeDiscovered(cfg.InputDir, renders, cfg.TargetSize.Width, cfg.TargetSize.Height)
		}
	} else {
		renders, err = manifest.Load(path)
	}
	if err != nil {
		return err
	}

	tasks := core.ExpandTasks(cfg.InputDir, renders)
	out := cmd.OutOrStdout()
	for _, t := range tasks {
		kinds := make([]string, 0, len(t.Variant.Operations))
		for _, op := range t.Variant.Operations {
			kinds = append(kinds, string(op.Kind))
		}
		fmt.Fprintf(out, "  %-50s [%s]\n", t.ID, strings.Join(kinds, " -> "))
	}
	fmt.Fprintf(out, "%d tasks from %d sources\n", len(tasks), len(renders))
	return nil
}
