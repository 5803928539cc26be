package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vistaforge/renderpress/manifest"
)

var initManifestCmd = &cobra.Command{
	Use:   "init-manifest",
	Short: "Write a starter manifest for the renders found in the input directory",
	Long: `init-manifest scans the input directory for images and writes a YAML
manifest declaring one default variant per source.  Entries already present
in the manifest are preserved unless --overwrite is set, so hand-edited
operation lists survive re-runs.`,
	RunE: runInitManifest,
}

func init() {
	initManifestCmd.Flags().Bool("overwrite", false, "Replace existing entries for rediscovered sources")
	initManifestCmd.Flags().String("resize-preset", "dci_4k", "Size preset the starter variants resize to")
	rootCmd.AddCommand(initManifestCmd)
}

func runInitManifest(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("manifest")
	if path == "" {
		path = cfg.ManifestPath
	}
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	preset, _ := cmd.Flags().GetString("resize-preset")
	if _, ok := cfg.SizePresets[preset]; !ok {
		return fmt.Errorf("unknown size preset %q", preset)
	}

	n, err := manifest.Scaffold(cfg.InputDir, path, manifest.ScaffoldOptions{
		ResizePreset: preset,
		Overwrite:    overwrite,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d render(s)\n", path, n)
	return nil
}
