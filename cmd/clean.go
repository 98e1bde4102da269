package cmd

import (
	"fmt"
	"io"

	"github.com/gaurav-prasanna/postpipe/core/output"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete every archive and leftover staging directory in the export directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClean(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(c *Config, out io.Writer) error {
	writer, err := output.New(c.Export.Dir, nil)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}
	res, err := writer.Clean()
	if err != nil {
		return err
	}
	logs.get("clean").Info("export directory cleaned", "dir", c.Export.Dir, "archives", res.Archives, "staging", res.StagingDirs)
	fmt.Fprintf(out, "✓ Removed %d archives and %d staging directories from %s\n", res.Archives, res.StagingDirs, c.Export.Dir)
	return nil
}
