// Package cmd implements the CLI commands for postpipe using Cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Persistent flag variables.
var (
	flagConfig    string
	flagDB        string
	flagOutputDir string
	flagLogLevel  string
)

// Set by the persistent pre-run of every command.
var (
	cfg  *Config
	logs *loggers
)

var rootCmd = &cobra.Command{
	Use:   "postpipe",
	Short: "Export WordPress posts as Markdown archives",
	Long: `postpipe reads posts from a WordPress database, converts their HTML to
Markdown with front matter, copies every referenced image next to them and
packs the result into zip archives.

Usage:
  postpipe export [flags]
  postpipe categories
  postpipe clean
  postpipe verify <posts.zip> [images.zip]`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./"+DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "WordPress SQLite database (overrides [database] path)")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output_dir", "", "Export directory (overrides [export] dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log_level", "", "Log level: debug, info, warn, error")
}

// setup loads configuration, applies flag overrides and builds the loggers.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	if flagDB != "" {
		c.Database.Path = flagDB
	}
	if flagOutputDir != "" {
		c.Export.Dir = flagOutputDir
	}
	if flagLogLevel != "" {
		c.Log.Level = flagLogLevel
	}

	l, err := newLoggers(c.Log)
	if err != nil {
		return err
	}
	cfg, logs = c, l
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
