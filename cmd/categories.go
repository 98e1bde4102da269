package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/gaurav-prasanna/postpipe/store/wpdb"
	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories with their ids and post counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCategories(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(ctx context.Context, c *Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(c.Database.Path); err != nil {
		return fmt.Errorf("database %s: %w", c.Database.Path, err)
	}
	store, err := wpdb.Open(c.Database.Path, wpdb.Options{TablePrefix: c.Database.TablePrefix})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	cats, err := store.Categories(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPOSTS")
	for _, cat := range cats {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", cat.ID, cat.Name, cat.Count)
	}
	return tw.Flush()
}
