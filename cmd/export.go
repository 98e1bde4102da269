// The export command orchestrates the pipeline:
// select → normalize → extract → relocate → rewrite → render → package.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gaurav-prasanna/postpipe/core"
	"github.com/gaurav-prasanna/postpipe/core/fetch"
	"github.com/gaurav-prasanna/postpipe/core/normalize"
	"github.com/gaurav-prasanna/postpipe/core/output"
	"github.com/gaurav-prasanna/postpipe/core/pipeline"
	"github.com/gaurav-prasanna/postpipe/core/render"
	"github.com/gaurav-prasanna/postpipe/store/wpdb"
	"github.com/spf13/cobra"
)

// Flag variables.
var (
	flagCategories []int64
	flagFrom       string
	flagTo         string
	flagNoImages   bool
	flagEngine     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export published posts to Markdown archives",
	Long: `Export selects published posts, converts each one to Markdown with a
front matter header, relocates the images it references and writes a
posts-<unix>.zip archive (plus images-<unix>.zip when images were copied)
into the export directory.

Examples:
  postpipe export --db wordpress.db
  postpipe export --categories 3,7 --from 2024-01-01 --to 2024-06-30
  postpipe export --no_images --engine library --output_dir ./out`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := exportOptionsFromFlags()
		if err != nil {
			return err
		}
		return runExport(cmd.Context(), cfg, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Int64SliceVar(&flagCategories, "categories", nil, "Only posts in any of these category ids")
	exportCmd.Flags().StringVar(&flagFrom, "from", "", "First publication day, YYYY-MM-DD (inclusive)")
	exportCmd.Flags().StringVar(&flagTo, "to", "", "Last publication day, YYYY-MM-DD (inclusive)")
	exportCmd.Flags().BoolVar(&flagNoImages, "no_images", false, "Leave image references untouched and skip the image archive")
	exportCmd.Flags().StringVar(&flagEngine, "engine", "", "Markup engine: patterns or library (overrides [export] engine)")
}

// exportOptions is the parsed form of the export flags.
type exportOptions struct {
	Filter   core.PostFilter
	NoImages bool
	Engine   string
}

func exportOptionsFromFlags() (exportOptions, error) {
	from, err := parseDay(flagFrom)
	if err != nil {
		return exportOptions{}, fmt.Errorf("--from: %w", err)
	}
	to, err := parseDay(flagTo)
	if err != nil {
		return exportOptions{}, fmt.Errorf("--to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return exportOptions{}, fmt.Errorf("--to %s is before --from %s", flagTo, flagFrom)
	}
	return exportOptions{
		Filter:   core.PostFilter{CategoryIDs: flagCategories, After: from, Before: to},
		NoImages: flagNoImages,
		Engine:   flagEngine,
	}, nil
}

// parseDay parses a YYYY-MM-DD day; the empty string is the zero time.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(render.DateLayout, s, time.UTC)
}

// runExport builds the pipeline from c and runs one export.
func runExport(ctx context.Context, c *Config, opts exportOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(c.Database.Path); err != nil {
		return fmt.Errorf("database %s: %w", c.Database.Path, err)
	}
	store, err := wpdb.Open(c.Database.Path, wpdb.Options{
		TablePrefix: c.Database.TablePrefix,
		UploadsDir:  c.Uploads.Dir,
		UploadsURL:  c.Uploads.URL,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	engine := c.Export.Engine
	if opts.Engine != "" {
		engine = opts.Engine
	}
	normalizer, err := normalize.New(engine)
	if err != nil {
		return err
	}

	writer, err := output.New(c.Export.Dir, nil)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	exporter, err := pipeline.New(pipeline.Stages{
		Content:    store,
		Media:      store,
		Fetcher:    fetch.New(fetch.WithTimeout(c.Export.HTTPTimeout.Duration), fetch.WithUserAgent(c.Export.UserAgent)),
		Normalizer: normalizer,
		Renderer:   render.NewMarkdownRenderer(),
		Writer:     writer,
	}, logs.get("export"))
	if err != nil {
		return err
	}

	includeImages := *c.Export.IncludeImages && !opts.NoImages
	res, err := exporter.Export(ctx, pipeline.Request{Filter: opts.Filter, IncludeImages: includeImages})
	if err != nil {
		logs.get("export").Error("export failed", "code", core.Code(err), "error", err)
		return errors.New(core.UserMessage(err))
	}

	fmt.Fprintf(out, "✓ Exported %d posts, %d images\n", res.PostCount, res.ImageCount)
	fmt.Fprintf(out, "  Content: %s (%s)\n", res.ContentArchive, fileSize(res.ContentArchive))
	if res.ImageArchive != "" {
		fmt.Fprintf(out, "  Images:  %s (%s)\n", res.ImageArchive, fileSize(res.ImageArchive))
	}
	return nil
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown size"
	}
	return humanize.Bytes(uint64(info.Size()))
}
