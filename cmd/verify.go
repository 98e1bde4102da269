package cmd

import (
	"fmt"
	"io"

	"github.com/gaurav-prasanna/postpipe/core/archive"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <posts.zip> [images.zip]",
	Short: "Check that every image reference in a content archive resolves",
	Long: `Verify opens a content archive, parses the front matter of every document
and checks that each local image reference (images/...) has a matching entry
in the image archive. Remote references are listed but not treated as errors.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		images := ""
		if len(args) == 2 {
			images = args[1]
		}
		return runVerify(args[0], images, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(content, images string, out io.Writer) error {
	report, err := archive.Verify(content, images)
	if err != nil {
		return err
	}

	for _, doc := range report.Documents {
		fmt.Fprintf(out, "%s  %q (%s), %d images\n", doc.Name, doc.Header.Title, doc.Header.Date, len(doc.Images))
		for _, ref := range doc.Missing {
			fmt.Fprintf(out, "  ✗ missing: %s\n", ref)
		}
		for _, ref := range doc.Remote {
			fmt.Fprintf(out, "  • remote:  %s\n", ref)
		}
	}

	if n := report.Missing(); n > 0 {
		return fmt.Errorf("%d image references do not resolve", n)
	}
	fmt.Fprintf(out, "✓ %d documents, %d image files, all references resolve\n", len(report.Documents), report.ImageFiles)
	return nil
}
