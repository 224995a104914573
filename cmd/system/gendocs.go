package system

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/Alijeyrad/simorq_queue/pkg/constants"
)

func NewGenDocsCommand() *cobra.Command {
	var (
		outDir string
		format string
	)

	cmd := &cobra.Command{
		Use:   "gendocs",
		Short: "Generate CLI reference docs",
		Long: `Generate reference pages for every simorq-queue command, as Markdown
(default) or as man pages for packaging.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(outDir)
			if err != nil {
				return fmt.Errorf("resolve %q: %w", outDir, err)
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return fmt.Errorf("create %q: %w", abs, err)
			}

			root := cmd.Root()
			root.DisableAutoGenTag = true

			switch format {
			case "markdown", "md":
				err = doc.GenMarkdownTree(root, abs)
			case "man":
				err = doc.GenManTree(root, &doc.GenManHeader{
					Title:   constants.AppName,
					Section: "1",
					Source:  "Simorq",
				}, abs)
			default:
				return fmt.Errorf("unknown format %q (use markdown or man)", format)
			}
			if err != nil {
				return fmt.Errorf("generate docs: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s docs written to %s\n", format, abs)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "outdir", "docs/cli", "output directory")
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown or man")

	return cmd
}
