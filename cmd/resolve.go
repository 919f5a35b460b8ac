package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inlaymedia/inlay/internal/attrs"
	"github.com/inlaymedia/inlay/internal/document"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file] [locator]",
	Short: "Resolve {attribute} placeholders in a locator",
	Long: `Resolve a locator against the attribute table built from a document's
definition lines. Placeholders naming undefined attributes are left untouched.

Examples:
  inlay resolve doc.adoc '{imagesdir}/logo.png'`,
	Args: cobra.ExactArgs(2),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	doc, err := document.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), attrs.Resolve(args[1], attrs.Build(doc)))
	return nil
}
