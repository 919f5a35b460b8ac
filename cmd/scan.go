package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inlaymedia/inlay/internal/attrs"
	"github.com/inlaymedia/inlay/internal/config"
	"github.com/inlaymedia/inlay/internal/document"
	"github.com/inlaymedia/inlay/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:     "scan [file]",
	Aliases: []string{"s"},
	Short:   "List media references found in a document",
	Long: `Scan a document for media references and print each one with its span,
locator, and attribute list. Locators containing {attribute} placeholders are
additionally shown in resolved form.

Examples:
  inlay scan doc.adoc             # Table output
  inlay scan doc.adoc -f json     # JSON output
  inlay scan doc.adoc -f yaml     # YAML output`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var scanFormat string

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json, yaml)")
}

// scannedReference is the externally visible shape of one scan result.
type scannedReference struct {
	Locator    string `json:"locator" yaml:"locator"`
	Resolved   string `json:"resolved" yaml:"resolved"`
	Attributes string `json:"attributes" yaml:"attributes"`
	Block      bool   `json:"block" yaml:"block"`
	Start      int    `json:"start" yaml:"start"`
	End        int    `json:"end" yaml:"end"`
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	doc, err := document.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	refs := scanner.New(cfg.Scan.Marker).Scan(doc)
	table := attrs.Build(doc)

	results := make([]scannedReference, 0, len(refs))
	for _, ref := range refs {
		locator := ref.Locator(doc)
		results = append(results, scannedReference{
			Locator:    locator,
			Resolved:   attrs.Resolve(locator, table),
			Attributes: ref.Attributes(doc),
			Block:      ref.Block,
			Start:      ref.Span.Start,
			End:        ref.Span.End,
		})
	}

	switch scanFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(results)
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SPAN\tFORM\tLOCATOR\tRESOLVED\tATTRIBUTES")
		for _, r := range results {
			form := "inline"
			if r.Block {
				form = "block"
			}
			resolved := r.Resolved
			if resolved == r.Locator {
				resolved = "-"
			}
			fmt.Fprintf(w, "[%d,%d)\t%s\t%s\t%s\t%s\n",
				r.Start, r.End, form, r.Locator, resolved, r.Attributes)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (supported: %s)",
			scanFormat, strings.Join([]string{"table", "json", "yaml"}, ", "))
	}
}
