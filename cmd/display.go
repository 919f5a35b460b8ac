package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inlaymedia/inlay/internal/annotations"
	"github.com/inlaymedia/inlay/internal/assets"
	"github.com/inlaymedia/inlay/internal/config"
	"github.com/inlaymedia/inlay/internal/document"
	"github.com/inlaymedia/inlay/internal/scanner"
)

var displayCmd = &cobra.Command{
	Use:     "display [file]",
	Aliases: []string{"d"},
	Short:   "Annotate every resolvable media reference in a document",
	Long: `Run a full display pass over a document: scan for media references,
resolve attribute placeholders, fetch remote assets when the policy permits,
and create one annotation per reference that resolves to an existing file.

Remote fetching is off unless enabled; even then only URLs whose scheme is on
the protocol allow-list (https by default) are fetched.

Examples:
  inlay display doc.adoc
  inlay display doc.adoc --remote
  inlay display doc.adoc --remote --protocols https,http
  inlay display doc.adoc --max-size 800x600`,
	Args: cobra.ExactArgs(1),
	RunE: runDisplay,
}

var (
	displayRemote    bool
	displayProtocols []string
	displayMaxSize   string
)

func init() {
	rootCmd.AddCommand(displayCmd)

	displayCmd.Flags().BoolVar(&displayRemote, "remote", false, "Enable fetching of remote assets")
	displayCmd.Flags().StringSliceVar(&displayProtocols, "protocols", nil, "URL scheme allow-list for remote fetches")
	displayCmd.Flags().StringVar(&displayMaxSize, "max-size", "", "Cap rendered dimensions as WIDTHxHEIGHT")
}

// applyDisplayFlags folds command-line overrides into the loaded display
// policy.
func applyDisplayFlags(cmd *cobra.Command, display *config.DisplayConfig) error {
	if cmd.Flags().Changed("remote") {
		display.Remote = displayRemote
	}
	if cmd.Flags().Changed("protocols") {
		display.Protocols = displayProtocols
	}
	if cmd.Flags().Changed("max-size") {
		if _, _, err := config.ParseMaxSize(displayMaxSize); err != nil {
			return fmt.Errorf("invalid --max-size: %w", err)
		}
		display.MaxImageSize = displayMaxSize
	}
	return nil
}

// newSession wires a registry for one document session: shared asset cache,
// configured scanner, and the text reference surface writing to stdout.
func newSession(cfg *config.Config) *annotations.Registry {
	surface := annotations.NewTextSurface(os.Stdout)
	surface.Sized = cfg.Display.MaxImageSize != ""
	return annotations.NewRegistry(annotations.Options{
		Surface: surface,
		Cache:   assets.NewCache(cfg.Cache.Dir, nil),
		Scanner: scanner.New(cfg.Scan.Marker),
		Display: cfg.Display,
		Logger:  newLogger(cfg),
	})
}

func runDisplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyDisplayFlags(cmd, &cfg.Display); err != nil {
		return err
	}

	doc, err := document.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	registry := newSession(cfg)
	if err := registry.DisplayAll(cmd.Context(), doc); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d annotation(s) created\n", registry.Count())
	return nil
}
