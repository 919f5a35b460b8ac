package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/inlaymedia/inlay/internal/config"
	"github.com/inlaymedia/inlay/internal/document"
	"github.com/inlaymedia/inlay/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch [file]",
	Aliases: []string{"w"},
	Short:   "Re-annotate a document on every save",
	Long: `Watch a document and re-run the display pass whenever it changes on
disk. Save bursts are debounced into a single pass. Stops on Ctrl-C.

Examples:
  inlay watch doc.adoc
  inlay watch doc.adoc --remote --debounce 500ms`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&displayRemote, "remote", false, "Enable fetching of remote assets")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before re-annotating")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("remote") {
		cfg.Display.Remote = displayRemote
	}

	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	logger := newLogger(cfg).WithComponent("watch")
	registry := newSession(cfg)
	defer registry.Close()

	redisplay := func() error {
		doc, err := document.Load(target)
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		if err := registry.DisplayAll(cmd.Context(), doc); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%d annotation(s)\n", registry.Count())
		return nil
	}

	if err := redisplay(); err != nil {
		return err
	}

	dw, err := watcher.New(watchDebounce)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer dw.Stop()

	dw.AddFilter(watcher.PathFilter(target))
	dw.AddHandler(func(events []watcher.ChangeEvent) error {
		return redisplay()
	})
	dw.OnError(func(err error) {
		logger.Warn(cmd.Context(), err, "watch error")
	})

	// Watch the directory: editors that replace the file on save would
	// otherwise orphan a watch on the old inode.
	if err := dw.Watch(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}
	dw.Start(cmd.Context())

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", target)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-cmd.Context().Done():
	}
	return nil
}
