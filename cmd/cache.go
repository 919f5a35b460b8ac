package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/inlaymedia/inlay/internal/assets"
	"github.com/inlaymedia/inlay/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Remote asset cache maintenance",
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), assets.NewCache(cfg.Cache.Dir, nil).Dir())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete downloaded assets from the cache directory",
	Long: `Delete every materialized download from the configured cache
directory. Running sessions keep the files they already hold open; new
sessions re-fetch on demand. Refuses to operate on the system temp directory;
configure cache.dir to use this command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.Cache.Dir == "" {
			return fmt.Errorf("cache.dir is not configured; refusing to sweep the system temp directory")
		}

		entries, err := os.ReadDir(cfg.Cache.Dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}

		removed := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.Cache.Dir, entry.Name())); err == nil {
				removed++
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached asset(s)\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheDirCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
