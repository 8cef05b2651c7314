// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/inspireq/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the response cache",
	Long: `Cache operates on the response cache directory. With a per-record cache
every sub-directory holding an index is processed.`,
}

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Drop superseded cache entries and their payload files",
	RunE:  runCacheCompact,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entry, payload and orphan counts",
	RunE:  runCacheStats,
}

func init() {
	cacheStatsCmd.Flags().Bool("prune", false, "delete payload files no index line references")

	cacheCmd.AddCommand(cacheCompactCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cacheDirs returns the directories under root that hold a cache index.
func cacheDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == cache.IndexFile {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cache directory %s does not exist", root)
	}
	return dirs, err
}

func runCacheCompact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dirs, err := cacheDirs(cfg.Cache.Dir)
	if err != nil {
		return err
	}

	var total, failed int
	for _, dir := range dirs {
		c, err := cache.Open(dir)
		if err != nil {
			failed++
			continue
		}
		n, err := c.CompactAll()
		if err != nil {
			fmt.Fprintf(os.Stdout, "failed  %s: %v\n", dir, err)
			failed++
			continue
		}
		if n > 0 {
			fmt.Fprintf(os.Stdout, "compacted %s (%d stale entries)\n", dir, n)
		}
		total += n
	}

	fmt.Fprintf(os.Stdout, "\ndirectories: %d, removed: %d, failed: %d\n", len(dirs), total, failed)
	if failed > 0 {
		return fmt.Errorf("%d cache director(ies) failed compaction", failed)
	}
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	prune, _ := cmd.Flags().GetBool("prune")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dirs, err := cacheDirs(cfg.Cache.Dir)
	if err != nil {
		return err
	}

	var sum cache.Stats
	var pruned int
	for _, dir := range dirs {
		c, err := cache.Open(dir)
		if err != nil {
			continue
		}
		s, err := c.Stats()
		if err != nil {
			return err
		}
		sum.Entries += s.Entries
		sum.URLs += s.URLs
		sum.Stale += s.Stale
		sum.Payloads += s.Payloads
		sum.Orphans += s.Orphans
		sum.Bytes += s.Bytes

		if prune && s.Orphans > 0 {
			n, err := c.Prune()
			if err != nil {
				return err
			}
			pruned += n
		}
	}

	fmt.Fprintf(os.Stdout, "%-12s %d\n", "directories", len(dirs))
	fmt.Fprintf(os.Stdout, "%-12s %d\n", "entries", sum.Entries)
	fmt.Fprintf(os.Stdout, "%-12s %d\n", "urls", sum.URLs)
	fmt.Fprintf(os.Stdout, "%-12s %d\n", "stale", sum.Stale)
	fmt.Fprintf(os.Stdout, "%-12s %d\n", "payloads", sum.Payloads)
	fmt.Fprintf(os.Stdout, "%-12s %d\n", "orphans", sum.Orphans)
	fmt.Fprintf(os.Stdout, "%-12s %d\n", "bytes", sum.Bytes)
	if prune {
		fmt.Fprintf(os.Stdout, "%-12s %d\n", "pruned", pruned)
	}
	return nil
}
