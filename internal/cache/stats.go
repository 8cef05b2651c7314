// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stats summarizes the state of a cache directory.
type Stats struct {
	Entries  int // index lines
	URLs     int // distinct URLs
	Stale    int // lines superseded by a later line for the same URL
	Payloads int // payload files on disk
	Orphans  int // payload files no index line references
	Bytes    int64
}

// Stats scans the index and the directory.
func (c *Cache) Stats() (Stats, error) {
	if c.err != nil {
		return Stats{}, c.err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Stats
	referenced, err := c.referencedLocked(&s)
	if err != nil {
		return Stats{}, err
	}
	files, err := c.payloadFilesLocked()
	if err != nil {
		return Stats{}, err
	}
	for _, path := range files {
		s.Payloads++
		if info, err := os.Stat(path); err == nil {
			s.Bytes += info.Size()
		}
		if !referenced[path] {
			s.Orphans++
		}
	}
	return s, nil
}

// Prune deletes payload files that no index line references, such as those
// left behind by a store interrupted between writing the payload and
// appending its index line. It returns the number of files removed.
func (c *Cache) Prune() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	referenced, err := c.referencedLocked(nil)
	if err != nil {
		return 0, err
	}
	files, err := c.payloadFilesLocked()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range files {
		if referenced[path] {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Warn().Str("file", path).Err(err).Msg("removing orphan payload")
			continue
		}
		removed++
	}
	if removed > 0 {
		c.log.Info().Int("removed", removed).Msg("pruned orphan payloads")
	}
	return removed, nil
}

func (c *Cache) referencedLocked(s *Stats) (map[string]bool, error) {
	lines, err := c.readIndexLocked()
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]bool)
	seen := make(map[string]bool)
	for _, l := range lines {
		if !l.ok {
			continue
		}
		path, err := filepath.Abs(c.payloadPath(l.entry.File))
		if err != nil {
			path = c.payloadPath(l.entry.File)
		}
		referenced[path] = true
		if s != nil {
			s.Entries++
			if seen[l.entry.URL] {
				s.Stale++
			}
			seen[l.entry.URL] = true
		}
	}
	if s != nil {
		s.URLs = len(seen)
	}
	return referenced, nil
}

// payloadFilesLocked lists the absolute paths of regular files in the cache
// directory other than the index and in-flight index rewrites.
func (c *Cache) payloadFilesLocked() ([]string, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("listing cache directory: %w", err)
	}
	var files []string
	for _, de := range dirEntries {
		name := de.Name()
		if !de.Type().IsRegular() || name == IndexFile || strings.HasPrefix(name, "."+IndexFile) {
			continue
		}
		path := filepath.Join(c.dir, name)
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		files = append(files, path)
	}
	return files, nil
}
