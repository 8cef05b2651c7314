// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements the durable URL -> response store. A cache
// directory holds one line-oriented index file and one payload file per
// entry. Index lines have the form
//
//	[*url]=<url> [*file]=<path>
//
// and are appended on every store; the last line for a URL is current.
// Compaction removes superseded lines and deletes their payload files.
//
// Ownership: a Cache owns its directory. Every index mutation is serialized
// by a mutex shared by all Cache values opened on the same directory within
// the process. Payload files are written under unique names before the index
// line that references them is appended, and the index is rewritten through a
// temporary file and rename so a crash never leaves a truncated index.
package cache

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/pdiddy/inspireq/internal/logging"
)

// IndexFile is the name of the index file inside a cache directory.
const IndexFile = "cache.db"

const (
	urlTag  = "[*url]="
	fileTag = " [*file]="
)

// ErrUnavailable marks a cache whose directory or index could not be
// created. Such a cache is inert: every lookup misses and every store is a
// no-op.
var ErrUnavailable = errors.New("response cache unavailable")

// dirLocks maps an absolute cache directory to its index mutex.
var dirLocks sync.Map

func lockFor(dir string) *sync.RWMutex {
	key := filepath.Clean(dir)
	if abs, err := filepath.Abs(dir); err == nil {
		key = abs
	}
	mu, _ := dirLocks.LoadOrStore(key, &sync.RWMutex{})
	return mu.(*sync.RWMutex)
}

// Entry is one parsed index line.
type Entry struct {
	URL  string
	File string
}

type indexLine struct {
	raw   string
	entry Entry
	ok    bool
}

// Cache is a response cache rooted at one directory.
type Cache struct {
	dir   string
	index string
	mu    *sync.RWMutex
	err   error
	log   zerolog.Logger
}

// Open prepares the cache directory and its index file, creating both when
// absent. When either cannot be created Open logs a warning and returns an
// inert cache together with an error wrapping ErrUnavailable; the returned
// cache is always usable.
func Open(dir string) (*Cache, error) {
	c, err := open(dir)
	if err != nil {
		c.log.Warn().Err(err).Msg("cache disabled, continuing without caching")
	}
	return c, err
}

func newCache(dir string) *Cache {
	return &Cache{
		dir:   dir,
		index: filepath.Join(dir, IndexFile),
		mu:    lockFor(dir),
		log:   logging.NewLogger("cache").With().Str("dir", dir).Logger(),
	}
}

// open is Open without the warning.
func open(dir string) (*Cache, error) {
	c := newCache(dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return c.disable(fmt.Errorf("%w: creating directory %s: %v", ErrUnavailable, dir, err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	f, err := os.OpenFile(c.index, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return c.disable(fmt.Errorf("%w: creating index %s: %v", ErrUnavailable, c.index, err))
	}
	if err := f.Close(); err != nil {
		return c.disable(fmt.Errorf("%w: closing index %s: %v", ErrUnavailable, c.index, err))
	}
	return c, nil
}

func (c *Cache) disable(err error) (*Cache, error) {
	c.err = err
	CacheErrors.WithLabelValues("open").Inc()
	return c, err
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Err returns the error that made the cache inert, or nil.
func (c *Cache) Err() error { return c.err }

// Lookup returns the payload of the current entry for url. It reports false
// when there is no entry or its payload file is gone.
func (c *Cache) Lookup(url string) ([]byte, bool) {
	if c.err != nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	lines, err := c.readIndexLocked()
	if err != nil {
		CacheErrors.WithLabelValues("lookup").Inc()
		c.log.Warn().Err(err).Msg("reading cache index")
		return nil, false
	}

	var file string
	for _, l := range lines {
		if l.ok && l.entry.URL == url {
			file = l.entry.File
		}
	}
	if file == "" {
		CacheMisses.Inc()
		c.log.Debug().Str("url", url).Msg("no cached result")
		return nil, false
	}

	data, err := os.ReadFile(c.payloadPath(file))
	if err != nil {
		CacheMisses.Inc()
		c.log.Debug().Str("url", url).Str("file", file).Err(err).Msg("cached payload unreadable")
		return nil, false
	}
	CacheHits.Inc()
	c.log.Debug().Str("url", url).Str("file", file).Msg("using cached result")
	return data, true
}

// Store writes payload to a new payload file, appends an index line for url
// and compacts older entries for url. Store on an inert cache is a no-op.
func (c *Cache) Store(url string, payload []byte) error {
	if c.err != nil {
		return nil
	}

	path, err := c.writePayload(url, payload)
	if err != nil {
		CacheErrors.WithLabelValues("store").Inc()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.appendLocked(Entry{URL: url, File: path}); err != nil {
		os.Remove(path)
		CacheErrors.WithLabelValues("store").Inc()
		return err
	}
	CacheStores.Inc()
	c.log.Debug().Str("url", url).Str("file", path).Msg("written")

	return c.compactLocked(url)
}

// Compact removes every entry for url except the most recently appended one
// and deletes the payload files of the removed entries.
func (c *Cache) Compact(url string) error {
	if c.err != nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compactLocked(url)
}

// CompactAll compacts every URL in the index and returns the number of
// stale entries removed.
func (c *Cache) CompactAll() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := c.readIndexLocked()
	if err != nil {
		CacheErrors.WithLabelValues("compact").Inc()
		return 0, err
	}

	last := make(map[string]int)
	for i, l := range lines {
		if l.ok {
			last[l.entry.URL] = i
		}
	}
	return c.rewriteLocked(lines, func(i int, l indexLine) bool {
		return !l.ok || last[l.entry.URL] == i
	})
}

// Entries returns the parsed index lines in file order, stale ones included.
func (c *Cache) Entries() ([]Entry, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	lines, err := c.readIndexLocked()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, l := range lines {
		if l.ok {
			entries = append(entries, l.entry)
		}
	}
	return entries, nil
}

func (c *Cache) compactLocked(url string) error {
	lines, err := c.readIndexLocked()
	if err != nil {
		CacheErrors.WithLabelValues("compact").Inc()
		return err
	}

	keep := -1
	count := 0
	for i, l := range lines {
		if l.ok && l.entry.URL == url {
			keep = i
			count++
		}
	}
	if count < 2 {
		return nil
	}
	c.log.Debug().Str("url", url).Int("duplicates", count-1).Msg("compacting")

	_, err = c.rewriteLocked(lines, func(i int, l indexLine) bool {
		return !l.ok || l.entry.URL != url || i == keep
	})
	return err
}

// rewriteLocked replaces the index with the lines accepted by keep and then
// deletes the payload files of the rejected ones. Payloads still referenced
// by a kept line are never deleted.
func (c *Cache) rewriteLocked(lines []indexLine, keep func(int, indexLine) bool) (int, error) {
	var kept []string
	referenced := make(map[string]bool)
	var stale []string
	for i, l := range lines {
		if keep(i, l) {
			kept = append(kept, l.raw)
			if l.ok {
				referenced[c.payloadPath(l.entry.File)] = true
			}
			continue
		}
		stale = append(stale, c.payloadPath(l.entry.File))
	}
	if len(stale) == 0 {
		return 0, nil
	}

	if err := c.writeIndexLocked(kept); err != nil {
		CacheErrors.WithLabelValues("compact").Inc()
		return 0, err
	}

	for _, path := range stale {
		if referenced[path] {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.log.Warn().Str("file", path).Err(err).Msg("removing stale payload")
			continue
		}
		c.log.Debug().Str("file", path).Msg("removed stale payload")
	}
	CacheCompacted.Add(float64(len(stale)))
	return len(stale), nil
}

func (c *Cache) readIndexLocked() ([]indexLine, error) {
	f, err := os.Open(c.index)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	var lines []indexLine
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := sc.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		e, ok := parseLine(raw)
		lines = append(lines, indexLine{raw: raw, entry: e, ok: ok})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return lines, nil
}

func (c *Cache) appendLocked(e Entry) error {
	f, err := os.OpenFile(c.index, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening index for append: %w", err)
	}
	if _, err := f.WriteString(formatLine(e)); err != nil {
		f.Close()
		return fmt.Errorf("appending to index: %w", err)
	}
	return f.Close()
}

// writeIndexLocked replaces the index file atomically.
func (c *Cache) writeIndexLocked(lines []string) error {
	tmp, err := os.CreateTemp(c.dir, "."+IndexFile+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, l := range lines {
		w.WriteString(l)
		w.WriteByte('\n')
	}
	flushErr := w.Flush()
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if err := errors.Join(flushErr, syncErr, closeErr); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp index: %w", err)
	}

	if err := os.Rename(tmpPath, c.index); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing index: %w", err)
	}
	return nil
}

// writePayload stores payload under a unique name prefixed with the URL
// fingerprint, so payloads of one URL sort together on disk.
func (c *Cache) writePayload(url string, payload []byte) (string, error) {
	f, err := os.CreateTemp(c.dir, fmt.Sprintf("%016x-*", xxhash.Sum64String(url)))
	if err != nil {
		return "", fmt.Errorf("creating payload file: %w", err)
	}
	path := f.Name()

	_, writeErr := f.Write(payload)
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing payload: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing payload: %w", closeErr)
	}
	return path, nil
}

// payloadPath resolves a recorded payload path. Relative paths that no
// longer resolve from the working directory are looked up by base name in
// the cache directory, so a cache keeps working after it is moved.
func (c *Cache) payloadPath(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	if _, err := os.Stat(file); err == nil {
		return file
	}
	return filepath.Join(c.dir, filepath.Base(file))
}

func formatLine(e Entry) string {
	return urlTag + e.URL + fileTag + e.File + "\n"
}

func parseLine(raw string) (Entry, bool) {
	raw = strings.TrimRight(raw, "\r\n")
	if !strings.HasPrefix(raw, urlTag) {
		return Entry{}, false
	}
	i := strings.LastIndex(raw, fileTag)
	if i < len(urlTag) {
		return Entry{}, false
	}
	e := Entry{URL: raw[len(urlTag):i], File: raw[i+len(fileTag):]}
	if e.URL == "" || e.File == "" {
		return Entry{}, false
	}
	return e, true
}
