// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/pdiddy/inspireq/internal/logging"
)

// Tree hands out one cache per record under a root directory. Keys are
// slash-separated identifiers such as "hep-th/9901001" and must name a
// directory inside the root. Only the first unavailable cache of a Tree is
// logged at warn level; later ones are logged at debug.
type Tree struct {
	root   string
	warned atomic.Bool
	log    zerolog.Logger
}

// NewTree returns a Tree rooted at root. Nothing is created until Open.
func NewTree(root string) *Tree {
	return &Tree{
		root: root,
		log:  logging.NewLogger("cache").With().Str("root", root).Logger(),
	}
}

// Open returns the cache for key; an empty key opens the root itself. A key
// that is absolute or climbs out of the root yields an inert cache and an
// error wrapping ErrUnavailable, as does a directory that cannot be created.
func (t *Tree) Open(key string) (*Cache, error) {
	rel := filepath.FromSlash(key)
	if rel == "" {
		rel = "."
	}
	if !filepath.IsLocal(rel) {
		c, err := newCache(t.root).disable(fmt.Errorf("%w: key %q is outside %s", ErrUnavailable, key, t.root))
		t.report(err)
		return c, err
	}

	c, err := open(filepath.Join(t.root, rel))
	if err != nil {
		t.report(err)
	}
	return c, err
}

func (t *Tree) report(err error) {
	if t.warned.CompareAndSwap(false, true) {
		t.log.Warn().Err(err).Msg("cache disabled, continuing without caching")
		return
	}
	t.log.Debug().Err(err).Msg("cache disabled")
}
