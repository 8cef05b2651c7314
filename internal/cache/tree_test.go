package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inspireq/internal/logging"
)

func TestTreeOpenPerRecord(t *testing.T) {
	root := t.TempDir()
	tree := NewTree(root)

	c, err := tree.Open("hep-th/9901001")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "hep-th", "9901001"), c.Dir())
	require.NoError(t, c.Store("https://example.org/a", []byte("A")))
	_, err = os.Stat(filepath.Join(root, "hep-th", "9901001", IndexFile))
	assert.NoError(t, err)

	whole, err := tree.Open("")
	require.NoError(t, err)
	assert.Equal(t, root, whole.Dir())
}

func TestTreeOpenRejectsEscapingKeys(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "cache")
	tree := NewTree(root)

	for _, key := range []string{"../x", "a/../../x", "/abs/x"} {
		c, err := tree.Open(key)
		require.Error(t, err, key)
		assert.ErrorIs(t, err, ErrUnavailable)
		require.NotNil(t, c)

		assert.NoError(t, c.Store("https://example.org/a", []byte("A")))
		_, ok := c.Lookup("https://example.org/a")
		assert.False(t, ok, key)
	}

	_, err := os.Stat(filepath.Join(parent, "x"))
	assert.True(t, os.IsNotExist(err), "no directory is created outside the root")
}

func TestTreeWarnsOnce(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	logging.Setup(logging.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	tree := NewTree(blocker)

	for _, key := range []string{"2301.00001", "2301.00002", "2301.00003"} {
		_, err := tree.Open(key)
		assert.ErrorIs(t, err, ErrUnavailable)
	}

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `"level":"warn"`), out)
	assert.Equal(t, 2, strings.Count(out, `"level":"debug"`), out)
}
