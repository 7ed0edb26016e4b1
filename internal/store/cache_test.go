package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

const forksURL = "https://api.github.com/repos/watabou/pixel-dungeon/forks"

func TestCachePutGet(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "api_cache.db"))
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(forksURL)
	require.NoError(t, err)
	assert.False(t, ok)

	entry := &Entry{Body: []byte(`[{"name":"pixel-dungeon"}]`), Next: forksURL + "?page=2"}
	require.NoError(t, c.Put(forksURL, entry))

	got, ok, err := c.Get(forksURL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(entry.Body), string(got.Body))
	assert.Equal(t, entry.Next, got.Next)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "api.db")

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(forksURL, &Entry{Body: []byte(`{}`)}))
	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(forksURL)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheDetectsCorruption(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "api_cache.db"))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put(forksURL, &Entry{Body: []byte(`{"a":1}`)}))
	require.NoError(t, c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketAPI)
		v := append([]byte(nil), b.Get([]byte(forksURL))...)
		v[0] ^= 0xff
		return b.Put([]byte(forksURL), v)
	}))

	_, _, err = c.Get(forksURL)
	assert.True(t, errors.Is(err, ErrCorrupt))
}
