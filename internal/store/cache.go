// Package store memoizes hosting API responses in a bbolt file.
//
// Entries are keyed by request URL and never invalidated. Each value is a
// BLAKE3 digest followed by the zstd-compressed JSON entry; the digest is
// checked on every read.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"
	"lukechampine.com/blake3"
)

// Buckets
var (
	BucketAPI = []byte("api") // request URL -> digest + zstd(entry)
)

const digestSize = 32

// ErrCorrupt is returned when a stored entry fails its digest check.
var ErrCorrupt = errors.New("corrupt cache entry")

// Entry is one cached API page.
type Entry struct {
	Body json.RawMessage `json:"body"`
	// Next is the URL of the following page, if any.
	Next string `json:"next,omitempty"`
}

type Cache struct {
	db  *bbolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the cache file at path.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(BucketAPI)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &Cache{db: db, enc: enc, dec: dec}, nil
}

func (c *Cache) Close() error {
	c.dec.Close()
	_ = c.enc.Close()
	return c.db.Close()
}

// Get returns the entry cached for url. ok is false on a miss.
func (c *Cache) Get(url string) (entry *Entry, ok bool, err error) {
	var stored []byte
	err = c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketAPI).Get([]byte(url))
		if v != nil {
			// v is only valid inside the transaction
			stored = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || stored == nil {
		return nil, false, err
	}

	if len(stored) < digestSize {
		return nil, false, fmt.Errorf("%w: %s", ErrCorrupt, url)
	}
	sum, payload := stored[:digestSize], stored[digestSize:]
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, url, err)
	}
	digest := blake3.Sum256(raw)
	if !bytes.Equal(sum, digest[:]) {
		return nil, false, fmt.Errorf("%w: %s: digest mismatch", ErrCorrupt, url)
	}

	entry = &Entry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, url, err)
	}
	return entry, true, nil
}

// Put stores entry under url, replacing any previous value.
func (c *Cache) Put(url string, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	digest := blake3.Sum256(raw)
	value := c.enc.EncodeAll(raw, append([]byte(nil), digest[:]...))

	return c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketAPI).Put([]byte(url), value)
	})
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(BucketAPI).Stats().KeyN
		return nil
	})
	return n, err
}
