package forktree

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// record is the persisted form of a node and its forks.
type record struct {
	APIPackage         Repository  `json:"api_package"`
	Forks              []*record   `json:"forks"`
	CommitHistory      []Commit    `json:"commit_history,omitempty"`
	ForkPoints         *Divergence `json:"fork_points,omitempty"`
	InterestingCommits []Commit    `json:"interesting_commits,omitempty"`
}

func (t *Tree) toRecord(h Handle) *record {
	n := t.nodes[h]
	r := &record{
		APIPackage:         n.Repo,
		Forks:              make([]*record, 0, len(n.Children)),
		CommitHistory:      n.History,
		ForkPoints:         n.Divergence,
		InterestingCommits: n.Interesting,
	}
	for _, c := range n.Children {
		r.Forks = append(r.Forks, t.toRecord(c))
	}
	return r
}

func fromRecord(r *record) (*Tree, error) {
	t := New(r.APIPackage)
	var fill func(h Handle, r *record) error
	fill = func(h Handle, r *record) error {
		n := t.nodes[h]
		n.History = r.CommitHistory
		n.Divergence = r.ForkPoints
		n.Interesting = r.InterestingCommits
		for _, f := range r.Forks {
			c, err := t.AddChild(h, f.APIPackage)
			if err != nil {
				return err
			}
			if err := fill(c, f); err != nil {
				return err
			}
		}
		return nil
	}
	if err := fill(t.Root(), r); err != nil {
		return nil, err
	}
	return t, nil
}

// Encode writes the tree as JSON.
func (t *Tree) Encode(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(t.toRecord(t.Root())); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return nil
}

// Decode reads a tree written by Encode.
func Decode(r io.Reader) (*Tree, error) {
	var rec record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return fromRecord(&rec)
}

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Save writes the tree to path, zstd-compressed when path ends in ".zst".
func (t *Tree) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create tree directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create tree file: %w", err)
	}

	err = t.writeTo(f, compressed(path))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename tree file: %w", err)
	}
	return nil
}

func (t *Tree) writeTo(w io.Writer, zst bool) error {
	if !zst {
		return t.Encode(w)
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := t.Encode(enc); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Load reads a tree saved by Save.
func Load(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tree file: %w", err)
	}
	defer f.Close()

	if !compressed(path) {
		return Decode(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	return Decode(dec)
}
