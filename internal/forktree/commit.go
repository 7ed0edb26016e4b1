package forktree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key identifies a repository by owning account and repository name.
type Key struct {
	Owner string
	Name  string
}

// ParseKey parses "owner/name".
func ParseKey(s string) (Key, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Key{}, fmt.Errorf("invalid repository key %q, expected owner/name", s)
	}
	return Key{Owner: owner, Name: name}, nil
}

func (k Key) String() string {
	return k.Owner + "/" + k.Name
}

// CloneDirName is the directory name used for the repository's local clone.
func (k Key) CloneDirName() string {
	return k.Owner + "," + k.Name
}

// Commit is a single (timestamp, identifier) pair from a repository history.
type Commit struct {
	Timestamp int64
	Hash      string
}

// Less orders commits by timestamp, then by hash.
func (c Commit) Less(o Commit) bool {
	if c.Timestamp != o.Timestamp {
		return c.Timestamp < o.Timestamp
	}
	return c.Hash < o.Hash
}

// Short returns an abbreviated hash.
func (c Commit) Short() string {
	if len(c.Hash) > 10 {
		return c.Hash[:10]
	}
	return c.Hash
}

func (c Commit) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Timestamp, c.Hash})
}

func (c *Commit) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("commit: expected [timestamp, hash], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Timestamp); err != nil {
		return fmt.Errorf("commit timestamp: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Hash); err != nil {
		return fmt.Errorf("commit hash: %w", err)
	}
	return nil
}

// SortChronological sorts oldest first.
func SortChronological(commits []Commit) {
	sort.Slice(commits, func(i, j int) bool { return commits[i].Less(commits[j]) })
}

// SortNewestFirst sorts newest first.
func SortNewestFirst(commits []Commit) {
	sort.Slice(commits, func(i, j int) bool { return commits[j].Less(commits[i]) })
}

// Earliest returns the chronologically first commit. ok is false for an
// empty history.
func Earliest(history []Commit) (c Commit, ok bool) {
	for i, h := range history {
		if i == 0 || h.Less(c) {
			c = h
		}
	}
	return c, len(history) > 0
}

// Latest returns the chronologically last commit.
func Latest(history []Commit) (c Commit, ok bool) {
	for i, h := range history {
		if i == 0 || c.Less(h) {
			c = h
		}
	}
	return c, len(history) > 0
}

// Divergence marks where a fork's history separates from its parent's.
// Both hashes are equal unless the fork rewrote its history.
type Divergence struct {
	ParentHash string
	ChildHash  string
}

func (d Divergence) String() string {
	if d.ParentHash == d.ChildHash {
		return d.ParentHash
	}
	return d.ParentHash + "->" + d.ChildHash
}

func (d Divergence) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{d.ParentHash, d.ChildHash})
}

func (d *Divergence) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("fork points: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("fork points: expected 2 hashes, got %d", len(pair))
	}
	d.ParentHash, d.ChildHash = pair[0], pair[1]
	return nil
}
