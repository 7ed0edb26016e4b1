// Package gitlog reads commit histories out of local clones and creates
// those clones.
//
// Two backends are provided: one drives the git executable, the other uses
// go-git in process.
package gitlog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/novellus/pixel-dungeon-network/internal/forktree"
)

// Extractor returns every commit reachable from the current branch tip of
// the clone in dir.
type Extractor interface {
	History(ctx context.Context, dir string) ([]forktree.Commit, error)
}

// LogFormat is the git log format understood by ParseLog: author timestamp
// and full hash.
const LogFormat = "%at %H"

// ParseLog parses git log output in LogFormat, one commit per line. Lines
// wrapped in double quotes are accepted.
func ParseLog(out []byte) ([]forktree.Commit, error) {
	var history []forktree.Commit
	sc := bufio.NewScanner(bytes.NewReader(out))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(strings.ReplaceAll(sc.Text(), `"`, ""))
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("git log line %d: expected \"<timestamp> <hash>\", got %q", n, line)
		}
		ts, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("git log line %d: bad timestamp: %w", n, err)
		}
		history = append(history, forktree.Commit{Timestamp: ts, Hash: fields[1]})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan git log: %w", err)
	}
	return history, nil
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("clone %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("clone %s is not a directory", dir)
	}
	return nil
}

// ExecExtractor runs `git log` in the clone.
type ExecExtractor struct {
	// Git is the executable to run; empty means "git".
	Git string
}

func (e ExecExtractor) git() string {
	if e.Git == "" {
		return "git"
	}
	return e.Git
}

func (e ExecExtractor) History(ctx context.Context, dir string) ([]forktree.Commit, error) {
	if err := requireDir(dir); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.git(), "log", "--pretty=format:"+LogFormat)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git log in %s: %w: %s", dir, err, strings.TrimSpace(stderr.String()))
	}

	history, err := ParseLog(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("git log in %s returned no commits", dir)
	}
	return history, nil
}
