package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Graphviz renders DOT sources with the graphviz dot executable.
type Graphviz struct {
	// Dot is the executable to run; empty means "dot".
	Dot string
}

func (gv Graphviz) bin() string {
	if gv.Dot == "" {
		return "dot"
	}
	return gv.Dot
}

// Render writes src rendered in format (svg, png, pdf, ...) to out.
func (gv Graphviz) Render(ctx context.Context, src []byte, format, out string) error {
	if format == "" {
		format = "svg"
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, gv.bin(), "-T"+format, "-o", out)
	cmd.Stdin = bytes.NewReader(src)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s -T%s: %w: %s", gv.bin(), format, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// WriteDOT stores the DOT encoding of g at path.
func WriteDOT(g *Graph, path string) ([]byte, error) {
	src, err := g.DOT()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, src, 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return src, nil
}
