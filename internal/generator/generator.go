// Package generator turns a player record into a finished card PDF on disk.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cardgen/internal/card"
	"cardgen/internal/compose"
	"cardgen/internal/render"
	u "cardgen/internal/utils"
)

// MissingAssetsError lists template assets that are absent or unreadable.
type MissingAssetsError struct {
	Paths []string
}

func (e *MissingAssetsError) Error() string {
	return "missing template asset(s): " + strings.Join(e.Paths, ", ")
}

// Generator runs the inject, render and compose steps for one record.
// It holds no mutable state and is safe for concurrent use.
type Generator struct {
	TemplatePath string
	OutputDir    string
	// DateLayout formats the dates printed on the card.
	DateLayout string
	Renderer   render.Renderer
	Compositor *compose.Compositor
}

// CheckAssets verifies that the template and the back page exist and are
// regular files. Every missing asset is reported.
func (g *Generator) CheckAssets() error {
	var missing []string
	for _, p := range []string{g.TemplatePath, g.Compositor.BackPage} {
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &MissingAssetsError{Paths: missing}
	}
	return nil
}

// Build produces the two-page card for rec in memory.
func (g *Generator) Build(ctx context.Context, rec card.Record) ([]byte, error) {
	tmpl, err := os.ReadFile(g.TemplatePath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	svg, err := card.Inject(tmpl, rec.Fields(g.DateLayout))
	if err != nil {
		return nil, err
	}

	front, err := g.Renderer.Render(ctx, svg)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	layout, err := g.Compositor.Compose(front, &out)
	if err != nil {
		return nil, fmt.Errorf("compose card: %w", err)
	}
	u.Debug("Card composed",
		"engine", g.Renderer.Name(),
		"front_width", layout.FrontWidth,
		"front_height", layout.FrontHeight,
		"scale", layout.Scale,
	)
	return out.Bytes(), nil
}

// Generate builds the card and writes it to OutputDir as <slug>.pdf,
// returning the path. An existing file with the same name is replaced.
func (g *Generator) Generate(ctx context.Context, rec card.Record) (string, error) {
	pdf, err := g.Build(ctx, rec)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(g.OutputDir, rec.Filename())
	if _, err := os.Stat(path); err == nil {
		u.Warn("Overwriting existing card", "path", path)
	}

	if err := writeFile(path, pdf); err != nil {
		return "", err
	}

	u.Info("Card generated",
		"path", path,
		"name", rec.Name(),
		"dob", rec.DateOfBirth().Format(g.DateLayout),
		"issued", rec.IssueDate().Format(g.DateLayout),
		"expires", rec.ExpirationDate().Format(g.DateLayout),
	)
	return path, nil
}

// writeFile writes data next to path and renames it into place so readers
// never see a partial card.
func writeFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move card into place: %w", err)
	}
	return nil
}
