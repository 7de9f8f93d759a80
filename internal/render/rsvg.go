package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// RSVGRenderer converts SVG to PDF with the rsvg-convert command.
type RSVGRenderer struct {
	// Path to rsvg-convert; looked up in PATH when empty.
	Path    string
	Timeout time.Duration
	Fonts   Fonts
}

func (r *RSVGRenderer) Name() string { return "rsvg-convert" }

func (r *RSVGRenderer) binary() (string, error) {
	if r.Path != "" {
		return exec.LookPath(r.Path)
	}
	return exec.LookPath("rsvg-convert")
}

// Available reports whether rsvg-convert can be executed.
func (r *RSVGRenderer) Available() bool {
	_, err := r.binary()
	return err == nil
}

// Render writes the markup to a scratch directory, converts it and returns
// the PDF bytes. The scratch directory is removed on every path.
func (r *RSVGRenderer) Render(ctx context.Context, svg []byte) ([]byte, error) {
	bin, err := r.binary()
	if err != nil {
		return nil, newError(r.Name(), "lookup", fmt.Errorf("rsvg-convert not found: %w", err))
	}

	tmpDir, err := os.MkdirTemp("", "cardgen-rsvg-*")
	if err != nil {
		return nil, newError(r.Name(), "prepare", err)
	}
	defer os.RemoveAll(tmpDir)

	svgPath := filepath.Join(tmpDir, "front.svg")
	pdfPath := filepath.Join(tmpDir, "front.pdf")
	if err := os.WriteFile(svgPath, svg, 0o600); err != nil {
		return nil, newError(r.Name(), "prepare", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, "--format=pdf", "--output="+pdfPath, svgPath)
	cmd.Env = append(os.Environ(), r.Fonts.Env()...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, newError(r.Name(), "convert", fmt.Errorf("command failed: %w, output: %s", err, string(output)))
	}

	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, newError(r.Name(), "read", err)
	}
	return pdf, nil
}
