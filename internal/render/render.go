// Package render turns card SVG markup into a single-page PDF.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Renderer converts SVG markup into a one-page PDF document.
type Renderer interface {
	Name() string
	Render(ctx context.Context, svg []byte) ([]byte, error)
}

// Error wraps a failure from a specific engine.
type Error struct {
	Engine string
	Op     string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s renderer %s failed: %v", e.Engine, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(engine, op string, err error) error {
	return &Error{Engine: engine, Op: op, Err: err}
}

// ErrNoRenderer is returned when no engine is configured or available.
var ErrNoRenderer = errors.New("no renderer available")

// Fonts points the rendering engines at a bundled fontconfig setup. The
// values are passed to child processes only.
type Fonts struct {
	Dir        string
	ConfigFile string
}

// Env returns the fontconfig variables for a child process.
func (f Fonts) Env() []string {
	var env []string
	if f.Dir != "" {
		env = append(env, "FONTCONFIG_PATH="+f.Dir)
	}
	switch {
	case f.ConfigFile != "":
		env = append(env, "FONTCONFIG_FILE="+f.ConfigFile)
	case f.Dir != "":
		env = append(env, "FONTCONFIG_FILE="+strings.TrimRight(f.Dir, "/")+"/fonts.conf")
	}
	return env
}

// Fallback tries each renderer in order and returns the first success.
type Fallback []Renderer

func (f Fallback) Name() string {
	names := make([]string, len(f))
	for i, r := range f {
		names[i] = r.Name()
	}
	return strings.Join(names, "|")
}

func (f Fallback) Render(ctx context.Context, svg []byte) ([]byte, error) {
	if len(f) == 0 {
		return nil, ErrNoRenderer
	}
	var errs []error
	for _, r := range f {
		pdf, err := r.Render(ctx, svg)
		if err == nil {
			return pdf, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("all renderers failed: %w", errors.Join(errs...))
}
