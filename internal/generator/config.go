package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"cardgen/internal/compose"
	"cardgen/internal/render"
	u "cardgen/internal/utils"
)

// FromConfig builds a Generator from the card and render sections of cfg.
// When rdb is non-nil and the render cache is enabled, rendered front pages
// are cached in Redis.
func FromConfig(cfg u.Config, rdb *redis.Client) (*Generator, error) {
	r, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	if rdb != nil && cfg.Cache.RenderCacheEnabled {
		r = &render.Cached{Next: r, Redis: rdb, TTL: cfg.Cache.RenderCacheTTL}
	}

	return &Generator{
		TemplatePath: cfg.Card.Template,
		OutputDir:    cfg.Card.OutputDir,
		DateLayout:   cfg.Card.DateLayout,
		Renderer:     r,
		Compositor:   &compose.Compositor{BackPage: cfg.Card.BackPage},
	}, nil
}

type engine interface {
	render.Renderer
	Available() bool
}

// NewRenderer returns the engine named by render.engine. In auto mode every
// engine found on this machine is tried, rsvg-convert first.
func NewRenderer(cfg u.Config) (render.Renderer, error) {
	timeout := time.Duration(cfg.Render.TimeoutSecs) * time.Second
	fonts := render.Fonts{Dir: cfg.Render.FontsDir, ConfigFile: cfg.Render.FontConfigFile}

	rsvg := &render.RSVGRenderer{Path: cfg.Render.RSVGPath, Timeout: timeout, Fonts: fonts}
	chrome := &render.ChromeRenderer{
		ExecPath:  cfg.Render.ChromePath,
		NoSandbox: cfg.Render.ChromeNoSandbox,
		Timeout:   timeout,
		Fonts:     fonts,
	}

	switch strings.ToLower(cfg.Render.Engine) {
	case u.EngineRSVG:
		return rsvg, nil
	case u.EngineChrome:
		return chrome, nil
	case u.EngineAuto, "":
		found := lo.Filter([]engine{rsvg, chrome}, func(e engine, _ int) bool {
			return e.Available()
		})
		if len(found) == 0 {
			return nil, fmt.Errorf("auto engine: install rsvg-convert or Chrome: %w", render.ErrNoRenderer)
		}
		u.Debug("Render engines detected", "engines", lo.Map(found, func(e engine, _ int) string { return e.Name() }))
		if len(found) == 1 {
			return found[0], nil
		}
		return render.Fallback(lo.Map(found, func(e engine, _ int) render.Renderer { return e })), nil
	}
	return nil, fmt.Errorf("unknown render engine %q", cfg.Render.Engine)
}
