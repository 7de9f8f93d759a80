package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when neither --config nor CONFIG_PATH is set.
const DefaultConfigFile = "config.yaml"

// Config is the full application configuration.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Cache struct {
		RedisHost          string        `yaml:"redis_host"`
		RenderCacheEnabled bool          `yaml:"render_cache_enabled"`
		RenderCacheTTL     time.Duration `yaml:"render_cache_ttl"`
		RenderCacheDB      int           `yaml:"redis_render_db"`
		DownloadDB         int           `yaml:"redis_download_db"`
		RateLimitDB        int           `yaml:"redis_rate_db"`
	} `yaml:"cache"`

	RateLimiter struct {
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
		UserLimit         int           `yaml:"user_limit"`
		Interval          time.Duration `yaml:"interval"`
	} `yaml:"rate_limiter"`

	Card struct {
		Template       string `yaml:"template"`
		BackPage       string `yaml:"back_page"`
		OutputDir      string `yaml:"output_dir"`
		DateLayout     string `yaml:"date_layout"`
		FormDateLayout string `yaml:"form_date_layout"`
	} `yaml:"card"`

	Render struct {
		Engine          string `yaml:"engine"`
		ChromePath      string `yaml:"chrome_path"`
		ChromeNoSandbox bool   `yaml:"chrome_no_sandbox"`
		RSVGPath        string `yaml:"rsvg_path"`
		TimeoutSecs     int    `yaml:"timeout_secs"`
		FontsDir        string `yaml:"fonts_dir"`
		FontConfigFile  string `yaml:"fontconfig_file"`
	} `yaml:"render"`

	Downloads struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"downloads"`
}

// Render engine names accepted in render.engine.
const (
	EngineAuto   = "auto"
	EngineChrome = "chrome"
	EngineRSVG   = "rsvg"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	var cfg Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":8501"

	cfg.Logger.Level = "info"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 3
	cfg.Logger.MaxAgeDays = 7

	cfg.Cache.RenderCacheTTL = 24 * time.Hour
	cfg.Cache.RenderCacheDB = 1
	cfg.Cache.DownloadDB = 2

	cfg.RateLimiter.Interval = time.Minute

	cfg.Card.Template = "page1.svg"
	cfg.Card.BackPage = "page2.pdf"
	cfg.Card.OutputDir = "outputs"
	cfg.Card.DateLayout = "2006-01-02"
	cfg.Card.FormDateLayout = "01/02/2006"

	cfg.Render.Engine = EngineAuto
	cfg.Render.TimeoutSecs = 30
	cfg.Render.ChromeNoSandbox = true

	cfg.Downloads.TTL = 10 * time.Minute
	return cfg
}

// LoadConfig resolves the config path (explicit path, then CONFIG_PATH, then
// DefaultConfigFile if it exists), loads it on top of the defaults and
// applies environment overrides.
func LoadConfig(path string) (Config, error) {
	// .env never overrides variables that are already set.
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		if p := os.Getenv("CONFIG_PATH"); p != "" {
			path, explicit = p, true
		} else {
			path = DefaultConfigFile
		}
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// defaults only
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CHROME_BIN"); v != "" && cfg.Render.ChromePath == "" {
		cfg.Render.ChromePath = v
	}
	if v := os.Getenv("CARDGEN_FONTS_DIR"); v != "" {
		cfg.Render.FontsDir = v
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch strings.ToLower(c.Render.Engine) {
	case EngineAuto, EngineChrome, EngineRSVG:
	default:
		return fmt.Errorf("render.engine %q: must be one of auto, chrome, rsvg", c.Render.Engine)
	}
	if c.Render.TimeoutSecs <= 0 {
		return errors.New("render.timeout_secs must be positive")
	}
	if c.Card.Template == "" || c.Card.BackPage == "" {
		return errors.New("card.template and card.back_page are required")
	}
	if c.Card.DateLayout == "" || c.Card.FormDateLayout == "" {
		return errors.New("card.date_layout and card.form_date_layout are required")
	}
	if c.RateLimiter.UserLimit < 0 {
		return errors.New("rate_limiter.user_limit must not be negative")
	}
	if c.RateLimiter.UserLimit > 0 && c.RateLimiter.Interval <= 0 {
		return errors.New("rate_limiter.interval must be positive")
	}
	if c.Downloads.TTL <= 0 {
		return errors.New("downloads.ttl must be positive")
	}
	return nil
}
