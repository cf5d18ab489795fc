// Package config resolves trend-digest settings from defaults, an optional
// YAML file and TREND_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	GeneratorCodex     = "codex"
	GeneratorAnthropic = "anthropic"

	FetchHTTP    = "http"
	FetchBrowser = "browser"
)

type Config struct {
	SiteRoot            string        `yaml:"site_root"`
	PostsDir            string        `yaml:"posts_dir"`
	CategoriesFile      string        `yaml:"categories_file"`
	TrendingURL         string        `yaml:"trending_url"`
	MinItems            int           `yaml:"min_items"`
	CloneTimeout        time.Duration `yaml:"clone_timeout"`
	GeneratorTimeout    time.Duration `yaml:"generator_timeout"`
	Generator           string        `yaml:"generator"`
	CodexBin            string        `yaml:"codex_bin"`
	FetchMode           string        `yaml:"fetch_mode"`
	BuildCommand        []string      `yaml:"build_command"`
	PostURLBase         string        `yaml:"post_url_base"`
	Category            string        `yaml:"category"`
	TimezoneOffsetHours int           `yaml:"timezone_offset_hours"`
	HTMLDir             string        `yaml:"html_dir"`
	PDF                 bool          `yaml:"pdf"`
	LedgerPath          string        `yaml:"ledger_path"`
}

func Default() Config {
	return Config{
		SiteRoot:            ".",
		TrendingURL:         "https://github.com/trending?since=daily",
		MinItems:            10,
		CloneTimeout:        180 * time.Second,
		GeneratorTimeout:    600 * time.Second,
		Generator:           GeneratorCodex,
		CodexBin:            "codex",
		FetchMode:           FetchHTTP,
		BuildCommand:        []string{"npm", "run", "build:site"},
		PostURLBase:         "https://opflow.cc/posts/",
		Category:            "github trend",
		TimezoneOffsetHours: 8,
	}
}

// Load reads .env (if present), then path (if non-empty), then the
// environment. Relative posts/categories paths resolve against SiteRoot.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(blob, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok, err := envSeconds("TREND_CLONE_TIMEOUT_SEC"); err != nil {
		return err
	} else if ok {
		c.CloneTimeout = v
	}
	if v, ok, err := envSeconds("TREND_CODEX_TIMEOUT_SEC"); err != nil {
		return err
	} else if ok {
		c.GeneratorTimeout = v
	}
	if v := envString("TREND_SITE_ROOT"); v != "" {
		c.SiteRoot = v
	}
	if v := envString("TREND_GENERATOR"); v != "" {
		c.Generator = strings.ToLower(v)
	}
	if v := envString("TREND_LEDGER_PATH"); v != "" {
		c.LedgerPath = v
	}
	if v := envString("TREND_FETCH_MODE"); v != "" {
		c.FetchMode = strings.ToLower(v)
	}
	return nil
}

func (c *Config) resolvePaths() {
	if c.PostsDir == "" {
		c.PostsDir = filepath.Join("content", "posts")
	}
	if c.CategoriesFile == "" {
		c.CategoriesFile = filepath.Join("content", "categories.json")
	}
	if !filepath.IsAbs(c.PostsDir) {
		c.PostsDir = filepath.Join(c.SiteRoot, c.PostsDir)
	}
	if !filepath.IsAbs(c.CategoriesFile) {
		c.CategoriesFile = filepath.Join(c.SiteRoot, c.CategoriesFile)
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.MinItems <= 0 {
		errs = append(errs, errors.New("min_items must be positive"))
	}
	if c.CloneTimeout <= 0 {
		errs = append(errs, errors.New("clone_timeout must be positive"))
	}
	if c.GeneratorTimeout <= 0 {
		errs = append(errs, errors.New("generator_timeout must be positive"))
	}
	switch c.Generator {
	case GeneratorCodex, GeneratorAnthropic:
	default:
		errs = append(errs, fmt.Errorf("unknown generator %q", c.Generator))
	}
	switch c.FetchMode {
	case FetchHTTP, FetchBrowser:
	default:
		errs = append(errs, fmt.Errorf("unknown fetch_mode %q", c.FetchMode))
	}
	if c.TimezoneOffsetHours < -12 || c.TimezoneOffsetHours > 14 {
		errs = append(errs, fmt.Errorf("timezone_offset_hours %d out of range", c.TimezoneOffsetHours))
	}
	return errors.Join(errs...)
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envSeconds(key string) (time.Duration, bool, error) {
	raw := envString(key)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(n) * time.Second, true, nil
}
