// Package config provides configuration loading for the article aggregator and sitemap.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingBaseURL           = errors.New("site.base_url is required")
	ErrInvalidBaseURL           = errors.New("site.base_url must be an absolute http(s) URL")
	ErrNoEnabledPlatforms       = errors.New("at least one platform must have a handle")
	ErrMissingPlatformBaseURL   = errors.New("platform base_url is required")
	ErrInvalidPerPage           = errors.New("platform per_page must be between 1 and 100")
	ErrInvalidBatchSize         = errors.New("zenn.detail.batch_size must be at least 1")
	ErrInvalidBatchDelay        = errors.New("zenn.detail.batch_delay_ms must be non-negative")
	ErrInvalidMaxAttempts       = errors.New("fetch.retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("fetch.retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("fetch.retry.backoff_multiplier must be >= 1.0")
	ErrInvalidExcerptLength     = errors.New("excerpt.max_length must be greater than excerpt.min_length")
	ErrInvalidSitemapTimeout    = errors.New("sitemap.timeout_sec must be at least 1")
	ErrMissingOutputPath        = errors.New("output.path is required")
)

// Config represents the complete aggregator configuration.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Platforms PlatformsConfig `yaml:"platforms"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Excerpt   ExcerptConfig   `yaml:"excerpt"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Sitemap   SitemapConfig   `yaml:"sitemap"`
	Output    OutputConfig    `yaml:"output"`
	Posts     PostsConfig     `yaml:"posts"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// SiteConfig describes the portfolio site itself.
type SiteConfig struct {
	BaseURL      string   `yaml:"base_url"`
	StaticRoutes []string `yaml:"static_routes"`
}

// PlatformsConfig holds per-platform settings.
type PlatformsConfig struct {
	Qiita PlatformConfig `yaml:"qiita"`
	Zenn  ZennConfig     `yaml:"zenn"`
	Note  PlatformConfig `yaml:"note"`
}

// PlatformConfig is the common part of a platform's settings.
// An empty handle disables the platform.
type PlatformConfig struct {
	Handle  string `yaml:"handle"`
	BaseURL string `yaml:"base_url"`
	PerPage int    `yaml:"per_page"`
}

// Enabled returns true if a handle is configured.
func (p *PlatformConfig) Enabled() bool {
	return p.Handle != ""
}

// ZennConfig adds detail-fetch pacing to the common platform settings.
type ZennConfig struct {
	PlatformConfig `yaml:",inline"`
	Detail         DetailConfig `yaml:"detail"`
}

// DetailConfig controls per-article detail fetches.
type DetailConfig struct {
	BatchSize    int `yaml:"batch_size"`
	BatchDelayMs int `yaml:"batch_delay_ms"`
}

// BatchDelay returns the pause between detail batches.
func (d *DetailConfig) BatchDelay() time.Duration {
	return time.Duration(d.BatchDelayMs) * time.Millisecond
}

// FetchConfig defines remote fetch behavior.
type FetchConfig struct {
	UserAgent    string      `yaml:"user_agent"`
	TimeoutSec   int         `yaml:"timeout_sec"`
	MaxBodyBytes int64       `yaml:"max_body_bytes"`
	Retry        RetryPolicy `yaml:"retry"`
}

// Timeout returns the per-request timeout, zero meaning none.
func (f *FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// ExcerptConfig bounds excerpt lengths, in runes.
type ExcerptConfig struct {
	MaxLength int `yaml:"max_length"`
	MinLength int `yaml:"min_length"`
}

// AggregateConfig controls merging.
type AggregateConfig struct {
	DedupeLinks bool `yaml:"dedupe_links"`
}

// SitemapConfig controls the live sitemap route.
type SitemapConfig struct {
	TimeoutSec   int    `yaml:"timeout_sec"`
	CacheControl string `yaml:"cache_control"`
	ArticlesFile string `yaml:"articles_file"`
}

// Timeout returns the aggregation deadline used by the sitemap.
func (s *SitemapConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// OutputConfig defines where the offline artifact goes.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// PostsConfig locates internal blog content.
type PostsConfig struct {
	Dir string `yaml:"dir"`
}

// ArchiveConfig configures optional archive sinks. Empty values disable a sink.
type ArchiveConfig struct {
	MongoURI         string `yaml:"mongo_uri"`
	MongoDatabase    string `yaml:"mongo_database"`
	MongoCollection  string `yaml:"mongo_collection"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	SupabaseURL      string `yaml:"supabase_url"`
	SupabaseKey      string `yaml:"supabase_key"`
	SupabasePassword string `yaml:"supabase_password"`
	SupabaseTable    string `yaml:"supabase_table"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:      "https://rancorder.vercel.app",
			StaticRoutes: []string{"", "/ja", "/blog"},
		},
		Platforms: PlatformsConfig{
			Qiita: PlatformConfig{Handle: "rancorder", BaseURL: "https://qiita.com", PerPage: 20},
			Zenn: ZennConfig{
				PlatformConfig: PlatformConfig{Handle: "supermassu", BaseURL: "https://zenn.dev", PerPage: 20},
				Detail:         DetailConfig{BatchSize: 5, BatchDelayMs: 200},
			},
			Note: PlatformConfig{BaseURL: "https://note.com", PerPage: 20},
		},
		Fetch: FetchConfig{
			MaxBodyBytes: 5 << 20,
			Retry: RetryPolicy{
				MaxAttempts:       1,
				InitialDelayMs:    500,
				MaxDelayMs:        5000,
				BackoffMultiplier: 2.0,
			},
		},
		Excerpt:   ExcerptConfig{MaxLength: 150, MinLength: 30},
		Aggregate: AggregateConfig{DedupeLinks: true},
		Sitemap: SitemapConfig{
			TimeoutSec:   10,
			CacheControl: "public, max-age=3600, s-maxage=3600",
		},
		Output: OutputConfig{Path: "public/external-articles.json"},
		Posts:  PostsConfig{Dir: "content/blog"},
		Archive: ArchiveConfig{
			MongoDatabase:   "portfolio",
			MongoCollection: "external_articles",
			SupabaseTable:   "external_article",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load loads the file at path, or the defaults when path is empty.
// Environment overrides and validation apply either way.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadConfig(path)
	}

	cfg := Default()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides handles, URLs and secrets from the environment.
func (c *Config) ApplyEnv() {
	overrides := map[string]*string{
		"SITE_BASE_URL":        &c.Site.BaseURL,
		"QIITA_HANDLE":         &c.Platforms.Qiita.Handle,
		"ZENN_HANDLE":          &c.Platforms.Zenn.Handle,
		"NOTE_HANDLE":          &c.Platforms.Note.Handle,
		"MONGO_URI":            &c.Archive.MongoURI,
		"POSTGRES_DSN":         &c.Archive.PostgresDSN,
		"SUPABASE_URL":         &c.Archive.SupabaseURL,
		"SUPABASE_KEY":         &c.Archive.SupabaseKey,
		"SUPABASE_DB_PASSWORD": &c.Archive.SupabasePassword,
	}

	for key, target := range overrides {
		if value, ok := os.LookupEnv(key); ok {
			*target = value
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return ErrMissingBaseURL
	}

	parsed, err := url.Parse(c.Site.BaseURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ErrInvalidBaseURL
	}

	platforms := map[string]*PlatformConfig{
		"qiita": &c.Platforms.Qiita,
		"zenn":  &c.Platforms.Zenn.PlatformConfig,
		"note":  &c.Platforms.Note,
	}

	enabledCount := 0

	for name, p := range platforms {
		if !p.Enabled() {
			continue
		}

		enabledCount++

		if p.BaseURL == "" {
			return fmt.Errorf("%w: %s", ErrMissingPlatformBaseURL, name)
		}

		if p.PerPage < 1 || p.PerPage > 100 {
			return fmt.Errorf("%w: %s", ErrInvalidPerPage, name)
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledPlatforms
	}

	if c.Platforms.Zenn.Detail.BatchSize < 1 {
		return ErrInvalidBatchSize
	}

	if c.Platforms.Zenn.Detail.BatchDelayMs < 0 {
		return ErrInvalidBatchDelay
	}

	// Validate retry policy
	if c.Fetch.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Fetch.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Fetch.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Excerpt.MinLength < 0 || c.Excerpt.MaxLength <= c.Excerpt.MinLength {
		return ErrInvalidExcerptLength
	}

	if c.Sitemap.TimeoutSec < 1 {
		return ErrInvalidSitemapTimeout
	}

	if c.Output.Path == "" {
		return ErrMissingOutputPath
	}

	return nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Site: %s, Qiita: %q, Zenn: %q, Note: %q, Output: %s}",
		c.Site.BaseURL,
		c.Platforms.Qiita.Handle,
		c.Platforms.Zenn.Handle,
		c.Platforms.Note.Handle,
		c.Output.Path,
	)
}
