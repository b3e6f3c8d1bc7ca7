package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the server.
//
// Sources, highest priority first: an explicit path, CONFIG_PATH, ./local.yaml,
// then environment only. Environment variables override file values, and a
// .env file in the working directory is loaded into the environment first.
type Config struct {
	Env  string `yaml:"env"  env:"ENV"  env-default:"local"`
	Addr string `yaml:"addr" env:"ADDR" env-default:":8080"`

	APIURL  string `yaml:"wp_api_url"  env:"WP_API_URL"`
	SiteURL string `yaml:"wp_site_url" env:"WP_SITE_URL"`

	PageSize            int `yaml:"page_size"            env:"PAGE_SIZE"            env-default:"4"`
	RelatedCorpusSize   int `yaml:"related_corpus_size"  env:"RELATED_CORPUS_SIZE"  env-default:"10"`
	RelatedCount        int `yaml:"related_count"        env:"RELATED_COUNT"        env-default:"2"`
	PrefetchConcurrency int `yaml:"prefetch_concurrency" env:"PREFETCH_CONCURRENCY" env-default:"4"`

	PlaceholderImage     string `yaml:"placeholder_image"      env:"PLACEHOLDER_IMAGE"      env-default:"/default.jpg"`
	MediaContentFallback bool   `yaml:"media_content_fallback" env:"MEDIA_CONTENT_FALLBACK" env-default:"false"`
	FeedTitle            string `yaml:"feed_title"             env:"FEED_TITLE"             env-default:"gopress"`

	RequestTimeout  time.Duration `yaml:"request_timeout"  env:"REQUEST_TIMEOUT"  env-default:"15s"`
	UserAgent       string        `yaml:"user_agent"       env:"USER_AGENT"       env-default:"gopress/1.0 (+https://wordpress.org)"`
	SessionTTL      time.Duration `yaml:"session_ttl"      env:"SESSION_TTL"      env-default:"30m"`
	ArticleTTL      time.Duration `yaml:"article_ttl"      env:"ARTICLE_TTL"      env-default:"60s"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL" env-default:"5m"`
}

// DefaultConfig returns sane defaults. APIURL still has to be set.
func DefaultConfig() *Config {
	return &Config{
		Env:                  "local",
		Addr:                 ":8080",
		PageSize:             4,
		RelatedCorpusSize:    10,
		RelatedCount:         2,
		PrefetchConcurrency:  4,
		PlaceholderImage:     "/default.jpg",
		FeedTitle:            "gopress",
		RequestTimeout:       15 * time.Second,
		UserAgent:            "gopress/1.0 (+https://wordpress.org)",
		SessionTTL:           30 * time.Minute,
		ArticleTTL:           60 * time.Second,
		CleanupInterval:      5 * time.Minute,
		MediaContentFallback: false,
	}
}

// LoadConfig reads configuration by the priority documented on Config.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config

	switch {
	case path != "":
		if err := readFile(path, &cfg); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH"), &cfg); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat("local.yaml"); err == nil {
			if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
				return nil, fmt.Errorf("failed to read local.yaml: %w", err)
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read env: %w", err)
		}
	}

	// platforms commonly hand out only a port
	if p := os.Getenv("PORT"); p != "" {
		cfg.Addr = ":" + p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file does not exist: %s", path)
	}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("wp_api_url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("wp_api_url must be an absolute http(s) url")
	}
	if c.SiteURL != "" {
		if u, err := url.Parse(c.SiteURL); err != nil || !u.IsAbs() {
			return fmt.Errorf("wp_site_url must be an absolute url")
		}
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be > 0")
	}
	if c.RelatedCorpusSize <= 0 {
		return fmt.Errorf("related_corpus_size must be > 0")
	}
	if c.RelatedCount < 0 || c.RelatedCount > c.RelatedCorpusSize {
		return fmt.Errorf("related_count must be between 0 and related_corpus_size")
	}
	if c.PrefetchConcurrency <= 0 {
		return fmt.Errorf("prefetch_concurrency must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("session_ttl must be at least 1m")
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be > 0")
	}
	return nil
}

// siteURL is the base for relative media paths, defaulting to the API host.
func (c *Config) siteURL() string {
	if c.SiteURL != "" {
		return c.SiteURL
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return ""
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}
