package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the pipeline's configuration model. It captures account identity,
// upstream credentials, crawl tuning, storage, and metrics exposure.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Storage  StorageConfig  `yaml:"storage"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type AccountConfig struct {
	// Numeric platform user id of the publication's author.
	AuthorID int64 `yaml:"authorId"`
	// Publication identifier used as the association key.
	PublicationID string `yaml:"publicationId"`
	// Whether the author's own id is excluded from engager rankings.
	ExcludeSelf bool `yaml:"excludeSelf"`
}

type UpstreamConfig struct {
	// Base URL of the platform API. Defaults to the public endpoint.
	BaseURL string `yaml:"baseUrl"`
	// Session cookie for authenticated endpoints. If empty, read from
	// env SUBSTACK_COOKIE.
	Cookie string `yaml:"cookie"`
	// Requests per second and burst for the client-side limiter.
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type CrawlConfig struct {
	// Hard cap on total collected notes per crawl.
	MaxNotes int `yaml:"maxNotes"`
	// Consecutive pages without new notes tolerated before stopping.
	MarginOfSafety int `yaml:"marginOfSafety"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Account:  AccountConfig{ExcludeSelf: true},
		Upstream: UpstreamConfig{BaseURL: "https://substack.com/api/v1", RPS: 2, Burst: 10},
		Crawl:    CrawlConfig{MaxNotes: 99999, MarginOfSafety: 999},
		Storage:  StorageConfig{DBPath: "./audiencesync.db"},
		Metrics:  MetricsConfig{Addr: ""},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Upstream.Cookie == "" {
		c.Upstream.Cookie = os.Getenv("SUBSTACK_COOKIE")
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = os.Getenv("DB_PATH")
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
