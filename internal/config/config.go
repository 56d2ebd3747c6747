package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for a harvest run.
type Config struct {
	Site      SiteConfig      `mapstructure:"site"      yaml:"site"`
	Discovery DiscoveryConfig `mapstructure:"discovery" yaml:"discovery"`
	Harvest   HarvestConfig   `mapstructure:"harvest"   yaml:"harvest"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Transform TransformConfig `mapstructure:"transform" yaml:"transform"`
	Artifact  ArtifactConfig  `mapstructure:"artifact"  yaml:"artifact"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Run       RunConfig       `mapstructure:"run"       yaml:"run"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// SiteConfig describes the listing site's URL conventions.
type SiteConfig struct {
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	ListingURL string `mapstructure:"listing_url" yaml:"listing_url"`
	ItemPath   string `mapstructure:"item_path"   yaml:"item_path"`
	CoverHost  string `mapstructure:"cover_host"  yaml:"cover_host"`
	EmbedHost  string `mapstructure:"embed_host"  yaml:"embed_host"`
}

// DiscoveryConfig controls the listing-page pass.
type DiscoveryConfig struct {
	TargetCount     int           `mapstructure:"target_count"      yaml:"target_count"`
	MaxStalls       int           `mapstructure:"max_stalls"        yaml:"max_stalls"`
	MaxGrowAttempts int           `mapstructure:"max_grow_attempts" yaml:"max_grow_attempts"`
	GrowWait        time.Duration `mapstructure:"grow_wait"         yaml:"grow_wait"`
	Renderer        string        `mapstructure:"renderer"          yaml:"renderer"` // http, browser
}

// HarvestConfig controls the detail-page pass.
type HarvestConfig struct {
	Concurrency   int           `mapstructure:"concurrency"     yaml:"concurrency"`
	ItemTimeout   time.Duration `mapstructure:"item_timeout"    yaml:"item_timeout"`
	PacingMin     time.Duration `mapstructure:"pacing_min"      yaml:"pacing_min"`
	PacingMax     time.Duration `mapstructure:"pacing_max"      yaml:"pacing_max"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Fetcher       string        `mapstructure:"fetcher"         yaml:"fetcher"` // http, browser
	UserAgents    []string      `mapstructure:"user_agents"     yaml:"user_agents"`
	MaxBodySize   int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
	MaxRedirects  int           `mapstructure:"max_redirects"   yaml:"max_redirects"`
}

// BrowserConfig controls the headless browser used for rendering.
type BrowserConfig struct {
	Headless bool   `mapstructure:"headless" yaml:"headless"`
	Stealth  bool   `mapstructure:"stealth"  yaml:"stealth"`
	Bin      string `mapstructure:"bin"      yaml:"bin"`
}

// TransformConfig controls the target schema mapping.
type TransformConfig struct {
	IDOffset       int `mapstructure:"id_offset"       yaml:"id_offset"`
	DescriptionCap int `mapstructure:"description_cap" yaml:"description_cap"`
}

// ArtifactConfig locates the generated data file to patch.
type ArtifactConfig struct {
	Path     string `mapstructure:"path"      yaml:"path"`
	Segment  string `mapstructure:"segment"   yaml:"segment"`
	TypeName string `mapstructure:"type_name" yaml:"type_name"`
}

// StorageConfig controls where intermediate records are written.
type StorageConfig struct {
	Type          string `mapstructure:"type"           yaml:"type"`
	OutputDir     string `mapstructure:"output_dir"     yaml:"output_dir"`
	MongoURI      string `mapstructure:"mongo_uri"      yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
}

// RunConfig bounds a whole pipeline run.
type RunConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:    "https://www.crazygames.com",
			ListingURL: "https://www.crazygames.com",
			ItemPath:   "/game/",
			CoverHost:  "imgs.crazygames.com",
			EmbedHost:  "games.crazygames.com",
		},
		Discovery: DiscoveryConfig{
			TargetCount:     20,
			MaxStalls:       2,
			MaxGrowAttempts: 50,
			GrowWait:        1500 * time.Millisecond,
			Renderer:        "http",
		},
		Harvest: HarvestConfig{
			Concurrency:   5,
			ItemTimeout:   30 * time.Second,
			PacingMin:     1 * time.Second,
			PacingMax:     3 * time.Second,
			RatePerSecond: 2,
			Fetcher:       "http",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			MaxBodySize:  10 * 1024 * 1024, // 10MB
			MaxRedirects: 10,
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Transform: TransformConfig{
			IDOffset:       1,
			DescriptionCap: 100,
		},
		Artifact: ArtifactConfig{
			Path:     "../src/data/gamesData.ts",
			Segment:  "games",
			TypeName: "Game",
		},
		Storage: StorageConfig{
			Type:          "json",
			OutputDir:     "./output",
			MongoDatabase: "gameharvest",
		},
		Run: RunConfig{
			Timeout: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
