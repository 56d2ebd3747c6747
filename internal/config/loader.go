package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied on top by the caller.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("GAMEHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gameharvest")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".gameharvest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides bind.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("site.base_url", cfg.Site.BaseURL)
	v.SetDefault("site.listing_url", cfg.Site.ListingURL)
	v.SetDefault("site.item_path", cfg.Site.ItemPath)
	v.SetDefault("site.cover_host", cfg.Site.CoverHost)
	v.SetDefault("site.embed_host", cfg.Site.EmbedHost)

	v.SetDefault("discovery.target_count", cfg.Discovery.TargetCount)
	v.SetDefault("discovery.max_stalls", cfg.Discovery.MaxStalls)
	v.SetDefault("discovery.max_grow_attempts", cfg.Discovery.MaxGrowAttempts)
	v.SetDefault("discovery.grow_wait", cfg.Discovery.GrowWait)
	v.SetDefault("discovery.renderer", cfg.Discovery.Renderer)

	v.SetDefault("harvest.concurrency", cfg.Harvest.Concurrency)
	v.SetDefault("harvest.item_timeout", cfg.Harvest.ItemTimeout)
	v.SetDefault("harvest.pacing_min", cfg.Harvest.PacingMin)
	v.SetDefault("harvest.pacing_max", cfg.Harvest.PacingMax)
	v.SetDefault("harvest.rate_per_second", cfg.Harvest.RatePerSecond)
	v.SetDefault("harvest.fetcher", cfg.Harvest.Fetcher)
	v.SetDefault("harvest.user_agents", cfg.Harvest.UserAgents)
	v.SetDefault("harvest.max_body_size", cfg.Harvest.MaxBodySize)
	v.SetDefault("harvest.max_redirects", cfg.Harvest.MaxRedirects)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.bin", cfg.Browser.Bin)

	v.SetDefault("transform.id_offset", cfg.Transform.IDOffset)
	v.SetDefault("transform.description_cap", cfg.Transform.DescriptionCap)

	v.SetDefault("artifact.path", cfg.Artifact.Path)
	v.SetDefault("artifact.segment", cfg.Artifact.Segment)
	v.SetDefault("artifact.type_name", cfg.Artifact.TypeName)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_dir", cfg.Storage.OutputDir)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)

	v.SetDefault("run.timeout", cfg.Run.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
