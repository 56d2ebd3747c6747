package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Site.BaseURL); err != nil {
		return fmt.Errorf("site.base_url: %w", err)
	}
	if err := ValidateURL(cfg.Site.ListingURL); err != nil {
		return fmt.Errorf("site.listing_url: %w", err)
	}
	if cfg.Site.ItemPath == "" {
		return fmt.Errorf("site.item_path must not be empty")
	}

	if cfg.Discovery.TargetCount < 1 {
		return fmt.Errorf("discovery.target_count must be >= 1, got %d", cfg.Discovery.TargetCount)
	}
	if cfg.Discovery.MaxStalls < 1 {
		return fmt.Errorf("discovery.max_stalls must be >= 1, got %d", cfg.Discovery.MaxStalls)
	}
	if cfg.Discovery.GrowWait < 0 {
		return fmt.Errorf("discovery.grow_wait must be >= 0")
	}
	if cfg.Discovery.Renderer != "http" && cfg.Discovery.Renderer != "browser" {
		return fmt.Errorf("discovery.renderer must be 'http' or 'browser', got %q", cfg.Discovery.Renderer)
	}

	if cfg.Harvest.Concurrency < 1 {
		return fmt.Errorf("harvest.concurrency must be >= 1, got %d", cfg.Harvest.Concurrency)
	}
	if cfg.Harvest.Concurrency > 100 {
		return fmt.Errorf("harvest.concurrency must be <= 100, got %d", cfg.Harvest.Concurrency)
	}
	if cfg.Harvest.ItemTimeout <= 0 {
		return fmt.Errorf("harvest.item_timeout must be > 0")
	}
	if cfg.Harvest.PacingMin < 0 || cfg.Harvest.PacingMax < cfg.Harvest.PacingMin {
		return fmt.Errorf("harvest pacing range invalid: [%s, %s]", cfg.Harvest.PacingMin, cfg.Harvest.PacingMax)
	}
	if cfg.Harvest.RatePerSecond < 0 {
		return fmt.Errorf("harvest.rate_per_second must be >= 0")
	}
	if cfg.Harvest.Fetcher != "http" && cfg.Harvest.Fetcher != "browser" {
		return fmt.Errorf("harvest.fetcher must be 'http' or 'browser', got %q", cfg.Harvest.Fetcher)
	}
	if cfg.Harvest.MaxBodySize <= 0 {
		return fmt.Errorf("harvest.max_body_size must be > 0")
	}

	if cfg.Transform.IDOffset < 1 {
		return fmt.Errorf("transform.id_offset must be >= 1, got %d", cfg.Transform.IDOffset)
	}
	if cfg.Transform.DescriptionCap < 10 {
		return fmt.Errorf("transform.description_cap must be >= 10, got %d", cfg.Transform.DescriptionCap)
	}

	if cfg.Artifact.Segment == "" || cfg.Artifact.TypeName == "" {
		return fmt.Errorf("artifact.segment and artifact.type_name must be set")
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "mongo": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv, mongo)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "mongo" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required when storage.type is mongo")
	}

	if cfg.Run.Timeout <= 0 {
		return fmt.Errorf("run.timeout must be > 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks that a URL is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
