package main

import (
	"os"
	"time"

	"github.com/nicolagi/filedrop/drop"
	"github.com/nicolagi/filedrop/static"
	"github.com/nicolagi/filedrop/storage"
	"github.com/rogpeppe/rjson"
)

type config struct {
	Listen string `json:"listen"`
	Debug  bool   `json:"debug"`

	// Makes static responses uncacheable.
	BypassEdgeCache bool `json:"bypass_edge_cache"`

	TTLSeconds int64 `json:"ttl_seconds"`

	// Lowered to what fits in an item for the "dynamodb" store type.
	MaxUploadBytes int64   `json:"max_upload_bytes"`
	UploadRate     float64 `json:"upload_rate"`
	UploadBurst    int     `json:"upload_burst"`

	SiteRoot           string `json:"site_root"`
	NotFoundPage       string `json:"not_found_page"`
	CacheMaxAgeSeconds int64  `json:"cache_max_age_seconds"`

	// If positive, a memory cache in front of the store keeps entries for
	// this long.
	CacheTTLSeconds      int64 `json:"cache_ttl_seconds"`
	SweepIntervalSeconds int64 `json:"sweep_interval_seconds"`

	Store storeConfig `json:"store"`
}

type storeConfig struct {
	Type string `json:"type"`

	// Properties for "bolt", "disk" and "sqlite" types.
	Path string `json:"path"`

	// Properties for "redis" and "remote" types.
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`

	// Properties for "s3" and "dynamodb" types.
	Profile  string `json:"profile"`
	Region   string `json:"region"`
	Bucket   string `json:"bucket"`
	Endpoint string `json:"endpoint"`
	Table    string `json:"table"`
}

func loadConfig(pathname string) (*config, error) {
	f, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	var c *config
	err = rjson.NewDecoder(f).Decode(&c)
	return c, err
}

func (c *config) applyDefaultsForMissingProperties() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = int64(drop.DefaultTTL / time.Second)
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = drop.DefaultMaxUploadBytes
	}
	if c.Store.Type == "dynamodb" && c.MaxUploadBytes > storage.DynamoDBMaxValueBytes {
		c.MaxUploadBytes = storage.DynamoDBMaxValueBytes
	}
	if c.SiteRoot == "" {
		c.SiteRoot = "$HOME/lib/filedrop/site"
	}
	if c.NotFoundPage == "" {
		c.NotFoundPage = static.DefaultNotFoundPage
	}
	if c.SweepIntervalSeconds <= 0 {
		c.SweepIntervalSeconds = 3600
	}
	if c.Store.Type == "" {
		c.Store.Type = "bolt"
	}
	if c.Store.Path == "" {
		switch c.Store.Type {
		case "bolt":
			c.Store.Path = "$HOME/lib/filedrop/files.db"
		case "disk":
			c.Store.Path = "$HOME/lib/filedrop/files"
		case "sqlite":
			c.Store.Path = "$HOME/lib/filedrop/files.sqlite"
		}
	}
	if c.Store.Region == "" {
		c.Store.Region = "eu-west-2"
	}
	if c.Store.Profile == "" {
		c.Store.Profile = "default"
	}
}

func (c *config) dropConfig() drop.Config {
	return drop.Config{
		TTL:            time.Duration(c.TTLSeconds) * time.Second,
		MaxUploadBytes: c.MaxUploadBytes,
		Debug:          c.Debug,
	}
}

func (c *config) staticOptions() static.Options {
	return static.Options{
		BypassCache:  c.BypassEdgeCache,
		Debug:        c.Debug,
		NotFoundPage: c.NotFoundPage,
		CacheMaxAge:  time.Duration(c.CacheMaxAgeSeconds) * time.Second,
	}
}
