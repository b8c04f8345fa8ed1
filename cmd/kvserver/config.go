package main

import (
	"os"

	"github.com/rogpeppe/rjson"
)

type config struct {
	Listen string `json:"listen"`
	Debug  bool   `json:"debug"`

	// Either "bolt" or "disk".
	Backend              string `json:"backend"`
	Path                 string `json:"path"`
	SweepIntervalSeconds int64  `json:"sweep_interval_seconds"`
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
		c.Listen = "localhost:6660"
	}
	if c.Backend == "" {
		c.Backend = "bolt"
	}
	if c.Path == "" {
		if c.Backend == "disk" {
			c.Path = "$HOME/lib/filedrop/kv"
		} else {
			c.Path = "$HOME/lib/filedrop/kv.db"
		}
	}
	if c.SweepIntervalSeconds <= 0 {
		c.SweepIntervalSeconds = 3600
	}
}
