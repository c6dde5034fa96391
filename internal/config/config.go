// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package config reads cicheck settings from a TOML file.  Settings in the
// file provide defaults for the command line flags of the same name; flags
// given explicitly on the command line take precedence.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Config holds the settings that may be given in a configuration file.  Each
// key is named after the flag it seeds.
type Config struct {
	Progs             string `toml:"progs"`
	OneShot           bool   `toml:"one_shot"`
	ErrorsAbort       bool   `toml:"errors_abort"`
	DumpScopes        bool   `toml:"dump_scopes"`
	CacheSize         int    `toml:"cache_size"`
	Address           string `toml:"address"`
	Port              string `toml:"port"`
	PollInterval      string `toml:"poll_interval"`
	JaegerEndpoint    string `toml:"jaeger_endpoint"`
	TraceSamplePeriod int    `toml:"trace_sample_period"`

	md toml.MetaData
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	return Parse(string(data))
}

// Parse decodes configuration from TOML text.  Unknown keys are an error.
func Parse(text string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(text, &cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	cfg.md = md
	if cfg.PollInterval != "" {
		if _, err := time.ParseDuration(cfg.PollInterval); err != nil {
			return nil, errors.Wrap(err, "invalid poll_interval")
		}
	}
	if cfg.CacheSize < 0 {
		return nil, errors.Errorf("cache_size must not be negative, got %d", cfg.CacheSize)
	}
	if cfg.TraceSamplePeriod < 0 {
		return nil, errors.Errorf("trace_sample_period must not be negative, got %d", cfg.TraceSamplePeriod)
	}
	return &cfg, nil
}

func (c *Config) values() map[string]string {
	return map[string]string{
		"progs":               c.Progs,
		"one_shot":            strconv.FormatBool(c.OneShot),
		"errors_abort":        strconv.FormatBool(c.ErrorsAbort),
		"dump_scopes":         strconv.FormatBool(c.DumpScopes),
		"cache_size":          strconv.Itoa(c.CacheSize),
		"address":             c.Address,
		"port":                c.Port,
		"poll_interval":       c.PollInterval,
		"jaeger_endpoint":     c.JaegerEndpoint,
		"trace_sample_period": strconv.Itoa(c.TraceSamplePeriod),
	}
}

// Apply sets each flag in fs that the configuration file defines, unless the
// flag was already set on the command line.  Keys without a matching flag are
// ignored.
func (c *Config) Apply(fs *flag.FlagSet) error {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	for name, value := range c.values() {
		if !c.md.IsDefined(name) {
			continue
		}
		if set[name] {
			glog.V(1).Infof("flag -%s overrides config value %q", name, value)
			continue
		}
		if fs.Lookup(name) == nil {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return errors.Wrapf(err, "config value for %s", name)
		}
	}
	return nil
}
