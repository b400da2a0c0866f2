package config

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package config loads the optional YAML configuration file. Values missing from
the file keep their defaults and command-line flags override both.
*/

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/x-stp/rxrecon/internal/certlib"
	"github.com/x-stp/rxrecon/internal/dnslib"
)

// Resolver configures DNS collection.
type Resolver struct {
	Servers     []string      `yaml:"servers"`
	Timeout     time.Duration `yaml:"timeout"`
	QPS         float64       `yaml:"qps"`
	NSEC3AsNSEC bool          `yaml:"nsec3_as_nsec"`
}

// CrtSh configures the certificate search.
type CrtSh struct {
	URL            string        `yaml:"url"`
	ExcludeExpired bool          `yaml:"exclude_expired"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`
}

type Export struct {
	Format string `yaml:"format"`
	Prefix string `yaml:"prefix"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete runtime configuration.
type Config struct {
	Resolver Resolver           `yaml:"resolver"`
	CrtSh    CrtSh              `yaml:"crtsh"`
	Glue     []certlib.GlueRule `yaml:"glue"`
	Export   Export             `yaml:"export"`
	Metrics  Metrics            `yaml:"metrics"`
	Log      Log                `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	glue := make([]certlib.GlueRule, len(certlib.DefaultGlueRules))
	copy(glue, certlib.DefaultGlueRules)
	return Config{
		Resolver: Resolver{Timeout: dnslib.DefaultTimeout},
		CrtSh: CrtSh{
			URL:            certlib.DefaultSearchURL,
			ExcludeExpired: true,
			Timeout:        certlib.DefaultTimeout,
			UserAgent:      certlib.DefaultUserAgent,
		},
		Glue:   glue,
		Export: Export{Prefix: "output"},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config YAML")
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// applyDefaults restores defaults for values the file set to zero.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Resolver.Timeout == 0 {
		cfg.Resolver.Timeout = def.Resolver.Timeout
	}
	if cfg.CrtSh.URL == "" {
		cfg.CrtSh.URL = def.CrtSh.URL
	}
	if cfg.CrtSh.Timeout == 0 {
		cfg.CrtSh.Timeout = def.CrtSh.Timeout
	}
	if cfg.CrtSh.UserAgent == "" {
		cfg.CrtSh.UserAgent = def.CrtSh.UserAgent
	}
	if cfg.Export.Prefix == "" {
		cfg.Export.Prefix = def.Export.Prefix
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// Validate checks that values are usable.
func (c Config) Validate() error {
	if c.Resolver.Timeout < 0 {
		return errors.New("resolver.timeout must not be negative")
	}
	if c.Resolver.QPS < 0 {
		return errors.New("resolver.qps must be >= 0")
	}
	for _, s := range c.Resolver.Servers {
		if strings.TrimSpace(s) == "" {
			return errors.New("resolver.servers contains an empty entry")
		}
	}
	if c.CrtSh.Timeout < 0 {
		return errors.New("crtsh.timeout must not be negative")
	}
	if !strings.HasPrefix(c.CrtSh.URL, "http://") && !strings.HasPrefix(c.CrtSh.URL, "https://") {
		return errors.Errorf("crtsh.url must be an http(s) URL, got %q", c.CrtSh.URL)
	}
	for i, g := range c.Glue {
		if g.Enabled && strings.TrimSpace(g.Suffix) == "" {
			return errors.Errorf("glue[%d]: suffix is required", i)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ResolverConfig converts the resolver section for dnslib.
func (c Config) ResolverConfig() dnslib.ResolverConfig {
	return dnslib.ResolverConfig{
		Servers: append([]string(nil), c.Resolver.Servers...),
		Timeout: c.Resolver.Timeout,
	}
}

// HarvesterConfig converts the crtsh and glue sections for certlib.
func (c Config) HarvesterConfig() certlib.HarvesterConfig {
	h := certlib.DefaultHarvesterConfig()
	h.SearchURL = c.CrtSh.URL
	h.ExcludeExpired = c.CrtSh.ExcludeExpired
	h.UserAgent = c.CrtSh.UserAgent
	h.Timeout = c.CrtSh.Timeout
	// An empty glue list disables repair.
	h.GlueRules = make([]certlib.GlueRule, len(c.Glue))
	copy(h.GlueRules, c.Glue)
	return h
}
