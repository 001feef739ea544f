// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	LastFM   LastFMConfig   `yaml:"lastfm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig represents RPC server configuration.
type ServerConfig struct {
	Addr  string `yaml:"addr" default:":8080"`
	Token string `yaml:"token" validate:"required"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID          string  `yaml:"client_id" validate:"required"`
	ClientSecret      string  `yaml:"client_secret" validate:"required"`
	RefreshToken      string  `yaml:"refresh_token" validate:"required"`
	Market            string  `yaml:"market" validate:"omitempty,len=2" default:"US"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0" default:"10"`
}

// LastFMConfig represents the optional Last.fm genre fallback.
// The fallback is disabled when APIKey is empty.
type LastFMConfig struct {
	APIKey      string `yaml:"api_key"`
	MinTagCount int    `yaml:"min_tag_count" validate:"gte=0,lte=100" default:"10"`
	MaxTags     int    `yaml:"max_tags" validate:"gte=1,lte=50" default:"5"`
}

// PipelineConfig represents smart playlist pipeline configuration.
type PipelineConfig struct {
	PageSize int `yaml:"page_size" validate:"gte=1,lte=50" default:"50"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies environment overrides and
// defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	cfg.Spotify.Market = strings.ToUpper(cfg.Spotify.Market)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
	if v := os.Getenv("SMARTLIST_TOKEN"); v != "" {
		c.Server.Token = v
	}
}

// LastFMEnabled reports whether the Last.fm genre fallback is configured.
func (c *Config) LastFMEnabled() bool {
	return c.LastFM.APIKey != ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
