package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gaurav-prasanna/postpipe/core/fetch"
	"github.com/gaurav-prasanna/postpipe/core/normalize"
	"github.com/gaurav-prasanna/postpipe/store/wpdb"
)

// DefaultConfigFile is read from the working directory when --config is
// not given and the file exists.
const DefaultConfigFile = "postpipe.toml"

// Config holds all configuration for postpipe.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Uploads  UploadsConfig  `toml:"uploads"`
	Export   ExportConfig   `toml:"export"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig locates the WordPress database.
type DatabaseConfig struct {
	Path        string `toml:"path"`         // SQLite path (default "wordpress.db")
	TablePrefix string `toml:"table_prefix"` // default "wp_"
}

// UploadsConfig locates the uploads tree on disk and on the web.
type UploadsConfig struct {
	Dir string `toml:"dir"`
	URL string `toml:"url"`
}

// ExportConfig controls export runs.
type ExportConfig struct {
	Dir           string   `toml:"dir"`            // default "markdown-exports"
	IncludeImages *bool    `toml:"include_images"` // default true
	Engine        string   `toml:"engine"`         // "patterns" (default) or "library"
	HTTPTimeout   duration `toml:"http_timeout"`   // default 30s
	UserAgent     string   `toml:"user_agent"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `toml:"level"`  // default "warn"
	Format string `toml:"format"` // console (default), json or pretty
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (c *Config) setDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "wordpress.db"
	}
	if c.Database.TablePrefix == "" {
		c.Database.TablePrefix = wpdb.DefaultTablePrefix
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "markdown-exports"
	}
	if c.Export.IncludeImages == nil {
		include := true
		c.Export.IncludeImages = &include
	}
	if c.Export.Engine == "" {
		c.Export.Engine = normalize.EnginePatterns
	}
	if c.Export.HTTPTimeout.Duration == 0 {
		c.Export.HTTPTimeout.Duration = fetch.DefaultTimeout
	}
	if c.Export.UserAgent == "" {
		c.Export.UserAgent = fetch.DefaultUserAgent
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// loadConfig reads path, or DefaultConfigFile when path is empty and the
// file exists, and fills in defaults.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
		}
	}

	cfg.setDefaults()
	return cfg, nil
}
