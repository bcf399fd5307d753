// Package config loads ResolveGrid settings from defaults, an optional YAML file and
// RESOLVEGRID_ prefixed environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const EnvPrefix = "RESOLVEGRID_"

type ServerConfig struct {
	Addr       string `koanf:"addr"`
	PathPrefix string `koanf:"pathprefix"`
	AuthToken  string `koanf:"authtoken"`
	// Router is "mux" or "bunrouter".
	Router string `koanf:"router"`
}

type DatabaseConfig struct {
	Path    string `koanf:"path"`
	LogSQL  bool   `koanf:"logsql"`
	Migrate bool   `koanf:"migrate"`
}

type ClientConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
	Token   string        `koanf:"token"`
}

type RenderConfig struct {
	Locale            string `koanf:"locale"`
	CurrencyPrefix    string `koanf:"currencyprefix"`
	CurrencySuffix    string `koanf:"currencysuffix"`
	CurrencyPrecision int    `koanf:"currencyprecision"`
	DateFormat        string `koanf:"dateformat"`
	DateTimeFormat    string `koanf:"datetimeformat"`
	TimeFormat        string `koanf:"timeformat"`
}

type LogConfig struct {
	Dev        bool   `koanf:"dev"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"maxsizemb"`
	MaxBackups int    `koanf:"maxbackups"`
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Client   ClientConfig   `koanf:"client"`
	Render   RenderConfig   `koanf:"render"`
	Log      LogConfig      `koanf:"log"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":              ":8080",
		"server.pathprefix":        "/api",
		"server.router":            "mux",
		"database.path":            "resolvegrid.db",
		"database.migrate":         true,
		"client.baseurl":           "http://localhost:8080/api",
		"client.timeout":           "30s",
		"render.locale":            "en",
		"render.currencyprefix":    "",
		"render.currencysuffix":    "",
		"render.currencyprecision": 2,
		"render.dateformat":        "2006-01-02",
		"render.datetimeformat":    "2006-01-02 15:04",
		"render.timeformat":        "15:04",
		"log.dev":                  false,
		"log.maxsizemb":            10,
		"log.maxbackups":           5,
	}
}

// Load reads configuration. path may be empty; a missing file is an error only when
// path was given explicitly.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// RESOLVEGRID_CLIENT_BASEURL -> client.baseurl
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
