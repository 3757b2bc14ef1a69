package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates nested keys: FLOWCHAT_RENDERER__KIND -> renderer.kind.
const EnvPrefix = "FLOWCHAT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FLOWCHAT_*). A .env file next to the
// config file is loaded into the environment first; variables already set
// win over it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, fmt.Errorf("reading %s: %w", dotenv, err)
		}
	}

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps FLOWCHAT_UI__ALLOW_ALL_ORIGINS to ui.allow_all_origins.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validRenderers is the set of recognized renderer kinds.
var validRenderers = map[RendererKind]bool{
	RendererAuto:  true,
	RendererEmbed: true,
	RendererMMDC:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: must be an http(s) URL", c.Endpoint)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must be non-negative")
	}

	if !validRenderers[c.Renderer.Kind] {
		return fmt.Errorf("invalid renderer.kind %q: must be one of auto, embed, mmdc", c.Renderer.Kind)
	}
	if c.Renderer.Kind != RendererEmbed && c.Renderer.Command == "" {
		return fmt.Errorf("renderer.command is required for renderer.kind %q", c.Renderer.Kind)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.UI.Port < 1 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port must be between 1 and 65535")
	}

	if c.Preview.CacheSize < 0 {
		return fmt.Errorf("preview.cache_size must be non-negative")
	}
	if c.Files.MaxFileSize < 0 {
		return fmt.Errorf("files.max_file_size must be non-negative")
	}

	return nil
}

// DBPath is the sqlite file holding preferences.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "flowchat.db")
}
