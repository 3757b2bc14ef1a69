package config

import "time"

// RendererKind selects how mermaid diagrams are rendered.
type RendererKind string

const (
	RendererAuto  RendererKind = "auto"
	RendererEmbed RendererKind = "embed"
	RendererMMDC  RendererKind = "mmdc"
)

// Config is the top-level flowchat configuration, corresponding to
// .flowchat.yml.
type Config struct {
	Endpoint       string         `yaml:"endpoint" koanf:"endpoint"`
	RequestTimeout int            `yaml:"request_timeout" koanf:"request_timeout"`
	DataDir        string         `yaml:"data_dir" koanf:"data_dir"`
	ExportDir      string         `yaml:"export_dir" koanf:"export_dir"`
	Renderer       RendererConfig `yaml:"renderer" koanf:"renderer"`
	UI             UIConfig       `yaml:"ui" koanf:"ui"`
	Preview        PreviewConfig  `yaml:"preview" koanf:"preview"`
	Files          FilesConfig    `yaml:"files" koanf:"files"`
}

// RendererConfig controls diagram rendering.
type RendererConfig struct {
	Kind    RendererKind `yaml:"kind" koanf:"kind"`
	Command string       `yaml:"command" koanf:"command"`
}

// UIConfig holds settings for the local web page.
type UIConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// PreviewConfig holds settings for file previews.
type PreviewConfig struct {
	CacheSize int `yaml:"cache_size" koanf:"cache_size"`
}

// FilesConfig controls which files are attached from globs.
type FilesConfig struct {
	MaxFileSize int64    `yaml:"max_file_size" koanf:"max_file_size"`
	Exclude     []string `yaml:"exclude" koanf:"exclude"`
}

// Timeout returns the request timeout as a duration. Zero disables it.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
