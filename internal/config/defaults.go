package config

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".flowchat.yml"

// DefaultExcludes are glob patterns never attached as code files.
var DefaultExcludes = []string{
	"*.min.js",
	"*.min.css",
	"*.lock",
	"go.sum",
	"package-lock.json",
	"yarn.lock",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "http://127.0.0.1:5000",
		RequestTimeout: 120,
		DataDir:        ".flowchat",
		ExportDir:      ".",
		Renderer: RendererConfig{
			Kind:    RendererAuto,
			Command: "mmdc",
		},
		UI: UIConfig{
			Port: 8085,
		},
		Preview: PreviewConfig{
			CacheSize: 64,
		},
		Files: FilesConfig{
			MaxFileSize: 1 << 20,
			Exclude:     DefaultExcludes,
		},
	}
}
