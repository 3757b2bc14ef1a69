package config

import (
	"fmt"
	"net/url"
	"os/exec"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to flowchat! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Service endpoint.
	endpointPrompt := promptui.Prompt{
		Label:    "Assistant service URL",
		Default:  cfg.Endpoint,
		Validate: validateEndpoint,
	}
	endpoint, err := endpointPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")

	// 2. Renderer.
	if _, err := exec.LookPath(cfg.Renderer.Command); err == nil {
		fmt.Printf("Found %s on PATH.\n\n", cfg.Renderer.Command)
	}
	rendererPrompt := promptui.Select{
		Label: "How should diagrams be rendered",
		Items: []string{
			"auto  - mermaid-cli when installed, otherwise in the browser",
			"embed - always in the browser",
			"mmdc  - always with mermaid-cli (SVG export everywhere)",
		},
	}
	idx, _, err := rendererPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("renderer selection: %w", err)
	}
	kinds := []RendererKind{RendererAuto, RendererEmbed, RendererMMDC}
	cfg.Renderer.Kind = kinds[idx]

	// 3. Request timeout.
	timeoutPrompt := promptui.Prompt{
		Label:    "Request timeout in seconds (0 = none)",
		Default:  strconv.Itoa(cfg.RequestTimeout),
		Validate: validateNonNegative,
	}
	timeoutStr, err := timeoutPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("request timeout: %w", err)
	}
	cfg.RequestTimeout, _ = strconv.Atoi(strings.TrimSpace(timeoutStr))

	// 4. Export directory.
	exportPrompt := promptui.Prompt{
		Label:   "Directory for exported diagram.svg / code.py",
		Default: cfg.ExportDir,
	}
	exportDir, err := exportPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}
	cfg.ExportDir = exportDir

	// 5. Web UI port.
	portPrompt := promptui.Prompt{
		Label:    "Port for flowchat ui",
		Default:  strconv.Itoa(cfg.UI.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ui port: %w", err)
	}
	cfg.UI.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validateEndpoint(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http:// or https:// URL")
	}
	return nil
}

func validateNonNegative(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return fmt.Errorf("enter a whole number of seconds")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("enter a port between 1 and 65535")
	}
	return nil
}
