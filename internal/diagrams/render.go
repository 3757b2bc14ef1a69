package diagrams

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/theme"
)

// VisualKind says how a rendered diagram is represented.
type VisualKind string

const (
	// VisualSVG is a finished inline SVG document.
	VisualSVG VisualKind = "svg"
	// VisualEmbed is validated source wrapped for client-side rendering by
	// mermaid.js in the browser.
	VisualEmbed VisualKind = "embed"
)

// Visual is the output of a successful render.
type Visual struct {
	ID     string     `json:"id"`
	Kind   VisualKind `json:"kind"`
	Markup string     `json:"markup"`
	Source string     `json:"source"`
}

// Renderer turns diagram source into a visual using the given colour theme.
type Renderer interface {
	Render(ctx context.Context, source string, t theme.Theme) (Visual, error)
}

// Renderer kinds accepted by New.
const (
	KindAuto  = "auto"
	KindEmbed = "embed"
	KindMMDC  = "mmdc"
)

// New returns the renderer selected by kind. "auto" prefers mermaid-cli when
// command is found on PATH and falls back to the embed renderer.
func New(kind, command string) (Renderer, error) {
	switch kind {
	case KindEmbed:
		return &EmbedRenderer{}, nil
	case KindMMDC:
		return NewCommandRenderer(command), nil
	case KindAuto, "":
		if _, err := exec.LookPath(command); err == nil {
			return NewCommandRenderer(command), nil
		}
		return &EmbedRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown renderer kind %q", kind)
	}
}

func newVisualID() string {
	return "graph-" + uuid.New().String()
}

// EmbedRenderer validates source and emits it for browser-side rendering.
type EmbedRenderer struct{}

func (r *EmbedRenderer) Render(ctx context.Context, source string, t theme.Theme) (Visual, error) {
	if _, err := Parse(source); err != nil {
		return Visual{}, err
	}
	id := newVisualID()
	init := fmt.Sprintf("%%%%{init: {\"theme\": \"%s\"}}%%%%\n", t.Mermaid())
	return Visual{
		ID:     id,
		Kind:   VisualEmbed,
		Markup: fmt.Sprintf(`<pre class="mermaid" id="%s">%s</pre>`, id, markup.Escape(init+source)),
		Source: source,
	}, nil
}

// CommandRenderer shells out to mermaid-cli and returns inline SVG. mmdc
// is the only judge of the source; its stderr becomes the error.
type CommandRenderer struct {
	Command string
}

// NewCommandRenderer creates a renderer that runs the given mmdc binary.
func NewCommandRenderer(command string) *CommandRenderer {
	if command == "" {
		command = "mmdc"
	}
	return &CommandRenderer{Command: command}
}

func (r *CommandRenderer) Render(ctx context.Context, source string, t theme.Theme) (Visual, error) {
	dir, err := os.MkdirTemp("", "flowchat-render-*")
	if err != nil {
		return Visual{}, fmt.Errorf("creating render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "diagram.mmd")
	out := filepath.Join(dir, "diagram.svg")
	if err := os.WriteFile(in, []byte(source), 0o644); err != nil {
		return Visual{}, fmt.Errorf("writing diagram source: %w", err)
	}

	id := newVisualID()
	cmd := exec.CommandContext(ctx, r.Command,
		"-i", in,
		"-o", out,
		"-t", t.Mermaid(),
		"-b", "transparent",
		"-I", id,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg := firstLines(stderr.String(), 8); msg != "" {
				return Visual{}, errors.New(msg)
			}
		}
		return Visual{}, fmt.Errorf("running %s: %w", r.Command, err)
	}

	svg, err := os.ReadFile(out)
	if err != nil {
		return Visual{}, fmt.Errorf("reading rendered svg: %w", err)
	}
	return Visual{
		ID:     id,
		Kind:   VisualSVG,
		Markup: string(svg),
		Source: source,
	}, nil
}

func firstLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
