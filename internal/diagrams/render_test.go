package diagrams

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ziadkadry99/flowchat/internal/theme"
)

func TestEmbedRenderer(t *testing.T) {
	r := &EmbedRenderer{}
	v, err := r.Render(context.Background(), "graph TD\n  A[\"a<b\"] --> B", theme.Light)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if v.Kind != VisualEmbed {
		t.Errorf("kind = %q", v.Kind)
	}
	if !strings.HasPrefix(v.ID, "graph-") {
		t.Errorf("id = %q", v.ID)
	}
	if !strings.Contains(v.Markup, `class="mermaid"`) {
		t.Errorf("markup missing mermaid class: %s", v.Markup)
	}
	if !strings.Contains(v.Markup, "&quot;theme&quot;: &quot;default&quot;") {
		t.Errorf("light theme should map to mermaid default: %s", v.Markup)
	}
	if strings.Contains(v.Markup, "a<b") {
		t.Errorf("source must be escaped inside the pre block: %s", v.Markup)
	}
}

func TestEmbedRendererRejectsBadSource(t *testing.T) {
	r := &EmbedRenderer{}
	_, err := r.Render(context.Background(), "not a diagram", theme.Dark)
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "fake-mmdc")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func TestCommandRenderer(t *testing.T) {
	script := writeScript(t, `theme=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
    -t) theme="$2"; shift ;;
  esac
  shift
done
echo "<svg data-theme=\"$theme\"></svg>" > "$out"
`)
	r := NewCommandRenderer(script)
	v, err := r.Render(context.Background(), "graph TD\n  A --> B", theme.Dark)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if v.Kind != VisualSVG {
		t.Errorf("kind = %q", v.Kind)
	}
	if !strings.Contains(v.Markup, `<svg data-theme="dark">`) {
		t.Errorf("unexpected svg: %q", v.Markup)
	}
}

func TestCommandRendererLeavesValidationToMMDC(t *testing.T) {
	script := writeScript(t, `while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
  esac
  shift
done
echo "<svg></svg>" > "$out"
`)
	r := NewCommandRenderer(script)
	// "info" is a mermaid diagram the local parser does not know.
	v, err := r.Render(context.Background(), "info", theme.Light)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if v.Kind != VisualSVG || v.Source != "info" {
		t.Errorf("unexpected visual: %+v", v)
	}
}

func TestCommandRendererFailure(t *testing.T) {
	script := writeScript(t, "echo 'Error: Lexical error on line 2' >&2\nexit 1\n")
	r := NewCommandRenderer(script)
	_, err := r.Render(context.Background(), "graph TD\n  A --> B", theme.Dark)
	if err == nil || !strings.Contains(err.Error(), "Lexical error on line 2") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	r, err := New(KindEmbed, "")
	if err != nil {
		t.Fatalf("New(embed): %v", err)
	}
	if _, ok := r.(*EmbedRenderer); !ok {
		t.Errorf("expected *EmbedRenderer, got %T", r)
	}

	r, _ = New(KindAuto, "definitely-not-installed-mmdc")
	if _, ok := r.(*EmbedRenderer); !ok {
		t.Errorf("auto without mmdc should embed, got %T", r)
	}

	if _, err := New("png", ""); err == nil {
		t.Error("expected error for unknown kind")
	}
}
