// Package export writes the generated artifacts to disk under fixed names.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/flowchat/internal/diagrams"
)

const (
	DiagramFile = "diagram.svg"
	CodeFile    = "code.py"
)

// User-facing notices for the export errors below.
const (
	NoticeNoDiagram = "No diagram available to export."
	NoticeNoCode    = "No code available to export."
	NoticeNotSVG    = "This diagram is drawn by the browser; export it from the web page or install mermaid-cli (mmdc)."
)

// ErrNothingToExport means no artifact of the requested kind is displayed.
var ErrNothingToExport = errors.New("nothing to export")

var (
	ErrNoDiagram = fmt.Errorf("%w: no diagram", ErrNothingToExport)
	ErrNoCode    = fmt.Errorf("%w: no code", ErrNothingToExport)
	// ErrNotSVG is returned for a diagram that only exists as client-side
	// mermaid source.
	ErrNotSVG = errors.New("diagram is not available as SVG")
)

// Notice maps an export error to the message shown to the user, or "".
func Notice(err error) string {
	switch {
	case errors.Is(err, ErrNoDiagram):
		return NoticeNoDiagram
	case errors.Is(err, ErrNoCode):
		return NoticeNoCode
	case errors.Is(err, ErrNotSVG):
		return NoticeNotSVG
	}
	return ""
}

// Source exposes the displayed artifacts.
type Source interface {
	Visual() (diagrams.Visual, bool)
	CodeText() (string, bool)
}

// Exporter reads artifacts from a Source. It never changes the source.
type Exporter struct {
	Dir string
	src Source
}

// New creates an exporter writing into dir.
func New(dir string, src Source) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{Dir: dir, src: src}
}

// DiagramSVG returns the rendered SVG document.
func (e *Exporter) DiagramSVG() ([]byte, error) {
	v, ok := e.src.Visual()
	if !ok {
		return nil, ErrNoDiagram
	}
	if v.Kind != diagrams.VisualSVG {
		return nil, ErrNotSVG
	}
	return []byte(v.Markup), nil
}

// Code returns the code pane text.
func (e *Exporter) Code() ([]byte, error) {
	text, ok := e.src.CodeText()
	if !ok || strings.TrimSpace(text) == "" {
		return nil, ErrNoCode
	}
	return []byte(text), nil
}

// ExportDiagram writes diagram.svg and returns its path.
func (e *Exporter) ExportDiagram() (string, error) {
	data, err := e.DiagramSVG()
	if err != nil {
		return "", err
	}
	return e.write(DiagramFile, data)
}

// ExportCode writes code.py and returns its path.
func (e *Exporter) ExportCode() (string, error) {
	data, err := e.Code()
	if err != nil {
		return "", err
	}
	return e.write(CodeFile, data)
}

func (e *Exporter) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create %s: %w", e.Dir, err)
	}
	path := filepath.Join(e.Dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}
