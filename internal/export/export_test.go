package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ziadkadry99/flowchat/internal/diagrams"
)

type fakeSource struct {
	visual  *diagrams.Visual
	code    string
	hasCode bool
}

func (f fakeSource) Visual() (diagrams.Visual, bool) {
	if f.visual == nil {
		return diagrams.Visual{}, false
	}
	return *f.visual, true
}

func (f fakeSource) CodeText() (string, bool) { return f.code, f.hasCode }

func TestExportDiagram(t *testing.T) {
	dir := t.TempDir()
	e := New(dir, fakeSource{visual: &diagrams.Visual{Kind: diagrams.VisualSVG, Markup: "<svg/>"}})

	path, err := e.ExportDiagram()
	if err != nil {
		t.Fatalf("ExportDiagram: %v", err)
	}
	if path != filepath.Join(dir, "diagram.svg") {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "<svg/>" {
		t.Errorf("content = %q", data)
	}
}

func TestExportDiagramErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    fakeSource
		want   error
		notice string
	}{
		{"nothing", fakeSource{}, ErrNoDiagram, NoticeNoDiagram},
		{"embed", fakeSource{visual: &diagrams.Visual{Kind: diagrams.VisualEmbed}}, ErrNotSVG, NoticeNotSVG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := New(dir, tt.src).ExportDiagram()
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if Notice(err) != tt.notice {
				t.Errorf("Notice = %q", Notice(err))
			}
			if _, statErr := os.Stat(filepath.Join(dir, DiagramFile)); !os.IsNotExist(statErr) {
				t.Error("no file should be written")
			}
		})
	}
}

func TestExportCode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e := New(dir, fakeSource{code: "print(1)", hasCode: true})

	path, err := e.ExportCode()
	if err != nil {
		t.Fatalf("ExportCode: %v", err)
	}
	data, _ := os.ReadFile(path)
	if filepath.Base(path) != "code.py" || string(data) != "print(1)" {
		t.Errorf("path=%s content=%q", path, data)
	}
}

func TestExportCodeNothing(t *testing.T) {
	for _, src := range []fakeSource{{}, {code: "   ", hasCode: true}} {
		_, err := New(t.TempDir(), src).ExportCode()
		if !errors.Is(err, ErrNothingToExport) || Notice(err) != NoticeNoCode {
			t.Errorf("err = %v", err)
		}
	}
}
