package surface

import (
	"errors"
	"testing"

	"github.com/ziadkadry99/flowchat/internal/diagrams"
	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/theme"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

func newState() *State {
	return New(transcript.NewStore(), theme.Dark)
}

func TestInitialState(t *testing.T) {
	snap := newState().Snapshot()

	if snap.Diagram.State != PanePlaceholder || snap.Code.State != PanePlaceholder {
		t.Errorf("panes should start as placeholders: %+v %+v", snap.Diagram, snap.Code)
	}
	if snap.CodeFilenames != markup.NoFilesChosen || snap.DiagramFilename != markup.NoFileChosen {
		t.Errorf("filename displays = %q, %q", snap.CodeFilenames, snap.DiagramFilename)
	}
	if snap.Busy || snap.Fullscreen {
		t.Error("should not start busy or fullscreen")
	}
	if snap.Theme != theme.Dark {
		t.Errorf("theme = %q", snap.Theme)
	}
}

func TestBusyGate(t *testing.T) {
	s := newState()
	if !s.TryAcquireBusy() {
		t.Fatal("first acquire should succeed")
	}
	if s.TryAcquireBusy() {
		t.Fatal("second acquire must fail while busy")
	}
	s.ReleaseBusy()
	if s.Busy() {
		t.Error("busy should be cleared")
	}
	if !s.TryAcquireBusy() {
		t.Error("acquire should succeed after release")
	}
}

func TestVisualAndFullscreen(t *testing.T) {
	s := newState()

	if err := s.OpenFullscreen(); !errors.Is(err, ErrNoDiagram) {
		t.Fatalf("expected ErrNoDiagram, got %v", err)
	}

	s.ShowVisual(diagrams.Visual{ID: "graph-1", Kind: diagrams.VisualSVG, Markup: "<svg></svg>"})
	if v, ok := s.Visual(); !ok || v.ID != "graph-1" {
		t.Fatalf("Visual() = %+v, %v", v, ok)
	}
	if err := s.OpenFullscreen(); err != nil {
		t.Fatalf("OpenFullscreen: %v", err)
	}
	snap := s.Snapshot()
	if !snap.Fullscreen || snap.FullscreenMarkup != "<svg></svg>" || snap.DiagramKind != "svg" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	s.CloseFullscreen()
	if s.Fullscreen() {
		t.Error("overlay should be closed")
	}

	s.ShowDiagramError(markup.DiagramError("bad"))
	if _, ok := s.Visual(); ok {
		t.Error("an error block is not a rendered diagram")
	}
}

func TestFailVisual(t *testing.T) {
	s := newState()
	if s.FailVisual("", "block") {
		t.Fatal("nothing displayed, nothing to fail")
	}

	s.ShowVisual(diagrams.Visual{ID: "graph-svg", Kind: diagrams.VisualSVG, Markup: "<svg></svg>"})
	if s.FailVisual("graph-svg", "block") {
		t.Error("server-rendered svg cannot fail in the browser")
	}

	s.ShowVisual(diagrams.Visual{ID: "graph-2", Kind: diagrams.VisualEmbed, Markup: "<pre></pre>"})
	if s.FailVisual("graph-old", "block") {
		t.Error("a report for an older visual must be ignored")
	}
	if err := s.OpenFullscreen(); err != nil {
		t.Fatalf("OpenFullscreen: %v", err)
	}
	if !s.FailVisual("graph-2", markup.DiagramError("boom")) {
		t.Fatal("matching report should fail the visual")
	}
	snap := s.Snapshot()
	if snap.Diagram.State != PaneError || snap.Diagram.Markup != markup.DiagramError("boom") {
		t.Errorf("diagram pane = %+v", snap.Diagram)
	}
	if snap.Fullscreen {
		t.Error("overlay should close with the visual")
	}
	if _, ok := s.Visual(); ok {
		t.Error("visual should be cleared")
	}
}

func TestCodeText(t *testing.T) {
	s := newState()
	if _, ok := s.CodeText(); ok {
		t.Error("placeholder pane has no code text")
	}
	s.ShowCode(markup.CodeBlock("print(1)"), "print(1)", PaneCode)
	if text, ok := s.CodeText(); !ok || text != "print(1)" {
		t.Errorf("CodeText() = %q, %v", text, ok)
	}
	s.ClearCode()
	if _, ok := s.CodeText(); ok {
		t.Error("cleared pane has no code text")
	}
}

func TestReset(t *testing.T) {
	s := newState()
	s.Transcript().Append("hi", transcript.RoleUser)
	s.ShowVisual(diagrams.Visual{Markup: "<svg/>"})
	s.ShowCode("<pre><code>x</code></pre>", "x", PaneCode)
	s.SetCodeFilenames("a.py, b.py")
	s.SetDiagramFilename("flow.png")
	s.SetQuery("why?")
	s.SetTheme(theme.Light)

	s.Reset()

	snap := s.Snapshot()
	if len(snap.Transcript) != 0 {
		t.Errorf("transcript length = %d, want 0", len(snap.Transcript))
	}
	if snap.Diagram.Markup != markup.Placeholder(markup.DiagramPlaceholder) {
		t.Errorf("diagram pane = %q", snap.Diagram.Markup)
	}
	if snap.Code.Markup != markup.Placeholder(markup.CodePlaceholder) {
		t.Errorf("code pane = %q", snap.Code.Markup)
	}
	if snap.CodeFilenames != "No file(s) chosen" || snap.DiagramFilename != "No file chosen" {
		t.Errorf("filename displays = %q, %q", snap.CodeFilenames, snap.DiagramFilename)
	}
	if snap.Query != "" {
		t.Errorf("query = %q", snap.Query)
	}
	if snap.Theme != theme.Light {
		t.Error("reset must not change the theme")
	}
}

func TestSubscribe(t *testing.T) {
	s := newState()
	var snaps []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	s.SetQuery("q")
	s.Transcript().Append("hello", transcript.RoleAssistant)

	if len(snaps) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(snaps))
	}
	if snaps[1].Query != "q" || len(snaps[1].Transcript) != 1 {
		t.Errorf("latest snapshot = %+v", snaps[1])
	}

	unsubscribe()
	s.SetQuery("r")
	if len(snaps) != 2 {
		t.Errorf("no notifications expected after unsubscribe, got %d", len(snaps))
	}
}
