// Package surface holds the visible UI state: the diagram and code panes,
// the busy indicator, the theme, the filename displays, the query input and
// the fullscreen overlay. Every mutation notifies subscribers with a fresh
// snapshot so any front end (terminal or browser) can redraw.
package surface

import (
	"errors"
	"sync"

	"github.com/ziadkadry99/flowchat/internal/diagrams"
	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/theme"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

// ErrNoDiagram is returned when an action needs a rendered diagram and none
// is displayed.
var ErrNoDiagram = errors.New("no diagram to display in fullscreen")

// PaneState says what a pane currently shows.
type PaneState string

const (
	PanePlaceholder PaneState = "placeholder"
	PaneVisual      PaneState = "visual"
	PanePreview     PaneState = "preview"
	PaneError       PaneState = "error"
	PaneCode        PaneState = "code"
)

// Pane is one artifact region of the page.
type Pane struct {
	Markup string    `json:"markup"`
	State  PaneState `json:"state"`
}

// Snapshot is a point-in-time copy of everything the UI displays.
type Snapshot struct {
	Diagram          Pane               `json:"diagram"`
	DiagramKind      string             `json:"diagram_kind,omitempty"`
	Code             Pane               `json:"code"`
	Busy             bool               `json:"busy"`
	Theme            theme.Theme        `json:"theme"`
	CodeFilenames    string             `json:"code_filenames"`
	DiagramFilename  string             `json:"diagram_filename"`
	Query            string             `json:"query"`
	Fullscreen       bool               `json:"fullscreen"`
	FullscreenMarkup string             `json:"fullscreen_markup,omitempty"`
	Transcript       []transcript.Entry `json:"transcript"`
}

// State is the single owner of mutable UI state.
type State struct {
	mu         sync.Mutex
	transcript *transcript.Store

	diagram  Pane
	visual   *diagrams.Visual
	code     Pane
	codeText string

	busy            bool
	theme           theme.Theme
	codeFilenames   string
	diagramFilename string
	query           string
	fullscreen      string

	nextSub     int
	subscribers map[int]func(Snapshot)
}

// New creates the state with empty-state placeholders.
func New(ts *transcript.Store, t theme.Theme) *State {
	s := &State{
		transcript:  ts,
		theme:       t,
		subscribers: make(map[int]func(Snapshot)),
	}
	s.resetLocked()
	ts.OnChange(s.notify)
	return s
}

// Transcript returns the transcript store rendered alongside the panes.
func (s *State) Transcript() *transcript.Store { return s.transcript }

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the subscription.
func (s *State) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Diagram:          s.diagram,
		Code:             s.code,
		Busy:             s.busy,
		Theme:            s.theme,
		CodeFilenames:    s.codeFilenames,
		DiagramFilename:  s.diagramFilename,
		Query:            s.query,
		Fullscreen:       s.fullscreen != "",
		FullscreenMarkup: s.fullscreen,
	}
	if s.visual != nil {
		snap.DiagramKind = string(s.visual.Kind)
	}
	s.mu.Unlock()
	snap.Transcript = s.transcript.Entries()
	return snap
}

func (s *State) notify() {
	s.mu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
}

// update runs fn under the lock and then notifies subscribers.
func (s *State) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

// TryAcquireBusy sets the busy flag if it is clear and reports whether it did.
func (s *State) TryAcquireBusy() bool {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return false
	}
	s.busy = true
	s.mu.Unlock()
	s.notify()
	return true
}

// ReleaseBusy clears the busy flag.
func (s *State) ReleaseBusy() {
	s.update(func() { s.busy = false })
}

// Busy reports whether a request is in flight.
func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Theme returns the current theme.
func (s *State) Theme() theme.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme switches the theme used by subsequent renders.
func (s *State) SetTheme(t theme.Theme) {
	s.update(func() { s.theme = t })
}

// ShowVisual replaces the diagram pane with a rendered diagram.
func (s *State) ShowVisual(v diagrams.Visual) {
	s.update(func() {
		s.visual = &v
		s.diagram = Pane{Markup: v.Markup, State: PaneVisual}
	})
}

// ShowDiagramError replaces the diagram pane with an error block.
func (s *State) ShowDiagramError(block string) {
	s.update(func() {
		s.visual = nil
		s.diagram = Pane{Markup: block, State: PaneError}
	})
}

// FailVisual replaces the displayed embed visual with an error block when
// the browser could not draw it. id must match the displayed visual unless
// empty; it reports whether the pane changed.
func (s *State) FailVisual(id, block string) bool {
	s.mu.Lock()
	if s.visual == nil || s.visual.Kind != diagrams.VisualEmbed || (id != "" && s.visual.ID != id) {
		s.mu.Unlock()
		return false
	}
	s.visual = nil
	s.diagram = Pane{Markup: block, State: PaneError}
	s.fullscreen = ""
	s.mu.Unlock()
	s.notify()
	return true
}

// ShowDiagramPreview shows an uploaded diagram image in the diagram pane.
func (s *State) ShowDiagramPreview(m string) {
	s.update(func() {
		s.visual = nil
		s.diagram = Pane{Markup: m, State: PanePreview}
	})
}

// ClearDiagram puts the placeholder back in the diagram pane.
func (s *State) ClearDiagram() {
	s.update(func() {
		s.visual = nil
		s.diagram = Pane{Markup: markup.Placeholder(markup.DiagramPlaceholder), State: PanePlaceholder}
	})
}

// ShowCode replaces the code pane. text is the plain code the pane displays.
func (s *State) ShowCode(m, text string, st PaneState) {
	s.update(func() {
		s.code = Pane{Markup: m, State: st}
		s.codeText = text
	})
}

// ClearCode puts the placeholder back in the code pane.
func (s *State) ClearCode() {
	s.update(func() {
		s.code = Pane{Markup: markup.Placeholder(markup.CodePlaceholder), State: PanePlaceholder}
		s.codeText = ""
	})
}

// Visual returns the rendered diagram, if one is displayed.
func (s *State) Visual() (diagrams.Visual, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.visual == nil {
		return diagrams.Visual{}, false
	}
	return *s.visual, true
}

// CodeText returns the plain text shown in the code pane, or false when the
// pane shows its placeholder.
func (s *State) CodeText() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code.State == PanePlaceholder {
		return "", false
	}
	return s.codeText, true
}

// SetCodeFilenames updates the code file picker display.
func (s *State) SetCodeFilenames(v string) {
	s.update(func() { s.codeFilenames = v })
}

// SetDiagramFilename updates the diagram file picker display.
func (s *State) SetDiagramFilename(v string) {
	s.update(func() { s.diagramFilename = v })
}

// SetQuery mirrors the question input.
func (s *State) SetQuery(q string) {
	s.update(func() { s.query = q })
}

// Query returns the question input.
func (s *State) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// OpenFullscreen shows a copy of the rendered diagram in the overlay.
func (s *State) OpenFullscreen() error {
	s.mu.Lock()
	if s.visual == nil {
		s.mu.Unlock()
		return ErrNoDiagram
	}
	s.fullscreen = s.visual.Markup
	s.mu.Unlock()
	s.notify()
	return nil
}

// CloseFullscreen hides the overlay.
func (s *State) CloseFullscreen() {
	s.update(func() { s.fullscreen = "" })
}

// Fullscreen reports whether the overlay is open.
func (s *State) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen != ""
}

// Reset restores every pane and display to its empty state and clears the
// transcript. The busy flag and theme are left alone.
func (s *State) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	// ResetAll notifies through OnChange.
	s.transcript.ResetAll()
}

func (s *State) resetLocked() {
	s.visual = nil
	s.diagram = Pane{Markup: markup.Placeholder(markup.DiagramPlaceholder), State: PanePlaceholder}
	s.code = Pane{Markup: markup.Placeholder(markup.CodePlaceholder), State: PanePlaceholder}
	s.codeText = ""
	s.codeFilenames = markup.NoFilesChosen
	s.diagramFilename = markup.NoFileChosen
	s.query = ""
	s.fullscreen = ""
}
