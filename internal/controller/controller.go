// Package controller maps user events to the dispatcher and the local UI
// collaborators (preview, export, theme, fullscreen, reset). Each event kind
// has exactly one registered handler.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/dispatch"
	"github.com/ziadkadry99/flowchat/internal/export"
	"github.com/ziadkadry99/flowchat/internal/files"
	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/preview"
	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/theme"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

// EventKind names a user interaction.
type EventKind string

const (
	EventGenerateDiagram   EventKind = "generate_diagram"
	EventGenerateCode      EventKind = "generate_code"
	EventAskQuestion       EventKind = "ask_question"
	EventReset             EventKind = "reset"
	EventToggleTheme       EventKind = "toggle_theme"
	EventToggleFullscreen  EventKind = "toggle_fullscreen"
	EventExportDiagram     EventKind = "export_diagram"
	EventExportCode        EventKind = "export_code"
	EventSelectCodeFiles   EventKind = "select_code_files"
	EventSelectDiagramFile EventKind = "select_diagram_file"
	EventSetQuery          EventKind = "set_query"

	// EventDiagramRenderFailed is reported by the browser when mermaid.js
	// cannot draw an embedded diagram.
	EventDiagramRenderFailed EventKind = "diagram_render_failed"
)

// User notices.
const (
	NoticeBusy         = "A request is already in progress."
	NoticeNoFullscreen = "No diagram to display in fullscreen."
)

// ErrUnknownEvent is returned by Handle for a kind with no handler.
var ErrUnknownEvent = errors.New("unknown event")

// defaultRenderFailure is shown when the browser reports no error text.
const defaultRenderFailure = "The diagram could not be rendered."

// Event is one user interaction. Files carries picker selections and Query
// the question text. VisualID and Detail identify a failed browser render.
type Event struct {
	Kind     EventKind
	Files    []client.File
	Query    string
	VisualID string
	Detail   string
}

// Reply reports what handling an event produced. Notice is a message the
// surface should show the user (the browser uses alert-style popups).
type Reply struct {
	Notice  string            `json:"notice,omitempty"`
	Outcome *dispatch.Outcome `json:"outcome,omitempty"`
	Path    string            `json:"path,omitempty"`
}

// Handler handles one event kind.
type Handler func(ctx context.Context, ev Event) (Reply, error)

// Deps are the collaborators a Controller drives.
type Deps struct {
	State      *surface.State
	Dispatcher *dispatch.Dispatcher
	Previewer  *preview.Previewer
	Exporter   *export.Exporter
	Themes     theme.Store
}

// Controller owns the form and routes events to handlers.
type Controller struct {
	state      *surface.State
	dispatcher *dispatch.Dispatcher
	previewer  *preview.Previewer
	exporter   *export.Exporter
	themes     theme.Store

	mu       sync.Mutex
	form     dispatch.FormState
	handlers map[EventKind]Handler
}

// New creates a controller with the default handler table registered.
func New(d Deps) *Controller {
	c := &Controller{
		state:      d.State,
		dispatcher: d.Dispatcher,
		previewer:  d.Previewer,
		exporter:   d.Exporter,
		themes:     d.Themes,
		handlers:   make(map[EventKind]Handler),
	}
	c.Register(EventGenerateDiagram, c.actionHandler(dispatch.GenerateDiagram))
	c.Register(EventGenerateCode, c.actionHandler(dispatch.GenerateCode))
	c.Register(EventAskQuestion, c.handleAsk)
	c.Register(EventReset, c.handleReset)
	c.Register(EventToggleTheme, c.handleToggleTheme)
	c.Register(EventToggleFullscreen, c.handleToggleFullscreen)
	c.Register(EventExportDiagram, c.handleExportDiagram)
	c.Register(EventExportCode, c.handleExportCode)
	c.Register(EventSelectCodeFiles, c.handleSelectCodeFiles)
	c.Register(EventSelectDiagramFile, c.handleSelectDiagramFile)
	c.Register(EventSetQuery, c.handleSetQuery)
	c.Register(EventDiagramRenderFailed, c.handleDiagramRenderFailed)
	return c
}

// Register installs h for kind, replacing any previous handler.
func (c *Controller) Register(kind EventKind, h Handler) {
	c.mu.Lock()
	c.handlers[kind] = h
	c.mu.Unlock()
}

// Kinds lists the registered event kinds in sorted order.
func (c *Controller) Kinds() []EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]EventKind, 0, len(c.handlers))
	for k := range c.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Handle routes ev to its handler.
func (c *Controller) Handle(ctx context.Context, ev Event) (Reply, error) {
	c.mu.Lock()
	h, ok := c.handlers[ev.Kind]
	c.mu.Unlock()
	if !ok {
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	return h(ctx, ev)
}

// State returns the UI state the controller mutates.
func (c *Controller) State() *surface.State { return c.state }

// Form returns a copy of the current form.
func (c *Controller) Form() dispatch.FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.form
	f.CodeFiles = append([]client.File(nil), c.form.CodeFiles...)
	return f
}

func (c *Controller) actionHandler(action dispatch.Action) Handler {
	return func(ctx context.Context, ev Event) (Reply, error) {
		return c.dispatch(ctx, action, "")
	}
}

func (c *Controller) handleAsk(ctx context.Context, ev Event) (Reply, error) {
	if ev.Query != "" {
		c.setQuery(ev.Query)
	}
	return c.dispatch(ctx, dispatch.AskQuestion, c.Form().Query)
}

func (c *Controller) dispatch(ctx context.Context, action dispatch.Action, userQuery string) (Reply, error) {
	out, err := c.dispatcher.Dispatch(ctx, action, c.Form(), userQuery)
	if errors.Is(err, dispatch.ErrBusy) {
		return Reply{Notice: NoticeBusy, Outcome: &out}, nil
	}
	if err != nil {
		return Reply{Outcome: &out}, err
	}
	// An answer clears the question input; keep the form in step.
	if c.state.Query() == "" {
		c.mu.Lock()
		c.form.Query = ""
		c.mu.Unlock()
	}
	return Reply{Outcome: &out}, nil
}

func (c *Controller) handleReset(ctx context.Context, ev Event) (Reply, error) {
	c.mu.Lock()
	c.form = dispatch.FormState{}
	c.mu.Unlock()
	c.state.Reset()
	return Reply{}, nil
}

func (c *Controller) handleToggleTheme(ctx context.Context, ev Event) (Reply, error) {
	next := c.state.Theme().Toggle()
	if c.themes != nil {
		if err := c.themes.Save(ctx, next); err != nil {
			// The in-memory theme still switches; only persistence is lost.
			log.Printf("controller: save theme: %v", err)
		}
	}
	c.state.SetTheme(next)
	return Reply{}, nil
}

func (c *Controller) handleToggleFullscreen(ctx context.Context, ev Event) (Reply, error) {
	if c.state.Fullscreen() {
		c.state.CloseFullscreen()
		return Reply{}, nil
	}
	if err := c.state.OpenFullscreen(); err != nil {
		if errors.Is(err, surface.ErrNoDiagram) {
			return Reply{Notice: NoticeNoFullscreen}, nil
		}
		return Reply{}, err
	}
	return Reply{}, nil
}

func (c *Controller) handleExportDiagram(ctx context.Context, ev Event) (Reply, error) {
	return exportReply(c.exporter.ExportDiagram())
}

func (c *Controller) handleExportCode(ctx context.Context, ev Event) (Reply, error) {
	return exportReply(c.exporter.ExportCode())
}

func exportReply(path string, err error) (Reply, error) {
	if notice := export.Notice(err); notice != "" {
		return Reply{Notice: notice}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	return Reply{Path: path}, nil
}

func (c *Controller) handleSelectCodeFiles(ctx context.Context, ev Event) (Reply, error) {
	c.mu.Lock()
	c.form.CodeFiles = append([]client.File(nil), ev.Files...)
	c.mu.Unlock()

	if len(ev.Files) == 0 {
		c.state.ClearCode()
		c.state.SetCodeFilenames(markup.NoFilesChosen)
		return Reply{}, nil
	}
	c.state.SetCodeFilenames(files.Names(ev.Files))
	p := c.previewer.Code(ev.Files)
	c.state.ShowCode(p.Markup, p.Text, surface.PanePreview)
	return Reply{}, nil
}

func (c *Controller) handleSelectDiagramFile(ctx context.Context, ev Event) (Reply, error) {
	if len(ev.Files) == 0 {
		c.mu.Lock()
		c.form.DiagramFile = nil
		c.mu.Unlock()
		c.state.SetDiagramFilename(markup.NoFileChosen)
		c.state.ClearDiagram()
		return Reply{}, nil
	}

	f := ev.Files[0]
	c.mu.Lock()
	c.form.DiagramFile = &f
	c.mu.Unlock()
	c.state.SetDiagramFilename(f.Name)
	c.state.ShowDiagramPreview(c.previewer.Diagram(f))
	return Reply{}, nil
}

func (c *Controller) handleSetQuery(ctx context.Context, ev Event) (Reply, error) {
	c.setQuery(ev.Query)
	return Reply{}, nil
}

func (c *Controller) setQuery(q string) {
	c.mu.Lock()
	c.form.Query = q
	c.mu.Unlock()
	c.state.SetQuery(q)
}

// handleDiagramRenderFailed turns a browser-side render failure into the same
// error block and transcript entry a server-side failure produces. Reports
// for a visual that is no longer displayed are ignored.
func (c *Controller) handleDiagramRenderFailed(ctx context.Context, ev Event) (Reply, error) {
	detail := ev.Detail
	if detail == "" {
		detail = defaultRenderFailure
	}
	if !c.state.FailVisual(ev.VisualID, markup.DiagramError(detail)) {
		return Reply{}, nil
	}
	if _, err := c.state.Transcript().Append(markup.Assistant(markup.MsgDiagramFailed), transcript.RoleAssistant); err != nil {
		return Reply{}, err
	}
	return Reply{}, nil
}
