// Package resolve turns a service response into pane updates and transcript
// entries. The response fields are checked by a fixed table of independent
// rules: diagram, code, answer, then the diagram-only confirmation.
package resolve

import (
	"context"
	"fmt"
	"log"

	"github.com/ziadkadry99/flowchat/internal/client"
	"github.com/ziadkadry99/flowchat/internal/diagrams"
	"github.com/ziadkadry99/flowchat/internal/markup"
	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

// Markdown converts trusted answer text to HTML.
type Markdown interface {
	Render(src string) (string, error)
}

// Result describes what one response cycle did.
type Result struct {
	DiagramRendered bool     `json:"diagram_rendered"`
	Fired           []string `json:"fired"`
	Appended        int      `json:"appended"`
	// Silent is set when the response carried nothing the rules act on, so
	// the cycle produced no transcript feedback at all.
	Silent bool `json:"silent"`
}

// Resolver applies responses to the UI state.
type Resolver struct {
	renderer diagrams.Renderer
	markdown Markdown
	state    *surface.State
	verbose  bool
}

// New creates a resolver. The renderer is called with the theme current at
// render time.
func New(renderer diagrams.Renderer, md Markdown, state *surface.State) *Resolver {
	return &Resolver{renderer: renderer, markdown: md, state: state}
}

// SetVerbose enables per-cycle logging.
func (r *Resolver) SetVerbose(v bool) { r.verbose = v }

type cycle struct {
	resp            *client.Response
	query           string
	diagramRendered bool
	appended        int
}

type rule struct {
	name  string
	when  func(c *cycle) bool
	apply func(r *Resolver, ctx context.Context, c *cycle) error
}

// rules run in order; each is guarded only by its own condition.
var rules = []rule{
	{
		name:  "diagram",
		when:  func(c *cycle) bool { return c.resp.Diagram != "" },
		apply: (*Resolver).applyDiagram,
	},
	{
		name:  "code",
		when:  func(c *cycle) bool { return c.resp.Code != "" },
		apply: (*Resolver).applyCode,
	},
	{
		name:  "answer",
		when:  func(c *cycle) bool { return c.resp.QAAnswer != "" },
		apply: (*Resolver).applyAnswer,
	},
	{
		name:  "diagram-confirmation",
		when:  func(c *cycle) bool { return c.resp.QAAnswer == "" && c.diagramRendered },
		apply: (*Resolver).applyDiagramConfirmation,
	},
}

// Resolve applies resp. userQuery is the question text captured when the
// request was dispatched. A nil resp is treated as an empty reply.
func (r *Resolver) Resolve(ctx context.Context, resp *client.Response, userQuery string) (Result, error) {
	if resp == nil {
		resp = &client.Response{}
	}
	c := &cycle{resp: resp, query: userQuery}
	var res Result

	for _, rl := range rules {
		if !rl.when(c) {
			continue
		}
		if err := rl.apply(r, ctx, c); err != nil {
			return res, fmt.Errorf("applying %s rule: %w", rl.name, err)
		}
		res.Fired = append(res.Fired, rl.name)
	}

	res.DiagramRendered = c.diagramRendered
	res.Appended = c.appended
	res.Silent = c.appended == 0
	if r.verbose {
		log.Printf("resolve: fired=%v appended=%d diagram_rendered=%v silent=%v",
			res.Fired, res.Appended, res.DiagramRendered, res.Silent)
	}
	return res, nil
}

func (r *Resolver) appendEntry(c *cycle, content string, role transcript.Role) error {
	if _, err := r.state.Transcript().Append(content, role); err != nil {
		return err
	}
	c.appended++
	return nil
}

func (r *Resolver) applyDiagram(ctx context.Context, c *cycle) error {
	v, err := r.renderer.Render(ctx, c.resp.Diagram, r.state.Theme())
	if err != nil {
		r.state.ShowDiagramError(markup.DiagramError(err.Error()))
		return r.appendEntry(c, markup.Assistant(markup.MsgDiagramFailed), transcript.RoleAssistant)
	}
	r.state.ShowVisual(v)
	c.diagramRendered = true
	return nil
}

func (r *Resolver) applyCode(ctx context.Context, c *cycle) error {
	r.state.ShowCode(markup.CodeBlock(c.resp.Code), c.resp.Code, surface.PaneCode)
	return r.appendEntry(c, markup.Assistant(markup.MsgCodeGenerated), transcript.RoleAssistant)
}

func (r *Resolver) applyAnswer(ctx context.Context, c *cycle) error {
	if err := r.appendEntry(c, markup.Escape(c.query), transcript.RoleUser); err != nil {
		return err
	}
	html, err := r.markdown.Render(c.resp.QAAnswer)
	if err != nil {
		log.Printf("resolve: markdown: %v", err)
		html = "<p>" + markup.Escape(c.resp.QAAnswer) + "</p>"
	}
	if err := r.appendEntry(c, html, transcript.RoleAssistant); err != nil {
		return err
	}
	r.state.SetQuery("")
	return nil
}

func (r *Resolver) applyDiagramConfirmation(ctx context.Context, c *cycle) error {
	return r.appendEntry(c, markup.Assistant(markup.MsgDiagramGenerated), transcript.RoleAssistant)
}
