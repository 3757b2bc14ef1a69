// Package markup builds the HTML fragments that end up in the transcript and
// the artifact panes. Everything that comes from the user or the service is
// escaped here, except answers, which go through the markdown renderer.
package markup

import (
	"strings"
)

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&#039;",
)

// Escape replaces the five reserved markup characters with entities.
// Text without any of them is returned unchanged.
func Escape(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}
	return escaper.Replace(s)
}

// Fixed assistant messages.
const (
	MsgDiagramFailed    = "Could not generate diagram."
	MsgCodeGenerated    = "Code generated successfully!"
	MsgDiagramGenerated = "Diagram generated successfully!"
)

// Pane placeholders and filename displays shown before anything is chosen.
const (
	DiagramPlaceholder = "Your diagram will appear here"
	CodePlaceholder    = "Your code will appear here"
	NoFileChosen       = "No file chosen"
	NoFilesChosen      = "No file(s) chosen"
)

// Assistant prefixes a fixed, trusted message with the assistant label.
func Assistant(msg string) string {
	return "<strong>AI:</strong> " + msg
}

// Error formats a failure message for the transcript. The message is escaped.
func Error(msg string) string {
	return "<strong>Error:</strong> " + Escape(msg)
}

// CodeBlock wraps source text in a preformatted block.
func CodeBlock(code string) string {
	return "<pre><code>" + Escape(code) + "</code></pre>"
}

// DiagramError builds the block that replaces the diagram pane when the
// renderer rejects the diagram source.
func DiagramError(msg string) string {
	return `<div class="diagram-error"><strong>Diagram Syntax Error:</strong><br><pre>` + Escape(msg) + `</pre></div>`
}

// Placeholder renders the muted empty-state text of a pane.
func Placeholder(text string) string {
	return `<span class="placeholder">` + Escape(text) + `</span>`
}
