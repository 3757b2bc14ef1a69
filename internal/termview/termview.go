// Package termview renders transcript and pane markup as plain terminal
// text.
package termview

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/flowchat/internal/surface"
	"github.com/ziadkadry99/flowchat/internal/transcript"
)

var blockTags = map[string]bool{
	"p": true, "div": true, "pre": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "tr": true, "blockquote": true, "hr": true,
}

// Text converts a markup fragment to plain text. Entities are decoded, block
// elements start on a new line and list items get a "- " bullet. Whitespace
// inside <pre> is kept as is.
func Text(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	pre := 0

	newline := func() {
		s := b.String()
		if s != "" && !strings.HasSuffix(s, "\n") {
			b.WriteByte('\n')
		}
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			text := string(z.Text())
			if pre == 0 {
				text = collapseSpace(text)
				if b.Len() == 0 || strings.HasSuffix(b.String(), "\n") {
					text = strings.TrimLeft(text, " ")
				}
			}
			b.WriteString(text)
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case tag == "br":
				b.WriteByte('\n')
			case tag == "li":
				newline()
				b.WriteString("- ")
			case tag == "img":
				b.WriteString("[image]")
			case blockTags[tag]:
				newline()
				if tag == "pre" && tt == html.StartTagToken {
					pre++
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "pre" && pre > 0 {
				pre--
			}
			if blockTags[tag] || tag == "li" {
				newline()
			}
		}
	}
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if s[0] == ' ' || s[0] == '\n' || s[0] == '\t' {
		out = " " + out
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' {
		out += " "
	}
	return out
}

// Printer writes transcript entries to a terminal as they arrive.
type Printer struct {
	w       io.Writer
	lastSeq int
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Transcript prints every entry of ts newer than the last one printed.
func (p *Printer) Transcript(ts *transcript.Store) {
	for _, e := range ts.Since(p.lastSeq) {
		p.lastSeq = e.Seq
		text := Text(e.Content)
		if e.Role == transcript.RoleUser {
			text = "You: " + text
		}
		fmt.Fprintln(p.w, text)
	}
}

// Pane prints a titled pane body unless it only shows its placeholder.
func (p *Printer) Pane(title string, pane surface.Pane) {
	if pane.State == surface.PanePlaceholder {
		return
	}
	body := Text(pane.Markup)
	if body == "" {
		return
	}
	fmt.Fprintf(p.w, "\n--- %s ---\n%s\n", title, body)
}

// Notice prints a user notice.
func (p *Printer) Notice(msg string) {
	fmt.Fprintf(p.w, "! %s\n", msg)
}
