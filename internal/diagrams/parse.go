package diagrams

import (
	"fmt"
	"regexp"
	"strings"
)

// SyntaxError reports malformed diagram source.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("Parse error on line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("Parse error on line %d: %s\n%s", e.Line, e.Msg, e.Text)
}

// otherHeaders are mermaid diagram types whose bodies are passed through
// without validation.
var otherHeaders = map[string]bool{
	"sequenceDiagram":    true,
	"classDiagram":       true,
	"classDiagram-v2":    true,
	"stateDiagram":       true,
	"stateDiagram-v2":    true,
	"erDiagram":          true,
	"gantt":              true,
	"pie":                true,
	"journey":            true,
	"gitGraph":           true,
	"mindmap":            true,
	"timeline":           true,
	"quadrantChart":      true,
	"requirementDiagram": true,
	"C4Context":          true,
	"C4Container":        true,
	"C4Component":        true,
	"C4Dynamic":          true,
	"C4Deployment":       true,
	"xychart-beta":       true,
	"block-beta":         true,
	"sankey-beta":        true,
	"architecture-beta":  true,
	"packet-beta":        true,
	"radar-beta":         true,
	"kanban":             true,
	"zenuml":             true,
}

var validDirections = map[string]bool{
	"TB": true, "TD": true, "BT": true, "RL": true, "LR": true,
}

// shapeOpeners is ordered longest first so "((" wins over "(".
var shapeOpeners = []string{"(((", "((", "([", "[[", "[(", "{{", "[/", "[\\", "[", "(", "{", ">"}

var shapeClosers = map[string]string{
	"(((": ")))",
	"((":  "))",
	"([":  "])",
	"[[":  "]]",
	"[(":  ")]",
	"{{":  "}}",
	"[/":  "/]",
	"[\\": "\\]",
	"[":   "]",
	"(":   ")",
	"{":   "}",
	">":   "]",
}

// plainArrow matches links such as -->, --->, ---, ==>, -.->, --o, --x and
// the invisible ~~~, optionally bidirectional.
var plainArrow = regexp.MustCompile(`^<?(?:-{2,}>|-{3,}|={2,}>|={3,}|-\.+->|-\.+-|-{2}[ox](?:\s|$)|={2}[ox](?:\s|$)|~{3,})`)

// edgeID matches the "e1@" prefix that names a link.
var edgeID = regexp.MustCompile(`^[A-Za-z0-9_]+@`)

// shapeLabel pulls the label out of an A@{ shape: rect, label: "x" } block.
var shapeLabel = regexp.MustCompile(`label:\s*"([^"]*)"`)

// inlineArrows are links carrying their label between the dashes:
// A -- text --> B.
var inlineArrows = []struct {
	open   string
	closes []string
}{
	{"--", []string{"-->", "---"}},
	{"==", []string{"==>", "==="}},
	{"-.", []string{".->", ".-"}},
}

var keywordStatements = map[string]bool{
	"classDef":  true,
	"class":     true,
	"style":     true,
	"linkStyle": true,
	"click":     true,
	"direction": true,
}

type parser struct {
	d     *Diagram
	line  int
	text  string
	depth int
}

// Parse validates mermaid source. Flowcharts are fully checked; other
// diagram types only need a recognised header.
func Parse(source string) (*Diagram, error) {
	lines := strings.Split(strings.ReplaceAll(source, "\r\n", "\n"), "\n")
	p := &parser{}
	lastLine := 1

	start, err := skipFrontMatter(lines)
	if err != nil {
		return nil, err
	}

	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "%%") || strings.HasPrefix(line, "```") {
			continue
		}
		p.line, p.text = i+1, line
		lastLine = i + 1

		if p.d == nil {
			rest, err := p.header(line)
			if err != nil {
				return nil, err
			}
			if p.d.Kind != KindFlowchart {
				return p.d, nil
			}
			line = rest
		}

		for _, stmt := range splitStatements(line) {
			if err := p.statement(stmt); err != nil {
				return nil, err
			}
		}
	}

	if p.d == nil {
		return nil, &SyntaxError{Line: 1, Msg: "empty diagram source"}
	}
	if p.depth > 0 {
		return nil, &SyntaxError{Line: lastLine, Msg: fmt.Sprintf("%d subgraph(s) not closed with \"end\"", p.depth)}
	}
	return p.d, nil
}

// skipFrontMatter returns the index of the first line after a leading
// "---" delimited YAML block, or 0 when there is none.
func skipFrontMatter(lines []string) (int, error) {
	first := -1
	for i, raw := range lines {
		if strings.TrimSpace(raw) != "" {
			first = i
			break
		}
	}
	if first < 0 || strings.TrimSpace(lines[first]) != "---" {
		return 0, nil
	}
	for i := first + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i + 1, nil
		}
	}
	return 0, &SyntaxError{Line: first + 1, Text: "---", Msg: "front matter not closed with \"---\""}
}

func (p *parser) fail(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Text: p.text, Msg: fmt.Sprintf(format, args...)}
}

// header consumes the diagram type line and returns any statements that
// follow it on the same line after a semicolon.
func (p *parser) header(line string) (string, error) {
	head, rest, _ := strings.Cut(line, ";")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return "", p.fail("expecting diagram header before %q", line)
	}
	switch {
	case fields[0] == "graph" || fields[0] == "flowchart":
		dir := "TB"
		if len(fields) > 1 {
			dir = fields[1]
		}
		if len(fields) > 2 || !validDirections[dir] {
			return "", p.fail("invalid flowchart direction %q", strings.Join(fields[1:], " "))
		}
		p.d = &Diagram{Kind: KindFlowchart, Header: fields[0], Direction: dir}
		return rest, nil
	case otherHeaders[fields[0]]:
		p.d = &Diagram{Kind: KindOther, Header: fields[0]}
		return "", nil
	default:
		return "", p.fail("expecting diagram header (graph, flowchart, sequenceDiagram, ...), got %q", fields[0])
	}
}

func (p *parser) statement(stmt string) error {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return nil
	}
	first := strings.Fields(stmt)[0]
	switch {
	case first == "subgraph":
		p.depth++
		return nil
	case stmt == "end":
		if p.depth == 0 {
			return p.fail("unexpected \"end\" outside of a subgraph")
		}
		p.depth--
		return nil
	case keywordStatements[first]:
		return nil
	}
	return p.chain(stmt)
}

// chain parses node groups joined by links: A --> B & C -->|x| D.
func (p *parser) chain(s string) error {
	from, pos, err := p.group(s, 0)
	if err != nil {
		return err
	}
	for {
		pos = skipSpaces(s, pos)
		if pos >= len(s) {
			return nil
		}
		label, next, err := p.arrow(s, pos)
		if err != nil {
			return err
		}
		pos = skipSpaces(s, next)
		if pos >= len(s) {
			return p.fail("link has no target node")
		}
		to, next, err := p.group(s, pos)
		if err != nil {
			return err
		}
		for _, f := range from {
			for _, t := range to {
				p.d.Edges = append(p.d.Edges, Edge{From: f, To: t, Label: label})
			}
		}
		from, pos = to, next
	}
}

func (p *parser) group(s string, pos int) ([]string, int, error) {
	var ids []string
	for {
		id, next, err := p.nodeRef(s, pos)
		if err != nil {
			return nil, 0, err
		}
		ids = append(ids, id)
		pos = skipSpaces(s, next)
		if pos < len(s) && s[pos] == '&' {
			pos = skipSpaces(s, pos+1)
			continue
		}
		return ids, next, nil
	}
}

func (p *parser) nodeRef(s string, pos int) (string, int, error) {
	start := pos
	for pos < len(s) && isIDChar(s, pos) {
		pos++
	}
	if pos == start {
		return "", 0, p.fail("expecting node id near %q", snippet(s[start:]))
	}
	id := s[start:pos]
	if id == "end" {
		return "", 0, p.fail("\"end\" cannot be used as a node id")
	}

	var label, shape string
	if strings.HasPrefix(s[pos:], "@{") {
		end := closingBrace(s, pos+2)
		if end < 0 {
			return "", 0, p.fail("unterminated shape data, expecting \"}\"")
		}
		if m := shapeLabel.FindStringSubmatch(s[pos+2 : end]); m != nil {
			label = m[1]
		}
		shape, pos = "@{", end+1
	}
	for _, open := range shapeOpeners {
		if shape != "" || !strings.HasPrefix(s[pos:], open) {
			continue
		}
		l, end, err := p.label(s, pos+len(open), shapeClosers[open])
		if err != nil {
			return "", 0, err
		}
		label, shape, pos = l, open, end
	}

	if strings.HasPrefix(s[pos:], ":::") {
		pos += 3
		for pos < len(s) && isWordChar(s[pos]) {
			pos++
		}
	}

	p.declare(id, label, shape)
	return id, pos, nil
}

func (p *parser) label(s string, pos int, close string) (string, int, error) {
	rest := s[pos:]
	trimmed := strings.TrimLeft(rest, " ")
	if strings.HasPrefix(trimmed, "\"") {
		qStart := pos + len(rest) - len(trimmed) + 1
		q := strings.IndexByte(s[qStart:], '"')
		if q < 0 {
			return "", 0, p.fail("unterminated string in node label")
		}
		after := skipSpaces(s, qStart+q+1)
		if !strings.HasPrefix(s[after:], close) {
			return "", 0, p.fail("expecting %q after quoted label", close)
		}
		return s[qStart : qStart+q], after + len(close), nil
	}

	idx := strings.Index(rest, close)
	if idx < 0 {
		return "", 0, p.fail("unterminated node shape, expecting %q", close)
	}
	label := strings.TrimSpace(rest[:idx])
	if strings.ContainsAny(label, "[]{}()") {
		return "", 0, p.fail("unquoted label %q contains brackets; wrap it in double quotes", label)
	}
	return label, pos + idx + len(close), nil
}

func (p *parser) arrow(s string, pos int) (string, int, error) {
	if m := edgeID.FindString(s[pos:]); m != "" {
		pos += len(m)
	}
	rest := s[pos:]
	if m := plainArrow.FindString(rest); m != "" {
		next := skipSpaces(s, pos+len(m))
		if next < len(s) && s[next] == '|' {
			end := strings.IndexByte(s[next+1:], '|')
			if end < 0 {
				return "", 0, p.fail("unterminated link label")
			}
			return unquote(s[next+1 : next+1+end]), next + end + 2, nil
		}
		return "", pos + len(m), nil
	}

	for _, il := range inlineArrows {
		if !strings.HasPrefix(rest, il.open+" ") {
			continue
		}
		body := rest[len(il.open)+1:]
		best, tok := -1, ""
		for _, c := range il.closes {
			if i := strings.Index(body, c); i >= 0 && (best < 0 || i < best) {
				best, tok = i, c
			}
		}
		if best < 0 {
			return "", 0, p.fail("unterminated link text")
		}
		return unquote(body[:best]), pos + len(il.open) + 1 + best + len(tok), nil
	}

	return "", 0, p.fail("expecting link or end of statement near %q", snippet(rest))
}

func (p *parser) declare(id, label, shape string) {
	for i := range p.d.Nodes {
		if p.d.Nodes[i].ID == id {
			if label != "" {
				p.d.Nodes[i].Label = label
				p.d.Nodes[i].Shape = shape
			}
			return
		}
	}
	p.d.Nodes = append(p.d.Nodes, Node{ID: id, Label: label, Shape: shape})
}

// splitStatements splits a line on semicolons outside quotes and brackets.
func splitStatements(line string) []string {
	var out []string
	depth, inQuote, start := 0, false, 0
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[' || c == '(' || c == '{':
			depth++
		case c == ']' || c == ')' || c == '}':
			if depth > 0 {
				depth--
			}
		case c == ';' && depth == 0:
			out = append(out, line[start:i])
			start = i + 1
		}
	}
	return append(out, line[start:])
}

// closingBrace returns the index of the "}" that closes a block opened just
// before pos, skipping quoted text.
func closingBrace(s string, pos int) int {
	inQuote := false
	for i := pos; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '}':
			if !inQuote {
				return i
			}
		}
	}
	return -1
}

func isWordChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// isIDChar allows single hyphens inside ids (api-gateway) but stops before
// a link such as -- or -.
func isIDChar(s string, i int) bool {
	c := s[i]
	if isWordChar(c) {
		return true
	}
	if c == '-' && i+1 < len(s) {
		return isWordChar(s[i+1])
	}
	return false
}

func skipSpaces(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, "\"") && strings.HasSuffix(s, "\"") {
		s = s[1 : len(s)-1]
	}
	return s
}

func snippet(s string) string {
	if len(s) > 20 {
		return s[:20] + "..."
	}
	return s
}
