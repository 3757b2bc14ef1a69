package diagrams

// Kind is the diagram type named by the header line.
type Kind string

const (
	KindFlowchart Kind = "flowchart"
	KindOther     Kind = "other"
)

// Node is a vertex of a flowchart.
type Node struct {
	ID    string
	Label string
	Shape string // opening bracket sequence, e.g. "[", "{", "(["
}

// Edge connects two nodes.
type Edge struct {
	From  string
	To    string
	Label string
}

// Diagram is the parsed form of mermaid source. For non-flowchart headers only
// Kind and Header are populated.
type Diagram struct {
	Kind      Kind
	Header    string
	Direction string
	Nodes     []Node
	Edges     []Edge
}
