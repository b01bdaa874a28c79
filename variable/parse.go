package variable

import (
	"strings"
	"unicode/utf8"
)

// Delimiters of the expression grammar.
const (
	escapeChar = '\\'
	openSeq    = "${"
	closeChar  = '}'
)

// Parse error messages stored in [Node.Err].
const (
	errTrailingEscape = "Cannot end with escape character"
	errChildNode      = "Parse error in child node"
	errUnterminated   = "Reached end of expression without completing parsing"
)

// NodeType identifies the kind of a parse [Node].
type NodeType int

const (
	// NodeRoot wraps the whole source string.
	NodeRoot NodeType = iota

	// NodeText is a run of literal text.
	NodeText

	// NodeEscape is a backslash followed by the character it escapes.
	NodeEscape

	// NodeExpression is a ${...} variable reference.
	NodeExpression
)

// String returns a string representation of the node type.
func (t NodeType) String() string {
	switch t {
	case NodeRoot:
		return "root"

	case NodeText:
		return "text"

	case NodeEscape:
		return "escape"

	case NodeExpression:
		return "expression"

	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Node is one element of a parse tree. Start and Length give the byte range
// of the source the node covers. Err is non-empty if the node could not be
// parsed.
//
// Parse trees are shared between parsers of identical strings and must not
// be modified.
type Node struct {
	Type     NodeType `json:"type"               yaml:"type"`
	Start    int      `json:"start"              yaml:"start"`
	Length   int      `json:"length"             yaml:"length"`
	Children []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
	Err      string   `json:"error,omitempty"    yaml:"error,omitempty"`
}

// End returns the offset one past the last byte covered by n.
func (n *Node) End() int { return n.Start + n.Length }

// Text returns the slice of source covered by n.
func (n *Node) Text(source string) string {
	start := min(max(n.Start, 0), len(source))
	end := min(max(n.End(), start), len(source))

	return source[start:end]
}

// Walk calls fn for n and each of its descendants, depth-first, stopping
// early if fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}

	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}

	return true
}

// HasExpression reports whether any direct child of n is an expression.
func (n *Node) HasExpression() bool {
	for _, c := range n.Children {
		if c.Type == NodeExpression {
			return true
		}
	}

	return false
}

// rule describes how one node type is recognized and terminated. Offsets
// passed to and returned from the predicates are byte indexes into the
// source; parsedUntil returns the index of the last byte the node covers.
type rule struct {
	typ         NodeType
	startWith   func(i int, current NodeType) bool
	beginFrom   func(i int) int
	endBefore   func(i int, parent NodeType) bool
	endAfter    func(i int, parent NodeType) bool
	parsedUntil func(i int, parent NodeType) int
	errorOn     func(i int) string
}

// Parser transforms one source string into a parse tree. The tree is built
// on the first call to [Parser.Parse] and reused afterwards.
type Parser struct {
	source string
	root   rule
	rules  []rule
	parsed *Node
}

// NewParser returns a parser for source.
func NewParser(source string) *Parser {
	p := &Parser{source: source}

	last := func() int { return len(p.source) - 1 }

	p.root = rule{
		typ:         NodeRoot,
		endBefore:   func(int, NodeType) bool { return len(p.source) == 0 },
		endAfter:    func(i int, _ NodeType) bool { return i == last() },
		parsedUntil: func(int, NodeType) int { return last() },
	}

	p.rules = []rule{
		{
			typ:       NodeEscape,
			startWith: func(i int, _ NodeType) bool { return p.isEscape(i) },
			beginFrom: func(i int) int { return i + 1 },
			endBefore: func(int, NodeType) bool { return true },
			parsedUntil: func(i int, _ NodeType) int {
				if i > last() {
					return last()
				}

				// Escaped characters span a whole rune.
				_, size := utf8.DecodeRuneInString(p.source[i:])

				return min(i+size-1, last())
			},
			errorOn: func(i int) string {
				if i > last() {
					return errTrailingEscape
				}

				return ""
			},
		},
		{
			typ:         NodeExpression,
			startWith:   func(i int, _ NodeType) bool { return p.isOpen(i) },
			beginFrom:   func(i int) int { return i + len(openSeq) },
			endBefore:   func(i int, _ NodeType) bool { return p.isClose(i) },
			parsedUntil: func(i int, _ NodeType) int { return i },
		},
		{
			// Text is the default state: begin one whenever not already in one.
			typ: NodeText,
			startWith: func(_ int, current NodeType) bool {
				return current != NodeText
			},
			endBefore: p.textBoundary,
			endAfter:  func(i int, _ NodeType) bool { return i == last() },
			parsedUntil: func(i int, parent NodeType) int {
				if p.textBoundary(i, parent) {
					return i - 1
				}

				return i
			},
		},
	}

	return p
}

// Source returns the string being parsed.
func (p *Parser) Source() string { return p.source }

// Parse returns the parse tree of the source string.
func (p *Parser) Parse() *Node {
	if p.parsed == nil {
		p.parsed = cached(p.source, func() *Node {
			return p.parseByRule(0, p.root, NodeRoot)
		})
	}

	return p.parsed
}

func (p *Parser) isEscape(i int) bool {
	return i >= 0 && i < len(p.source) && p.source[i] == escapeChar
}

func (p *Parser) isOpen(i int) bool {
	return i >= 0 && i <= len(p.source) && strings.HasPrefix(p.source[i:], openSeq)
}

func (p *Parser) isClose(i int) bool {
	return i >= 0 && i < len(p.source) && p.source[i] == closeChar
}

func (p *Parser) textBoundary(i int, parent NodeType) bool {
	return p.isEscape(i) || p.isOpen(i) ||
		(parent == NodeExpression && p.isClose(i))
}

// parseByRule builds the node matched by r starting at from. Child nodes are
// parsed recursively with the same rule set, so expressions may nest.
func (p *Parser) parseByRule(from int, r rule, parent NodeType) *Node {
	cur := from
	if r.beginFrom != nil {
		cur = r.beginFrom(from)
	}

	node := &Node{Type: r.typ, Start: from}

	finish := func(until int, err string) *Node {
		node.Length = until - from + 1
		node.Err = err

		return node
	}

	for {
		if r.errorOn != nil {
			if err := r.errorOn(cur); err != "" {
				return finish(r.parsedUntil(cur, parent), err)
			}
		}

		if r.endBefore(cur, parent) {
			return finish(r.parsedUntil(cur, parent), "")
		}

		if next, ok := p.match(cur, r.typ); ok {
			child := p.parseByRule(cur, next, r.typ)
			node.Children = append(node.Children, child)
			cur = child.End() - 1

			if child.Err != "" {
				return finish(cur, errChildNode)
			}
		}

		if r.endAfter != nil && r.endAfter(cur, parent) {
			return finish(r.parsedUntil(cur, parent), "")
		}

		cur++

		if cur >= len(p.source) {
			break
		}
	}

	node.Length = len(p.source) - from
	node.Err = errUnterminated

	return node
}

// match returns the first rule that starts a node at i.
func (p *Parser) match(i int, current NodeType) (rule, bool) {
	for _, r := range p.rules {
		if r.startWith(i, current) {
			return r, true
		}
	}

	return rule{}, false
}
