package wlf

import "strings"

type nodeKind int

const (
	textNode nodeKind = iota
	escapedNode
	commentNode
	assetNode
	loopNode
	tagNode
	rawEchoNode
	echoNode
)

var nodeKinds = map[string]nodeKind{
	dComment: commentNode,
	dStyle:   assetNode,
	dScript:  assetNode,
	dIcon:    assetNode,
	dFor:     loopNode,
	dTag:     tagNode,
	dRawEcho: rawEchoNode,
	dEcho:    echoNode,
}

// node is one span of a scanned document. Passes fill out; a node with done set
// is emitted as out and ignored by later passes.
type node struct {
	kind      nodeKind
	directive *Directive
	raw       string
	groups    []string
	out       string
	done      bool
}

// scan splits a document into text and directive spans. A directive right
// after the marker becomes an escapedNode that keeps its marker until the
// final unescape pass.
func scan(src, marker string) []node {
	var nodes []node
	text := 0
	flush := func(end int) {
		if end > text {
			nodes = append(nodes, node{kind: textNode, raw: src[text:end]})
		}
	}
	for i := 0; i < len(src); {
		j := strings.IndexByte(src[i:], '{')
		if j < 0 {
			break
		}
		i += j
		var (
			m     match
			found *Directive
		)
		for _, d := range nodeDirectives {
			if mm, ok := d.at(src, i); ok {
				m, found = mm, d
				break
			}
		}
		if found == nil {
			i++
			continue
		}
		if escaped(src, i, marker) {
			flush(i - len(marker))
			nodes = append(nodes, node{kind: escapedNode, raw: src[i-len(marker) : m.end], done: true})
		} else {
			flush(i)
			nodes = append(nodes, node{kind: nodeKinds[found.Name], directive: found, raw: src[m.start:m.end], groups: m.groups})
		}
		i = m.end
		text = i
	}
	flush(len(src))
	return nodes
}

// joinNodes renders the nodes back into one document. Text spans are encoded so the
// host never reads them as actions.
func joinNodes(nodes []node, marker string) string {
	var b strings.Builder
	for i := range nodes {
		n := &nodes[i]
		switch {
		case n.kind == textNode:
			b.WriteString(textLiteral(n.raw, marker))
		case n.done:
			if n.kind == escapedNode {
				b.WriteString(n.raw)
			} else {
				b.WriteString(n.out)
			}
		default:
			b.WriteString(literal(n.raw))
		}
	}
	return b.String()
}

// textLiteral is literal plus a trailing "{" guard, which would otherwise merge
// with a following action into "{{{".
func textLiteral(s, marker string) string {
	s = literal(s)
	if strings.HasSuffix(s, "{") {
		s = s[:len(s)-1] + `{{"{"}}`
	}
	return guardMarkers(s, marker)
}
