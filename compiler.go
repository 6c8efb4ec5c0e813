package wlf

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Transform is a whole-document custom pass. Transforms run in registration
// order after every built-in expansion and before the raw-escape markers are
// removed.
type Transform func(content string) (string, error)

// compiler turns template source into html/template source. It holds no
// mutable state and is shared by concurrent compilations.
type compiler struct {
	store        Store
	marker       string
	functions    []Function
	transforms   []Transform
	csrfField    string
	extendsDepth int
	includeDepth int
}

func newCompiler(store Store, opts Options) *compiler {
	return &compiler{
		store:        store,
		marker:       opts.Marker,
		functions:    append(slices.Clone(opts.Functions), DefaultFunctions...),
		transforms:   slices.Clone(opts.Transforms),
		csrfField:    opts.CSRFField,
		extendsDepth: opts.ExtendsDepth,
		includeDepth: opts.IncludeDepth,
	}
}

func (c *compiler) read(id string) (string, error) {
	src, err := c.store.ReadSource(id)
	if err != nil {
		return "", newError(id, "read", err)
	}
	return src, nil
}

// compile runs every pass over the template source, in order.
func (c *compiler) compile(id, src string) (string, error) {
	doc, err := c.prepare(id, src, []string{id})
	if err != nil {
		return "", err
	}

	nodes := scan(doc, c.marker)
	c.expandAssets(nodes)
	nodes = stripComments(nodes)
	c.expandFunctions(nodes)
	c.expandLoops(nodes)
	c.expandTags(nodes)
	doc = joinNodes(nodes, c.marker)

	for i, t := range c.transforms {
		doc, err = t(doc)
		if err != nil {
			return "", newError(id, "transform", fmt.Errorf("custom transform #%d: %w", i, err))
		}
	}
	return stripEscapes(doc, c.marker), nil
}

// prepare runs the document level passes: csrf markers, inheritance and
// includes. Included documents are prepared the same way before splicing.
func (c *compiler) prepare(id, src string, includes []string) (string, error) {
	doc := c.expandCsrf(src)
	doc, err := c.extend(id, doc)
	if err != nil {
		return "", err
	}
	return c.expandIncludes(id, doc, includes)
}

func (c *compiler) expandCsrf(src string) string {
	d := directives.Get(dCsrf)
	out, _ := d.replace(src, c.marker, func(match) (string, error) {
		return d.expand(c.csrfField), nil
	})
	return out
}

// extend resolves the @extends chain of a document. Without a declaration the
// document is returned unchanged.
func (c *compiler) extend(id, src string) (string, error) {
	if _, ok := directives.Get(dExtends).first(src, c.marker); !ok {
		return src, nil
	}
	doc, err := c.extendChain(id, src, []string{id})
	if err != nil {
		return "", err
	}
	return cleanBlocks(doc, c.marker), nil
}

func (c *compiler) extendChain(id, src string, chain []string) (string, error) {
	m, ok := directives.Get(dExtends).first(src, c.marker)
	if !ok {
		return src, nil
	}
	parentID, err := Sanitize(unquote(m.group(0)))
	if err != nil {
		return "", newError(id, "extends", err)
	}
	if slices.Contains(chain, parentID) {
		return "", newError(id, "extends", fmt.Errorf("%w: %s -> %s", ErrCyclicExtends, strings.Join(chain, " -> "), parentID))
	}
	if len(chain) > c.extendsDepth {
		return "", newError(id, "extends", fmt.Errorf("%w: %s -> %s", ErrExtendsDepth, strings.Join(chain, " -> "), parentID))
	}
	parent, err := c.read(parentID)
	if err != nil {
		return "", newError(id, "extends", err)
	}
	parent = c.expandCsrf(parent)
	parent, err = c.extendChain(parentID, parent, append(chain, parentID))
	if err != nil {
		return "", err
	}
	return inherit(src, parent, c.marker), nil
}

func (c *compiler) expandIncludes(id, src string, includes []string) (string, error) {
	return directives.Get(dInclude).replace(src, c.marker, func(m match) (string, error) {
		name, err := Sanitize(unquote(m.group(0)))
		if err != nil {
			return "", newError(id, "include", err)
		}
		if slices.Contains(includes, name) || len(includes) > c.includeDepth {
			return "", newError(id, "include", fmt.Errorf("%w: %s -> %s", ErrCyclicInclude, strings.Join(includes, " -> "), name))
		}
		partial, err := c.read(name)
		if err != nil {
			return "", newError(id, "include", err)
		}
		return c.prepare(name, partial, append(slices.Clone(includes), name))
	})
}

func (c *compiler) expandAssets(nodes []node) {
	walk(nodes, func(n *node, local func(string) bool) {
		if n.kind != assetNode {
			return
		}
		arg := n.groups[0]
		if isQuoted(arg) {
			arg = guardMarkers(literal(arg), c.marker)
		} else {
			arg = `"{{ ` + translate(expandPipes(arg, c.functions), local) + ` }}"`
		}
		n.out, n.done = n.directive.expand(arg), true
	})
}

func isQuoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]
}

func stripComments(nodes []node) []node {
	return slices.DeleteFunc(nodes, func(n node) bool { return n.kind == commentNode })
}

func (c *compiler) expandFunctions(nodes []node) {
	for i := range nodes {
		n := &nodes[i]
		if n.done {
			continue
		}
		switch n.kind {
		case echoNode, rawEchoNode:
			n.groups[0] = expandPipes(n.groups[0], c.functions)
		case loopNode:
			n.groups[1] = expandPipes(n.groups[1], c.functions)
			n.groups[2] = expandPipes(n.groups[2], c.functions)
		case tagNode:
			st := parseStatement(n.groups[0])
			switch st.kind {
			case stmtIf, stmtElseIf, stmtForeach:
				n.groups[0] = st.withExpr(expandPipes(st.expr, c.functions))
			}
		}
	}
}

func (c *compiler) expandLoops(nodes []node) {
	walk(nodes, func(n *node, local func(string) bool) {
		if n.kind != loopNode {
			return
		}
		n.out = n.directive.expand("$"+n.groups[0], operand(n.groups[1], local), operand(n.groups[2], local))
		n.done = true
	})
}

// operand wraps a compiled expression so it can be a command argument.
func operand(expr string, local func(string) bool) string {
	out := translate(expr, local)
	if strings.ContainsAny(out, " \t") && !grouped(out) {
		return "(" + out + ")"
	}
	return out
}

// grouped reports whether s is one parenthesized group.
func grouped(s string) bool {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 && i < len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func (c *compiler) expandTags(nodes []node) {
	walk(nodes, func(n *node, local func(string) bool) {
		switch n.kind {
		case echoNode:
			n.out = n.directive.expand(translate(n.groups[0], local))
		case rawEchoNode:
			n.out = n.directive.expand(operand(n.groups[0], local))
		case tagNode:
			n.out = n.directive.expand(parseStatement(n.groups[0]).compile(local))
		default:
			return
		}
		n.done = true
	})
}

// walk visits the directive nodes with the loop variables in scope at each.
// Variables declared by native actions count as loop variables too.
func walk(nodes []node, fn func(n *node, local func(string) bool)) {
	frames := [][]string{nil}
	local := func(name string) bool {
		for _, f := range frames {
			if slices.Contains(f, name) {
				return true
			}
		}
		return false
	}
	pop := func() {
		if len(frames) > 1 {
			frames = frames[:len(frames)-1]
		}
	}
	for i := range nodes {
		n := &nodes[i]
		switch n.kind {
		case textNode, escapedNode:
			continue
		case loopNode:
			fn(n, local)
			frames = append(frames, []string{n.groups[0]})
		case tagNode:
			st := parseStatement(n.groups[0])
			fn(n, local)
			switch st.kind {
			case stmtIf:
				frames = append(frames, nil)
			case stmtOpen:
				frames = append(frames, declared(st.expr))
			case stmtForeach:
				frames = append(frames, st.vars)
			case stmtRaw:
				top := len(frames) - 1
				frames[top] = append(frames[top], declared(st.expr)...)
			case stmtEnd:
				pop()
			}
		default:
			fn(n, local)
		}
	}
}

var reDeclare = regexp.MustCompile(`^(?:range\s+|with\s+)?\$([a-zA-Z_][a-zA-Z0-9_]*)(?:\s*,\s*\$([a-zA-Z_][a-zA-Z0-9_]*))?\s*:=`)

// declared returns the variables a native action declares, without "$".
func declared(action string) []string {
	m := reDeclare.FindStringSubmatch(action)
	if m == nil {
		return nil
	}
	if m[2] == "" {
		return m[1:2]
	}
	return m[1:3]
}
