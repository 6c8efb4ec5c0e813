package wlf

import (
	"errors"
	"strconv"
	"strings"
)

// Expressions of the template language compile to html/template pipelines:
//
//	user.name          -> $.user.name
//	i (loop variable)  -> $i
//	f(a, 'b')          -> (f $.a "b")
//	a == b && !c       -> (and (eq $.a $.b) (not $.c))
//
// A leftover pipe segment (one no function entry matched) is kept as a native
// pipeline stage.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokVar
	tokField
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokPipe
)

type token struct {
	kind tokenKind
	text string
}

var errSyntax = errors.New("expression syntax")

var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "<", ">", "!"}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func lexExpr(src string) ([]token, error) {
	var toks []token
	valueBefore := func() bool {
		if len(toks) == 0 {
			return false
		}
		switch toks[len(toks)-1].kind {
		case tokIdent, tokVar, tokField, tokNumber, tokString, tokRParen:
			return true
		}
		return false
	}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && (isIdentChar(src[j]) || (src[j] == '.' && j+1 < len(src) && isIdentStart(src[j+1]))) {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j]})
			i = j
		case c == '$' || c == '.':
			j := i + 1
			for j < len(src) && (isIdentChar(src[j]) || (src[j] == '.' && j+1 < len(src) && isIdentStart(src[j+1]))) {
				j++
			}
			kind := tokVar
			if c == '.' {
				kind = tokField
			}
			toks = append(toks, token{kind, src[i:j]})
			i = j
		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1]) && !valueBefore()):
			j := i + 1
			for j < len(src) && (isDigit(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j
		case c == '"' || c == '\'' || c == '`':
			j := i + 1
			for j < len(src) && src[j] != c {
				if src[j] == '\\' && c != '`' {
					j++
				}
				j++
			}
			if j >= len(src) {
				return nil, errSyntax
			}
			toks = append(toks, token{tokString, src[i : j+1]})
			i = j + 1
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '|' && !strings.HasPrefix(src[i:], "||"):
			toks = append(toks, token{tokPipe, "|"})
			i++
		default:
			op := ""
			for _, o := range operators {
				if strings.HasPrefix(src[i:], o) {
					op = o
					break
				}
			}
			if op == "" {
				return nil, errSyntax
			}
			toks = append(toks, token{tokOp, op})
			i += len(op)
		}
	}
	return toks, nil
}

type exprParser struct {
	toks  []token
	pos   int
	local func(name string) bool
}

func (p *exprParser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) isOp(t token, ops ...string) bool {
	for _, o := range ops {
		if (t.kind == tokOp || t.kind == tokIdent) && t.text == o {
			return true
		}
	}
	return false
}

func (p *exprParser) parseOr() (string, error) {
	left, err := p.parseAnd()
	if err != nil {
		return "", err
	}
	for p.isOp(p.peek(), "||", "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return "", err
		}
		left = "(or " + left + " " + right + ")"
	}
	return left, nil
}

func (p *exprParser) parseAnd() (string, error) {
	left, err := p.parseCmp()
	if err != nil {
		return "", err
	}
	for p.isOp(p.peek(), "&&", "and") {
		p.next()
		right, err := p.parseCmp()
		if err != nil {
			return "", err
		}
		left = "(and " + left + " " + right + ")"
	}
	return left, nil
}

var comparisons = map[string]string{
	"==": "eq", "!=": "ne", "<": "lt", "<=": "le", ">": "gt", ">=": "ge",
}

func (p *exprParser) parseCmp() (string, error) {
	left, err := p.parseUnary()
	if err != nil {
		return "", err
	}
	if t := p.peek(); t.kind == tokOp {
		if fn, ok := comparisons[t.text]; ok {
			p.next()
			right, err := p.parseUnary()
			if err != nil {
				return "", err
			}
			return "(" + fn + " " + left + " " + right + ")", nil
		}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (string, error) {
	if p.isOp(p.peek(), "!", "not") {
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return "", err
		}
		return "(not " + x + ")", nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (string, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return t.text, nil
	case tokString:
		return goString(t.text), nil
	case tokVar:
		if name := t.text[1:]; name != "" && isIdentStart(name[0]) {
			return p.path(name), nil
		}
		return t.text, nil
	case tokField:
		return t.text, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return "", err
		}
		if p.next().kind != tokRParen {
			return "", errSyntax
		}
		return inner, nil
	case tokIdent:
		if p.peek().kind == tokLParen && !strings.Contains(t.text, ".") {
			return p.parseCall(t.text)
		}
		switch t.text {
		case "true", "false", "nil":
			return t.text, nil
		case "and", "or", "not":
			return "", errSyntax
		}
		return p.path(t.text), nil
	}
	return "", errSyntax
}

func (p *exprParser) parseCall(name string) (string, error) {
	p.next() // (
	parts := []string{name}
	if p.peek().kind == tokRParen {
		p.next()
		return "(" + name + ")", nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return "", err
		}
		parts = append(parts, arg)
		switch p.next().kind {
		case tokComma:
			continue
		case tokRParen:
			return "(" + strings.Join(parts, " ") + ")", nil
		default:
			return "", errSyntax
		}
	}
}

// path resolves a bare (possibly dotted) identifier against the loop scope or
// the data binding root.
func (p *exprParser) path(name string) string {
	root, rest, _ := strings.Cut(name, ".")
	if rest != "" {
		rest = "." + rest
	}
	if p.local != nil && p.local(root) {
		return "$" + root + rest
	}
	return "$." + root + rest
}

func goString(lit string) string {
	if lit[0] != '\'' {
		return lit
	}
	body := lit[1 : len(lit)-1]
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) && (body[i+1] == '\'' || body[i+1] == '\\') {
			i++
		}
		b.WriteByte(body[i])
	}
	return strconv.Quote(b.String())
}

// translate compiles an expression to a pipeline. When the text is not a
// valid expression it is returned unchanged.
func translate(src string, local func(string) bool) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return src
	}
	out, err := translateExpr(src, local)
	if err != nil {
		return src
	}
	return out
}

func translateExpr(src string, local func(string) bool) (string, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return "", err
	}
	p := &exprParser{toks: toks, local: local}
	out, err := p.parseOr()
	if err != nil {
		return "", err
	}
	for p.peek().kind == tokPipe {
		p.next()
		start := p.pos
		for p.peek().kind != tokPipe && p.peek().kind != tokEOF {
			p.next()
		}
		stage := make([]string, 0, p.pos-start)
		for _, t := range toks[start:p.pos] {
			stage = append(stage, t.text)
		}
		out += " | " + strings.Join(stage, " ")
	}
	if p.peek().kind != tokEOF {
		return "", errSyntax
	}
	return out, nil
}
