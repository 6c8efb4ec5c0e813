package wlf

import "strings"

// Function is one entry of the pipe function table.
//
// A plain entry matches the segment `name`, a parameterized entry matches
// `name(args)`. Expand is the call the segment becomes: $value is the piped
// expression and $args the text between the parentheses.
type Function struct {
	Name   string
	Params bool
	Expand string
}

// DefaultFunctions is the built-in pipe function table.
var DefaultFunctions = []Function{
	{Name: "upper", Expand: "upper($value)"},
	{Name: "lower", Expand: "lower($value)"},
	{Name: "upperf", Expand: "upperf($value)"},
	{Name: "length", Expand: "length($value)"},
	{Name: "count", Expand: "count($value)"},
	{Name: "title", Expand: "title($value)"},
	{Name: "md5", Expand: "md5($value)"},
	{Name: "countwords", Expand: "countwords($value)"},
	{Name: "trim", Expand: "trim($value)"},
	{Name: "nl2br", Expand: "nl2br($value)"},
	{Name: "join", Params: true, Expand: "join($args, $value)"},
	{Name: "repeat", Params: true, Expand: "repeat($value, $args)"},
	{Name: "e", Expand: "e($value)"},
}

// match reports whether the segment has this entry's exact syntactic form.
func (f Function) match(seg string) (args string, ok bool) {
	if !f.Params {
		return "", seg == f.Name
	}
	if !strings.HasPrefix(seg, f.Name+"(") || !strings.HasSuffix(seg, ")") {
		return "", false
	}
	inner := seg[len(f.Name)+1 : len(seg)-1]
	if !balanced(inner) {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

func (f Function) apply(value, args string) string {
	var b strings.Builder
	t := f.Expand
	for i := 0; i < len(t); i++ {
		switch {
		case strings.HasPrefix(t[i:], "$value"):
			b.WriteString(value)
			i += len("$value") - 1
		case strings.HasPrefix(t[i:], "$args"):
			b.WriteString(args)
			i += len("$args") - 1
		default:
			b.WriteByte(t[i])
		}
	}
	return b.String()
}

// expandPipes rewrites `a | f | g(x)` into nested calls, left to right.
// The first segment that matches no entry stops the expansion and the rest of
// the chain is kept as written.
func expandPipes(expr string, table []Function) string {
	segs := splitPipes(expr)
	if len(segs) < 2 {
		return expr
	}
	value := strings.TrimSpace(segs[0])
	for i := 1; i < len(segs); i++ {
		seg := strings.TrimSpace(segs[i])
		matched := false
		for _, f := range table {
			if args, ok := f.match(seg); ok {
				value = f.apply(value, args)
				matched = true
				break
			}
		}
		if !matched {
			rest := make([]string, 0, len(segs)-i)
			for _, s := range segs[i:] {
				rest = append(rest, strings.TrimSpace(s))
			}
			return value + " | " + strings.Join(rest, " | ")
		}
	}
	return value
}

// splitPipes splits on top-level single `|`, outside quotes and parentheses.
func splitPipes(expr string) []string {
	var segs []string
	depth, last := 0, 0
	var quote byte
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case quote != 0:
			if c == '\\' && quote != '`' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == '|' && depth == 0:
			if i+1 < len(expr) && expr[i+1] == '|' {
				i++
				continue
			}
			segs = append(segs, expr[last:i])
			last = i + 1
		}
	}
	return append(segs, expr[last:])
}

// balanced reports whether parentheses outside quotes never close below zero
// and end at zero.
func balanced(s string) bool {
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
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0 && quote == 0
}
