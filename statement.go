package wlf

import (
	"regexp"
	"strings"
	"unicode"
)

type stmtKind int

const (
	stmtRaw stmtKind = iota
	stmtIf
	stmtElseIf
	stmtElse
	stmtEnd
	stmtForeach
	stmtOpen // raw range/with/block/define, closed by end
)

type statement struct {
	kind stmtKind
	expr string
	vars []string
}

var reForeach = regexp.MustCompile(`^foreach\s+(.+?)\s+as\s+\$?([a-zA-Z_][a-zA-Z0-9_]*)(?:\s*(?:,|=>)\s*\$?([a-zA-Z_][a-zA-Z0-9_]*))?$`)

func parseStatement(body string) statement {
	body = strings.TrimSpace(body)
	word, rest := keyword(body)
	switch word {
	case "if":
		return statement{kind: stmtIf, expr: rest}
	case "elseif", "elif":
		return statement{kind: stmtElseIf, expr: rest}
	case "else":
		if w, r := keyword(rest); w == "if" && r != "" {
			return statement{kind: stmtElseIf, expr: r}
		}
		if rest == "" {
			return statement{kind: stmtElse}
		}
	case "endif", "endfor", "endforeach", "end":
		if rest == "" {
			return statement{kind: stmtEnd}
		}
	case "foreach":
		if m := reForeach.FindStringSubmatch(body); m != nil {
			vars := []string{m[2]}
			if m[3] != "" {
				vars = append(vars, m[3])
			}
			return statement{kind: stmtForeach, expr: m[1], vars: vars}
		}
	case "range", "with", "block", "define":
		return statement{kind: stmtOpen, expr: body}
	}
	return statement{kind: stmtRaw, expr: body}
}

// keyword splits s at the end of its leading identifier.
func keyword(s string) (word, rest string) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// withExpr returns the statement text with its expression replaced.
func (s statement) withExpr(expr string) string {
	switch s.kind {
	case stmtIf:
		return "if " + expr
	case stmtElseIf:
		return "elseif " + expr
	case stmtForeach:
		return "foreach " + expr + " as " + strings.Join(s.vars, ", ")
	}
	return expr
}

// compile renders the statement as a host action body.
func (s statement) compile(local func(string) bool) string {
	switch s.kind {
	case stmtIf:
		return "if " + translate(s.expr, local)
	case stmtElseIf:
		return "else if " + translate(s.expr, local)
	case stmtElse:
		return "else"
	case stmtEnd:
		return "end"
	case stmtForeach:
		subject := translate(s.expr, local)
		if len(s.vars) == 2 {
			return "range $" + s.vars[0] + ", $" + s.vars[1] + " := " + subject
		}
		return "range $" + s.vars[0] + " := " + subject
	}
	return s.expr
}
