package wlf

import (
	"regexp"
	"strings"
)

// DefaultMarker is the raw-escape marker. A directive written right after it is
// kept as literal text.
const DefaultMarker = "~"

// Directive names of the pattern table.
const (
	dComment  = "comment"
	dStyle    = "style"
	dScript   = "script"
	dIcon     = "icon"
	dFor      = "for"
	dTag      = "tag"
	dRawEcho  = "raw_echo"
	dEcho     = "echo"
	dInclude  = "include"
	dCsrf     = "csrf"
	dExtends  = "extends"
	dBlock    = "block"
	dEndBlock = "endblock"
	dParent   = "parent"
)

// Directive is one recognized syntactic form of the template language.
type Directive struct {
	Name string

	// compiled shape, $1..$9 refer to the (already compiled) groups
	tmpl     string
	pattern  *regexp.Regexp
	anchored *regexp.Regexp
}

func newDirective(name, pattern, replace string) *Directive {
	return &Directive{
		Name:     name,
		tmpl:     replace,
		pattern:  regexp.MustCompile(pattern),
		anchored: regexp.MustCompile(`\A(?:` + pattern + `)`),
	}
}

// Pattern returns the matcher source of the directive, without escape guard.
func (d *Directive) Pattern() string {
	return d.pattern.String()
}

// Replacement returns the compiled shape of the directive.
func (d *Directive) Replacement() string {
	return d.tmpl
}

// match is one occurrence of a directive in a document.
type match struct {
	start, end int
	groups     []string
}

func (m match) group(i int) string {
	if i >= len(m.groups) {
		return ""
	}
	return m.groups[i]
}

func submatches(src string, loc []int, offset int) match {
	m := match{start: loc[0] + offset, end: loc[1] + offset}
	for i := 2; i+1 < len(loc); i += 2 {
		if loc[i] < 0 {
			m.groups = append(m.groups, "")
			continue
		}
		m.groups = append(m.groups, src[loc[i]:loc[i+1]])
	}
	return m
}

// escaped reports whether the occurrence starting at pos is prefixed by the marker.
func escaped(src string, pos int, marker string) bool {
	return marker != "" && strings.HasSuffix(src[:pos], marker)
}

// at matches the directive anchored at pos.
func (d *Directive) at(src string, pos int) (match, bool) {
	loc := d.anchored.FindStringSubmatchIndex(src[pos:])
	if loc == nil {
		return match{}, false
	}
	return submatches(src[pos:], loc, pos), true
}

// find returns every occurrence that is not guarded by the raw-escape marker.
func (d *Directive) find(src, marker string) []match {
	var found []match
	pos := 0
	for pos <= len(src) {
		loc := d.pattern.FindStringSubmatchIndex(src[pos:])
		if loc == nil {
			break
		}
		m := submatches(src[pos:], loc, pos)
		if escaped(src, m.start, marker) {
			pos = m.start + 1
			continue
		}
		found = append(found, m)
		if m.end == m.start {
			pos = m.end + 1
			continue
		}
		pos = m.end
	}
	return found
}

// first returns the first unguarded occurrence.
func (d *Directive) first(src, marker string) (match, bool) {
	found := d.find(src, marker)
	if len(found) == 0 {
		return match{}, false
	}
	return found[0], true
}

// replace substitutes every unguarded occurrence with the result of fn.
func (d *Directive) replace(src, marker string, fn func(m match) (string, error)) (string, error) {
	found := d.find(src, marker)
	if len(found) == 0 {
		return src, nil
	}
	var b strings.Builder
	last := 0
	for _, m := range found {
		repl, err := fn(m)
		if err != nil {
			return "", err
		}
		b.WriteString(src[last:m.start])
		b.WriteString(repl)
		last = m.end
	}
	b.WriteString(src[last:])
	return b.String(), nil
}

// expand fills $1..$9 of the directive's replacement.
func (d *Directive) expand(groups ...string) string {
	var b strings.Builder
	r := d.tmpl
	for i := 0; i < len(r); i++ {
		if r[i] == '$' && i+1 < len(r) && r[i+1] >= '1' && r[i+1] <= '9' {
			n := int(r[i+1] - '1')
			if n < len(groups) {
				b.WriteString(groups[n])
			}
			i++
			continue
		}
		b.WriteByte(r[i])
	}
	return b.String()
}

// Table is the ordered, immutable catalogue of directives.
type Table struct {
	list  []*Directive
	names map[string]*Directive
}

func newTable(ds ...*Directive) *Table {
	t := &Table{names: make(map[string]*Directive, len(ds))}
	for _, d := range ds {
		if _, ok := t.names[d.Name]; ok {
			panic("wlf: duplicate directive " + d.Name)
		}
		t.list = append(t.list, d)
		t.names[d.Name] = d
	}
	return t
}

// Get returns the directive by name.
func (t *Table) Get(name string) *Directive {
	return t.names[name]
}

// All returns the directives in table order.
func (t *Table) All() []*Directive {
	return append([]*Directive(nil), t.list...)
}

const blockName = `[a-zA-Z0-9_]+`

var directives = newTable(
	newDirective(dComment, `(?s)\{#.*?#\}`, ``),
	newDirective(dStyle, `\{%[ \t]*style[ \t]*=[ \t]*(.+?)[ \t]*%\}`, `<link rel="stylesheet" type="text/css" href=$1/>`),
	newDirective(dScript, `\{%[ \t]*script[ \t]*=[ \t]*(.+?)[ \t]*%\}`, `<script type="text/javascript" src=$1></script>`),
	newDirective(dIcon, `\{%[ \t]*icon[ \t]*=[ \t]*(.+?)[ \t]*%\}`, `<link rel="icon" href=$1>`),
	newDirective(dFor, `\{%[ \t]*for[ \t]+([a-zA-Z_][a-zA-Z0-9_]*)[ \t]+in[ \t]*\([ \t]*(.+?)[ \t]*,[ \t]*(.+?)[ \t]*\)[ \t]*%\}`, `{{ range $1 := seq $2 $3 }}`),
	newDirective(dTag, `\{%[ \t]*(.*?)[ \t]*%\}`, `{{ $1 }}`),
	newDirective(dRawEcho, `\{![ \t]*(.*?)[ \t]*!\}`, `{{ raw $1 }}`),
	newDirective(dEcho, `\{\{[ \t]*(.*?)[ \t]*\}\}`, `{{ $1 }}`),
	newDirective(dInclude, `@include\([ \t]*('[^']*'|"[^"]*")[ \t]*\)`, ``),
	newDirective(dCsrf, `@csrf`, `<input type="hidden" name="$1" value="{{ csrfToken() }}"/>`),
	newDirective(dExtends, `@extends\([ \t]*('[^']*'|"[^"]*")[ \t]*\)`, ``),
	newDirective(dBlock, `\{\[[ \t]*block[ \t]+(`+blockName+`)[ \t]*\]\}`, ``),
	newDirective(dEndBlock, `\{\[[ \t]*endblock[ \t]*\]\}`, ``),
	newDirective(dParent, `\{\[[ \t]*parent[ \t]+(`+blockName+`)[ \t]*\]\}`, ``),
)

// Directives returns the directive pattern table.
func Directives() *Table {
	return directives
}

// nodeDirectives are recognized by the document scanner, in priority order for
// occurrences starting at the same offset.
var nodeDirectives = []*Directive{
	directives.Get(dComment),
	directives.Get(dStyle),
	directives.Get(dScript),
	directives.Get(dIcon),
	directives.Get(dFor),
	directives.Get(dTag),
	directives.Get(dRawEcho),
	directives.Get(dEcho),
}

func unquote(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
