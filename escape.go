package wlf

import (
	"strconv"
	"strings"
)

const leftDelim = "{{"

// literal encodes text so html/template emits it verbatim.
func literal(s string) string {
	if !strings.Contains(s, leftDelim) {
		return s
	}
	return strings.ReplaceAll(s, leftDelim, `{{"{{"}}`)
}

// guardMarkers encodes the markers in front of an encoded brace of s, so the
// final unescape pass never takes an encoding for an escaped echo.
func guardMarkers(s, marker string) string {
	if marker == "" {
		return s
	}
	guarded := marker + `{{"`
	for strings.Contains(s, guarded) {
		s = strings.ReplaceAll(s, guarded, "{{"+strconv.Quote(marker)+`}}{{"`)
	}
	return s
}

// stripEscapes removes the raw-escape marker in front of every directive shape,
// once per shape, leaving the directive text as a literal.
func stripEscapes(src, marker string) string {
	if marker == "" || !strings.Contains(src, marker) {
		return src
	}
	for _, d := range directives.list {
		src = unescape(d, src, marker)
	}
	return src
}

func unescape(d *Directive, src, marker string) string {
	var b strings.Builder
	last, pos := 0, 0
	for pos < len(src) {
		loc := d.pattern.FindStringIndex(src[pos:])
		if loc == nil {
			break
		}
		start, end := loc[0]+pos, loc[1]+pos
		if end == start {
			pos = end + 1
			continue
		}
		if !escaped(src, start, marker) {
			pos = start + 1
			continue
		}
		b.WriteString(src[last : start-len(marker)])
		b.WriteString(literal(src[start:end]))
		last, pos = end, end
	}
	if last == 0 {
		return src
	}
	b.WriteString(src[last:])
	return b.String()
}
