package wlf

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"html"
	"html/template"
	"iter"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// builtinFuncs backs the default function table and the compiled directives.
func builtinFuncs() template.FuncMap {
	return template.FuncMap{
		"raw":        raw,
		"seq":        seq,
		"upper":      func(v any) string { return strings.ToUpper(toString(v)) },
		"lower":      func(v any) string { return strings.ToLower(toString(v)) },
		"upperf":     upperFirst,
		"length":     func(v any) int { return utf8.RuneCountInString(toString(v)) },
		"count":      count,
		"title":      func(v any) string { return cases.Title(language.Und, cases.NoLower).String(toString(v)) },
		"md5":        md5Hex,
		"countwords": countWords,
		"trim":       func(v any) string { return strings.TrimSpace(toString(v)) },
		"nl2br":      nl2br,
		"join":       join,
		"repeat":     repeat,
		"e":          func(v any) string { return html.EscapeString(stripTags(toString(v))) },
		"csrfToken":  func() (string, error) { return "", ErrNoTokenProvider },
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case template.HTML:
		return string(s)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint:
		return int(n), nil
	case float64:
		return int(n), nil
	case float32:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	}
	return 0, fmt.Errorf("cannot use %T as a number", v)
}

func raw(v any) template.HTML {
	return template.HTML(toString(v))
}

// seq yields start..end inclusive. The bounds may come from request data, so
// the values are produced lazily.
func seq(start, end any) (iter.Seq[int], error) {
	from, err := toInt(start)
	if err != nil {
		return nil, err
	}
	to, err := toInt(end)
	if err != nil {
		return nil, err
	}
	return func(yield func(int) bool) {
		if to < from {
			return
		}
		for i := from; yield(i) && i != to; i++ {
		}
	}, nil
}

func upperFirst(v any) string {
	s := toString(v)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func count(v any) int {
	if v == nil {
		return 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len()
	case reflect.String:
		return utf8.RuneCountInString(rv.String())
	}
	return 1
}

func md5Hex(v any) string {
	sum := md5.Sum([]byte(toString(v)))
	return hex.EncodeToString(sum[:])
}

func countWords(v any) int {
	return len(strings.FieldsFunc(toString(v), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	}))
}

func nl2br(v any) string {
	s := toString(v)
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n':
			b.WriteString("<br />\r\n")
			i++
		case s[i] == '\n' || s[i] == '\r':
			b.WriteString("<br />")
			b.WriteByte(s[i])
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func join(sep any, v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return toString(v)
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = toString(rv.Index(i).Interface())
	}
	return strings.Join(parts, toString(sep))
}

func repeat(v any, n any) (string, error) {
	times, err := toInt(n)
	if err != nil {
		return "", err
	}
	if times < 0 {
		times = 0
	}
	return strings.Repeat(toString(v), times), nil
}

// stripTags keeps only the text of an HTML fragment.
func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	z := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.TextToken:
			b.Write(z.Text())
		}
	}
}
