//go:build property
// +build property

package wlf

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// memStore keeps sources in memory and never persists artifacts.
type memStore struct {
	mu      sync.Mutex
	sources map[string]string
}

func (s *memStore) set(id, src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[id] = src
}

func (s *memStore) SourceExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sources[id]
	return ok
}

func (s *memStore) ReadSource(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return "", ErrSourceNotFound
	}
	return src, nil
}

func (s *memStore) HasCompiled(string) bool { return false }

func (s *memStore) ReadCompiled(string) (string, error) { return "", ErrCompiledNotFound }

func (s *memStore) WriteCompiled(string, string) (string, error) { return "", nil }

func renderSource(src string, data any) (string, error) {
	store := &memStore{sources: map[string]string{"page": src}}
	return New(store, Options{}).Render(context.Background(), "page", data, false)
}

func TestCompilerProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: text without directives compiles to itself
	properties.Property("plain text is preserved", prop.ForAll(
		func(text string) bool {
			c := newCompiler(&memStore{sources: map[string]string{}}, Options{}.withDefaults())
			out, err := c.compile("page", text)
			return err == nil && out == text
		},
		gen.RegexMatch(`^[a-zA-Z0-9 <>/=".,;:!?#%\[\]\n-]*$`),
	))

	// Property: escaped output encodes markup, raw output does not
	properties.Property("echo escapes, raw echo does not", prop.ForAll(
		func(s string) bool {
			data := map[string]any{"x": s}
			escaped, err := renderSource("{{ x }}", data)
			if err != nil {
				return false
			}
			raw, err := renderSource("{! x !}", data)
			if err != nil {
				return false
			}
			return escaped == template.HTMLEscapeString(s) && raw == s
		},
		gen.RegexMatch(`^[a-zA-Z <>&"']*$`),
	))

	// Property: numeric loops are inclusive of both bounds
	properties.Property("numeric loop is inclusive", prop.ForAll(
		func(from, to int) bool {
			out, err := renderSource(fmt.Sprintf("{%% for i in (%d, %d) %%}[{{ i }}]{%% endfor %%}", from, to), nil)
			if err != nil {
				return false
			}
			want := 0
			if to >= from {
				want = to - from + 1
			}
			return strings.Count(out, "[") == want &&
				(want == 0 || strings.HasPrefix(out, fmt.Sprintf("[%d]", from)) && strings.HasSuffix(out, fmt.Sprintf("[%d]", to)))
		},
		gen.IntRange(-20, 20),
		gen.IntRange(-20, 20),
	))

	// Property: pipe functions apply left to right
	properties.Property("pipes nest left to right", prop.ForAll(
		func(names []string) bool {
			expr := "x"
			want := "x"
			for _, n := range names {
				expr += " | " + n
				want = n + "(" + want + ")"
			}
			return expandPipes(expr, DefaultFunctions) == want
		},
		gen.SliceOf(gen.OneConstOf("upper", "lower", "trim", "md5", "title", "length")),
	))

	// Property: a directive after the marker is emitted verbatim
	properties.Property("escaped echo renders literally", prop.ForAll(
		func(name string) bool {
			out, err := renderSource("~{{ "+name+" }}", map[string]any{name: "value"})
			return err == nil && out == "{{ "+name+" }}"
		},
		gen.RegexMatch(`^[a-z][a-z0-9_]{0,8}$`),
	))

	// Property: a child block replaces the parent block of the same name
	properties.Property("block override", prop.ForAll(
		func(name, body string) bool {
			store := &memStore{sources: map[string]string{
				"layout": "<main>{[block " + name + "]}default{[endblock]}</main>",
				"page":   "@extends('layout'){[block " + name + "]}" + body + "{[endblock]}",
			}}
			out, err := New(store, Options{}).Compile(context.Background(), "page", false)
			return err == nil && out == "<main>"+strings.TrimSpace(body)+"</main>"
		},
		gen.RegexMatch(`^[a-z][a-z0-9_]{0,8}$`),
		gen.RegexMatch(`^[a-zA-Z0-9 <>/]*$`),
	))

	properties.TestingRun(t)
}
