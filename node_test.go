package wlf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestScan(t *testing.T) {
	nodes := scan("a {{ b }}{# c #}~{! d !}{% if e %}{x", DefaultMarker)

	type span struct {
		Kind nodeKind
		Raw  string
	}
	var got []span
	for _, n := range nodes {
		got = append(got, span{n.kind, n.raw})
	}
	want := []span{
		{textNode, "a "},
		{echoNode, "{{ b }}"},
		{commentNode, "{# c #}"},
		{escapedNode, "~{! d !}"},
		{tagNode, "{% if e %}"},
		{textNode, "{x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("scan mismatch (-want +got):\n%s", diff)
	}
}

func TestScanPriority(t *testing.T) {
	nodes := scan("{% for i in (1, 2) %}{% style = 'a.css' %}", DefaultMarker)
	if assert.Len(t, nodes, 2) {
		assert.Equal(t, loopNode, nodes[0].kind)
		assert.Equal(t, assetNode, nodes[1].kind)
		assert.Equal(t, dStyle, nodes[1].directive.Name)
	}
}

func TestJoinNodes(t *testing.T) {
	nodes := []node{
		{kind: textNode, raw: "a {"},
		{kind: echoNode, raw: "{{ b }}", out: "{{ $.b }}", done: true},
		{kind: escapedNode, raw: "~{{ c }}", done: true},
		{kind: tagNode, raw: "{{ untouched }}"},
	}
	assert.Equal(t, `a {{"{"}}{{ $.b }}~{{ c }}{{"{{"}} untouched }}`, joinNodes(nodes, DefaultMarker))
}
