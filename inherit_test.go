package wlf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocks(t *testing.T) {
	src := "{[block a]}A{[block b]}B{[endblock]}{[endblock]}{[block c]} C {[endblock]}"
	blocks := parseBlocks(src, DefaultMarker)
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].name)
	assert.Equal(t, "A{[block b]}B{[endblock]}", blocks[0].body(src))
	require.Len(t, blocks[0].children, 1)
	assert.Equal(t, "b", blocks[0].children[0].name)
	assert.Equal(t, "B", blocks[0].children[0].body(src))
	assert.Equal(t, "C", blocks[1].body(src), "bodies are trimmed")
}

func TestParseBlocksUnpaired(t *testing.T) {
	src := "{[block open]}x{[block inner]}y{[endblock]} {[endblock]}{[endblock]}"
	blocks := parseBlocks(src, DefaultMarker)
	require.Len(t, blocks, 1)
	assert.Equal(t, "open", blocks[0].name)

	src = "{[block open]}x{[block inner]}y{[endblock]}"
	blocks = parseBlocks(src, DefaultMarker)
	require.Len(t, blocks, 1, "closed children of an unclosed block are promoted")
	assert.Equal(t, "inner", blocks[0].name)
}

func TestParseBlocksEscaped(t *testing.T) {
	assert.Empty(t, parseBlocks("~{[block a]}x{[endblock]}", DefaultMarker))
}

func TestFindBlock(t *testing.T) {
	src := "{[block a]}{[block b]}{[endblock]}{[endblock]}"
	b := findBlock(parseBlocks(src, DefaultMarker), "b")
	require.NotNil(t, b)
	assert.Equal(t, "b", b.name)
	assert.Nil(t, findBlock(parseBlocks(src, DefaultMarker), "z"))
}

func TestInherit(t *testing.T) {
	tests := []struct {
		name   string
		child  string
		parent string
		want   string
	}{
		{
			name:   "override",
			child:  "@extends('p'){[block body]}Hello {{ name }}{[endblock]}",
			parent: "<html>{[block body]}{[endblock]}</html>",
			want:   "<html>{[block body]}Hello {{ name }}{[endblock]}</html>",
		},
		{
			name:   "parent placeholder",
			child:  "{[block title]}{[parent title]} | Home{[endblock]}",
			parent: "<title>{[block title]}Site{[endblock]}</title>",
			want:   "<title>{[block title]}Site | Home{[endblock]}</title>",
		},
		{
			name:   "unknown block is dropped",
			child:  "{[block nope]}x{[endblock]}",
			parent: "<p>{[block a]}A{[endblock]}</p>",
			want:   "<p>{[block a]}A{[endblock]}</p>",
		},
		{
			name:   "text outside blocks is dropped",
			child:  "ignored {[block a]}B{[endblock]} ignored",
			parent: "{[block a]}A{[endblock]}",
			want:   "{[block a]}B{[endblock]}",
		},
		{
			name:   "duplicate child block, first wins",
			child:  "{[block a]}first{[endblock]}{[block a]}second{[endblock]}",
			parent: "{[block a]}A{[endblock]}",
			want:   "{[block a]}first{[endblock]}",
		},
		{
			name:   "nested parent block",
			child:  "{[block inner]}I{[endblock]}",
			parent: "{[block outer]}<{[block inner]}x{[endblock]}>{[endblock]}",
			want:   "{[block outer]}<{[block inner]}I{[endblock]}>{[endblock]}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inherit(tt.child, tt.parent, DefaultMarker))
		})
	}
}

func TestCleanBlocks(t *testing.T) {
	assert.Equal(t, "<p>A<b>B</b></p>", cleanBlocks("<p>{[block a]}A<b>{[block b]}B{[endblock]}</b>{[endblock]}</p>", DefaultMarker))
	assert.Equal(t, "x", cleanBlocks("x{[parent gone]}", DefaultMarker))
	assert.Equal(t, "~{[block a]}", cleanBlocks("~{[block a]}", DefaultMarker))
}
