package wlf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandPipes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no pipe", "name", "name"},
		{"single", "name | upper", "upper(name)"},
		{"left to right", "name | upper | md5", "md5(upper(name))"},
		{"parameterized", "tags | join(', ')", "join(', ', tags)"},
		{"value first", "s | repeat(3)", "repeat(s, 3)"},
		{"unmatched stops expansion", "x | upper | unknown | lower", "upper(x) | unknown | lower"},
		{"unmatched first", "x | unknown", "x | unknown"},
		{"plain entry needs exact form", "x | upper(1)", "x | upper(1)"},
		{"parameterized entry needs arguments", "x | join", "x | join"},
		{"logical or is not a pipe", "a || b", "a || b"},
		{"pipe inside quotes", "'a|b' | upper", "upper('a|b')"},
		{"pipe inside call", "f(a | upper) | lower", "lower(f(a | upper))"},
		{"spaces", "  name   |   trim  ", "trim(name)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandPipes(tt.in, DefaultFunctions))
		})
	}
}

func TestExpandPipesCustomEntryFirst(t *testing.T) {
	table := append([]Function{{Name: "upper", Expand: "shout($value)"}}, DefaultFunctions...)
	assert.Equal(t, "shout(name)", expandPipes("name | upper", table))
}

func TestSplitPipes(t *testing.T) {
	assert.Equal(t, []string{"a ", " b(c|d) ", ` "e|f"`}, splitPipes(`a | b(c|d) | "e|f"`))
	assert.Equal(t, []string{"a || b"}, splitPipes("a || b"))
}

func TestBalanced(t *testing.T) {
	assert.True(t, balanced("a, (b)"))
	assert.True(t, balanced("')'"))
	assert.False(t, balanced("a) , (b"))
	assert.False(t, balanced("(a"))
	assert.False(t, balanced("'a"))
}
