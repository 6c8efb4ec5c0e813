package wlf

import (
	"html/template"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeq(t *testing.T) {
	got, err := seq(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, slices.Collect(got))

	got, err = seq("2", 2.0)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, slices.Collect(got))

	got, err = seq(3, 1)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(got))

	_, err = seq([]int{}, 1)
	assert.Error(t, err)
}

func TestSeqIsLazy(t *testing.T) {
	got, err := seq(1, "3000000000")
	require.NoError(t, err)
	var first []int
	for i := range got {
		first = append(first, i)
		if len(first) == 3 {
			break
		}
	}
	assert.Equal(t, []int{1, 2, 3}, first)

	got, err = seq(math.MaxInt-1, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []int{math.MaxInt - 1, math.MaxInt}, slices.Collect(got))
}

func TestBuiltinFuncs(t *testing.T) {
	f := builtinFuncs()
	call := func(name string, args ...any) any {
		t.Helper()
		switch fn := f[name].(type) {
		case func(any) string:
			return fn(args[0])
		case func(any) int:
			return fn(args[0])
		}
		t.Fatalf("unexpected signature of %s", name)
		return nil
	}

	assert.Equal(t, "ABC", call("upper", "abc"))
	assert.Equal(t, "abc", call("lower", "ABC"))
	assert.Equal(t, 5, call("length", "héllo"))
	assert.Equal(t, "Hello World", call("title", "hello world"))
	assert.Equal(t, "x", call("trim", "  x \n"))
	assert.Equal(t, "x", call("e", "<b>x</b>"))
	assert.Equal(t, "a &amp; b", call("e", "a & b"))
	assert.Equal(t, "12", call("upper", 12))
}

func TestUpperFirst(t *testing.T) {
	assert.Equal(t, "Élan", upperFirst("élan"))
	assert.Equal(t, "", upperFirst(""))
}

func TestCount(t *testing.T) {
	assert.Equal(t, 3, count([]string{"a", "b", "c"}))
	assert.Equal(t, 1, count(map[string]int{"a": 1}))
	assert.Equal(t, 2, count("ab"))
	assert.Equal(t, 0, count(nil))
	assert.Equal(t, 1, count(42))
}

func TestMd5Hex(t *testing.T) {
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", md5Hex("hello"))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 3, countWords("Hello, big world!"))
	assert.Equal(t, 0, countWords("  "))
}

func TestNl2br(t *testing.T) {
	assert.Equal(t, "a<br />\nb", nl2br("a\nb"))
	assert.Equal(t, "a<br />\r\nb", nl2br("a\r\nb"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a, b", join(", ", []string{"a", "b"}))
	assert.Equal(t, "1-2", join("-", []any{1, 2}))
	assert.Equal(t, "x", join(", ", "x"))
}

func TestRepeat(t *testing.T) {
	got, err := repeat("ab", 3)
	require.NoError(t, err)
	assert.Equal(t, "ababab", got)

	got, err = repeat("ab", -1)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = repeat("ab", "x")
	assert.Error(t, err)
}

func TestRaw(t *testing.T) {
	assert.Equal(t, template.HTML("<b>"), raw("<b>"))
}
