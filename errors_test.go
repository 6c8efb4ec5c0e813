package wlf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	err := newError("page", "read", ErrSourceNotFound)
	assert.EqualError(t, err, "[page] read: template source not found")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	assert.Same(t, err, newError("page", "compile", err), "an error of the same template is not wrapped twice")

	outer := newError("layout", "include", err)
	var te *Error
	assert.True(t, errors.As(outer, &te))
	assert.Equal(t, "layout", te.ID)
	assert.ErrorIs(t, outer, ErrSourceNotFound)

	assert.EqualError(t, &Error{ID: "x", Err: errors.New("boom")}, "[x] boom")
}
