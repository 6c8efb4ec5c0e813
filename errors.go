package wlf

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound    = errors.New("template source not found")
	ErrCompiledNotFound  = errors.New("compiled template not found")
	ErrInvalidIdentifier = errors.New("invalid template identifier")
	ErrCyclicInclude     = errors.New("cyclic @include")
	ErrCyclicExtends     = errors.New("cyclic @extends")
	ErrExtendsDepth      = errors.New("@extends chain too deep")
	ErrNoTokenProvider   = errors.New("no csrf token provider")
)

// Error describes a failure while compiling or rendering one template.
type Error struct {
	// ID is the template identifier the failure belongs to
	ID string
	// Op is the stage that failed: read, extends, include, transform, parse, execute...
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("[%s] %v", e.ID, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.ID, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(id, op string, err error) error {
	var te *Error
	if errors.As(err, &te) && te.ID == id {
		return err
	}
	return &Error{ID: id, Op: op, Err: err}
}
