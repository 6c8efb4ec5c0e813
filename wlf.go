// Package wlf compiles wlf view templates into html/template source and
// renders them.
//
// The template language:
//
//	{# comment #}                     removed
//	{{ expr }}                        escaped output
//	{! expr !}                        raw output
//	{% if expr %} ... {% endif %}     statements (if, elseif, else, foreach, endfor, ...)
//	{% for i in (1, 10) %}            inclusive numeric loop
//	{% style = 'app.css' %}           <link>, also script and icon
//	expr | upper | join(', ')         pipe functions
//	@include('partials/nav')          inline another template
//	@csrf                             hidden csrf token input
//	@extends('layouts/main')          inherit a parent template
//	{[block name]} ... {[endblock]}   overridable region
//	{[parent name]}                   parent block content, inside a child
//
// Bare names and $names read the render data ({{ name }} and {{ $name }} are
// both $.name) unless they name a loop variable.
//
// A directive written right after the raw-escape marker (~ by default) is
// emitted literally, without the marker.
package wlf

import (
	"html/template"
	"log/slog"
)

// Options configure an Engine. They are read once by New.
type Options struct {
	// Marker is the raw-escape marker, "~" when empty.
	Marker string
	// Functions are pipe function entries consulted before DefaultFunctions.
	Functions []Function
	// FuncMap holds the implementations of extra functions.
	FuncMap template.FuncMap
	// Transforms run in order on every compiled document.
	Transforms []Transform
	// CSRFField is the input name used by @csrf.
	CSRFField string
	// Tokens is the token provider used when the render context carries none.
	Tokens TokenProvider
	// ExtendsDepth bounds @extends chains, 1 allows a single parent.
	ExtendsDepth int
	// IncludeDepth bounds nested @include.
	IncludeDepth int
	// Disabled hands sources to html/template untouched.
	Disabled bool
	// CacheDisabled never reads or writes compiled artifacts.
	CacheDisabled bool
	Logger        *slog.Logger
}

const (
	DefaultExtendsDepth = 8
	DefaultIncludeDepth = 32
)

func (o Options) withDefaults() Options {
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.CSRFField == "" {
		o.CSRFField = DefaultCSRFField
	}
	if o.ExtendsDepth <= 0 {
		o.ExtendsDepth = DefaultExtendsDepth
	}
	if o.IncludeDepth <= 0 {
		o.IncludeDepth = DefaultIncludeDepth
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
