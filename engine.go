package wlf

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Engine compiles templates through a Store and renders them.
type Engine struct {
	store    Store
	compiler *compiler
	opts     Options
	funcs    template.FuncMap
	log      *slog.Logger

	mu        sync.RWMutex
	templates map[string]*parsedTemplate
}

// parsedTemplate is a never executed master, cloned for every render.
type parsedTemplate struct {
	source string
	tmpl   *template.Template
}

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// New creates an engine over a store.
func New(store Store, opts Options) *Engine {
	opts = opts.withDefaults()
	funcs := builtinFuncs()
	maps.Copy(funcs, opts.FuncMap)
	return &Engine{
		store:     store,
		compiler:  newCompiler(store, opts),
		opts:      opts,
		funcs:     funcs,
		log:       opts.Logger.With("component", "wlf"),
		templates: make(map[string]*parsedTemplate),
	}
}

// NewEngine creates an engine reading views from a directory and caching
// compiled templates in cacheDir.
func NewEngine(viewsDir, cacheDir string) *Engine {
	return New(NewFileStore(viewsDir, cacheDir), Options{})
}

// Store returns the content store of the engine.
func (e *Engine) Store() Store {
	return e.store
}

// Compile returns the compiled source of a template. With useCache, a valid
// stored artifact is reused as is and a fresh compilation is persisted.
func (e *Engine) Compile(ctx context.Context, id string, useCache bool) (string, error) {
	name, err := Sanitize(id)
	if err != nil {
		return "", newError(id, "compile", err)
	}
	cache := useCache && !e.opts.CacheDisabled

	if cache && e.store.HasCompiled(name) {
		text, err := e.store.ReadCompiled(name)
		if err == nil {
			e.log.DebugContext(ctx, "compiled template reused", "id", name)
			return text, nil
		}
		e.log.WarnContext(ctx, "reading compiled template", "id", name, "error", err)
	}

	start := time.Now()
	src, err := e.compiler.read(name)
	if err != nil {
		return "", err
	}
	compiled := src
	if !e.opts.Disabled {
		compiled, err = e.compiler.compile(name, src)
		if err != nil {
			return "", err
		}
	}
	e.log.DebugContext(ctx, "template compiled", "id", name, "duration", time.Since(start))

	if cache {
		stored, err := e.store.WriteCompiled(name, compiled)
		if err != nil {
			e.log.WarnContext(ctx, "persisting compiled template", "id", name, "error", err)
		} else {
			e.log.DebugContext(ctx, "compiled template stored", "id", name, "path", stored)
		}
	}
	return compiled, nil
}

// Render compiles a template and executes it with data. The csrf token is
// taken from the provider attached with WithTokens, or Options.Tokens.
func (e *Engine) Render(ctx context.Context, id string, data any, useCache bool) (string, error) {
	buf := bufPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufPool.Put(buf)
	}()
	if err := e.execute(ctx, buf, id, data, useCache); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderTo renders into w. Nothing is written when rendering fails.
func (e *Engine) RenderTo(ctx context.Context, w io.Writer, id string, data any, useCache bool) error {
	buf := bufPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufPool.Put(buf)
	}()
	if err := e.execute(ctx, buf, id, data, useCache); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

func (e *Engine) execute(ctx context.Context, buf *bytes.Buffer, id string, data any, useCache bool) error {
	compiled, err := e.Compile(ctx, id, useCache)
	if err != nil {
		return err
	}
	name, _ := Sanitize(id)
	master, err := e.template(name, compiled)
	if err != nil {
		return err
	}
	t, err := master.Clone()
	if err != nil {
		return newError(name, "execute", err)
	}
	tokens := tokensFrom(ctx)
	if tokens == nil {
		tokens = e.opts.Tokens
	}
	t.Funcs(template.FuncMap{"csrfToken": func() (string, error) {
		if tokens == nil {
			return "", ErrNoTokenProvider
		}
		return tokens.Token()
	}})
	if err := t.Execute(buf, data); err != nil {
		return newError(name, "execute", err)
	}
	return nil
}

// template returns the parsed master of the compiled source, parsing it when
// the source changed.
func (e *Engine) template(id, compiled string) (*template.Template, error) {
	e.mu.RLock()
	p, ok := e.templates[id]
	e.mu.RUnlock()
	if ok && p.source == compiled {
		return p.tmpl, nil
	}

	t, err := template.New(id).Funcs(e.funcs).Parse(compiled)
	if err != nil {
		return nil, newError(id, "parse", err)
	}
	e.mu.Lock()
	e.templates[id] = &parsedTemplate{source: compiled, tmpl: t}
	e.mu.Unlock()
	return t, nil
}

// Source returns the raw source of a template.
func (e *Engine) Source(id string) (string, error) {
	name, err := Sanitize(id)
	if err != nil {
		return "", newError(id, "read", err)
	}
	return e.compiler.read(name)
}

// Exists reports whether a template source exists.
func (e *Engine) Exists(id string) bool {
	name, err := Sanitize(id)
	return err == nil && e.store.SourceExists(name)
}

// Invalidate drops the compiled artifact of one template.
func (e *Engine) Invalidate(id string) error {
	name, err := Sanitize(id)
	if err != nil {
		return newError(id, "invalidate", err)
	}
	e.mu.Lock()
	delete(e.templates, name)
	e.mu.Unlock()
	if inv, ok := e.store.(Invalidator); ok {
		return inv.Delete(name)
	}
	return nil
}

// Purge drops every compiled artifact.
func (e *Engine) Purge() error {
	e.mu.Lock()
	clear(e.templates)
	e.mu.Unlock()
	if inv, ok := e.store.(Invalidator); ok {
		return inv.Clear()
	}
	return nil
}

type lister interface {
	List() ([]string, error)
}

// Precompile compiles and persists every template the store can list.
func (e *Engine) Precompile(ctx context.Context) error {
	l, ok := e.store.(lister)
	if !ok {
		return errors.New("wlf: store cannot list templates")
	}
	ids, err := l.List()
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if _, err := e.Compile(ctx, id, true); err != nil {
			errs = append(errs, err)
		}
	}
	e.log.InfoContext(ctx, "templates precompiled", "count", len(ids), "failed", len(errs))
	return errors.Join(errs...)
}
