package wlf

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

var _ render.HTMLRender = (*HTMLRender)(nil)

// HTMLRender is a gin HTMLRender backed by an Engine.
type HTMLRender struct {
	e           *Engine
	useCache    bool
	tokenMaxAge int
}

// NewHTMLRender creates a gin HTMLRender. useCache is passed to every render.
func NewHTMLRender(e *Engine, useCache bool) *HTMLRender {
	return &HTMLRender{e: e, useCache: useCache, tokenMaxAge: DefaultTokenMaxAge}
}

// WithTokenMaxAge sets the lifetime, in seconds, of the csrf token cookies HTML
// creates.
func (h *HTMLRender) WithTokenMaxAge(seconds int) *HTMLRender {
	h.tokenMaxAge = seconds
	return h
}

// Instance returns a new render.Render
func (h *HTMLRender) Instance(name string, data any) render.Render {
	return &Render{e: h.e, ctx: context.Background(), name: name, data: data, useCache: h.useCache}
}

// Render renders a template with data and writes to w
type Render struct {
	e        *Engine
	ctx      context.Context
	name     string
	data     any
	useCache bool
}

// Render renders the template and writes it to w
func (r *Render) Render(w http.ResponseWriter) error {
	r.WriteContentType(w)
	return r.e.RenderTo(r.ctx, w, r.name, r.data, r.useCache)
}

// WriteContentType write an HTML content type to the response header if not set
func (r *Render) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/html; charset=utf-8"}
	}
}

// HTML renders a template as the response of c. Unless the request context
// already carries a token provider, @csrf tokens come from a cookie.
func (h *HTMLRender) HTML(c *gin.Context, status int, name string, data any) {
	ctx := c.Request.Context()
	if tokensFrom(ctx) == nil {
		ctx = WithTokens(ctx, NewCookieTokens(c, h.e.opts.CSRFField, h.tokenMaxAge))
	}
	c.Render(status, &Render{e: h.e, ctx: ctx, name: name, data: data, useCache: h.useCache})
}

// View is a template name, its data and the response status.
type View interface {
	Name() string
	Data() any
	Status() int
}

type view struct {
	name   string
	data   any
	status int
}

// NewView creates a View, with status 200 unless given.
func NewView(name string, data any, status ...int) View {
	statusCode := http.StatusOK
	if len(status) > 0 {
		statusCode = status[0]
	}
	return view{
		name:   name,
		data:   data,
		status: statusCode,
	}
}

func (v view) Name() string {
	return v.name
}

func (v view) Data() any {
	return v.data
}

func (v view) Status() int {
	return v.status
}

// View renders v as the response of c.
func (h *HTMLRender) View(c *gin.Context, v View) {
	h.HTML(c, v.Status(), v.Name(), v.Data())
}
