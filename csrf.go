package wlf

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// DefaultCSRFField is the form field name of the @csrf hidden input.
const DefaultCSRFField = "__token"

// DefaultTokenMaxAge is the lifetime of a token cookie, in seconds.
const DefaultTokenMaxAge = 3600

// TokenProvider supplies the CSRF token of the current client session,
// creating it when absent. Repeated calls for one session return the same token.
type TokenProvider interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) {
	return f()
}

// StaticToken always returns tok.
func StaticToken(tok string) TokenProvider {
	return TokenFunc(func() (string, error) { return tok, nil })
}

type tokensKey struct{}

// WithTokens attaches the token provider used by renders with this context.
func WithTokens(ctx context.Context, p TokenProvider) context.Context {
	return context.WithValue(ctx, tokensKey{}, p)
}

func tokensFrom(ctx context.Context) TokenProvider {
	p, _ := ctx.Value(tokensKey{}).(TokenProvider)
	return p
}

// NewToken returns a random 16 character hex token.
func NewToken() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CookieTokens keeps the token in an http-only cookie of a gin request.
type CookieTokens struct {
	c      *gin.Context
	name   string
	maxAge int

	mu    sync.Mutex
	token string
}

// NewCookieTokens returns a provider storing the token in the cookie name.
func NewCookieTokens(c *gin.Context, name string, maxAge int) *CookieTokens {
	if name == "" {
		name = DefaultCSRFField
	}
	if maxAge <= 0 {
		maxAge = DefaultTokenMaxAge
	}
	return &CookieTokens{c: c, name: name, maxAge: maxAge}
}

func (t *CookieTokens) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" {
		return t.token, nil
	}
	if v, err := t.c.Cookie(t.name); err == nil && v != "" {
		t.token = v
		return v, nil
	}
	tok, err := NewToken()
	if err != nil {
		return "", err
	}
	t.c.SetCookie(t.name, tok, t.maxAge, "/", "", false, true)
	t.token = tok
	return tok, nil
}

// Valid reports whether a submitted value matches the session token.
func (t *CookieTokens) Valid(submitted string) bool {
	v, err := t.c.Cookie(t.name)
	return err == nil && v != "" && v == submitted
}

var errNoGorillaToken = errors.New("gorilla/csrf middleware did not set a token")

// RequestTokens reads the token issued by the gorilla/csrf middleware.
func RequestTokens(r *http.Request) TokenProvider {
	return TokenFunc(func() (string, error) {
		tok := csrf.Token(r)
		if tok == "" {
			return "", errNoGorillaToken
		}
		return tok, nil
	})
}
