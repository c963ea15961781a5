// Package cookiestore adapts a request's cookies into a session context that
// the identity provider reads from and writes to.
//
// Reads always succeed when the cookie exists. Writes only take effect in a
// writable context (one bound to a ResponseWriter that has not been
// committed); a read-only context refuses them with ErrWriteRejected.
// Callers must not assume a Set took effect unless Writable reports true.
package cookiestore

import (
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/gmail-connect/internal/errors"
	"github.com/rs/zerolog/log"
)

// ErrWriteRejected is returned by Set and Remove on a read-only context.
var ErrWriteRejected = apperrors.ErrWriteRejected

// Options control the attributes of a written cookie. A writable context
// always marks cookies Secure when the request arrived over https.
type Options struct {
	Path     string
	MaxAge   time.Duration
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// Context is the cookie view a single request exposes to session code.
type Context interface {
	Get(name string) (string, bool)
	Set(name, value string, opts Options) error
	Remove(name string, opts Options) error
	Writable() bool
}

// DefaultOptions returns the attributes used for session and flow cookies.
func DefaultOptions(maxAge time.Duration) Options {
	return Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewWritable returns a context whose writes are emitted as Set-Cookie headers
// on w and are visible to later Gets on the same context.
func NewWritable(w http.ResponseWriter, r *http.Request) Context {
	return &writableContext{
		readOnlyContext: readOnlyContext{r: r},
		w:               w,
		pending:         make(map[string]pendingCookie),
	}
}

// NewReadOnly returns a context for rendering paths where the response
// headers are not ours to change.
func NewReadOnly(r *http.Request) Context {
	return &readOnlyContext{r: r}
}

type readOnlyContext struct {
	r *http.Request
}

func (c *readOnlyContext) Get(name string) (string, bool) {
	cookie, err := c.r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c *readOnlyContext) Set(name, _ string, _ Options) error {
	log.Warn().Str("cookie", name).Msg("cookie set rejected in read-only context")
	return ErrWriteRejected
}

func (c *readOnlyContext) Remove(name string, _ Options) error {
	log.Warn().Str("cookie", name).Msg("cookie remove rejected in read-only context")
	return ErrWriteRejected
}

func (c *readOnlyContext) Writable() bool {
	return false
}

type pendingCookie struct {
	value   string
	removed bool
}

type writableContext struct {
	readOnlyContext
	w       http.ResponseWriter
	pending map[string]pendingCookie
}

func (c *writableContext) Get(name string) (string, bool) {
	if p, ok := c.pending[name]; ok {
		if p.removed {
			return "", false
		}
		return p.value, true
	}
	return c.readOnlyContext.Get(name)
}

func (c *writableContext) Set(name, value string, opts Options) error {
	opts.Secure = opts.Secure || isSecure(c.r)
	http.SetCookie(c.w, toCookie(name, value, opts))
	c.pending[name] = pendingCookie{value: value}
	return nil
}

func (c *writableContext) Remove(name string, opts Options) error {
	opts.Secure = opts.Secure || isSecure(c.r)
	cookie := toCookie(name, "", opts)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(c.w, cookie)
	c.pending[name] = pendingCookie{removed: true}
	return nil
}

func (c *writableContext) Writable() bool {
	return true
}

func toCookie(name, value string, opts Options) *http.Cookie {
	path := opts.Path
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
}

func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
