package session

import (
	"net/http"
	"time"
)

// CookieOptions defines the attributes attached to issued session cookies.
type CookieOptions struct {
	Path     string
	Domain   string
	MaxAge   time.Duration // cookie lifetime; zero means a browser-session cookie
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// normalize applies safe defaults without breaking callers. HttpOnly is
// left alone: it defaults on in the service configuration, and an explicit
// false here is a deliberate caller choice.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	return o
}

// render builds the full Set-Cookie header value carrying the session
// identifier. It returns the empty string when the cookie cannot be
// serialized (for example an invalid cookie name).
func (o CookieOptions) render(name, id string) string {
	c := http.Cookie{
		Name:     name,
		Value:    id,
		Path:     o.Path,
		Domain:   o.Domain,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	}
	if o.MaxAge > 0 {
		c.MaxAge = int(o.MaxAge / time.Second)
		c.Expires = time.Now().Add(o.MaxAge)
	}
	return c.String()
}
