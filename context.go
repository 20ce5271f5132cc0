package sessions

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RequestContext is the narrow boundary to the host web framework: cookie
// reads, cookie writes and query parameters. Everything the library does to
// a request goes through it, so hosts with non-net/http request types only
// implement these five methods.
//
// Reads must observe writes made earlier in the same request.
type RequestContext interface {
	// Cookie returns a cookie value by name.
	Cookie(name string) (string, bool)

	// CookieNames lists cookie names in Cookie-header order.
	CookieNames() []string

	// SetCookie queues a cookie for the response.
	SetCookie(c *http.Cookie)

	// DeleteCookie queues a deletion (expired cookie) for the response.
	DeleteCookie(name string)

	// Query returns a URL query parameter.
	Query(name string) string
}

// HTTPContext adapts net/http to RequestContext.
//
// It parses and serializes the cookie headers itself: session namespaces put
// ":" into cookie names (clio:acme_access_token) and net/http silently drops
// such cookies on both read and write. Browsers accept them. Values are
// URL-escaped on write and unescaped on read.
type HTTPContext struct {
	w        http.ResponseWriter
	r        *http.Request
	defaults CookieDefaults

	request []cookiePair

	pending      map[string]*http.Cookie
	pendingOrder []string
	deleted      map[string]bool
}

type cookiePair struct {
	name  string
	value string
}

// NewHTTPContext wraps a net/http request/response pair. The defaults supply
// the path and domain used for cookie deletion.
func NewHTTPContext(w http.ResponseWriter, r *http.Request, defaults CookieDefaults) *HTTPContext {
	return &HTTPContext{
		w:        w,
		r:        r,
		defaults: defaults.withDefaults(),
		request:  parseCookieHeader(r.Header.Values("Cookie")),
		pending:  make(map[string]*http.Cookie),
		deleted:  make(map[string]bool),
	}
}

// Cookie returns the current value of a cookie, preferring writes made
// earlier in this request over the inbound header.
func (c *HTTPContext) Cookie(name string) (string, bool) {
	if c.deleted[name] {
		return "", false
	}
	if pc, ok := c.pending[name]; ok {
		return pc.Value, true
	}
	for _, pair := range c.request {
		if pair.name == name {
			return pair.value, true
		}
	}
	return "", false
}

// CookieNames lists all visible cookie names: the inbound header in order,
// then names added during this request. Deleted names are omitted.
func (c *HTTPContext) CookieNames() []string {
	names := make([]string, 0, len(c.request)+len(c.pendingOrder))
	seen := make(map[string]bool, len(c.request))
	for _, pair := range c.request {
		if c.deleted[pair.name] || seen[pair.name] {
			continue
		}
		seen[pair.name] = true
		names = append(names, pair.name)
	}
	for _, name := range c.pendingOrder {
		if c.deleted[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// SetCookie queues a Set-Cookie header. Setting the same name twice replaces
// the earlier header instead of emitting both.
func (c *HTTPContext) SetCookie(cookie *http.Cookie) {
	c.put(cookie.Name, cookie)
	delete(c.deleted, cookie.Name)
}

// DeleteCookie queues an expiring Set-Cookie header for the name, using the
// configured path and domain so browsers actually drop the cookie.
func (c *HTTPContext) DeleteCookie(name string) {
	c.put(name, buildDeletionCookie(name, c.defaults))
	c.deleted[name] = true
}

// Query returns a URL query parameter from the request.
func (c *HTTPContext) Query(name string) string {
	return c.r.URL.Query().Get(name)
}

func (c *HTTPContext) put(name string, cookie *http.Cookie) {
	if _, ok := c.pending[name]; !ok {
		c.pendingOrder = append(c.pendingOrder, name)
	}
	c.pending[name] = cookie
	c.flush()
}

// flush rebuilds the response's Set-Cookie headers from the pending map so
// each name appears exactly once.
func (c *HTTPContext) flush() {
	h := c.w.Header()
	h.Del("Set-Cookie")
	for _, name := range c.pendingOrder {
		h.Add("Set-Cookie", serializeCookie(c.pending[name]))
	}
}

// parseCookieHeader splits Cookie header values leniently, keeping names the
// strict net/http parser would reject.
func parseCookieHeader(headers []string) []cookiePair {
	var pairs []cookiePair
	for _, header := range headers {
		for _, part := range strings.Split(header, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, _ := strings.Cut(part, "=")
			if name == "" {
				continue
			}
			value = strings.Trim(value, `"`)
			if unescaped, err := url.QueryUnescape(value); err == nil {
				value = unescaped
			}
			pairs = append(pairs, cookiePair{name: name, value: value})
		}
	}
	return pairs
}

// serializeCookie renders a Set-Cookie header value. Used instead of
// http.Cookie.String, which returns "" for names containing ":".
func serializeCookie(c *http.Cookie) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(c.Value))
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.MaxAge > 0 {
		b.WriteString("; Max-Age=")
		b.WriteString(strconv.Itoa(c.MaxAge))
	} else if c.MaxAge < 0 {
		b.WriteString("; Max-Age=0")
	}
	if !c.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(c.Expires.UTC().Format(http.TimeFormat))
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	switch c.SameSite {
	case http.SameSiteLaxMode:
		b.WriteString("; SameSite=Lax")
	case http.SameSiteStrictMode:
		b.WriteString("; SameSite=Strict")
	case http.SameSiteNoneMode:
		b.WriteString("; SameSite=None")
	}
	return b.String()
}

// buildCookie assembles a cookie with the library's defaults applied.
// SameSite=None always implies Secure; browsers reject it otherwise.
func buildCookie(name, value string, maxAge time.Duration, d CookieDefaults) *http.Cookie {
	secure := !d.AllowInsecure
	if d.SameSite == http.SameSiteNoneMode {
		secure = true
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     d.Path,
		Domain:   d.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: d.SameSite,
	}
}

// buildDeletionCookie assembles a cookie that instructs the browser to drop
// the name: negative max-age plus an epoch expiry for old user agents.
func buildDeletionCookie(name string, d CookieDefaults) *http.Cookie {
	c := buildCookie(name, "", 0, d)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// ParseSameSite maps a config string to a SameSite mode. Empty and unknown
// values fall back to Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax", "":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteLaxMode
	}
}
