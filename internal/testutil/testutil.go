package testutil

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// MockTime provides a controllable time source for deterministic testing.
type MockTime struct {
	now time.Time
}

// NewMockTime creates a new mock time provider.
func NewMockTime(t time.Time) *MockTime {
	return &MockTime{now: t}
}

// Now returns the current mock time.
func (m *MockTime) Now() time.Time {
	return m.now
}

// Advance moves the mock time forward by the given duration.
func (m *MockTime) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set sets the mock time to a specific value.
func (m *MockTime) Set(t time.Time) {
	m.now = t
}

// Context is an in-memory request context for tests. It satisfies the
// library's RequestContext interface without an HTTP round trip: tests seed
// inbound cookies and query parameters, run the code under test, then
// inspect Sets and Removed to assert on cookie writes.
type Context struct {
	// Params holds query parameters returned by Query.
	Params url.Values
	// Sets records every cookie written via SetCookie, by name.
	Sets map[string]*http.Cookie
	// Removed records names passed to DeleteCookie.
	Removed map[string]bool

	values map[string]string
	order  []string
}

// NewContext creates an empty test context.
func NewContext() *Context {
	return &Context{
		Params:  url.Values{},
		Sets:    make(map[string]*http.Cookie),
		Removed: make(map[string]bool),
		values:  make(map[string]string),
	}
}

// WithCookie seeds an inbound cookie, as if the browser had sent it.
func (c *Context) WithCookie(name, value string) *Context {
	if _, ok := c.values[name]; !ok {
		c.order = append(c.order, name)
	}
	c.values[name] = value
	return c
}

// WithQuery seeds a query parameter.
func (c *Context) WithQuery(key, value string) *Context {
	c.Params.Set(key, value)
	return c
}

// Cookie returns the current value of a cookie. Writes made during the test
// are visible, deletions hide the name.
func (c *Context) Cookie(name string) (string, bool) {
	if c.Removed[name] {
		return "", false
	}
	v, ok := c.values[name]
	return v, ok
}

// CookieNames lists visible cookie names in arrival order.
func (c *Context) CookieNames() []string {
	names := make([]string, 0, len(c.order))
	seen := make(map[string]bool, len(c.order))
	for _, name := range c.order {
		if c.Removed[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// SetCookie records a cookie write and makes the value readable.
func (c *Context) SetCookie(ck *http.Cookie) {
	if _, ok := c.values[ck.Name]; !ok {
		c.order = append(c.order, ck.Name)
	}
	c.values[ck.Name] = ck.Value
	c.Sets[ck.Name] = ck
	delete(c.Removed, ck.Name)
}

// DeleteCookie records a deletion and hides the name from reads.
func (c *Context) DeleteCookie(name string) {
	delete(c.values, name)
	c.Removed[name] = true
}

// Query returns a seeded query parameter.
func (c *Context) Query(name string) string {
	return c.Params.Get(name)
}

// GenerateRandomString generates a random base64-encoded string.
func GenerateRandomString(length int) string {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random string: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}
