package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// sessionCookies builds a Cookie header for one namespace's persisted session.
func sessionCookies(ns string, expiresAt int64, refreshToken string) string {
	parts := []string{
		ns + "_access_token=at-" + ns,
		ns + "_access_token_expires_at=" + strconv.FormatInt(expiresAt, 10),
	}
	if refreshToken != "" {
		parts = append(parts, ns+"_refresh_token="+refreshToken)
	}
	return strings.Join(parts, "; ")
}

func serveProtected(s *Sessions, cookieHeader string, next http.Handler, reqs ...ProviderRequirement) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	if cookieHeader != "" {
		r.Header.Set("Cookie", cookieHeader)
	}
	s.Protect(reqs...)(next).ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestSessions_Protect_ValidSession(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	var sawToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := AccessTokenFromContext(ctx, "clio")
		if !ok {
			t.Error("AccessTokenFromContext() = not found inside protected handler")
		}
		sawToken = token

		sets, ok := TokenSetsFromContext(ctx)
		if !ok || sets["clio"] == nil {
			t.Errorf("TokenSetsFromContext() = %v, %v", sets, ok)
		}
		if instance, ok := ResolvedInstanceFromContext(ctx, "clio"); !ok || instance != "" {
			t.Errorf("ResolvedInstanceFromContext() = %q, %v, want global", instance, ok)
		}
		if _, ok := TokenSetFromContext(ctx, "a:b:c:d"); ok {
			t.Error("TokenSetFromContext() found a set for an invalid key")
		}

		w.WriteHeader(http.StatusOK)
	})

	w := serveProtected(s, sessionCookies("clio", testNow.Unix()+600, "rt"), next, Require("clio"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
	if got, want := sawToken, "at-clio"; got != want {
		t.Errorf("access token in context = %q, want %q", got, want)
	}
}

func TestSessions_Protect_SilentRefresh(t *testing.T) {
	fake := &fakeExchanger{}
	s, _ := newTestSessions(t, &Config{Exchanger: fake})
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	var sawToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawToken, _ = AccessTokenFromContext(r.Context(), "clio")
		w.WriteHeader(http.StatusOK)
	})

	w := serveProtected(s, sessionCookies("clio", testNow.Unix()-60, "rt-old"), next, Require("clio"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if got, want := sawToken, "refreshed-access"; got != want {
		t.Errorf("access token in context = %q, want %q", got, want)
	}
	if _, refreshes := fake.counts(); refreshes != 1 {
		t.Errorf("upstream refresh calls = %d, want 1", refreshes)
	}

	// The rewritten cookies are already on the response when the handler runs.
	var accessCookie, expiryCookie string
	for _, sc := range w.Result().Header.Values("Set-Cookie") {
		if strings.HasPrefix(sc, "clio_access_token=") {
			accessCookie = sc
		}
		if strings.HasPrefix(sc, "clio_access_token_expires_at=") {
			expiryCookie = sc
		}
	}
	if !strings.HasPrefix(accessCookie, "clio_access_token=refreshed-access;") {
		t.Errorf("access token Set-Cookie = %q", accessCookie)
	}
	wantExpiry := "clio_access_token_expires_at=" + strconv.FormatInt(testNow.Unix()+3600, 10)
	if !strings.HasPrefix(expiryCookie, wantExpiry) {
		t.Errorf("expiry Set-Cookie = %q, want prefix %q", expiryCookie, wantExpiry)
	}
}

func TestSessions_Protect_KeepsRefreshTokenAcrossRefresh(t *testing.T) {
	// The default fake refresh response carries no refresh token; the
	// previous one must survive into the rewritten cookie.
	fake := &fakeExchanger{}
	s, _ := newTestSessions(t, &Config{Exchanger: fake})
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	var sawRefresh string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts, _ := TokenSetFromContext(r.Context(), "clio")
		if ts != nil {
			sawRefresh = ts.RefreshToken
		}
	})

	serveProtected(s, sessionCookies("clio", testNow.Unix()-60, "rt-keep"), next, Require("clio"))
	if got, want := sawRefresh, "rt-keep"; got != want {
		t.Errorf("refresh token after silent refresh = %q, want %q", got, want)
	}
}

func TestSessions_Protect_ExpiredWithoutRefreshToken(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	nextRan := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { nextRan = true })

	w := serveProtected(s, sessionCookies("clio", testNow.Unix()-60, ""), next, Require("clio"))
	if nextRan {
		t.Error("protected handler ran without a valid session")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	resp := decodeError(t, w)
	if got, want := resp.Error, ErrorCodeMissingTokens; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
	if !strings.Contains(resp.ErrorDescription, "no refresh token") {
		t.Errorf("description = %q, want the missing refresh token named", resp.ErrorDescription)
	}
}

func TestSessions_Protect_AbsentSession(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	w := serveProtected(s, "", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), Require("clio"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got, want := decodeError(t, w).Error, ErrorCodeMissingTokens; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestSessions_Protect_CorruptedSession(t *testing.T) {
	cfg := testProviderConfig()
	cfg.Schema = FieldSchema{Fields: []Field{{Key: "instance_url"}}}

	s, _ := newTestSessions(t, nil)
	if err := s.Register("salesforce", cfg); err != nil {
		t.Fatal(err)
	}

	// Base triad present, declared field cookie missing.
	w := serveProtected(s, sessionCookies("salesforce", testNow.Unix()+600, "rt"),
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), Require("salesforce"))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got, want := decodeError(t, w).Error, ErrorCodeCorruptedSession; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestSessions_Protect_RefreshFailure(t *testing.T) {
	fake := &fakeExchanger{refreshErr: ErrRefreshFailed("Token revoked", http.StatusUnauthorized)}
	s, _ := newTestSessions(t, &Config{Exchanger: fake})
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	w := serveProtected(s, sessionCookies("clio", testNow.Unix()-60, "rt"),
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), Require("clio"))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	resp := decodeError(t, w)
	if got, want := resp.Error, ErrorCodeRefreshFailed; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
	if got, want := resp.ErrorDescription, "Token revoked"; got != want {
		t.Errorf("description = %q, want %q", got, want)
	}
}

func TestSessions_Protect_OnFailureHook(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	var seen ProviderFailure
	req := Require("clio")
	req.OnFailure = func(w http.ResponseWriter, r *http.Request, failure ProviderFailure) bool {
		seen = failure
		http.Redirect(w, r, "/oauth/login", http.StatusFound)
		return true
	}

	w := serveProtected(s, "", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), req)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if got, want := w.Header().Get("Location"), "/oauth/login"; got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
	if got, want := seen.Reason, FailureMissingTokens; got != want {
		t.Errorf("failure.Reason = %q, want %q", got, want)
	}
	if got, want := seen.Key.Provider, "clio"; got != want {
		t.Errorf("failure.Key.Provider = %q, want %q", got, want)
	}
}

func TestSessions_Protect_OnFailureHookDeclines(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	hookCalled := false
	req := Require("clio")
	req.OnFailure = func(http.ResponseWriter, *http.Request, ProviderFailure) bool {
		hookCalled = true
		return false
	}

	w := serveProtected(s, "", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), req)
	if !hookCalled {
		t.Error("OnFailure hook never ran")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want the structured error after the hook declined", w.Code)
	}
}

func TestSessions_Protect_MultipleProviders(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("intuit", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	cookies := sessionCookies("clio", testNow.Unix()+600, "rt") + "; " +
		sessionCookies("intuit", testNow.Unix()+600, "rt")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sets, _ := TokenSetsFromContext(r.Context())
		if sets["clio"] == nil || sets["intuit"] == nil {
			t.Errorf("token sets = %v, want both providers", sets)
		}
	})

	w := serveProtected(s, cookies, next, Require("clio"), Require("intuit"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestSessions_Protect_FirstFailureShortCircuits(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("clio", testProviderConfig()); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("intuit", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	secondConsulted := false
	second := Require("intuit")
	second.OnFailure = func(http.ResponseWriter, *http.Request, ProviderFailure) bool {
		secondConsulted = true
		return false
	}

	// Only the second provider has a session; the first fails the chain.
	w := serveProtected(s, sessionCookies("intuit", testNow.Unix()+600, "rt"),
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), Require("clio"), second)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if !strings.Contains(decodeError(t, w).ErrorDescription, "clio") {
		t.Error("error does not name the failing provider")
	}
	if secondConsulted {
		t.Error("second requirement consulted after the first already failed")
	}
}

func TestSessions_Protect_UnregisteredProvider(t *testing.T) {
	s, _ := newTestSessions(t, nil)

	w := serveProtected(s, "", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), Require("ghost"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got, want := decodeError(t, w).Error, ErrorCodeNotRegistered; got != want {
		t.Errorf("error = %q, want %q", got, want)
	}
}

func TestSessions_Protect_ResolvedInstanceInContext(t *testing.T) {
	s, _ := newTestSessions(t, nil)
	if err := s.Register("keycloak:acme", testProviderConfig()); err != nil {
		t.Fatal(err)
	}

	req := ProviderRequirement{
		Provider: "keycloak",
		ResolveInstance: func(_ context.Context, r *http.Request) (string, error) {
			return "acme", nil
		},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if instance, ok := ResolvedInstanceFromContext(ctx, "keycloak"); !ok || instance != "acme" {
			t.Errorf("ResolvedInstanceFromContext() = %q, %v", instance, ok)
		}
		// A bare provider name follows the resolved instance.
		if token, ok := AccessTokenFromContext(ctx, "keycloak"); !ok || token != "at-keycloak:acme" {
			t.Errorf("AccessTokenFromContext(keycloak) = %q, %v", token, ok)
		}
		if _, ok := TokenSetFromContext(ctx, "keycloak:acme"); !ok {
			t.Error("TokenSetFromContext(keycloak:acme) = not found")
		}
	})

	w := serveProtected(s, sessionCookies("keycloak:acme", testNow.Unix()+600, "rt"), next, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestContextAccessors_EmptyContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := TokenSetsFromContext(ctx); ok {
		t.Error("TokenSetsFromContext() = ok on an empty context")
	}
	if _, ok := TokenSetFromContext(ctx, "clio"); ok {
		t.Error("TokenSetFromContext() = ok on an empty context")
	}
	if _, ok := AccessTokenFromContext(ctx, "clio"); ok {
		t.Error("AccessTokenFromContext() = ok on an empty context")
	}
	if _, ok := ResolvedInstanceFromContext(ctx, "clio"); ok {
		t.Error("ResolvedInstanceFromContext() = ok on an empty context")
	}
}

func TestFailureReasonFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureReason
	}{
		{"missing tokens", ErrMissingOrInvalidTokens("clio"), FailureMissingTokens},
		{"corrupted session", ErrCorruptedSession("clio"), FailureMissingTokens},
		{"refresh failed", ErrRefreshFailed("revoked", 401), FailureRefreshFailed},
		{"other session error", ErrCSRFMismatch(), FailureErrorOccurred},
		{"plain error", errors.New("boom"), FailureErrorOccurred},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureReasonFor(tt.err); got != tt.want {
				t.Errorf("failureReasonFor() = %q, want %q", got, tt.want)
			}
		})
	}
}
