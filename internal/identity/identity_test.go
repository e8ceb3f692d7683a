package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenManagerIssueAndVerify(t *testing.T) {
	tm, err := NewTokenManager("test-secret", "storefront", time.Hour)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	token, err := tm.Issue("admin-1", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "admin-1" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenManagerRejectsForeignSecret(t *testing.T) {
	tm1, _ := NewTokenManager("secret-one", "storefront", time.Hour)
	tm2, _ := NewTokenManager("secret-two", "storefront", time.Hour)
	token, err := tm1.Issue("u-1", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tm2.Verify(token); err == nil {
		t.Fatalf("expected verification to fail with a different secret")
	}
}

func TestTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager("", "storefront", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestResolverPrefersHeaderSession(t *testing.T) {
	res := NewResolver(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("X-Session-Id", "sess-header")
	req.AddCookie(&http.Cookie{Name: "storefront_session", Value: "sess-cookie"})
	rec := httptest.NewRecorder()

	id, _ := res.Resolve(rec, req)
	if id.SessionID != "sess-header" {
		t.Fatalf("expected header session, got %q", id.SessionID)
	}
	if id.Authenticated() {
		t.Fatalf("expected anonymous identity")
	}
}

func TestResolverFallsBackToCookie(t *testing.T) {
	res := NewResolver(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.AddCookie(&http.Cookie{Name: "storefront_session", Value: "sess-cookie"})
	rec := httptest.NewRecorder()

	id, _ := res.Resolve(rec, req)
	if id.SessionID != "sess-cookie" {
		t.Fatalf("expected cookie session, got %q", id.SessionID)
	}
}

func TestResolverMintsSessionCookie(t *testing.T) {
	res := NewResolver(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	rec := httptest.NewRecorder()

	id, _ := res.Resolve(rec, req)
	if id.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	cookies := rec.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == "storefront_session" && c.Value == id.SessionID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session cookie to be set, got %+v", cookies)
	}
}

func TestResolverUsesBearerToken(t *testing.T) {
	tm, _ := NewTokenManager("test-secret", "storefront", time.Hour)
	res := NewResolver(tm)
	token, err := tm.Issue("user-9", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Session-Id", "sess-1")
	rec := httptest.NewRecorder()

	id, role := res.Resolve(rec, req)
	if id.UserID != "user-9" || role != "user" {
		t.Fatalf("unexpected identity %+v role %q", id, role)
	}
	if id.Key() != "user-9" {
		t.Fatalf("authenticated identity key should be user id, got %q", id.Key())
	}
}
