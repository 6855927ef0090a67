package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewTokenIssuer_EmptyKey(t *testing.T) {
	if NewTokenIssuer("", time.Hour) != nil {
		t.Error("expected nil issuer for empty key")
	}
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)

	token, expiresAt, err := ti.Issue("admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("token is empty")
	}
	if !expiresAt.After(time.Now()) {
		t.Error("token expires in the past")
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("Username = %s, want admin", claims.Username)
	}
}

func TestTokenIssuer_RejectsBadTokens(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	other := NewTokenIssuer("other-secret", time.Hour)
	expired := NewTokenIssuer("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	foreign, _, _ := other.Issue("admin")
	stale, _, _ := expired.Issue("admin")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", foreign},
		{"expired", stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ti.Verify(tt.token); err == nil {
				t.Error("expected verification error")
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ti := NewTokenIssuer("test-secret", time.Hour)
	token, _, _ := ti.Issue("admin")

	handlerCalled := false
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		if claims := GetAdminFromContext(r.Context()); claims == nil || claims.Username != "admin" {
			t.Error("admin claims not found in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		issuer     *TokenIssuer
		header     string
		wantStatus int
		wantCalled bool
	}{
		{"valid token", ti, "Bearer " + token, http.StatusOK, true},
		{"no header", ti, "", http.StatusUnauthorized, false},
		{"wrong scheme", ti, "Basic " + token, http.StatusUnauthorized, false},
		{"bad token", ti, "Bearer nope", http.StatusUnauthorized, false},
		{"admin disabled", nil, "Bearer " + token, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlerCalled = false
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/admin/reset/all", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			RequireAdmin(tt.issuer)(testHandler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if handlerCalled != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", handlerCalled, tt.wantCalled)
			}
			if !tt.wantCalled && !strings.Contains(w.Body.String(), `"error"`) {
				t.Errorf("expected JSON error body, got %s", w.Body.String())
			}
		})
	}
}

func TestGetAdminFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if GetAdminFromContext(req.Context()) != nil {
		t.Error("expected nil claims for empty context")
	}
	ctx := SetAdminInContext(req.Context(), &AdminClaims{Username: "x"})
	if GetAdminFromContext(ctx) == nil {
		t.Error("expected claims after SetAdminInContext")
	}
}
