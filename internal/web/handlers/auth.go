package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AuthHandler handles admin authentication endpoints
type AuthHandler struct {
	config config.AuthConfig
	issuer *middleware.TokenIssuer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg config.AuthConfig, issuer *middleware.TokenIssuer) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		issuer: issuer,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *AuthHandler) enabled() bool {
	return h.issuer != nil && h.config.AdminEnabled()
}

// Login checks the admin credentials and returns a signed token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.enabled() {
		respondError(w, http.StatusServiceUnavailable, "admin access is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	// Require both username and password
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.config.AdminUsername)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.config.AdminPasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{
			Success: false,
			Error:   "invalid credentials",
		})
		return
	}

	token, expiresAt, err := h.issuer.Issue(req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Enabled       bool   `json:"enabled"`
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// Status reports whether the request carries a valid admin token
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.enabled() {
		respondJSON(w, http.StatusOK, StatusResponse{})
		return
	}

	token := middleware.BearerToken(r)
	if token == "" {
		respondJSON(w, http.StatusOK, StatusResponse{Enabled: true})
		return
	}
	claims, err := h.issuer.Verify(token)
	if err != nil {
		respondJSON(w, http.StatusOK, StatusResponse{Enabled: true})
		return
	}

	resp := StatusResponse{Enabled: true, Authenticated: true, Username: claims.Username}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	respondJSON(w, http.StatusOK, resp)
}
