package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/utilities"
)

// CSRFCookie carries the login anti-forgery token.
const CSRFCookie = "admin_csrf"

const maxLoginBody = 4 * 1024

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type loginRequest struct {
	Password  string `json:"password"`
	CSRFToken string `json:"csrfToken"`
}

type loginResponse struct {
	Success           bool       `json:"success"`
	Token             string     `json:"token,omitempty"`
	Error             string     `json:"error,omitempty"`
	RemainingAttempts *int       `json:"remainingAttempts,omitempty"`
	BlockedUntil      *time.Time `json:"blockedUntil,omitempty"`
}

// CSRF serves GET /api/admin/csrf.
func (h *Handler) CSRF(w http.ResponseWriter, r *http.Request) {
	token, expires := h.svc.IssueCSRF()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    token,
		Path:     "/api/admin",
		Expires:  expires,
		MaxAge:   int(CSRFTTL / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"),
		SameSite: http.SameSiteStrictMode,
	})
	h.writeJSON(w, http.StatusOK, map[string]any{"csrfToken": token})
}

// Login serves POST /api/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxLoginBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, loginResponse{Error: "Invalid request"})
		return
	}
	var cookie string
	if c, err := r.Cookie(CSRFCookie); err == nil {
		cookie = c.Value
	}

	res, err := h.svc.Login(r.Context(), utilities.ClientIP(r), req.Password, cookie, req.CSRFToken)
	if err != nil {
		h.writeLoginError(w, err)
		return
	}
	remaining := res.RemainingAttempts
	h.writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: res.Token, RemainingAttempts: &remaining})
}

func (h *Handler) writeLoginError(w http.ResponseWriter, err error) {
	var blocked *BlockedError
	var invalid *InvalidPasswordError
	switch {
	case errors.As(err, &blocked):
		until := blocked.Until.UTC()
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(time.Until(until))))
		h.writeJSON(w, http.StatusTooManyRequests, loginResponse{Error: "Too many failed attempts. Try again later.", BlockedUntil: &until})
	case errors.Is(err, ErrCSRF):
		h.writeJSON(w, http.StatusForbidden, loginResponse{Error: "Invalid request"})
	case errors.As(err, &invalid):
		remaining := invalid.Remaining
		resp := loginResponse{Error: "Invalid password", RemainingAttempts: &remaining}
		if !invalid.Until.IsZero() {
			until := invalid.Until.UTC()
			resp.BlockedUntil = &until
		}
		h.writeJSON(w, http.StatusUnauthorized, resp)
	case errors.Is(err, ErrNotConfigured):
		h.logger.Errorw("admin login rejected: missing configuration")
		h.writeJSON(w, http.StatusInternalServerError, loginResponse{Error: "Server is not configured"})
	default:
		h.logger.Errorw("admin login failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, loginResponse{Error: "Internal server error"})
	}
}

// Logout serves POST /api/admin/logout. Tokens are stateless, so the client
// discards its copy.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// RequireAdmin throttles admin traffic per address, then demands a valid
// bearer token.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utilities.ClientIP(r)
		d, err := h.svc.AllowRequest(r.Context(), ip)
		if err != nil {
			h.logger.Warnw("admin limiter unavailable", "err", err)
		} else if !d.Allowed {
			secs := retryAfterSeconds(d.RetryAfter(time.Now()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			h.writeJSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "error": "Too many requests", "retryAfter": secs})
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			h.writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Unauthorized"})
			return
		}
		if _, err := h.svc.Authenticate(token); err != nil {
			h.logger.Debugw("admin token rejected", "ip", ip, "err", err)
			h.writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if len(auth) < len("bearer ") || !strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(auth[len("bearer "):])
	return token, token != ""
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
