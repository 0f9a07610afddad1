package submission

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-assessment-go/internal/submission/entity"
	"github.com/ovaphlow/pitchfork/service-assessment-go/pkg/utilities"
)

// Handler exposes the public submit endpoint and the admin submission endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// SubmitResponse is the 200 body of POST /api/submit.
type SubmitResponse struct {
	Success   bool   `json:"success"`
	Result    any    `json:"result"`
	AIReport  string `json:"aiReport"`
	EmailSent bool   `json:"emailSent"`
	Message   string `json:"message"`
	Email     string `json:"email"`
}

type errorResponse struct {
	Success    bool     `json:"success"`
	Error      string   `json:"error"`
	Details    []string `json:"details,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	// one byte over the cap is enough for the size guard to trip
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadBytes+1))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
		return
	}
	out, err := h.svc.Submit(r.Context(), raw, utilities.ClientIP(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SubmitResponse{
		Success:   true,
		Result:    out.Result,
		AIReport:  out.Report,
		EmailSent: out.EmailSent,
		Message:   out.Message,
		Email:     out.Email,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var rl *RateLimitError
	var ve *ValidationError
	switch {
	case errors.As(err, &rl):
		secs := int(rl.RetryAfter / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		h.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many submissions. Please try again later.", RetryAfter: secs})
	case errors.Is(err, ErrNotConfigured):
		h.logger.Errorw("submission rejected: missing configuration")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Server is not configured"})
	case errors.Is(err, ErrPayloadTooLarge):
		h.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Payload too large"})
	case errors.As(err, &ve):
		h.logger.Debugw("invalid submission", "details", ve.Messages)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid submission", Details: ve.Messages})
	case errors.Is(err, ErrConsentRequired):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Consent is required"})
	case errors.Is(err, ErrInvalidScore):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid assessment data"})
	default:
		h.logger.Errorw("submission failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}

// List serves GET /api/admin/submissions[?userId=].
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		h.logger.Errorw("list submissions failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list submissions"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "submissions": views})
}

// Delete serves DELETE /api/admin/submissions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "submission not found"})
			return
		}
		h.logger.Errorw("delete submission failed", "id", id, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to delete submission"})
		return
	}
	h.logger.Infow("submission deleted", "id", id)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// CSVHeader lists the export columns in order.
var CSVHeader = []string{"id", "created_at", "email", "company", "sector", "region", "score", "tier", "pain_points", "email_sent"}

// Export serves GET /api/admin/submissions/export as CSV.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		h.logger.Errorw("export submissions failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to export submissions"})
		return
	}
	name := fmt.Sprintf("submissions-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := WriteCSV(w, views); err != nil {
		h.logger.Warnw("export write failed", "err", err)
	}
}

// WriteCSV renders submissions in the export layout.
func WriteCSV(out io.Writer, views []entity.View) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, v := range views {
		rec := []string{
			v.ID,
			v.CreatedAt.UTC().Format(time.RFC3339),
			csvCell(v.Email),
			csvCell(v.Company),
			csvCell(v.Sector),
			csvCell(v.Region),
			strconv.Itoa(v.Score),
			v.Tier,
			csvCell(strings.Join(v.PainPoints, "; ")),
			strconv.FormatBool(v.EmailSent),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvCell neutralises values a spreadsheet would evaluate as a formula.
func csvCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
