package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"originality_sync/internal/app"
	"originality_sync/internal/domain/actionlog"
	"originality_sync/internal/domain/document"
	"originality_sync/internal/domain/remote"
)

// DocumentService is the application surface used by the handlers.
type DocumentService interface {
	Get(ctx context.Context, id int64) (*document.Record, error)
	Refresh(ctx context.Context, id int64) (*document.Record, error)
	Report(ctx context.Context, id int64) (*document.Record, error)
	ActionLog(ctx context.Context, id int64) ([]*actionlog.Entry, error)
}

type DocumentHandler struct {
	documents DocumentService
	logger    *logrus.Entry
}

func NewDocumentHandler(documents DocumentService, logger *logrus.Entry) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

type linksResponse struct {
	Edit  string `json:"edit,omitempty"`
	Read  string `json:"read,omitempty"`
	Short string `json:"short,omitempty"`
}

type resultResponse struct {
	Plagiarism   float64       `json:"plagiarism"`
	Legal        float64       `json:"legal"`
	SelfCite     float64       `json:"self_cite"`
	Originality  float64       `json:"originality"`
	IsSuspicious bool          `json:"is_suspicious"`
	Links        linksResponse `json:"links"`
}

type documentResponse struct {
	ID             int64           `json:"id"`
	DocType        string          `json:"doctype"`
	CourseID       int64           `json:"course_id"`
	ModuleID       int64           `json:"module_id"`
	AnswerID       int64           `json:"answer_id"`
	UserID         int64           `json:"user_id"`
	Attempt        int             `json:"attempt"`
	Status         string          `json:"status"`
	Stage          string          `json:"stage"`
	Error          string          `json:"error,omitempty"`
	AddedAt        time.Time       `json:"added_at"`
	UploadedAt     *time.Time      `json:"uploaded_at,omitempty"`
	CheckStartedAt *time.Time      `json:"check_started_at,omitempty"`
	CheckEndedAt   *time.Time      `json:"check_ended_at,omitempty"`
	Result         *resultResponse `json:"result,omitempty"`
}

type logEntryResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func stageName(s document.Status) string {
	switch document.Classify(s).(type) {
	case document.Pending:
		return "pending"
	case document.InProgress:
		return "in-progress"
	case document.Retryable:
		return "retryable"
	default:
		return "terminal"
	}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func toDocumentResponse(rec *document.Record) documentResponse {
	resp := documentResponse{
		ID:             rec.ID,
		DocType:        string(rec.DocType),
		CourseID:       rec.CourseID,
		ModuleID:       rec.ModuleID,
		AnswerID:       rec.AnswerID,
		UserID:         rec.UserID,
		Attempt:        rec.Attempt,
		Status:         string(rec.Status),
		Stage:          stageName(rec.Status),
		Error:          rec.Error.String,
		AddedAt:        rec.AddedAt,
		UploadedAt:     nullTime(rec.UploadEndedAt),
		CheckStartedAt: nullTime(rec.CheckStartedAt),
		CheckEndedAt:   nullTime(rec.CheckEndedAt),
	}
	if res := rec.Result; res != nil {
		resp.Result = &resultResponse{
			Plagiarism:   res.Plagiarism,
			Legal:        res.Legal,
			SelfCite:     res.SelfCite,
			Originality:  res.Originality,
			IsSuspicious: res.IsSuspicious,
			Links:        linksResponse{Edit: res.Links.Edit, Read: res.Links.Read, Short: res.Links.Short},
		}
	}
	return resp
}

// documentID parses the {id} path parameter; it writes the error response
// itself and returns false on failure.
func documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

func (h *DocumentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var re *remote.Error
	switch {
	case errors.Is(err, document.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found")
	case errors.Is(err, app.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "originality service is not configured")
	case errors.Is(err, app.ErrReportUnavailable):
		writeError(w, http.StatusConflict, "report is not available yet")
	case errors.As(err, &re):
		writeError(w, http.StatusBadGateway, remote.UserMessage(err))
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Get handles GET /api/v1/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	rec, err := h.documents.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(rec))
}

// Refresh handles POST /api/v1/documents/{id}/refresh.
func (h *DocumentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	rec, err := h.documents.Refresh(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(rec))
}

// Report handles GET /api/v1/documents/{id}/report.
func (h *DocumentHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	rec, err := h.documents.Report(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(rec))
}

// ActionLog handles GET /api/v1/documents/{id}/log.
func (h *DocumentHandler) ActionLog(w http.ResponseWriter, r *http.Request) {
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	entries, err := h.documents.ActionLog(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := make([]logEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, logEntryResponse{
			ID:        e.ID,
			Action:    e.Action.String(),
			Status:    string(e.Status),
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
