package report

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"beacon/internal/platform/middleware"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/httputil"
)

// Handler exposes report submission and moderation over HTTP.
type Handler struct {
	reports *Service
	users   middleware.UserDirectory
	logger  *slog.Logger
}

func NewHandler(reports *Service, users middleware.UserDirectory, logger *slog.Logger) *Handler {
	return &Handler{reports: reports, users: users, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/{id}", h.get)
		r.Get("/", h.list)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(h.users, h.logger))
			r.Post("/", h.create)
			r.Post("/{id}/verify", h.verify)
		})
	})
}

type createRequest struct {
	DisasterID uuid.UUID `json:"disaster_id"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"image_url"`
	UserID     string    `json:"user_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.DisasterID == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "disaster_id is required"))
		return
	}

	created, err := h.reports.Create(r.Context(), CreateParams{
		DisasterID: req.DisasterID,
		Content:    req.Content,
		ImageURL:   req.ImageURL,
		UserID:     req.UserID,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	found, err := h.reports.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, found)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	disasterID, err := uuid.Parse(r.URL.Query().Get("disaster_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid disaster_id"))
		return
	}
	reports, err := h.reports.ListByDisaster(r.Context(), disasterID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
}

type verifyRequest struct {
	Status string `json:"status"`
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	verified, err := h.reports.Verify(r.Context(), id, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verified)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid report id")
	}
	return id, nil
}
