// Package handler exposes the disaster domain over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"beacon/internal/disaster/models"
	"beacon/internal/disaster/service"
	"beacon/internal/enrich"
	"beacon/internal/feed"
	"beacon/internal/platform/middleware"
	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/httputil"
)

type Handler struct {
	disasters *service.Service
	feed      *feed.Service
	enrich    *enrich.Service
	users     middleware.UserDirectory
	logger    *slog.Logger
}

func New(disasters *service.Service, feedSvc *feed.Service, enrichSvc *enrich.Service, users middleware.UserDirectory, logger *slog.Logger) *Handler {
	return &Handler{
		disasters: disasters,
		feed:      feedSvc,
		enrich:    enrichSvc,
		users:     users,
		logger:    logger,
	}
}

// Register mounts the disaster routes. Mutations and image verification
// require an authenticated principal; reads are open.
func (h *Handler) Register(r chi.Router) {
	r.Route("/disasters", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/social-media", h.socialMedia)
		r.Get("/{id}/resources", h.resources)
		r.Get("/{id}/official-updates", h.officialUpdates)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(h.users, h.logger))
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
			r.Post("/{id}/verify-image", h.verifyImage)
		})
	})
}

type createRequest struct {
	Title        string   `json:"title"`
	LocationName string   `json:"location_name"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	OwnerID      string   `json:"owner_id"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	disaster, err := h.disasters.Create(r.Context(), service.CreateParams{
		Title:        req.Title,
		LocationName: req.LocationName,
		Description:  req.Description,
		Tags:         req.Tags,
		OwnerID:      req.OwnerID,
		Lat:          req.Lat,
		Lon:          req.Lon,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, disaster)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	disasters, err := h.disasters.List(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, disasters)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	disaster, err := h.disasters.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, disaster)
}

type updateRequest struct {
	Title        *string  `json:"title"`
	LocationName *string  `json:"location_name"`
	Description  *string  `json:"description"`
	Tags         []string `json:"tags"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	disaster, err := h.disasters.Update(r.Context(), id, models.UpdateParams{
		Title:        req.Title,
		LocationName: req.LocationName,
		Description:  req.Description,
		Tags:         req.Tags,
		Lat:          req.Lat,
		Lon:          req.Lon,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, disaster)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	disaster, err := h.disasters.Delete(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, disaster)
}

func (h *Handler) socialMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.disasters.Get(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	posts, err := h.feed.Posts(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posts)
}

func (h *Handler) resources(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lat, err := queryFloat(r, "lat")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resources, err := h.enrich.NearbyResources(r.Context(), id, lat, lon)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resources)
}

func (h *Handler) officialUpdates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	updates, err := h.enrich.OfficialUpdates(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updates)
}

type verifyImageRequest struct {
	ImageURL string `json:"image_url"`
}

func (h *Handler) verifyImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req verifyImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.enrich.VerifyImage(r.Context(), id, req.ImageURL)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid disaster id")
	}
	return id, nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid "+name)
	}
	return v, nil
}
