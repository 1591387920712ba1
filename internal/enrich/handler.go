package enrich

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "beacon/pkg/domain-errors"
	"beacon/pkg/platform/httputil"
)

// Handler exposes standalone enrichment endpoints.
type Handler struct {
	enrich *Service
}

func NewHandler(enrich *Service) *Handler {
	return &Handler{enrich: enrich}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/geocode", h.geocode)
}

type geocodeRequest struct {
	Description  string `json:"description"`
	LocationName string `json:"location_name"`
}

func (h *Handler) geocode(w http.ResponseWriter, r *http.Request) {
	var req geocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.enrich.Geocode(r.Context(), req.Description, req.LocationName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
