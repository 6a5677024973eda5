package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/vrt/internal/model"
	"github.com/erazemk/vrt/internal/store"
)

// LocationsHandler handles garden location endpoints.
type LocationsHandler struct {
	Store store.Store
}

type locationRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Create handles POST /api/location.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	loc := &model.Location{UserID: claims.UserID, Title: req.Title, Description: req.Description}
	if err := loc.Normalize(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.Store.CreateLocation(r.Context(), loc)
	if err != nil {
		slog.Error("failed to create location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create location")
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

func (h *LocationsHandler) lookup(w http.ResponseWriter, r *http.Request) *model.Location {
	loc, err := h.Store.GetLocation(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get location")
		return nil
	}
	if loc == nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return nil
	}
	if !canAccess(GetClaims(r.Context()), loc.UserID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return nil
	}
	return loc
}

// Update handles PUT /api/location/{id}.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	loc := h.lookup(w, r)
	if loc == nil {
		return
	}

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	loc.Title = req.Title
	loc.Description = req.Description
	if err := loc.Normalize(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Store.UpdateLocation(r.Context(), loc); err != nil {
		slog.Error("failed to update location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update location")
		return
	}

	updated, err := h.Store.GetLocation(r.Context(), loc.ID)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get location")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// ListByUser handles GET /api/locations/{userId}.
func (h *LocationsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !canAccess(GetClaims(r.Context()), userID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	locations, err := h.Store.ListLocationsByUser(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Delete handles DELETE /api/location/{id}. Locations that still hold
// plants are refused with 409.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	loc := h.lookup(w, r)
	if loc == nil {
		return
	}

	err := h.Store.DeleteLocation(r.Context(), loc.ID)
	if errors.Is(err, store.ErrConflict) {
		jsonError(w, http.StatusConflict, "location still holds plants")
		return
	}
	if err != nil {
		slog.Error("failed to delete location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete location")
		return
	}
	jsonResponse(w, http.StatusOK, idResponse{ID: loc.ID})
}
