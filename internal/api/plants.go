package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/vrt/internal/cascade"
	"github.com/erazemk/vrt/internal/model"
	"github.com/erazemk/vrt/internal/store"
)

// PlantsHandler handles plant endpoints.
type PlantsHandler struct {
	Store   store.Store
	Deleter *cascade.Deleter
}

// plantRequest holds the client-editable plant fields. Ids and timestamps in
// the body are ignored.
type plantRequest struct {
	LocationID    string     `json:"locationId"`
	Title         string     `json:"title"`
	CommonName    string     `json:"commonName"`
	BotanicalName string     `json:"botanicalName"`
	Description   string     `json:"description"`
	PlantedOn     model.Date `json:"plantedOn"`
	Price         float64    `json:"price"`
}

func (req *plantRequest) apply(p *model.Plant) {
	p.LocationID = req.LocationID
	p.Title = req.Title
	p.CommonName = req.CommonName
	p.BotanicalName = req.BotanicalName
	p.Description = req.Description
	p.PlantedOn = req.PlantedOn
	p.Price = req.Price
}

// checkLocation verifies the plant's location belongs to the plant's owner.
func checkLocation(w http.ResponseWriter, r *http.Request, s store.Locations, p *model.Plant) bool {
	if p.LocationID == "" {
		return true
	}
	loc, err := s.GetLocation(r.Context(), p.LocationID)
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get location")
		return false
	}
	if loc == nil || loc.UserID != p.UserID {
		jsonError(w, http.StatusBadRequest, "unknown location")
		return false
	}
	return true
}

// Create handles POST /api/plant.
func (h *PlantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req plantRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	claims := GetClaims(r.Context())
	plant := &model.Plant{UserID: claims.UserID}
	req.apply(plant)
	if err := plant.Normalize(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !checkLocation(w, r, h.Store, plant) {
		return
	}

	created, err := h.Store.CreatePlant(r.Context(), plant)
	if err != nil {
		slog.Error("failed to create plant", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create plant")
		return
	}

	slog.Info("plant created", "user", claims.Username, "plant", created.ID, "title", created.Title)
	jsonResponse(w, http.StatusCreated, created)
}

// lookup loads the {id} plant and checks ownership. It writes the error
// response and returns nil on failure.
func (h *PlantsHandler) lookup(w http.ResponseWriter, r *http.Request) *model.Plant {
	plant, err := h.Store.GetPlant(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get plant", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get plant")
		return nil
	}
	if plant == nil {
		jsonError(w, http.StatusNotFound, "plant not found")
		return nil
	}
	if !canAccess(GetClaims(r.Context()), plant.UserID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return nil
	}
	return plant
}

// Get handles GET /api/plant/{id}.
func (h *PlantsHandler) Get(w http.ResponseWriter, r *http.Request) {
	plant := h.lookup(w, r)
	if plant == nil {
		return
	}
	jsonResponse(w, http.StatusOK, plant)
}

// ListByUser handles GET /api/plants/{userId}.
func (h *PlantsHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !canAccess(GetClaims(r.Context()), userID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	plants, err := h.Store.ListPlantsByUser(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list plants", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list plants")
		return
	}
	if plants == nil {
		plants = []model.Plant{}
	}
	jsonResponse(w, http.StatusOK, plants)
}

// Update handles PUT /api/plant/{id}.
func (h *PlantsHandler) Update(w http.ResponseWriter, r *http.Request) {
	plant := h.lookup(w, r)
	if plant == nil {
		return
	}

	var req plantRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}
	req.apply(plant)
	if err := plant.Normalize(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !checkLocation(w, r, h.Store, plant) {
		return
	}

	if err := h.Store.UpdatePlant(r.Context(), plant); err != nil {
		slog.Error("failed to update plant", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update plant")
		return
	}

	updated, err := h.Store.GetPlant(r.Context(), plant.ID)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get plant")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/plant/{id}. Notes that mention only this plant
// are deleted with it; shared notes lose the reference. A plant that does
// not exist is reported with found set to false.
func (h *PlantsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	claims := GetClaims(r.Context())

	plant, err := h.Store.GetPlant(r.Context(), id)
	if err != nil {
		slog.Error("failed to get plant", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get plant")
		return
	}
	if plant != nil && !canAccess(claims, plant.UserID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	res, err := h.Deleter.DeletePlant(r.Context(), id)
	if err != nil {
		slog.Error("plant delete failed", "error", err, "plant", id,
			"deleted_notes", res.DeletedNoteIDs, "pruned_notes", res.PrunedNoteIDs)
		jsonError(w, http.StatusInternalServerError, "failed to delete plant")
		return
	}

	if res.Found {
		slog.Info("plant deleted", "user", claims.Username, "plant", id,
			"deleted_notes", len(res.DeletedNoteIDs), "pruned_notes", len(res.PrunedNoteIDs))
	}
	jsonResponse(w, http.StatusOK, res)
}
