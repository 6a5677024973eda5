package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/erazemk/vrt/internal/imaging"
	"github.com/erazemk/vrt/internal/model"
	"github.com/erazemk/vrt/internal/store"
)

// NotesHandler handles note endpoints, including photo uploads.
type NotesHandler struct {
	Store       store.Store
	UploadLimit int64
}

// noteRequest holds the client-editable note fields. A request with an id
// updates that note; without one a note is created.
type noteRequest struct {
	ID       string     `json:"_id"`
	PlantIDs []string   `json:"plantIds"`
	Note     string     `json:"note"`
	Date     model.Date `json:"date"`
}

// prepare resolves the target note and applies req to it. It writes the
// error response and returns nil on failure.
func (h *NotesHandler) prepare(w http.ResponseWriter, r *http.Request, req *noteRequest, hasFiles bool) *model.Note {
	claims := GetClaims(r.Context())

	note := &model.Note{UserID: claims.UserID}
	if req.ID != "" {
		existing, err := h.Store.GetNote(r.Context(), req.ID)
		if err != nil {
			slog.Error("failed to get note", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to get note")
			return nil
		}
		if existing == nil {
			jsonError(w, http.StatusNotFound, "note not found")
			return nil
		}
		if !canAccess(claims, existing.UserID) {
			jsonError(w, http.StatusForbidden, "insufficient permissions")
			return nil
		}
		note = existing
	}

	note.PlantIDs = req.PlantIDs
	note.Note = req.Note
	note.Date = req.Date
	if err := note.Normalize(hasFiles); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil
	}

	for _, id := range note.PlantIDs {
		plant, err := h.Store.GetPlant(r.Context(), id)
		if err != nil {
			slog.Error("failed to get plant", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to get plant")
			return nil
		}
		if plant == nil || plant.UserID != note.UserID {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("unknown plant %s", id))
			return nil
		}
	}
	return note
}

// Upsert handles POST /api/plant-note.
func (h *NotesHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		badBody(w, err)
		return
	}

	note := h.prepare(w, r, &req, false)
	if note == nil {
		return
	}

	saved, err := h.Store.UpsertNote(r.Context(), note)
	if err != nil {
		slog.Error("failed to save note", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save note")
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	jsonResponse(w, status, saved)
}

// Upload handles POST /api/upload: a multipart note upsert. The "note" field
// carries the note as JSON and each "file" part is a photo to attach.
func (h *NotesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.UploadLimit)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		jsonError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var req noteRequest
	if err := json.NewDecoder(strings.NewReader(r.FormValue("note"))).Decode(&req); err != nil {
		badBody(w, err)
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, http.StatusBadRequest, "file required")
		return
	}

	note := h.prepare(w, r, &req, true)
	if note == nil {
		return
	}

	// Every photo is processed before anything is written.
	photos := make([]*imaging.Photo, 0, len(files))
	for _, fh := range files {
		photo, err := processFile(fh)
		if errors.Is(err, imaging.ErrTooLarge) {
			jsonError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("%s: image too large", fh.Filename))
			return
		}
		if err != nil {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
			return
		}
		photos = append(photos, photo)
	}

	saved, err := h.Store.UpsertNote(r.Context(), note)
	if err != nil {
		slog.Error("failed to save note", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save note")
		return
	}

	for _, photo := range photos {
		_, err := h.Store.AddImage(r.Context(), &model.Image{
			NoteID: saved.ID,
			MIME:   photo.MIME,
			Width:  photo.Width,
			Height: photo.Height,
			Data:   photo.Data,
		})
		if err != nil {
			slog.Error("failed to store image", "error", err, "note", saved.ID)
			jsonError(w, http.StatusInternalServerError, "failed to store image")
			return
		}
	}

	saved, err = h.Store.GetNote(r.Context(), saved.ID)
	if err != nil || saved == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get note")
		return
	}

	slog.Info("note photos uploaded", "user", GetClaims(r.Context()).Username, "note", saved.ID, "count", len(photos))
	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	jsonResponse(w, status, saved)
}

func processFile(fh *multipart.FileHeader) (*imaging.Photo, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	return imaging.Process(f)
}

// ListByUser handles GET /api/notes/{userId}.
func (h *NotesHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !canAccess(GetClaims(r.Context()), userID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	notes, err := h.Store.ListNotesByUser(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list notes", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	jsonResponse(w, http.StatusOK, notes)
}

// Delete handles DELETE /api/plant-note/{id}.
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	note, err := h.Store.GetNote(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get note", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get note")
		return
	}
	if note == nil {
		jsonError(w, http.StatusNotFound, "note not found")
		return
	}
	if !canAccess(GetClaims(r.Context()), note.UserID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	if err := h.Store.DeleteNote(r.Context(), note.ID); err != nil {
		slog.Error("failed to delete note", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}
	jsonResponse(w, http.StatusOK, idResponse{ID: note.ID})
}

// GetImage handles GET /api/image/{id}.
func (h *NotesHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.Store.GetImage(r.Context(), r.PathValue("id"))
	if err != nil {
		slog.Error("failed to get image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if img == nil {
		jsonError(w, http.StatusNotFound, "image not found")
		return
	}

	note, err := h.Store.GetNote(r.Context(), img.NoteID)
	if err != nil || note == nil {
		jsonError(w, http.StatusInternalServerError, "failed to get note")
		return
	}
	if !canAccess(GetClaims(r.Context()), note.UserID) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(img.Data)
}
