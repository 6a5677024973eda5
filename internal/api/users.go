package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/vrt/internal/cascade"
	"github.com/erazemk/vrt/internal/model"
	"github.com/erazemk/vrt/internal/store"
)

// UsersHandler handles account endpoints. Users manage their own account;
// admins may manage any.
type UsersHandler struct {
	Store   store.Store
	Deleter *cascade.Deleter
}

// updateUserRequest holds the editable account fields. Empty fields are left
// unchanged. Only admins may change roles.
type updateUserRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// lookup resolves the {id} path user and checks the caller may access it.
// It writes the error response and returns nil on failure.
func (h *UsersHandler) lookup(w http.ResponseWriter, r *http.Request) *model.User {
	id := r.PathValue("id")
	if !canAccess(GetClaims(r.Context()), id) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return nil
	}

	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return nil
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return nil
	}
	return user
}

// Get handles GET /api/user/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := h.lookup(w, r)
	if user == nil {
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/user/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := h.lookup(w, r)
	if user == nil {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	if req.Username != "" {
		username, err := model.NormalizeUsername(req.Username)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		user.Username = username
	}
	if req.Role != "" && req.Role != user.Role {
		if claims.Role != model.RoleAdmin {
			jsonError(w, http.StatusForbidden, "only admins can change roles")
			return
		}
		if !model.ValidRole(req.Role) {
			jsonError(w, http.StatusBadRequest, "invalid role")
			return
		}
		if claims.UserID == user.ID {
			jsonError(w, http.StatusBadRequest, "cannot change your own role")
			return
		}
		user.Role = req.Role
	}

	err := h.Store.UpdateUser(r.Context(), user)
	if errors.Is(err, store.ErrConflict) {
		jsonError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		slog.Error("failed to update user", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	updated, err := h.Store.GetUser(r.Context(), user.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	slog.Info("user updated", "user", claims.Username, "target_user", updated.Username, "role", updated.Role)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/user/{id}. The account goes together with all
// of its notes, plants and locations.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := h.lookup(w, r)
	if user == nil {
		return
	}

	// Admins cannot remove themselves so at least one always remains.
	claims := GetClaims(r.Context())
	if claims.UserID == user.ID && user.Role == model.RoleAdmin {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	res, err := h.Deleter.DeleteUser(r.Context(), user.ID)
	if err != nil {
		slog.Error("user delete failed", "error", err, "target_user", user.Username,
			"deleted_notes", len(res.DeletedNoteIDs), "deleted_plants", len(res.DeletedPlantIDs))
		jsonError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	if claims.UserID == user.ID {
		if err := h.Store.RevokeToken(r.Context(), claims.ID, claims.Expiry()); err != nil {
			slog.Warn("failed to revoke token of deleted user", "error", err)
		}
	}

	slog.Info("user deleted", "user", claims.Username, "deleted_user", user.Username)
	jsonResponse(w, http.StatusOK, res)
}
