package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/vrt/internal/auth"
	"github.com/erazemk/vrt/internal/model"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// badBody reports a decode failure. Date errors name the expected format
// and are passed through.
func badBody(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInvalidDate) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonError(w, http.StatusBadRequest, "invalid request body")
}

// canAccess reports whether the caller may act on records owned by ownerID.
func canAccess(claims *auth.Claims, ownerID string) bool {
	if claims == nil {
		return false
	}
	return claims.UserID == ownerID || claims.Role == model.RoleAdmin
}

// idResponse is returned by deletes that have nothing else to report.
type idResponse struct {
	ID string `json:"_id"`
}
