package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/vrt/internal/cascade"
	"github.com/erazemk/vrt/internal/model"
	"github.com/erazemk/vrt/internal/store"
)

// DefaultUploadLimit bounds multipart note uploads when Options leaves it unset.
const DefaultUploadLimit = 32 << 20

// Options configures the API router.
type Options struct {
	Store     store.Store
	JWTSecret string
	// AllowSignup enables POST /api/auth/register.
	AllowSignup bool
	// UploadLimit is the maximum multipart body size in bytes.
	UploadLimit int64
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	if opts.UploadLimit <= 0 {
		opts.UploadLimit = DefaultUploadLimit
	}

	mux := http.NewServeMux()
	deleter := cascade.New(opts.Store, slog.Default())

	authHandler := &AuthHandler{Store: opts.Store, JWTSecret: opts.JWTSecret, AllowSignup: opts.AllowSignup}
	usersHandler := &UsersHandler{Store: opts.Store, Deleter: deleter}
	plantsHandler := &PlantsHandler{Store: opts.Store, Deleter: deleter}
	notesHandler := &NotesHandler{Store: opts.Store, UploadLimit: opts.UploadLimit}
	locationsHandler := &LocationsHandler{Store: opts.Store}

	authMW := AuthMiddleware(opts.JWTSecret, opts.Store)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)

	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Users.
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/user/{id}", authed(usersHandler.Get))
	mux.Handle("PUT /api/user/{id}", authed(usersHandler.Update))
	mux.Handle("DELETE /api/user/{id}", authed(usersHandler.Delete))

	// Plants.
	mux.Handle("POST /api/plant", authed(plantsHandler.Create))
	mux.Handle("GET /api/plant/{id}", authed(plantsHandler.Get))
	mux.Handle("PUT /api/plant/{id}", authed(plantsHandler.Update))
	mux.Handle("DELETE /api/plant/{id}", authed(plantsHandler.Delete))
	mux.Handle("GET /api/plants/{userId}", authed(plantsHandler.ListByUser))

	// Notes and their photos.
	mux.Handle("POST /api/plant-note", authed(notesHandler.Upsert))
	mux.Handle("POST /api/upload", authed(notesHandler.Upload))
	mux.Handle("DELETE /api/plant-note/{id}", authed(notesHandler.Delete))
	mux.Handle("GET /api/notes/{userId}", authed(notesHandler.ListByUser))
	mux.Handle("GET /api/image/{id}", authed(notesHandler.GetImage))

	// Locations.
	mux.Handle("POST /api/location", authed(locationsHandler.Create))
	mux.Handle("PUT /api/location/{id}", authed(locationsHandler.Update))
	mux.Handle("DELETE /api/location/{id}", authed(locationsHandler.Delete))
	mux.Handle("GET /api/locations/{userId}", authed(locationsHandler.ListByUser))

	return CORSMiddleware(opts.CORSOrigins)(mux)
}
