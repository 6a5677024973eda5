package store

import (
	"context"
	"errors"
	"time"

	"github.com/erazemk/vrt/internal/model"
)

// ErrConflict is returned when a write would violate a uniqueness or
// referential constraint, e.g. a taken username or a location that still
// holds plants.
var ErrConflict = errors.New("conflict")

// Lookups return (nil, nil) when the record does not exist.

// Users stores accounts.
type Users interface {
	CreateUser(ctx context.Context, username, passwordHash, role string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// Plants stores plants.
type Plants interface {
	CreatePlant(ctx context.Context, p *model.Plant) (*model.Plant, error)
	GetPlant(ctx context.Context, id string) (*model.Plant, error)
	ListPlantsByUser(ctx context.Context, userID string) ([]model.Plant, error)
	UpdatePlant(ctx context.Context, p *model.Plant) error
	DeletePlant(ctx context.Context, id string) error
}

// Locations stores garden locations.
type Locations interface {
	CreateLocation(ctx context.Context, l *model.Location) (*model.Location, error)
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	ListLocationsByUser(ctx context.Context, userID string) ([]model.Location, error)
	UpdateLocation(ctx context.Context, l *model.Location) error
	// DeleteLocation fails with ErrConflict while plants are placed there.
	DeleteLocation(ctx context.Context, id string) error
}

// Notes stores notes, their plant references and their images.
type Notes interface {
	// UpsertNote inserts the note when its ID is empty and updates it
	// otherwise. Images are managed with AddImage.
	UpsertNote(ctx context.Context, n *model.Note) (*model.Note, error)
	GetNote(ctx context.Context, id string) (*model.Note, error)
	ListNotesByPlant(ctx context.Context, plantID string) ([]model.Note, error)
	ListNotesByUser(ctx context.Context, userID string) ([]model.Note, error)
	// DeleteNote removes the note and its images.
	DeleteNote(ctx context.Context, id string) error
	RemovePlantFromNote(ctx context.Context, noteID, plantID string) error
	AddImage(ctx context.Context, img *model.Image) (*model.Image, error)
	GetImage(ctx context.Context, id string) (*model.Image, error)
}

// Tokens stores server settings and revoked JWTs.
type Tokens interface {
	GetJWTSecret(ctx context.Context) (string, error)
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Store is the full persistence API used by the server.
type Store interface {
	Users
	Plants
	Locations
	Notes
	Tokens
	Close() error
}
