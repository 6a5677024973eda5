// Package cascade deletes plants and users together with the records that
// depend on them.
//
// Every step runs sequentially and the first error stops the chain. Work
// already done is not rolled back: the returned result lists what was
// removed before the failure.
package cascade

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/vrt/internal/model"
)

// Store is the subset of the persistence API the deleter needs.
type Store interface {
	GetPlant(ctx context.Context, id string) (*model.Plant, error)
	ListPlantsByUser(ctx context.Context, userID string) ([]model.Plant, error)
	DeletePlant(ctx context.Context, id string) error

	ListNotesByPlant(ctx context.Context, plantID string) ([]model.Note, error)
	ListNotesByUser(ctx context.Context, userID string) ([]model.Note, error)
	DeleteNote(ctx context.Context, id string) error
	RemovePlantFromNote(ctx context.Context, noteID, plantID string) error

	ListLocationsByUser(ctx context.Context, userID string) ([]model.Location, error)
	DeleteLocation(ctx context.Context, id string) error

	GetUser(ctx context.Context, id string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PlantResult reports what a plant delete removed.
type PlantResult struct {
	PlantID string `json:"_id"`
	// Found is false when the plant did not exist. Nothing is touched then.
	Found bool `json:"found"`
	// DeletedNoteIDs lists notes that referenced only this plant.
	DeletedNoteIDs []string `json:"deletedNoteIds"`
	// PrunedNoteIDs lists shared notes the plant was removed from.
	PrunedNoteIDs []string `json:"prunedNoteIds"`
	// Deleted is set once the plant record itself is gone.
	Deleted bool `json:"deleted"`
}

// UserResult reports what a user delete removed.
type UserResult struct {
	UserID             string   `json:"_id"`
	Found              bool     `json:"found"`
	DeletedNoteIDs     []string `json:"deletedNoteIds"`
	DeletedPlantIDs    []string `json:"deletedPlantIds"`
	DeletedLocationIDs []string `json:"deletedLocationIds"`
	Deleted            bool     `json:"deleted"`
}

// Deleter runs cascading deletes against a store.
type Deleter struct {
	store  Store
	logger *slog.Logger
}

// New returns a Deleter. A nil logger discards output.
func New(store Store, logger *slog.Logger) *Deleter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Deleter{store: store, logger: logger}
}

// DeletePlant removes the plant with the given id. Notes that reference only
// this plant are deleted first, then the plant is pruned from shared notes,
// and the plant itself goes last.
//
// A missing plant yields a result with Found unset and a nil error. On error
// the partial result is returned alongside it.
func (d *Deleter) DeletePlant(ctx context.Context, id string) (*PlantResult, error) {
	res := &PlantResult{PlantID: id, DeletedNoteIDs: []string{}, PrunedNoteIDs: []string{}}

	plant, err := d.store.GetPlant(ctx, id)
	if err != nil {
		return res, fmt.Errorf("fetching plant: %w", err)
	}
	if plant == nil {
		return res, nil
	}
	res.Found = true

	notes, err := d.store.ListNotesByPlant(ctx, id)
	if err != nil {
		return res, fmt.Errorf("listing notes of plant %s: %w", id, err)
	}

	var shared []model.Note
	for _, n := range notes {
		if !n.SolelyReferences(id) {
			shared = append(shared, n)
			continue
		}
		if err := d.store.DeleteNote(ctx, n.ID); err != nil {
			d.logger.Warn("plant delete stopped", "plant", id, "note", n.ID, "deleted_notes", len(res.DeletedNoteIDs))
			return res, fmt.Errorf("deleting note %s: %w", n.ID, err)
		}
		res.DeletedNoteIDs = append(res.DeletedNoteIDs, n.ID)
	}

	for _, n := range shared {
		if err := d.store.RemovePlantFromNote(ctx, n.ID, id); err != nil {
			d.logger.Warn("plant delete stopped", "plant", id, "note", n.ID, "pruned_notes", len(res.PrunedNoteIDs))
			return res, fmt.Errorf("pruning plant from note %s: %w", n.ID, err)
		}
		res.PrunedNoteIDs = append(res.PrunedNoteIDs, n.ID)
	}

	if err := d.store.DeletePlant(ctx, id); err != nil {
		d.logger.Warn("plant delete stopped after notes", "plant", id, "deleted_notes", len(res.DeletedNoteIDs))
		return res, fmt.Errorf("deleting plant %s: %w", id, err)
	}
	res.Deleted = true

	d.logger.Debug("plant deleted", "plant", id,
		"deleted_notes", len(res.DeletedNoteIDs), "pruned_notes", len(res.PrunedNoteIDs))
	return res, nil
}

// DeleteUser removes a user and everything they own: notes, then plants,
// then locations, then the account.
func (d *Deleter) DeleteUser(ctx context.Context, id string) (*UserResult, error) {
	res := &UserResult{
		UserID:             id,
		DeletedNoteIDs:     []string{},
		DeletedPlantIDs:    []string{},
		DeletedLocationIDs: []string{},
	}

	user, err := d.store.GetUser(ctx, id)
	if err != nil {
		return res, fmt.Errorf("fetching user: %w", err)
	}
	if user == nil {
		return res, nil
	}
	res.Found = true

	notes, err := d.store.ListNotesByUser(ctx, id)
	if err != nil {
		return res, fmt.Errorf("listing notes of user %s: %w", id, err)
	}
	for _, n := range notes {
		if err := d.store.DeleteNote(ctx, n.ID); err != nil {
			return res, fmt.Errorf("deleting note %s: %w", n.ID, err)
		}
		res.DeletedNoteIDs = append(res.DeletedNoteIDs, n.ID)
	}

	plants, err := d.store.ListPlantsByUser(ctx, id)
	if err != nil {
		return res, fmt.Errorf("listing plants of user %s: %w", id, err)
	}
	for _, p := range plants {
		if err := d.store.DeletePlant(ctx, p.ID); err != nil {
			return res, fmt.Errorf("deleting plant %s: %w", p.ID, err)
		}
		res.DeletedPlantIDs = append(res.DeletedPlantIDs, p.ID)
	}

	locations, err := d.store.ListLocationsByUser(ctx, id)
	if err != nil {
		return res, fmt.Errorf("listing locations of user %s: %w", id, err)
	}
	for _, l := range locations {
		if err := d.store.DeleteLocation(ctx, l.ID); err != nil {
			return res, fmt.Errorf("deleting location %s: %w", l.ID, err)
		}
		res.DeletedLocationIDs = append(res.DeletedLocationIDs, l.ID)
	}

	if err := d.store.DeleteUser(ctx, id); err != nil {
		return res, fmt.Errorf("deleting user %s: %w", id, err)
	}
	res.Deleted = true

	d.logger.Info("user deleted", "user", id, "username", user.Username,
		"notes", len(res.DeletedNoteIDs), "plants", len(res.DeletedPlantIDs),
		"locations", len(res.DeletedLocationIDs))
	return res, nil
}
