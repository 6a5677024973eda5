package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/vrt/internal/model"
)

// CreateLocation inserts a location and returns the stored record.
func (s *SQLite) CreateLocation(ctx context.Context, l *model.Location) (*model.Location, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO locations (id, user_id, title, description) VALUES (?, ?, ?, ?)`,
		id, l.UserID, l.Title, nullString(l.Description),
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}
	return s.GetLocation(ctx, id)
}

// GetLocation returns a location by ID.
func (s *SQLite) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	l := &model.Location{}
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, created_at, updated_at
		 FROM locations WHERE id = ?`, id,
	).Scan(&l.ID, &l.UserID, &l.Title, &description, &l.CreatedAt, &l.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	l.Description = description.String
	return l, nil
}

// ListLocationsByUser returns a user's locations ordered by title.
func (s *SQLite) ListLocationsByUser(ctx context.Context, userID string) ([]model.Location, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, created_at, updated_at
		 FROM locations WHERE user_id = ? ORDER BY title, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		var description sql.NullString
		if err := rows.Scan(&l.ID, &l.UserID, &l.Title, &description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		l.Description = description.String
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocation saves the location's title and description.
func (s *SQLite) UpdateLocation(ctx context.Context, l *model.Location) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE locations SET title = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		l.Title, nullString(l.Description), l.ID,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location. Fails if plants are still placed there.
func (s *SQLite) DeleteLocation(ctx context.Context, id string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM plants WHERE location_id = ?`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking location plants: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("location still holds %d plants: %w", count, ErrConflict)
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM locations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}
