package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/vrt/internal/model"
)

const plantColumns = `id, user_id, location_id, title, common_name, botanical_name, description,
	planted_on, price, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlant(row rowScanner) (*model.Plant, error) {
	p := &model.Plant{}
	var locationID, common, botanical, description sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &locationID, &p.Title, &common, &botanical, &description,
		&p.PlantedOn, &p.Price, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.LocationID = locationID.String
	p.CommonName = common.String
	p.BotanicalName = botanical.String
	p.Description = description.String
	return p, nil
}

// CreatePlant inserts a plant and returns the stored record.
func (s *SQLite) CreatePlant(ctx context.Context, p *model.Plant) (*model.Plant, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO plants (id, user_id, location_id, title, common_name, botanical_name, description, planted_on, price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.UserID, nullString(p.LocationID), p.Title, nullString(p.CommonName),
		nullString(p.BotanicalName), nullString(p.Description), p.PlantedOn, p.Price,
	)
	if isConstraint(err) {
		return nil, fmt.Errorf("creating plant: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("creating plant: %w", err)
	}
	return s.GetPlant(ctx, id)
}

// GetPlant returns a plant by ID.
func (s *SQLite) GetPlant(ctx context.Context, id string) (*model.Plant, error) {
	p, err := scanPlant(s.db.QueryRowContext(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE id = ?`, id,
	))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting plant: %w", err)
	}
	return p, nil
}

// ListPlantsByUser returns a user's plants ordered by title.
func (s *SQLite) ListPlantsByUser(ctx context.Context, userID string) ([]model.Plant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE user_id = ? ORDER BY title, id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing plants: %w", err)
	}
	defer rows.Close()

	var plants []model.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plant: %w", err)
		}
		plants = append(plants, *p)
	}
	return plants, rows.Err()
}

// UpdatePlant saves the plant's editable fields.
func (s *SQLite) UpdatePlant(ctx context.Context, p *model.Plant) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE plants SET location_id = ?, title = ?, common_name = ?, botanical_name = ?,
		        description = ?, planted_on = ?, price = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		nullString(p.LocationID), p.Title, nullString(p.CommonName), nullString(p.BotanicalName),
		nullString(p.Description), p.PlantedOn, p.Price, p.ID,
	)
	if isConstraint(err) {
		return fmt.Errorf("updating plant: %w", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating plant: %w", err)
	}
	return nil
}

// DeletePlant removes a plant. Notes are not touched; see cascade.
func (s *SQLite) DeletePlant(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM plants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plant: %w", err)
	}
	return nil
}
