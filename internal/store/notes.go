package store

import (
	"context"
	"fmt"

	"github.com/erazemk/vrt/internal/model"
)

const noteColumns = `n.id, n.user_id, n.note, n.date, n.created_at, n.updated_at`

// UpsertNote inserts the note when n.ID is empty, otherwise updates its text,
// date and plant references. The plant list is replaced as a whole.
func (s *SQLite) UpsertNote(ctx context.Context, n *model.Note) (*model.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := n.ID
	if id == "" {
		id = newID()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO notes (id, user_id, note, date) VALUES (?, ?, ?, ?)`,
			id, n.UserID, n.Note, n.Date,
		)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE notes SET note = ?, date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			n.Note, n.Date, id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("saving note: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_plants WHERE note_id = ?`, id); err != nil {
		return nil, fmt.Errorf("clearing note plants: %w", err)
	}
	for i, plantID := range n.PlantIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO note_plants (note_id, plant_id, position) VALUES (?, ?, ?)`,
			id, plantID, i,
		)
		if err != nil {
			return nil, fmt.Errorf("linking note to plant %s: %w", plantID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing note: %w", err)
	}
	return s.GetNote(ctx, id)
}

// GetNote returns a note with its plant ids and image metadata.
func (s *SQLite) GetNote(ctx context.Context, id string) (*model.Note, error) {
	n := &model.Note{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`, id,
	).Scan(&n.ID, &n.UserID, &n.Note, &n.Date, &n.CreatedAt, &n.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting note: %w", err)
	}
	if err := s.loadNoteRefs(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotesByPlant returns every note that references plantID.
func (s *SQLite) ListNotesByPlant(ctx context.Context, plantID string) ([]model.Note, error) {
	return s.listNotes(ctx,
		`SELECT `+noteColumns+` FROM notes n
		 JOIN note_plants np ON np.note_id = n.id
		 WHERE np.plant_id = ?
		 ORDER BY n.date, n.created_at, n.id`, plantID)
}

// ListNotesByUser returns all of a user's notes.
func (s *SQLite) ListNotesByUser(ctx context.Context, userID string) ([]model.Note, error) {
	return s.listNotes(ctx,
		`SELECT `+noteColumns+` FROM notes n
		 WHERE n.user_id = ?
		 ORDER BY n.date, n.created_at, n.id`, userID)
}

func (s *SQLite) listNotes(ctx context.Context, query string, args ...any) ([]model.Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	var notes []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Note, &n.Date, &n.CreatedAt, &n.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		notes = append(notes, n)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	// The rows must be closed before loading references: the pool holds a
	// single connection.
	for i := range notes {
		if err := s.loadNoteRefs(ctx, &notes[i]); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

func (s *SQLite) loadNoteRefs(ctx context.Context, n *model.Note) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT plant_id FROM note_plants WHERE note_id = ? ORDER BY position`, n.ID,
	)
	if err != nil {
		return fmt.Errorf("loading note plants: %w", err)
	}
	n.PlantIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning note plant: %w", err)
		}
		n.PlantIDs = append(n.PlantIDs, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return fmt.Errorf("loading note plants: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, mime, width, height FROM images WHERE note_id = ? ORDER BY created_at, id`, n.ID,
	)
	if err != nil {
		return fmt.Errorf("loading note images: %w", err)
	}
	defer rows.Close()
	n.Images = nil
	for rows.Next() {
		var img model.NoteImage
		if err := rows.Scan(&img.ID, &img.MIME, &img.Width, &img.Height); err != nil {
			return fmt.Errorf("scanning note image: %w", err)
		}
		n.Images = append(n.Images, img)
	}
	return rows.Err()
}

// DeleteNote removes a note. Plant links and images go with it.
func (s *SQLite) DeleteNote(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return nil
}

// RemovePlantFromNote drops plantID from the note's plant list.
func (s *SQLite) RemovePlantFromNote(ctx context.Context, noteID, plantID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM note_plants WHERE note_id = ? AND plant_id = ?`, noteID, plantID,
	)
	if err != nil {
		return fmt.Errorf("removing plant from note: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE notes SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, noteID,
	)
	if err != nil {
		return fmt.Errorf("touching note: %w", err)
	}
	return nil
}

// AddImage stores an image for an existing note.
func (s *SQLite) AddImage(ctx context.Context, img *model.Image) (*model.Image, error) {
	id := newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO images (id, note_id, mime, width, height, data) VALUES (?, ?, ?, ?, ?, ?)`,
		id, img.NoteID, img.MIME, img.Width, img.Height, img.Data,
	)
	if err != nil {
		return nil, fmt.Errorf("adding image: %w", err)
	}
	return s.GetImage(ctx, id)
}

// GetImage returns an image with its bytes.
func (s *SQLite) GetImage(ctx context.Context, id string) (*model.Image, error) {
	img := &model.Image{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, note_id, mime, width, height, data, created_at FROM images WHERE id = ?`, id,
	).Scan(&img.ID, &img.NoteID, &img.MIME, &img.Width, &img.Height, &img.Data, &img.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	return img, nil
}
