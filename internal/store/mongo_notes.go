package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/erazemk/vrt/internal/model"
)

var noteSort = bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

// UpsertNote inserts the note when n.ID is empty, otherwise updates its text,
// date and plant references.
func (m *Mongo) UpsertNote(ctx context.Context, n *model.Note) (*model.Note, error) {
	t := now()
	if n.ID == "" {
		created := *n
		created.ID = newObjectID()
		created.Images = nil
		created.CreatedAt = t
		created.UpdatedAt = t
		if _, err := m.col(colNotes).InsertOne(ctx, &created); err != nil {
			return nil, fmt.Errorf("saving note: %w", err)
		}
		return &created, nil
	}

	set := bson.M{
		"note":      n.Note,
		"plantIds":  n.PlantIDs,
		"updatedAt": t,
	}
	update := bson.M{"$set": set}
	if n.Date.IsZero() {
		update["$unset"] = bson.M{"date": ""}
	} else {
		set["date"] = n.Date
	}
	if _, err := m.col(colNotes).UpdateByID(ctx, n.ID, update); err != nil {
		return nil, fmt.Errorf("saving note: %w", err)
	}
	return m.GetNote(ctx, n.ID)
}

// GetNote returns a note with its plant ids and image metadata.
func (m *Mongo) GetNote(ctx context.Context, id string) (*model.Note, error) {
	var n model.Note
	ok, err := m.findOne(ctx, colNotes, bson.M{"_id": id}, &n)
	if err != nil {
		return nil, fmt.Errorf("getting note: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// ListNotesByPlant returns every note that references plantID.
func (m *Mongo) ListNotesByPlant(ctx context.Context, plantID string) ([]model.Note, error) {
	notes, err := findAll[model.Note](ctx, m.col(colNotes), bson.M{"plantIds": plantID}, noteSort)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// ListNotesByUser returns all of a user's notes.
func (m *Mongo) ListNotesByUser(ctx context.Context, userID string) ([]model.Note, error) {
	notes, err := findAll[model.Note](ctx, m.col(colNotes), bson.M{"userId": userID}, noteSort)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return notes, nil
}

// DeleteNote removes a note and its images.
func (m *Mongo) DeleteNote(ctx context.Context, id string) error {
	if _, err := m.col(colImages).DeleteMany(ctx, bson.M{"noteId": id}); err != nil {
		return fmt.Errorf("deleting note images: %w", err)
	}
	if _, err := m.col(colNotes).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return nil
}

// RemovePlantFromNote pulls plantID from the note's plant list.
func (m *Mongo) RemovePlantFromNote(ctx context.Context, noteID, plantID string) error {
	_, err := m.col(colNotes).UpdateByID(ctx, noteID, bson.M{
		"$pull": bson.M{"plantIds": plantID},
		"$set":  bson.M{"updatedAt": now()},
	})
	if err != nil {
		return fmt.Errorf("removing plant from note: %w", err)
	}
	return nil
}

// AddImage stores an image and appends its metadata to the note.
func (m *Mongo) AddImage(ctx context.Context, img *model.Image) (*model.Image, error) {
	created := *img
	created.ID = newObjectID()
	created.CreatedAt = now()
	if _, err := m.col(colImages).InsertOne(ctx, &created); err != nil {
		return nil, fmt.Errorf("adding image: %w", err)
	}
	_, err := m.col(colNotes).UpdateByID(ctx, created.NoteID, bson.M{
		"$push": bson.M{"images": created.Meta()},
		"$set":  bson.M{"updatedAt": now()},
	})
	if err != nil {
		return nil, fmt.Errorf("attaching image: %w", err)
	}
	return &created, nil
}

// GetImage returns an image with its bytes.
func (m *Mongo) GetImage(ctx context.Context, id string) (*model.Image, error) {
	var img model.Image
	ok, err := m.findOne(ctx, colImages, bson.M{"_id": id}, &img)
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &img, nil
}
