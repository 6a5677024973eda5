package model

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Note is a dated journal entry attached to one or more plants.
type Note struct {
	ID        string      `json:"_id" bson:"_id"`
	UserID    string      `json:"userId" bson:"userId"`
	PlantIDs  []string    `json:"plantIds" bson:"plantIds"`
	Note      string      `json:"note" bson:"note"`
	Date      Date        `json:"date,omitzero" bson:"date,omitempty"`
	Images    []NoteImage `json:"images,omitempty" bson:"images,omitempty"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// NoteImage describes an image attached to a note. The bytes are served
// separately.
type NoteImage struct {
	ID     string `json:"_id" bson:"_id"`
	MIME   string `json:"mime" bson:"mime"`
	Width  int    `json:"width" bson:"width"`
	Height int    `json:"height" bson:"height"`
}

// SolelyReferences reports whether plantID is the note's only plant.
func (n *Note) SolelyReferences(plantID string) bool {
	return len(n.PlantIDs) == 1 && n.PlantIDs[0] == plantID
}

// References reports whether the note mentions plantID.
func (n *Note) References(plantID string) bool {
	return slices.Contains(n.PlantIDs, plantID)
}

// WithoutPlant returns the note's plant ids with plantID removed.
func (n *Note) WithoutPlant(plantID string) []string {
	out := make([]string, 0, len(n.PlantIDs))
	for _, id := range n.PlantIDs {
		if id != plantID {
			out = append(out, id)
		}
	}
	return out
}

// Normalize trims the text, drops duplicate and empty plant ids, and checks
// that the note is attached to at least one plant. A note with neither text
// nor images is only valid when hasFiles is set.
func (n *Note) Normalize(hasFiles bool) error {
	n.Note = strings.TrimSpace(n.Note)

	seen := make(map[string]bool, len(n.PlantIDs))
	ids := make([]string, 0, len(n.PlantIDs))
	for _, id := range n.PlantIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	n.PlantIDs = ids

	if len(n.PlantIDs) == 0 {
		return errors.New("note must reference at least one plant")
	}
	if n.Note == "" && len(n.Images) == 0 && !hasFiles {
		return errors.New("note text or image required")
	}
	return nil
}

// Image is a stored note attachment.
type Image struct {
	ID        string    `json:"_id" bson:"_id"`
	NoteID    string    `json:"noteId" bson:"noteId"`
	MIME      string    `json:"mime" bson:"mime"`
	Width     int       `json:"width" bson:"width"`
	Height    int       `json:"height" bson:"height"`
	Data      []byte    `json:"-" bson:"data"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Meta returns the image description embedded in notes.
func (i *Image) Meta() NoteImage {
	return NoteImage{ID: i.ID, MIME: i.MIME, Width: i.Width, Height: i.Height}
}
