package model

import "time"

// Location is a place where plants grow: a bed, a balcony, a greenhouse.
type Location struct {
	ID          string    `json:"_id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Normalize trims and validates the location title and description.
func (l *Location) Normalize() error {
	title, err := sanitizeTitle("title", l.Title)
	if err != nil {
		return err
	}
	description, err := sanitizeOptional("description", l.Description)
	if err != nil {
		return err
	}
	l.Title = title
	l.Description = description
	return nil
}
