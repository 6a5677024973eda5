package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// NameMaxLen bounds titles and names, in bytes.
const NameMaxLen = 255

// Plant is a single plant tracked by a user, optionally placed at a location.
type Plant struct {
	ID            string    `json:"_id" bson:"_id"`
	UserID        string    `json:"userId" bson:"userId"`
	LocationID    string    `json:"locationId,omitempty" bson:"locationId,omitempty"`
	Title         string    `json:"title" bson:"title"`
	CommonName    string    `json:"commonName,omitempty" bson:"commonName,omitempty"`
	BotanicalName string    `json:"botanicalName,omitempty" bson:"botanicalName,omitempty"`
	Description   string    `json:"description,omitempty" bson:"description,omitempty"`
	PlantedOn     Date      `json:"plantedOn,omitzero" bson:"plantedOn,omitempty"`
	Price         float64   `json:"price,omitempty" bson:"price,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Normalize trims the plant's names and validates them. The title must be a
// non-empty UTF-8 string; the botanical name, if set, must be ASCII.
func (p *Plant) Normalize() error {
	title, err := sanitizeTitle("title", p.Title)
	if err != nil {
		return err
	}
	p.Title = title

	common, err := sanitizeOptional("common name", p.CommonName)
	if err != nil {
		return err
	}
	p.CommonName = common

	botanical, err := sanitizeScientificName(p.BotanicalName)
	if err != nil {
		return err
	}
	p.BotanicalName = botanical

	if p.Price < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}

// sanitizeTitle checks that name is not empty after trim, not longer than
// NameMaxLen and valid UTF-8. It returns the trimmed name.
func sanitizeTitle(field, name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", fmt.Errorf("%s is empty", field)
	}
	return sanitizeOptional(field, s)
}

func sanitizeOptional(field, name string) (string, error) {
	s := strings.TrimSpace(name)
	if len(s) > NameMaxLen {
		return "", fmt.Errorf("%s is longer than %d bytes", field, NameMaxLen)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%s is not UTF-8", field)
	}
	return s, nil
}

// sanitizeScientificName checks that name is not longer than NameMaxLen
// after trim and is ASCII.
func sanitizeScientificName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if len(s) > NameMaxLen {
		return "", fmt.Errorf("botanical name is longer than %d bytes", NameMaxLen)
	}
	for _, r := range s {
		if r > unicode.MaxASCII {
			return "", errors.New("botanical name is not ASCII")
		}
	}
	return s, nil
}
