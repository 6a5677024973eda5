package store

import (
	"context"
	"testing"

	"github.com/erazemk/vrt/internal/db"
	"github.com/erazemk/vrt/internal/model"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	return NewSQLite(db.NewTestDB(t))
}

func mustUser(t *testing.T, s Store, username string) *model.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), username, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser(%q): %v", username, err)
	}
	return u
}

func mustPlant(t *testing.T, s Store, userID, title string) *model.Plant {
	t.Helper()
	p, err := s.CreatePlant(context.Background(), &model.Plant{UserID: userID, Title: title})
	if err != nil {
		t.Fatalf("CreatePlant(%q): %v", title, err)
	}
	return p
}
