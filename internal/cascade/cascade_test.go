package cascade

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vrt/internal/model"
)

// fakeStore keeps records in maps and logs every mutating call in order.
type fakeStore struct {
	plants    map[string]*model.Plant
	notes     map[string]*model.Note
	locations map[string]*model.Location
	users     map[string]*model.User

	calls []string
	// failOn makes the named call ("DeleteNote:a") return an error.
	failOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plants:    map[string]*model.Plant{},
		notes:     map[string]*model.Note{},
		locations: map[string]*model.Location{},
		users:     map[string]*model.User{},
	}
}

var errInjected = errors.New("injected failure")

func (f *fakeStore) record(call string) error {
	f.calls = append(f.calls, call)
	if call == f.failOn {
		return errInjected
	}
	return nil
}

func (f *fakeStore) sortedNotes(keep func(*model.Note) bool) []model.Note {
	var out []model.Note
	for _, n := range f.notes {
		if keep(n) {
			out = append(out, *n)
		}
	}
	slices.SortFunc(out, func(a, b model.Note) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (f *fakeStore) GetPlant(_ context.Context, id string) (*model.Plant, error) {
	if err := f.record("GetPlant:" + id); err != nil {
		return nil, err
	}
	return f.plants[id], nil
}

func (f *fakeStore) ListPlantsByUser(_ context.Context, userID string) ([]model.Plant, error) {
	var out []model.Plant
	for _, p := range f.plants {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b model.Plant) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeStore) DeletePlant(_ context.Context, id string) error {
	if err := f.record("DeletePlant:" + id); err != nil {
		return err
	}
	delete(f.plants, id)
	return nil
}

func (f *fakeStore) ListNotesByPlant(_ context.Context, plantID string) ([]model.Note, error) {
	if err := f.record("ListNotesByPlant:" + plantID); err != nil {
		return nil, err
	}
	return f.sortedNotes(func(n *model.Note) bool { return n.References(plantID) }), nil
}

func (f *fakeStore) ListNotesByUser(_ context.Context, userID string) ([]model.Note, error) {
	return f.sortedNotes(func(n *model.Note) bool { return n.UserID == userID }), nil
}

func (f *fakeStore) DeleteNote(_ context.Context, id string) error {
	if err := f.record("DeleteNote:" + id); err != nil {
		return err
	}
	delete(f.notes, id)
	return nil
}

func (f *fakeStore) RemovePlantFromNote(_ context.Context, noteID, plantID string) error {
	if err := f.record("RemovePlantFromNote:" + noteID); err != nil {
		return err
	}
	n := f.notes[noteID]
	n.PlantIDs = n.WithoutPlant(plantID)
	return nil
}

func (f *fakeStore) ListLocationsByUser(_ context.Context, userID string) ([]model.Location, error) {
	var out []model.Location
	for _, l := range f.locations {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteLocation(_ context.Context, id string) error {
	if err := f.record("DeleteLocation:" + id); err != nil {
		return err
	}
	delete(f.locations, id)
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, id string) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	if err := f.record("DeleteUser:" + id); err != nil {
		return err
	}
	delete(f.users, id)
	return nil
}

// seed builds plant p referenced by note a alone and by note b together with
// plant q.
func seed() *fakeStore {
	f := newFakeStore()
	f.users["u"] = &model.User{ID: "u", Username: "gardener"}
	f.plants["p"] = &model.Plant{ID: "p", UserID: "u", Title: "Plant"}
	f.plants["q"] = &model.Plant{ID: "q", UserID: "u", Title: "Other"}
	f.notes["a"] = &model.Note{ID: "a", UserID: "u", PlantIDs: []string{"p"}}
	f.notes["b"] = &model.Note{ID: "b", UserID: "u", PlantIDs: []string{"p", "q"}}
	return f
}

func TestDeletePlantKeepsSharedNotes(t *testing.T) {
	f := seed()
	d := New(f, nil)

	res, err := d.DeletePlant(context.Background(), "p")
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.True(t, res.Deleted)
	assert.Equal(t, []string{"a"}, res.DeletedNoteIDs)
	assert.Equal(t, []string{"b"}, res.PrunedNoteIDs)

	assert.NotContains(t, f.notes, "a")
	require.Contains(t, f.notes, "b")
	assert.Equal(t, []string{"q"}, f.notes["b"].PlantIDs)
	assert.NotContains(t, f.plants, "p")
	assert.Contains(t, f.plants, "q")
}

func TestDeletePlantOrder(t *testing.T) {
	f := seed()
	_, err := New(f, nil).DeletePlant(context.Background(), "p")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GetPlant:p",
		"ListNotesByPlant:p",
		"DeleteNote:a",
		"RemovePlantFromNote:b",
		"DeletePlant:p",
	}, f.calls)
}

func TestDeletePlantNotFound(t *testing.T) {
	f := seed()
	res, err := New(f, nil).DeletePlant(context.Background(), "missing")
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.False(t, res.Deleted)
	assert.Equal(t, []string{"GetPlant:missing"}, f.calls)
	assert.Len(t, f.notes, 2)
}

func TestDeletePlantStopsOnError(t *testing.T) {
	tests := []struct {
		failOn      string
		wantDeleted []string
		wantPruned  []string
		wantPlant   bool
	}{
		{failOn: "GetPlant:p", wantDeleted: []string{}, wantPruned: []string{}, wantPlant: true},
		{failOn: "ListNotesByPlant:p", wantDeleted: []string{}, wantPruned: []string{}, wantPlant: true},
		{failOn: "DeleteNote:a", wantDeleted: []string{}, wantPruned: []string{}, wantPlant: true},
		{failOn: "RemovePlantFromNote:b", wantDeleted: []string{"a"}, wantPruned: []string{}, wantPlant: true},
		{failOn: "DeletePlant:p", wantDeleted: []string{"a"}, wantPruned: []string{"b"}, wantPlant: true},
	}

	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			f := seed()
			f.failOn = tt.failOn

			res, err := New(f, nil).DeletePlant(context.Background(), "p")
			require.ErrorIs(t, err, errInjected)
			require.NotNil(t, res)

			assert.False(t, res.Deleted)
			assert.Equal(t, tt.wantDeleted, res.DeletedNoteIDs)
			assert.Equal(t, tt.wantPruned, res.PrunedNoteIDs)
			assert.Equal(t, tt.wantPlant, f.plants["p"] != nil)
			assert.Equal(t, tt.failOn, f.calls[len(f.calls)-1], "no step may run after the failure")
		})
	}
}

func TestDeletePlantManySoleNotes(t *testing.T) {
	f := newFakeStore()
	f.plants["p"] = &model.Plant{ID: "p"}
	for i := range 5 {
		id := fmt.Sprintf("n%d", i)
		f.notes[id] = &model.Note{ID: id, PlantIDs: []string{"p"}}
	}

	res, err := New(f, nil).DeletePlant(context.Background(), "p")
	require.NoError(t, err)
	assert.Len(t, res.DeletedNoteIDs, 5)
	assert.Empty(t, f.notes)
	assert.Equal(t, "DeletePlant:p", f.calls[len(f.calls)-1])
}

func TestDeleteUser(t *testing.T) {
	f := seed()
	f.locations["l"] = &model.Location{ID: "l", UserID: "u"}
	f.users["other"] = &model.User{ID: "other"}
	f.plants["x"] = &model.Plant{ID: "x", UserID: "other"}

	res, err := New(f, nil).DeleteUser(context.Background(), "u")
	require.NoError(t, err)

	assert.True(t, res.Deleted)
	assert.Equal(t, []string{"a", "b"}, res.DeletedNoteIDs)
	assert.Equal(t, []string{"p", "q"}, res.DeletedPlantIDs)
	assert.Equal(t, []string{"l"}, res.DeletedLocationIDs)
	assert.Empty(t, f.notes)
	assert.Equal(t, map[string]*model.Plant{"x": f.plants["x"]}, f.plants)
	assert.NotContains(t, f.users, "u")
	assert.Equal(t, "DeleteUser:u", f.calls[len(f.calls)-1])
}

func TestDeleteUserNotFound(t *testing.T) {
	f := seed()
	res, err := New(f, nil).DeleteUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, f.calls)
}

func TestDeleteUserStopsOnError(t *testing.T) {
	f := seed()
	f.failOn = "DeletePlant:p"

	res, err := New(f, nil).DeleteUser(context.Background(), "u")
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, []string{"a", "b"}, res.DeletedNoteIDs)
	assert.Empty(t, res.DeletedPlantIDs)
	assert.Contains(t, f.users, "u")
}
