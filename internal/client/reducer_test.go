package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vrt/internal/model"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestReduceFailureIsIdempotent(t *testing.T) {
	s := InitialState(&Session{UserID: "u1", Token: "tok"})
	s.Plants = map[string]model.Plant{"p1": {ID: "p1", Title: "Basil"}}

	fail := Action{Type: DeletePlantFailure, Payload: "500 Internal Server Error: boom", Error: true}
	once := Reduce(s, fail)
	twice := Reduce(once, fail)

	assert.Equal(t, once, twice)
	assert.Equal(t, Failure{Type: DeletePlantFailure, Message: "500 Internal Server Error: boom"}, twice.LastFailure)
	assert.Same(t, s.User, twice.User)
	assert.Equal(t, s.Plants, twice.Plants)

	cleared := Reduce(twice, Action{Type: ClearFailure})
	assert.Equal(t, Failure{}, cleared.LastFailure)
}

func TestReduceLoginReplacesSession(t *testing.T) {
	s := InitialState(nil)
	s.Plants = map[string]model.Plant{"old": {ID: "old"}}

	next := Reduce(s, Action{Type: LoginSuccess, Payload: raw(`{"token":"tok","user":{"_id":"u1","username":"ana","role":"user"}}`)})
	require.NotSame(t, s.User, next.User)
	assert.Equal(t, Session{UserID: "u1", Username: "ana", Role: "user", Token: "tok"}, *next.User)
	assert.Empty(t, next.Plants)

	out := Reduce(next, Action{Type: Logout})
	assert.False(t, out.User.SignedIn())
}

func TestReduceUnrelatedActionKeepsSession(t *testing.T) {
	s := InitialState(&Session{UserID: "u1", Token: "tok"})
	next := Reduce(s, Action{Type: CreatePlantSuccess, Payload: raw(`{"_id":"p1","userId":"u1","title":"Basil"}`)})
	assert.Same(t, s.User, next.User)
	assert.Empty(t, s.Plants, "input state is not modified")
	assert.Equal(t, "Basil", next.Plants["p1"].Title)

	// Reloading an unchanged profile keeps the session pointer.
	same := Reduce(next, Action{Type: LoadUserSuccess, Payload: raw(`{"_id":"u1"}`)})
	assert.Same(t, next.User, same.User)

	renamed := Reduce(next, Action{Type: UpdateUserSuccess, Payload: raw(`{"_id":"u1","username":"ana2","role":"user"}`)})
	assert.NotSame(t, next.User, renamed.User)
	assert.Equal(t, "ana2", renamed.User.Username)
	assert.Equal(t, "tok", renamed.User.Token)
}

func TestReduceDeletePlantCascade(t *testing.T) {
	s := InitialState(&Session{UserID: "u1", Token: "tok"})
	s.Plants = map[string]model.Plant{"p1": {ID: "p1"}, "p2": {ID: "p2"}}
	s.Notes = map[string]model.Note{
		"a": {ID: "a", PlantIDs: []string{"p1"}},
		"b": {ID: "b", PlantIDs: []string{"p1", "p2"}},
		"c": {ID: "c", PlantIDs: []string{"p2"}},
	}

	next := Reduce(s, Action{Type: DeletePlantSuccess, Payload: raw(
		`{"_id":"p1","found":true,"deletedNoteIds":["a"],"prunedNoteIds":["b"],"deleted":true}`,
	)})

	assert.NotContains(t, next.Plants, "p1")
	assert.Contains(t, next.Plants, "p2")
	assert.NotContains(t, next.Notes, "a")
	assert.Equal(t, []string{"p2"}, next.Notes["b"].PlantIDs)
	assert.Equal(t, []string{"p2"}, next.Notes["c"].PlantIDs)

	assert.Len(t, s.Notes, 3, "input state is not modified")
	assert.Equal(t, []string{"p1", "p2"}, s.Notes["b"].PlantIDs)

	missing := Reduce(s, Action{Type: DeletePlantSuccess, Payload: raw(`{"_id":"zz","found":false}`)})
	assert.Equal(t, s, missing)
}

func TestReduceCollections(t *testing.T) {
	s := InitialState(nil)

	s = Reduce(s, Action{Type: LoadNotesSuccess, Payload: raw(`[{"_id":"n1","plantIds":["p1"],"note":"x","date":"05/05/2015"}]`)})
	require.Contains(t, s.Notes, "n1")
	assert.Equal(t, model.NewDate(2015, 5, 5), s.Notes["n1"].Date)

	s = Reduce(s, Action{Type: DeleteNoteSuccess, Payload: raw(`{"_id":"n1"}`)})
	assert.Empty(t, s.Notes)

	s = Reduce(s, Action{Type: LoadLocationsSuccess, Payload: raw(`[{"_id":"l1","title":"Bed"},{"_id":"l2","title":"Pot"}]`)})
	assert.Len(t, s.Locations, 2)
	s = Reduce(s, Action{Type: DeleteLocationSuccess, Payload: raw(`{"_id":"l1"}`)})
	assert.Len(t, s.Locations, 1)

	before := s
	s = Reduce(s, Action{Type: LoadPlantsSuccess, Payload: raw(`not json`)})
	assert.Equal(t, before, s)
}

func TestReduceDeleteOwnAccountSignsOut(t *testing.T) {
	s := InitialState(&Session{UserID: "u1", Token: "tok"})

	other := Reduce(s, Action{Type: DeleteUserSuccess, Payload: raw(`{"_id":"u2","found":true}`)})
	assert.Same(t, s.User, other.User)

	self := Reduce(s, Action{Type: DeleteUserSuccess, Payload: raw(`{"_id":"u1","found":true}`)})
	assert.False(t, self.User.SignedIn())
}
