package client

import (
	"encoding/json"
	"maps"

	"github.com/erazemk/vrt/internal/model"
)

// Session is the signed-in user. It is the part of State mirrored to local
// storage.
type Session struct {
	UserID   string `json:"_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Token    string `json:"token,omitempty"`
}

// SignedIn reports whether the session carries a token.
func (s *Session) SignedIn() bool {
	return s != nil && s.Token != ""
}

// Failure is the last failed request. The zero value means none.
type Failure struct {
	Type    Type
	Message string
}

// State is the whole client state. Collections are keyed by id.
//
// State follows a copy-on-write discipline: Reduce never modifies a map or
// the Session it was given. A changed User means a new *Session, so
// comparing pointers is enough to detect a session change.
type State struct {
	User        *Session
	Plants      map[string]model.Plant
	Notes       map[string]model.Note
	Locations   map[string]model.Location
	LastFailure Failure
}

// InitialState returns an empty state holding session.
func InitialState(session *Session) State {
	if session == nil {
		session = &Session{}
	}
	return State{
		User:      session,
		Plants:    map[string]model.Plant{},
		Notes:     map[string]model.Note{},
		Locations: map[string]model.Location{},
	}
}

type sessionPayload struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type deletedPayload struct {
	ID string `json:"_id"`
}

type plantDeletedPayload struct {
	ID             string   `json:"_id"`
	Found          bool     `json:"found"`
	DeletedNoteIDs []string `json:"deletedNoteIds"`
	PrunedNoteIDs  []string `json:"prunedNoteIds"`
	Deleted        bool     `json:"deleted"`
}

// Reduce is the application reducer. Success payloads are the raw server
// responses; a payload that does not decode leaves the state unchanged.
func Reduce(s State, a Action) State {
	if a.Error {
		s.LastFailure = Failure{Type: a.Type, Message: payloadText(a.Payload)}
		return s
	}

	switch a.Type {
	case ClearFailure:
		s.LastFailure = Failure{}

	case LoginSuccess, RegisterSuccess:
		var p sessionPayload
		if decode(a, &p) {
			return InitialState(&Session{
				UserID:   p.User.ID,
				Username: p.User.Username,
				Role:     p.User.Role,
				Token:    p.Token,
			})
		}

	case Logout, LogoutSuccess:
		return InitialState(nil)

	case DeleteUserSuccess:
		var p deletedPayload
		if decode(a, &p) && s.User != nil && p.ID == s.User.UserID {
			return InitialState(nil)
		}

	case LoadUserSuccess, UpdateUserSuccess:
		var u model.User
		if decode(a, &u) && s.User != nil && u.ID == s.User.UserID {
			next := *s.User
			next.Username = u.Username
			next.Role = u.Role
			if next != *s.User {
				s.User = &next
			}
		}

	case CreatePlantSuccess, UpdatePlantSuccess, LoadPlantSuccess:
		var p model.Plant
		if decode(a, &p) {
			s.Plants = with(s.Plants, p.ID, p)
		}

	case LoadPlantsSuccess:
		var list []model.Plant
		if decode(a, &list) {
			s.Plants = keyed(list, func(p model.Plant) string { return p.ID })
		}

	case DeletePlantSuccess:
		var p plantDeletedPayload
		if decode(a, &p) {
			s = removePlant(s, p)
		}

	case UpsertNoteSuccess:
		var n model.Note
		if decode(a, &n) {
			s.Notes = with(s.Notes, n.ID, n)
		}

	case LoadNotesSuccess:
		var list []model.Note
		if decode(a, &list) {
			s.Notes = keyed(list, func(n model.Note) string { return n.ID })
		}

	case DeleteNoteSuccess:
		var p deletedPayload
		if decode(a, &p) {
			s.Notes = without(s.Notes, p.ID)
		}

	case CreateLocationSuccess, UpdateLocationSuccess:
		var l model.Location
		if decode(a, &l) {
			s.Locations = with(s.Locations, l.ID, l)
		}

	case LoadLocationsSuccess:
		var list []model.Location
		if decode(a, &list) {
			s.Locations = keyed(list, func(l model.Location) string { return l.ID })
		}

	case DeleteLocationSuccess:
		var p deletedPayload
		if decode(a, &p) {
			s.Locations = without(s.Locations, p.ID)
		}
	}
	return s
}

// removePlant drops the plant and mirrors what the server did to its notes.
func removePlant(s State, p plantDeletedPayload) State {
	if !p.Found {
		return s
	}
	if p.Deleted {
		s.Plants = without(s.Plants, p.ID)
	}
	if len(p.DeletedNoteIDs) == 0 && len(p.PrunedNoteIDs) == 0 {
		return s
	}

	notes := maps.Clone(s.Notes)
	for _, id := range p.DeletedNoteIDs {
		delete(notes, id)
	}
	for _, id := range p.PrunedNoteIDs {
		if n, ok := notes[id]; ok {
			n.PlantIDs = n.WithoutPlant(p.ID)
			notes[id] = n
		}
	}
	s.Notes = notes
	return s
}

func decode(a Action, v any) bool {
	var data []byte
	switch p := a.Payload.(type) {
	case json.RawMessage:
		data = p
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func payloadText(p any) string {
	switch v := p.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case json.RawMessage:
		return string(v)
	case nil:
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}

func with[V any](m map[string]V, id string, v V) map[string]V {
	out := maps.Clone(m)
	if out == nil {
		out = map[string]V{}
	}
	out[id] = v
	return out
}

func without[V any](m map[string]V, id string) map[string]V {
	if _, ok := m[id]; !ok {
		return m
	}
	out := maps.Clone(m)
	delete(out, id)
	return out
}

func keyed[V any](list []V, id func(V) string) map[string]V {
	out := make(map[string]V, len(list))
	for _, v := range list {
		out[id(v)] = v
	}
	return out
}
