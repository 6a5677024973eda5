package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strings"

	"github.com/erazemk/vrt/internal/model"
)

// ErrInvalidPayload is returned by Describe when a known request carries a
// payload it cannot be built from.
var ErrInvalidPayload = errors.New("invalid payload")

// Descriptor is the HTTP call a request action maps to.
type Descriptor struct {
	Method string
	URL    string
	// Data is the request body: a value to be sent as JSON, or the encoded
	// multipart body when FileUpload is set.
	Data        any
	ContentType string
	FileUpload  bool

	SuccessType Type
	FailureType Type
}

// Credentials is the payload of login and register requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserUpdate is the payload of UPDATE_USER_REQUEST. Empty fields are left
// unchanged by the server.
type UserUpdate struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// File is a photo attached to a note upsert.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NoteUpsert is the payload of UPSERT_NOTE_REQUEST. With Files present the
// note goes to the upload endpoint as multipart data.
type NoteUpsert struct {
	Note  model.Note
	Files []File
}

type route struct {
	success, failure Type
	build            func(Action) (*Descriptor, error)
}

var routes = map[Type]route{
	LoginRequest:    {LoginSuccess, LoginFailure, postCredentials("/api/auth/login")},
	RegisterRequest: {RegisterSuccess, RegisterFailure, postCredentials("/api/auth/register")},
	LogoutRequest: {LogoutSuccess, LogoutFailure, func(Action) (*Descriptor, error) {
		return &Descriptor{Method: http.MethodPost, URL: "/api/auth/logout"}, nil
	}},

	LoadUserRequest:   {LoadUserSuccess, LoadUserFailure, byID(http.MethodGet, "/api/user/")},
	UpdateUserRequest: {UpdateUserSuccess, UpdateUserFailure, updateUser},
	DeleteUserRequest: {DeleteUserSuccess, DeleteUserFailure, byID(http.MethodDelete, "/api/user/")},

	CreatePlantRequest: {CreatePlantSuccess, CreatePlantFailure, createPlant},
	UpdatePlantRequest: {UpdatePlantSuccess, UpdatePlantFailure, updatePlant},
	LoadPlantRequest:   {LoadPlantSuccess, LoadPlantFailure, byID(http.MethodGet, "/api/plant/")},
	LoadPlantsRequest:  {LoadPlantsSuccess, LoadPlantsFailure, byID(http.MethodGet, "/api/plants/")},
	DeletePlantRequest: {DeletePlantSuccess, DeletePlantFailure, byID(http.MethodDelete, "/api/plant/")},

	UpsertNoteRequest: {UpsertNoteSuccess, UpsertNoteFailure, upsertNote},
	LoadNotesRequest:  {LoadNotesSuccess, LoadNotesFailure, byID(http.MethodGet, "/api/notes/")},
	DeleteNoteRequest: {DeleteNoteSuccess, DeleteNoteFailure, byID(http.MethodDelete, "/api/plant-note/")},

	CreateLocationRequest: {CreateLocationSuccess, CreateLocationFailure, createLocation},
	UpdateLocationRequest: {UpdateLocationSuccess, UpdateLocationFailure, updateLocation},
	LoadLocationsRequest:  {LoadLocationsSuccess, LoadLocationsFailure, byID(http.MethodGet, "/api/locations/")},
	DeleteLocationRequest: {DeleteLocationSuccess, DeleteLocationFailure, byID(http.MethodDelete, "/api/location/")},
}

// Describe maps a request action to its HTTP call.
//
// Unknown action types yield (nil, nil): the action is not a request. A
// known type with an unusable payload yields a descriptor carrying only the
// outcome types together with an error wrapping ErrInvalidPayload.
func Describe(a Action) (*Descriptor, error) {
	r, ok := routes[a.Type]
	if !ok {
		return nil, nil
	}
	d, err := r.build(a)
	if err != nil {
		return &Descriptor{SuccessType: r.success, FailureType: r.failure}, err
	}
	d.SuccessType = r.success
	d.FailureType = r.failure
	return d, nil
}

// RequestTypes lists every request type Describe knows, sorted.
func RequestTypes() []Type {
	types := make([]Type, 0, len(routes))
	for t := range routes {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// payloadAs accepts a payload of type T or *T.
func payloadAs[T any](a Action) (T, error) {
	switch v := a.Payload.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s wants %T, got %T", ErrInvalidPayload, a.Type, zero, a.Payload)
}

func invalid(a Action, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidPayload, a.Type, fmt.Sprintf(format, args...))
}

func idPath(prefix, id string) string {
	return prefix + url.PathEscape(id)
}

// byID builds requests whose payload is a single id appended to prefix.
func byID(method, prefix string) func(Action) (*Descriptor, error) {
	return func(a Action) (*Descriptor, error) {
		id, err := payloadAs[string](a)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(id) == "" {
			return nil, invalid(a, "empty id")
		}
		return &Descriptor{Method: method, URL: idPath(prefix, id)}, nil
	}
}

func postCredentials(path string) func(Action) (*Descriptor, error) {
	return func(a Action) (*Descriptor, error) {
		c, err := payloadAs[Credentials](a)
		if err != nil {
			return nil, err
		}
		if c.Username == "" || c.Password == "" {
			return nil, invalid(a, "username and password required")
		}
		return &Descriptor{Method: http.MethodPost, URL: path, Data: c}, nil
	}
}

func updateUser(a Action) (*Descriptor, error) {
	u, err := payloadAs[UserUpdate](a)
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, invalid(a, "missing user id")
	}
	return &Descriptor{Method: http.MethodPut, URL: idPath("/api/user/", u.ID), Data: u}, nil
}

func createPlant(a Action) (*Descriptor, error) {
	p, err := payloadAs[model.Plant](a)
	if err != nil {
		return nil, err
	}
	if err := p.Normalize(); err != nil {
		return nil, invalid(a, "%v", err)
	}
	return &Descriptor{Method: http.MethodPost, URL: "/api/plant", Data: p}, nil
}

func updatePlant(a Action) (*Descriptor, error) {
	p, err := payloadAs[model.Plant](a)
	if err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, invalid(a, "missing plant id")
	}
	if err := p.Normalize(); err != nil {
		return nil, invalid(a, "%v", err)
	}
	return &Descriptor{Method: http.MethodPut, URL: idPath("/api/plant/", p.ID), Data: p}, nil
}

func createLocation(a Action) (*Descriptor, error) {
	l, err := payloadAs[model.Location](a)
	if err != nil {
		return nil, err
	}
	if err := l.Normalize(); err != nil {
		return nil, invalid(a, "%v", err)
	}
	return &Descriptor{Method: http.MethodPost, URL: "/api/location", Data: l}, nil
}

func updateLocation(a Action) (*Descriptor, error) {
	l, err := payloadAs[model.Location](a)
	if err != nil {
		return nil, err
	}
	if l.ID == "" {
		return nil, invalid(a, "missing location id")
	}
	if err := l.Normalize(); err != nil {
		return nil, invalid(a, "%v", err)
	}
	return &Descriptor{Method: http.MethodPut, URL: idPath("/api/location/", l.ID), Data: l}, nil
}

// upsertNote accepts a NoteUpsert or a bare model.Note.
func upsertNote(a Action) (*Descriptor, error) {
	var up NoteUpsert
	switch v := a.Payload.(type) {
	case model.Note:
		up.Note = v
	case *model.Note:
		if v == nil {
			return nil, invalid(a, "nil note")
		}
		up.Note = *v
	default:
		var err error
		if up, err = payloadAs[NoteUpsert](a); err != nil {
			return nil, err
		}
	}

	if err := up.Note.Normalize(len(up.Files) > 0); err != nil {
		return nil, invalid(a, "%v", err)
	}

	if len(up.Files) == 0 {
		return &Descriptor{Method: http.MethodPost, URL: "/api/plant-note", Data: up.Note}, nil
	}

	body, contentType, err := encodeUpload(up)
	if err != nil {
		return nil, invalid(a, "%v", err)
	}
	return &Descriptor{
		Method:      http.MethodPost,
		URL:         "/api/upload",
		Data:        body,
		ContentType: contentType,
		FileUpload:  true,
	}, nil
}

// encodeUpload writes the note as a JSON "note" field followed by one
// "file" part per attachment.
func encodeUpload(up NoteUpsert) ([]byte, string, error) {
	noteJSON, err := json.Marshal(FormatDates(up.Note))
	if err != nil {
		return nil, "", fmt.Errorf("encoding note: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", string(noteJSON)); err != nil {
		return nil, "", err
	}
	for i, f := range up.Files {
		if len(f.Data) == 0 {
			return nil, "", fmt.Errorf("file %d is empty", i)
		}
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("file%d", i)
		}
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
