package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/vrt/internal/cascade"
	"github.com/erazemk/vrt/internal/db"
	"github.com/erazemk/vrt/internal/model"
	"github.com/erazemk/vrt/internal/store"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	server *httptest.Server
	store  *store.SQLite
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewSQLite(db.NewTestDB(t))
	router := NewRouter(Options{Store: s, JWTSecret: testJWTSecret, AllowSignup: true})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if _, err := s.CreateUser(context.Background(), "admin", string(hash), model.RoleAdmin); err != nil {
		t.Fatalf("creating admin: %v", err)
	}
	return &testEnv{server: server, store: s}
}

// login returns the token and user id for the given credentials.
func (e *testEnv) login(t *testing.T, username, password string) (string, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(e.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var session struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&session)
	if session.Token == "" {
		t.Fatal("empty token from login")
	}
	return session.Token, session.User.ID
}

// register creates a regular account through the API and logs it in.
func (e *testEnv) register(t *testing.T, username string) (string, string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "correct horse"})
	resp, err := http.Post(e.server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: %d", resp.StatusCode)
	}
	return e.login(t, username, "correct horse")
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends an authenticated request, checks the status and decodes the body
// into out when out is not nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any, want int, out any) {
	t.Helper()
	req, _ := authRequest(method, e.server.URL+path, token, body)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		var errBody map[string]string
		json.NewDecoder(resp.Body).Decode(&errBody)
		t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, want, resp.StatusCode, errBody["error"])
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, path, err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterDuplicate(t *testing.T) {
	env := setupTestServer(t)
	env.register(t, "alice")

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct horse"})
	resp, _ := http.Post(env.server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for taken username, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterDisabled(t *testing.T) {
	s := store.NewSQLite(db.NewTestDB(t))
	server := httptest.NewServer(NewRouter(Options{Store: s, JWTSecret: testJWTSecret}))
	t.Cleanup(server.Close)

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct horse"})
	resp, _ := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 with signup disabled, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPlantsAPIFlow(t *testing.T) {
	env := setupTestServer(t)
	token, userID := env.register(t, "alice")

	var created model.Plant
	env.do(t, "POST", "/api/plant", token, map[string]any{
		"title":     "Basil",
		"plantedOn": "05/05/2015",
		"price":     2.5,
	}, http.StatusCreated, &created)
	if created.UserID != userID {
		t.Errorf("expected plant owned by %s, got %s", userID, created.UserID)
	}
	if created.PlantedOn.String() != "05/05/2015" {
		t.Errorf("expected plantedOn 05/05/2015, got %q", created.PlantedOn.String())
	}

	// The client sends whole records back, with dates formatted.
	env.do(t, "PUT", "/api/plant/"+created.ID, token, map[string]any{
		"_id":       created.ID,
		"title":     "Genovese basil",
		"plantedOn": "06/01/2015",
		"createdAt": "05/05/2015",
	}, http.StatusOK, &created)
	if created.Title != "Genovese basil" {
		t.Errorf("expected updated title, got %q", created.Title)
	}

	var plants []model.Plant
	env.do(t, "GET", "/api/plants/"+userID, token, nil, http.StatusOK, &plants)
	if len(plants) != 1 {
		t.Fatalf("expected 1 plant, got %d", len(plants))
	}

	env.do(t, "POST", "/api/plant", token, map[string]any{"title": "  "}, http.StatusBadRequest, nil)
	env.do(t, "POST", "/api/plant", token, map[string]any{"title": "x", "plantedOn": "tomorrow"}, http.StatusBadRequest, nil)
}

func TestPlantOwnership(t *testing.T) {
	env := setupTestServer(t)
	aliceToken, aliceID := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")
	adminToken, _ := env.login(t, "admin", "password")

	var plant model.Plant
	env.do(t, "POST", "/api/plant", aliceToken, map[string]any{"title": "Rose"}, http.StatusCreated, &plant)

	env.do(t, "GET", "/api/plant/"+plant.ID, bobToken, nil, http.StatusForbidden, nil)
	env.do(t, "GET", "/api/plants/"+aliceID, bobToken, nil, http.StatusForbidden, nil)
	env.do(t, "DELETE", "/api/plant/"+plant.ID, bobToken, nil, http.StatusForbidden, nil)
	env.do(t, "GET", "/api/plant/missing", bobToken, nil, http.StatusNotFound, nil)

	// Admins see everything.
	env.do(t, "GET", "/api/plant/"+plant.ID, adminToken, nil, http.StatusOK, nil)
}

func TestDeletePlantCascade(t *testing.T) {
	env := setupTestServer(t)
	token, userID := env.register(t, "alice")

	var p, q model.Plant
	env.do(t, "POST", "/api/plant", token, map[string]any{"title": "P"}, http.StatusCreated, &p)
	env.do(t, "POST", "/api/plant", token, map[string]any{"title": "Q"}, http.StatusCreated, &q)

	var a, b model.Note
	env.do(t, "POST", "/api/plant-note", token, map[string]any{
		"plantIds": []string{p.ID}, "note": "only P", "date": "05/05/2015",
	}, http.StatusCreated, &a)
	env.do(t, "POST", "/api/plant-note", token, map[string]any{
		"plantIds": []string{p.ID, q.ID}, "note": "P and Q",
	}, http.StatusCreated, &b)

	var res cascade.PlantResult
	env.do(t, "DELETE", "/api/plant/"+p.ID, token, nil, http.StatusOK, &res)
	if !res.Found || !res.Deleted {
		t.Fatalf("expected plant found and deleted, got %+v", res)
	}
	if len(res.DeletedNoteIDs) != 1 || res.DeletedNoteIDs[0] != a.ID {
		t.Errorf("expected note A deleted, got %v", res.DeletedNoteIDs)
	}

	var notes []model.Note
	env.do(t, "GET", "/api/notes/"+userID, token, nil, http.StatusOK, &notes)
	if len(notes) != 1 || notes[0].ID != b.ID {
		t.Fatalf("expected only note B left, got %+v", notes)
	}
	if len(notes[0].PlantIDs) != 1 || notes[0].PlantIDs[0] != q.ID {
		t.Errorf("expected note B to reference only Q, got %v", notes[0].PlantIDs)
	}

	// Deleting again is a no-op.
	env.do(t, "DELETE", "/api/plant/"+p.ID, token, nil, http.StatusOK, &res)
	if res.Found {
		t.Error("expected found=false for an already deleted plant")
	}
}

func TestNoteValidation(t *testing.T) {
	env := setupTestServer(t)
	aliceToken, _ := env.register(t, "alice")
	bobToken, _ := env.register(t, "bob")

	var plant model.Plant
	env.do(t, "POST", "/api/plant", aliceToken, map[string]any{"title": "Fern"}, http.StatusCreated, &plant)

	env.do(t, "POST", "/api/plant-note", aliceToken, map[string]any{"note": "no plants"}, http.StatusBadRequest, nil)
	env.do(t, "POST", "/api/plant-note", aliceToken, map[string]any{"plantIds": []string{plant.ID}}, http.StatusBadRequest, nil)
	env.do(t, "POST", "/api/plant-note", bobToken, map[string]any{
		"plantIds": []string{plant.ID}, "note": "not mine",
	}, http.StatusBadRequest, nil)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 6))
	for x := 0; x < 8; x++ {
		for y := 0; y < 6; y++ {
			img.Set(x, y, color.NRGBA{0, 128, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUploadNotePhoto(t *testing.T) {
	env := setupTestServer(t)
	token, _ := env.register(t, "alice")

	var plant model.Plant
	env.do(t, "POST", "/api/plant", token, map[string]any{"title": "Fern"}, http.StatusCreated, &plant)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	noteJSON, _ := json.Marshal(map[string]any{"plantIds": []string{plant.ID}, "date": "05/05/2015"})
	mw.WriteField("note", string(noteJSON))
	part, _ := mw.CreateFormFile("file", "fern.png")
	part.Write(testPNG(t))
	mw.Close()

	req, _ := http.NewRequest("POST", env.server.URL+"/api/upload", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var note model.Note
	json.NewDecoder(resp.Body).Decode(&note)
	if len(note.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(note.Images))
	}
	if note.Images[0].Width != 8 || note.Images[0].Height != 6 {
		t.Errorf("expected 8x6, got %dx%d", note.Images[0].Width, note.Images[0].Height)
	}

	req, _ = authRequest("GET", env.server.URL+"/api/image/"+note.Images[0].ID, token, nil)
	imgResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for image, got %d", imgResp.StatusCode)
	}
	if ct := imgResp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", ct)
	}
}

func TestLocationDeleteConflict(t *testing.T) {
	env := setupTestServer(t)
	token, userID := env.register(t, "alice")

	var loc model.Location
	env.do(t, "POST", "/api/location", token, map[string]any{"title": "Balcony"}, http.StatusCreated, &loc)

	var plant model.Plant
	env.do(t, "POST", "/api/plant", token, map[string]any{"title": "Geranium", "locationId": loc.ID}, http.StatusCreated, &plant)
	env.do(t, "DELETE", "/api/location/"+loc.ID, token, nil, http.StatusConflict, nil)

	// Moving the plant away frees the location.
	env.do(t, "PUT", "/api/plant/"+plant.ID, token, map[string]any{"title": "Geranium"}, http.StatusOK, nil)
	env.do(t, "DELETE", "/api/location/"+loc.ID, token, nil, http.StatusOK, nil)

	var locations []model.Location
	env.do(t, "GET", "/api/locations/"+userID, token, nil, http.StatusOK, &locations)
	if len(locations) != 0 {
		t.Errorf("expected no locations, got %d", len(locations))
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)
	token, userID := env.register(t, "alice")

	env.do(t, "POST", "/api/auth/logout", token, nil, http.StatusOK, nil)
	env.do(t, "GET", "/api/user/"+userID, token, nil, http.StatusUnauthorized, nil)
}

func TestDeleteOwnAccount(t *testing.T) {
	env := setupTestServer(t)
	token, userID := env.register(t, "alice")
	env.do(t, "POST", "/api/plant", token, map[string]any{"title": "Rose"}, http.StatusCreated, nil)

	var res cascade.UserResult
	env.do(t, "DELETE", "/api/user/"+userID, token, nil, http.StatusOK, &res)
	if !res.Deleted || len(res.DeletedPlantIDs) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "correct horse"})
	resp, _ := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after account deletion, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	resp, _ := http.Get(env.server.URL + "/api/plants/anyone")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)
	token, userID := env.register(t, "user1")

	env.do(t, "GET", "/api/users", token, nil, http.StatusForbidden, nil)
	env.do(t, "PUT", "/api/user/"+userID, token, map[string]string{"role": model.RoleAdmin}, http.StatusForbidden, nil)

	adminToken, _ := env.login(t, "admin", "password")
	var users []model.User
	env.do(t, "GET", "/api/users", adminToken, nil, http.StatusOK, &users)
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}
}
