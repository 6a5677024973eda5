package cli

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/vrt/internal/api"
	"github.com/erazemk/vrt/internal/client"
	"github.com/erazemk/vrt/internal/db"
	"github.com/erazemk/vrt/internal/store"
)

type testEnv struct {
	server  *httptest.Server
	storage *client.MemoryStorage
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := store.NewSQLite(db.NewTestDB(t))
	server := httptest.NewServer(api.NewRouter(api.Options{Store: s, JWTSecret: "test-secret", AllowSignup: true}))
	t.Cleanup(server.Close)
	return &testEnv{server: server, storage: client.NewMemoryStorage(nil)}
}

// run executes one vrtctl invocation. Every call builds a fresh App so the
// session has to survive through storage, as it does between processes.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := NewApp(client.NewHTTPAdapter(e.server.URL), e.storage, nil)
	app.Timeout = 5 * time.Second

	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

// bracketID extracts the id from "Created ... [id]".
func bracketID(t *testing.T, out string) string {
	t.Helper()
	start := strings.LastIndex(out, "[")
	end := strings.LastIndex(out, "]")
	require.True(t, start >= 0 && end > start, "no id in %q", out)
	return out[start+1 : end]
}

func TestSessionLifecycle(t *testing.T) {
	e := setupTestEnv(t)

	_, err := e.run(t, "whoami")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	out := e.mustRun(t, "register", "ana", "--password", "secret123")
	assert.Contains(t, out, "Logged in as ana (user)")

	out = e.mustRun(t, "whoami")
	assert.Contains(t, out, "ana (user)")

	v, ok, _ := e.storage.GetItem(client.KeyUser)
	require.True(t, ok)
	assert.Contains(t, v, `"token"`)

	out = e.mustRun(t, "logout")
	assert.Contains(t, out, "Logged out.")

	_, err = e.run(t, "whoami")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = e.run(t, "login", "ana", "--password", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	out = e.mustRun(t, "login", "ana", "-p", "secret123")
	assert.Contains(t, out, "Logged in as ana")
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	e := setupTestEnv(t)
	e.mustRun(t, "register", "ana", "--password", "secret123")
	e.mustRun(t, "logout")

	app := NewApp(client.NewHTTPAdapter(e.server.URL), e.storage, nil)
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader("secret123\n"))
	root.SetArgs([]string{"login", "ana"})
	require.NoError(t, root.Execute(), buf.String())
	assert.Contains(t, buf.String(), "Logged in as ana")
}

func TestPlantsAndNotes(t *testing.T) {
	e := setupTestEnv(t)
	e.mustRun(t, "register", "ana", "--password", "secret123")

	out := e.mustRun(t, "location", "add", "Balcony", "--description", "south facing")
	locationID := bracketID(t, out)

	basil := bracketID(t, e.mustRun(t, "plant", "add", "Basil",
		"--botanical", "Ocimum basilicum", "--planted", "05/05/2015", "--location", locationID))
	mint := bracketID(t, e.mustRun(t, "plant", "add", "Mint"))

	out = e.mustRun(t, "plant", "list")
	assert.Contains(t, out, "Basil")
	assert.Contains(t, out, "Mint")
	assert.Contains(t, out, "05/05/2015")
	assert.Less(t, strings.Index(out, "Basil"), strings.Index(out, "Mint"))

	out = e.mustRun(t, "plant", "show", basil)
	assert.Contains(t, out, "Ocimum basilicum")
	assert.Contains(t, out, locationID)

	e.mustRun(t, "note", "add", "watered", "--plant", basil, "--date", "06/01/2015")
	e.mustRun(t, "note", "add", "both look good", "--plant", basil, "--plant", mint)

	out = e.mustRun(t, "note", "list", "--plant", mint)
	assert.Contains(t, out, "both look good")
	assert.NotContains(t, out, "watered")

	_, err := e.run(t, "location", "rm", locationID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	out = e.mustRun(t, "plant", "rm", basil)
	assert.Contains(t, out, "1 notes deleted, 1 notes kept")

	out = e.mustRun(t, "note", "list")
	assert.Contains(t, out, "both look good")
	assert.NotContains(t, out, "watered")
	assert.NotContains(t, out, basil)

	e.mustRun(t, "location", "rm", locationID)
	assert.Contains(t, e.mustRun(t, "location", "list"), "No locations found.")
}

func TestNoteWithPhoto(t *testing.T) {
	e := setupTestEnv(t)
	e.mustRun(t, "register", "ana", "--password", "secret123")
	plant := bracketID(t, e.mustRun(t, "plant", "add", "Fern"))

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := range 40 {
		img.Set(x, 10, color.RGBA{G: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "fern.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	out := e.mustRun(t, "note", "add", "--plant", plant, "--file", path)
	assert.Contains(t, out, "(1 images)")

	out = e.mustRun(t, "note", "list")
	assert.Contains(t, out, plant)
}

func TestValidationFailsWithoutRequest(t *testing.T) {
	e := setupTestEnv(t)
	e.mustRun(t, "register", "ana", "--password", "secret123")

	_, err := e.run(t, "plant", "add", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title is empty")

	_, err = e.run(t, "plant", "add", "Basil", "--planted", "2015.05.05")
	require.Error(t, err)
}

func TestDeleteAccount(t *testing.T) {
	e := setupTestEnv(t)
	e.mustRun(t, "register", "ana", "--password", "secret123")
	e.mustRun(t, "plant", "add", "Basil")

	_, err := e.run(t, "delete-account")
	require.Error(t, err)

	out := e.mustRun(t, "delete-account", "--yes")
	assert.Contains(t, out, "1 plants")

	_, err = e.run(t, "whoami")
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = e.run(t, "login", "ana", "-p", "secret123")
	assert.Error(t, err)
}

func TestRequestTimesOut(t *testing.T) {
	app := NewApp(stalledAdapter{}, client.NewMemoryStorage(nil), nil)
	app.Timeout = 50 * time.Millisecond

	_, err := app.Request(t.Context(), client.Action{Type: client.LoadPlantRequest, Payload: "p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response")
}

type stalledAdapter struct{}

func (stalledAdapter) Do(client.Request) {}
