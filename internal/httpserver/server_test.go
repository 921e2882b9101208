package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/robalobadob/hangman/apps/go-server/assets"
	"github.com/robalobadob/hangman/apps/go-server/internal/config"
	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/service"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
	"github.com/robalobadob/hangman/apps/go-server/internal/users"
)

func newTestServer(t *testing.T, word string) *Server {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	games := service.NewGames(store.NewMemoryStore(), func() string { return word })
	cfg := config.Config{
		JWTSecret:      "test-secret",
		JWTExpiresDays: 1,
		CookieName:     "hangman_token",
		ClientOrigin:   "http://localhost:5173",
	}
	return New(games, users.NewRepo(db), cfg)
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns the token from the auth cookie.
func signup(t *testing.T, s *Server, username string) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/auth/signup", "", credentialsReq{Username: username, Password: "password123"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: %d %s", username, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "hangman_token" && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("signup did not set auth cookie")
	return ""
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) game.View {
	t.Helper()
	var v game.View
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode view: %v (%s)", err, rec.Body.String())
	}
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	return body["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "cat")
	rec := do(t, s, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
}

func TestGamesRequireAuth(t *testing.T) {
	s := newTestServer(t, "cat")
	if rec := do(t, s, http.MethodGet, "/games", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/games", "garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, "cat")
	signup(t, s, "alice")

	rec := do(t, s, http.MethodPost, "/auth/login", "", credentialsReq{Username: "alice", Password: "password123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodPost, "/auth/login", "", credentialsReq{Username: "alice", Password: "wrongpassword"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/auth/signup", "", credentialsReq{Username: "ALICE", Password: "password123"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate signup = %d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	s := newTestServer(t, "cat")
	tok := signup(t, s, "alice")
	rec := do(t, s, http.MethodGet, "/auth/me", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d", rec.Code)
	}
	var me authUser
	_ = json.NewDecoder(rec.Body).Decode(&me)
	if me.Username != "alice" || me.ID == "" {
		t.Fatalf("me = %+v", me)
	}
}

func TestPlayToWin(t *testing.T) {
	s := newTestServer(t, "cat")
	tok := signup(t, s, "alice")

	rec := do(t, s, http.MethodPost, "/games", tok, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	created := decodeView(t, rec)
	if len(created.Reveal) != 3 || created.Remaining != game.MaxGuesses {
		t.Fatalf("created = %+v", created)
	}

	for _, l := range []string{"a", "c"} {
		rec = do(t, s, http.MethodPost, "/games/"+created.ID+"/guesses", tok, guessReq{Letter: l})
		if rec.Code != http.StatusOK {
			t.Fatalf("guess %q = %d %s", l, rec.Code, rec.Body.String())
		}
	}

	rec = do(t, s, http.MethodPost, "/games/"+created.ID+"/guesses", tok, guessReq{Letter: "A"})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "duplicate_guess" {
		t.Fatalf("duplicate = %d", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/games/"+created.ID+"/guesses", tok, guessReq{Letter: "t"})
	v := decodeView(t, rec)
	if v.Status != game.StatusWon {
		t.Fatalf("status = %s, want won", v.Status)
	}

	rec = do(t, s, http.MethodPost, "/games/"+created.ID+"/guesses", tok, guessReq{Letter: "z"})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "game_over" {
		t.Fatalf("after win = %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/games/"+created.ID, tok, nil)
	v = decodeView(t, rec)
	if len(v.Guesses) != 3 || v.Status != game.StatusWon {
		t.Fatalf("final view = %+v", v)
	}
}

func TestInvalidGuess(t *testing.T) {
	s := newTestServer(t, "cat")
	tok := signup(t, s, "alice")
	created := decodeView(t, do(t, s, http.MethodPost, "/games", tok, nil))

	rec := do(t, s, http.MethodPost, "/games/"+created.ID+"/guesses", tok, guessReq{Letter: "12"})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_input" {
		t.Fatalf("invalid = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/games/"+created.ID+"/guesses", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+tok)
	bad := httptest.NewRecorder()
	s.Router().ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d", bad.Code)
	}
}

func TestViewNeverContainsWord(t *testing.T) {
	s := newTestServer(t, "secretword")
	tok := signup(t, s, "alice")
	rec := do(t, s, http.MethodPost, "/games", tok, nil)
	if bytes.Contains(rec.Body.Bytes(), []byte("secretword")) {
		t.Fatalf("create response leaked word: %s", rec.Body.String())
	}
	rec = do(t, s, http.MethodGet, "/games", tok, nil)
	if bytes.Contains(rec.Body.Bytes(), []byte("secretword")) {
		t.Fatalf("list response leaked word: %s", rec.Body.String())
	}
}

func TestOtherUsersGamesLookMissing(t *testing.T) {
	s := newTestServer(t, "cat")
	alice := signup(t, s, "alice")
	bob := signup(t, s, "bob")

	created := decodeView(t, do(t, s, http.MethodPost, "/games", alice, nil))

	foreign := do(t, s, http.MethodGet, "/games/"+created.ID, bob, nil)
	missing := do(t, s, http.MethodGet, "/games/does-not-exist", bob, nil)
	if foreign.Code != http.StatusNotFound || missing.Code != http.StatusNotFound {
		t.Fatalf("foreign=%d missing=%d, want 404", foreign.Code, missing.Code)
	}
	if foreign.Body.String() != missing.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", foreign.Body.String(), missing.Body.String())
	}

	if rec := do(t, s, http.MethodPost, "/games/"+created.ID+"/guesses", bob, guessReq{Letter: "a"}); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign guess = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/games/"+created.ID, bob, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("foreign delete = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/games/"+created.ID, alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("game gone after foreign delete: %d", rec.Code)
	}

	var list []game.GameSummary
	_ = json.NewDecoder(do(t, s, http.MethodGet, "/games", bob, nil).Body).Decode(&list)
	if len(list) != 0 {
		t.Fatalf("bob sees %v", list)
	}
}

func TestDeleteGame(t *testing.T) {
	s := newTestServer(t, "cat")
	tok := signup(t, s, "alice")
	created := decodeView(t, do(t, s, http.MethodPost, "/games", tok, nil))

	if rec := do(t, s, http.MethodDelete, "/games/"+created.ID, tok, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/games/"+created.ID, tok, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/games/"+created.ID, tok, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("second delete = %d", rec.Code)
	}
}

func TestTokenForDeletedUserRejected(t *testing.T) {
	s := newTestServer(t, "cat")
	tok, _, err := s.signJWT("ghost", "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if rec := do(t, s, http.MethodGet, "/games", tok, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("ghost token = %d", rec.Code)
	}
}
