// internal/httpserver/server.go
//
// HTTP server wiring for the hangman backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     zerolog access logging).
//   - Public endpoints: "/", "/health", "/debug/words".
//   - Auth endpoints: /auth/signup, /auth/login, /auth/logout, /auth/me.
//   - Game endpoints (require auth), all scoped to the caller:
//       POST   /games                 create
//       GET    /games                 list summaries
//       GET    /games/{id}            view (reveal, remaining, status)
//       POST   /games/{id}/guesses    submit a letter
//       DELETE /games/{id}            delete (always 204)
//
// Notes:
//   - The authenticated user ID is the only identity passed to the game
//     service; the service never sees cookies or tokens.
//   - Domain errors map to 4xx, storage failures to 503.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/internal/config"
	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/service"
	"github.com/robalobadob/hangman/apps/go-server/internal/users"
	"github.com/robalobadob/hangman/apps/go-server/internal/words"
)

// Server bundles router, game service and user repository.
type Server struct {
	r     *chi.Mux
	games *service.Games
	users *users.Repo
	cfg   config.Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(games *service.Games, us *users.Repo, cfg config.Config) *Server {
	s := &Server{r: chi.NewRouter(), games: games, users: us, cfg: cfg}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger))     // request-scoped logger
	s.r.Use(accessLog)                       // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"hangman-go","endpoints":["/health","/auth/*","/games"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"words": words.Stats()})
	})

	s.mountAuthRoutes()

	s.r.Route("/games", func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Post("/", s.handleCreateGame)
		r.Get("/", s.handleListGames)
		r.Get("/{id}", s.handleGetGame)
		r.Post("/{id}/guesses", s.handleGuess)
		r.Delete("/{id}", s.handleDeleteGame)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one zerolog line per request.
var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("reqId", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
})

// ------------------------------ GAMES --------------------------------------

type guessReq struct {
	Letter string `json:"letter"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	v, err := s.games.Create(r.Context(), me.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	list, err := s.games.List(r.Context(), me.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	v, err := s.games.Get(r.Context(), chi.URLParam(r, "id"), me.ID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_json"})
		return
	}
	me := currentUser(r)
	v, err := s.games.Guess(r.Context(), chi.URLParam(r, "id"), me.ID, req.Letter)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	if err := s.games.Delete(r.Context(), chi.URLParam(r, "id"), me.ID); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ------------------------------- helpers -----------------------------------

// writeErr maps domain errors to status codes. Storage and unexpected
// errors are logged; their details never reach the client.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, game.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, game.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, game.ErrDuplicateGuess):
		status, code = http.StatusConflict, "duplicate_guess"
	case errors.Is(err, game.ErrGameOver):
		status, code = http.StatusConflict, "game_over"
	case game.IsStorage(err):
		status, code = http.StatusServiceUnavailable, "storage_unavailable"
	}
	if status >= 500 {
		hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, status, map[string]string{"error": code})
		return
	}
	writeJSON(w, status, map[string]string{"error": code, "message": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
