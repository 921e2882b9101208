// internal/store/store.go
//
// Persistence contract for hangman games and their guesses.
// Implementations in this package:
//   - memory: map-backed, process-local (dev/tests).
//   - sqlite: durable, shares the users database.
//   - redis:  shared across server instances; atomicity via Lua scripts.
//
// Contract every implementation upholds:
//   - Reads and deletes are owner-scoped; "missing" and "not yours" are the
//     same game.ErrNotFound (or a silent no-op for DeleteGame).
//   - AppendGuess is atomic per game: a case-folded letter is stored at most
//     once, the loser of a race gets ErrAlreadyGuessed and nothing is written.
//   - Every accepted guess advances the parent game's UpdatedAt.
//   - Durability/connectivity failures surface as *game.StorageError.

package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// ErrAlreadyGuessed is returned by AppendGuess when the letter is already
// recorded for the game. No write takes place.
var ErrAlreadyGuessed = errors.New("store: letter already guessed")

// Store defines the persistence interface for games and guesses.
type Store interface {
	// CreateGame persists a new game with zero guesses.
	CreateGame(ctx context.Context, ownerID, word string) (*game.Game, error)

	// GetGame returns the game only if it exists and is owned by ownerID.
	GetGame(ctx context.Context, id, ownerID string) (*game.Game, error)

	// ListGames returns the owner's games, most recently updated first.
	ListGames(ctx context.Context, ownerID string) ([]game.GameSummary, error)

	// DeleteGame removes the game and its guesses; missing/unowned is a no-op.
	DeleteGame(ctx context.Context, id, ownerID string) error

	// ListGuesses returns a game's guesses in insertion order.
	ListGuesses(ctx context.Context, gameID string) ([]game.Guess, error)

	// AppendGuess records letter for the game unless it is already present.
	AppendGuess(ctx context.Context, gameID, letter string) (*game.Guess, error)

	// Close releases underlying resources.
	Close() error
}

// newID allocates an opaque game identifier.
func newID() string { return uuid.NewString() }

// storageErr wraps a backend failure for callers.
func storageErr(op string, err error) error {
	return &game.StorageError{Op: op, Err: err}
}

// sortSummaries orders newest-updated first, then newest-created.
func sortSummaries(out []game.GameSummary) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
}

// clock is overridable in tests.
type clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
