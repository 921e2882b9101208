// internal/service/games.go
//
// Operations exposed to the transport layer: create, list, get, guess,
// delete. Combines the pure game engine with a Store.
//
// Guess is the only transition function of the state machine:
//   1. load game + guesses (owner-scoped)   -> game.ErrNotFound
//   2. normalize the letter                 -> game.ErrInvalidInput
//   3. refuse if status is not in_progress  -> game.ErrGameOver
//   4. Store.AppendGuess                    -> game.ErrDuplicateGuess
//   5. recompute and return the view
//
// Storage failures pass through as *game.StorageError; nothing is retried.

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
)

// WordSource supplies the secret word for a new game.
type WordSource func() string

// Games bundles the store and the word source.
type Games struct {
	store store.Store
	words WordSource
}

// NewGames constructs the game service.
func NewGames(st store.Store, words WordSource) *Games {
	return &Games{store: st, words: words}
}

// Create starts a new game for ownerID with a word from the word source.
func (s *Games) Create(ctx context.Context, ownerID string) (*game.View, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	word, err := game.ValidateWord(s.words())
	if err != nil {
		return nil, fmt.Errorf("word source: %w", err)
	}
	g, err := s.store.CreateGame(ctx, ownerID, word)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("gameId", g.ID).Str("owner", ownerID).Msg("game created")
	v := game.NewView(g, nil)
	return &v, nil
}

// List returns the owner's game summaries, most recently updated first.
func (s *Games) List(ctx context.Context, ownerID string) ([]game.GameSummary, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListGames(ctx, ownerID)
}

// Get returns the player view of one game.
func (s *Games) Get(ctx context.Context, id, ownerID string) (*game.View, error) {
	g, guesses, err := s.load(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	v := game.NewView(g, guesses)
	return &v, nil
}

// Guess submits one letter to a game.
func (s *Games) Guess(ctx context.Context, id, ownerID, input string) (*game.View, error) {
	g, guesses, err := s.load(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	letter, err := game.NormalizeLetter(input)
	if err != nil {
		return nil, err
	}

	// Not atomic with the append below; concurrent letters can overshoot
	// MaxGuesses, and the derived status still reads lost.
	if !game.CanAcceptGuess(g.Word, game.Letters(guesses)) {
		return nil, game.ErrGameOver
	}

	gs, err := s.store.AppendGuess(ctx, g.ID, letter)
	switch {
	case errors.Is(err, store.ErrAlreadyGuessed):
		return nil, fmt.Errorf("%w: %q", game.ErrDuplicateGuess, letter)
	case err != nil:
		// ErrNotFound here means the game was deleted between load and append.
		return nil, err
	}

	guesses = append(guesses, *gs)
	g.UpdatedAt = gs.CreatedAt
	v := game.NewView(g, guesses)

	ev := log.Debug().Str("gameId", g.ID).Str("owner", ownerID).Str("letter", letter).Int("remaining", v.Remaining)
	if v.Status.Finished() {
		ev.Str("status", string(v.Status)).Msg("game finished")
	} else {
		ev.Msg("guess accepted")
	}
	return &v, nil
}

// Delete removes a game. Missing or unowned games are a silent no-op.
func (s *Games) Delete(ctx context.Context, id, ownerID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.store.DeleteGame(ctx, id, ownerID); err != nil {
		return err
	}
	log.Debug().Str("gameId", id).Str("owner", ownerID).Msg("game delete")
	return nil
}

// load fetches a game and its guesses, scoped to ownerID.
func (s *Games) load(ctx context.Context, id, ownerID string) (*game.Game, []game.Guess, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, nil, err
	}
	g, err := s.store.GetGame(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}
	guesses, err := s.store.ListGuesses(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	return g, guesses, nil
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: missing owner", game.ErrInvalidInput)
	}
	return nil
}
