// internal/game/types.go
//
// Core type definitions for the hangman game engine.
// Defines:
//   - Status: derived state of a game (in_progress/won/lost).
//   - Game: the persisted record for a single play-through.
//   - Guess: one submitted letter, child of a Game.
//   - GameSummary: list-view projection that never carries word data.
//   - View: the player-facing projection (reveal, remaining, status).

package game

import "time"

// MaxGuesses is the guess budget for every game.
const MaxGuesses = 10

// Status represents the derived state of a game. It is never persisted.
// Possible values:
//   - "in_progress": guesses are still accepted.
//   - "won":         every distinct letter of the word has been guessed.
//   - "lost":        the guess budget is spent without a win.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

// Finished reports whether the status is terminal.
func (s Status) Finished() bool { return s == StatusWon || s == StatusLost }

// Game holds the persisted state of a single hangman game.
// Progress lives in the child Guess collection, not on this record.
type Game struct {
	ID        string    // Opaque identifier assigned by the store.
	OwnerID   string    // User that created the game.
	Word      string    // Secret word (lowercase). Never leaves the core raw.
	CreatedAt time.Time // Set once on creation.
	UpdatedAt time.Time // Advances on every accepted guess.
}

// Guess is a single letter submitted for a game.
type Guess struct {
	GameID    string    `json:"-"`
	Letter    string    `json:"letter"`
	CreatedAt time.Time `json:"createdAt"`
}

// GameSummary is the list-view shape of a game.
type GameSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// View is what callers get back for a single game.
// Reveal has one entry per rune of the word; un-guessed positions are "".
type View struct {
	ID        string    `json:"id"`
	Reveal    []string  `json:"reveal"`
	Guesses   []string  `json:"guesses"`
	Remaining int       `json:"remaining"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
