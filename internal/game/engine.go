// internal/game/engine.go
//
// Pure rules layer for a single hangman game.
// Responsibilities:
//   - Validate words on creation and letters on submission.
//   - Derive status (in_progress/won/lost) from word + guessed letters.
//   - Render the reveal (guessed positions shown, others blank).
//
// Notes:
//   - Nothing here touches storage; every function is deterministic given
//     its inputs, so status can always be recomputed instead of stored.
//   - Letters are compared case-folded (lowercase), rune by rune.
package game

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeLetter validates a single submitted letter and returns its
// canonical (lowercase) form. Surrounding whitespace is ignored.
func NormalizeLetter(input string) (string, error) {
	s := strings.TrimSpace(input)
	if utf8.RuneCountInString(s) != 1 {
		return "", fmt.Errorf("%w: guess must be exactly one letter", ErrInvalidInput)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return "", fmt.Errorf("%w: %q is not a letter", ErrInvalidInput, s)
	}
	return string(unicode.ToLower(r)), nil
}

// ValidateWord checks a secret word before a game is created and returns
// it lowercased. Words must be non-empty and letters only.
func ValidateWord(word string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return "", fmt.Errorf("%w: empty word", ErrInvalidInput)
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: word %q contains non-letters", ErrInvalidInput, w)
		}
	}
	return w, nil
}

// DeriveStatus computes the game status.
//
// Win is checked first: if every distinct letter of the word has been
// guessed the game is won, even when that guess also exhausts the budget.
// Otherwise the game is lost once MaxGuesses distinct letters are used.
func DeriveStatus(word string, guessed []string) Status {
	set := letterSet(guessed)
	won := true
	for _, r := range strings.ToLower(word) {
		if _, ok := set[string(r)]; !ok {
			won = false
			break
		}
	}
	switch {
	case won:
		return StatusWon
	case len(set) >= MaxGuesses:
		return StatusLost
	default:
		return StatusInProgress
	}
}

// RemainingGuesses is informational only; it never gates acceptance.
func RemainingGuesses(guessed []string) int {
	n := MaxGuesses - len(letterSet(guessed))
	if n < 0 {
		return 0
	}
	return n
}

// CanAcceptGuess reports whether another guess may be submitted.
func CanAcceptGuess(word string, guessed []string) bool {
	return DeriveStatus(word, guessed) == StatusInProgress
}

// RevealWord returns one entry per rune of word: the letter when it has
// been guessed, "" otherwise. Every occurrence of a guessed letter is shown.
func RevealWord(word string, guessed []string) []string {
	set := letterSet(guessed)
	out := make([]string, 0, utf8.RuneCountInString(word))
	for _, r := range strings.ToLower(word) {
		if _, ok := set[string(r)]; ok {
			out = append(out, string(r))
		} else {
			out = append(out, "")
		}
	}
	return out
}

// NewView builds the player-facing projection of g.
// This is the only place the word's content is turned into output.
func NewView(g *Game, guesses []Guess) View {
	letters := Letters(guesses)
	return View{
		ID:        g.ID,
		Reveal:    RevealWord(g.Word, letters),
		Guesses:   letters,
		Remaining: RemainingGuesses(letters),
		Status:    DeriveStatus(g.Word, letters),
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

// Letters extracts the letters of guesses, preserving order.
func Letters(guesses []Guess) []string {
	out := make([]string, 0, len(guesses))
	for _, g := range guesses {
		out = append(out, g.Letter)
	}
	return out
}

// letterSet folds guessed letters into a lookup set.
func letterSet(guessed []string) map[string]struct{} {
	m := make(map[string]struct{}, len(guessed))
	for _, l := range guessed {
		m[strings.ToLower(l)] = struct{}{}
	}
	return m
}
