// internal/words/words.go
//
// Word source for new games.
//
// Responsibilities:
//   - Load the word list from a file (WORDS_FILE) or fall back to the
//     embedded default in the assets package.
//   - Supply RandomWord, used as the service's injected word source.
//
// Constraints:
//   • Words must be non-empty and letters only; other lines are skipped.
//   • Lists are normalized to lowercase.
//   • Initialization is run once (sync.Once).

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/assets"
)

// fallbackWord keeps the server playable if Init was never called.
const fallbackWord = "hangman"

var (
	initOnce   sync.Once
	list       []string
	initialErr error
)

// Init loads the word list exactly once.
// An empty path selects the embedded default list.
func Init(path string) error {
	initOnce.Do(func() {
		list, initialErr = load(path)
	})
	return initialErr
}

// load reads and filters a word list.
func load(path string) ([]string, error) {
	var (
		raw []string
		err error
	)
	if path != "" {
		raw, err = readWordFile(path)
	} else {
		raw, err = assets.WordList()
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.ToLower(strings.TrimSpace(w))
		if isWord(w) {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("words: word list is empty")
	}
	return out, nil
}

// readWordFile loads one word per line, skipping blanks and # comments.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// isWord reports whether w is non-empty and letters only.
func isWord(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// RandomWord returns a cryptographically random word from the loaded list.
func RandomWord() string {
	return pick(list)
}

func pick(from []string) string {
	return pickFrom(rand.Reader, from)
}

// pickFrom draws from src. If src fails, the first word is used and the
// failure is logged.
func pickFrom(src io.Reader, from []string) string {
	if len(from) == 0 {
		log.Warn().Msg("word list not loaded, using fallback word")
		return fallbackWord
	}
	n, err := rand.Int(src, big.NewInt(int64(len(from))))
	if err != nil {
		log.Error().Err(err).Msg("random source failed, using first word")
		return from[0]
	}
	return from[n.Int64()]
}

// Stats returns the number of loaded words.
func Stats() int { return len(list) }
