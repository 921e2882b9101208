package game

import "errors"

// Domain outcomes callers are expected to handle and surface without retry.
var (
	// ErrNotFound covers both "no such game" and "not yours".
	ErrNotFound       = errors.New("game not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDuplicateGuess = errors.New("letter already guessed")
	ErrGameOver       = errors.New("game already over")
)

// StorageError wraps a durability or connectivity failure from a store.
// It is the only error kind a caller may reasonably retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorage reports whether err is (or wraps) a *StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
