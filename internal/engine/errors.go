package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the driver's caller.
var (
	// ErrStackEmpty reports an unmake without a prior make. Inside the
	// search this is a programmer error; it is surfaced as a panic value.
	ErrStackEmpty = errors.New("move stack is empty")

	// ErrBestMoveNotFound reports that no iteration completed before the
	// search was stopped. The driver falls back to the first legal move.
	ErrBestMoveNotFound = errors.New("best move not found")

	// ErrInvalidConfig reports an option value outside its declared range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseError reports malformed input: a bad FEN, move string or go
// command.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

// IllegalMoveError reports an attempt to make a move that is not legal in
// the current position.
type IllegalMoveError struct {
	MoveText string
	FEN      string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s in position %s", e.MoveText, e.FEN)
}

// invalidConfigf wraps ErrInvalidConfig with a description.
func invalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}
