package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raaidrt/timecat/internal/board"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func TestSeeUndefendedPawn(t *testing.T) {
	pos := mustFEN(t, "1k6/8/8/3p4/4P3/8/8/1K6 w - - 0 1")
	assert.Equal(t, PawnValue, SeeCapture(pos, board.D5))
	assert.Equal(t, PawnValue, See(pos, board.D5))
}

func TestSeeDefendedPawnEqualTrade(t *testing.T) {
	pos := mustFEN(t, "1k6/8/2p5/3p4/4P3/8/8/1K6 w - - 0 1")
	// exd5 cxd5 is an even pawn trade.
	assert.Equal(t, 0, SeeCapture(pos, board.D5))
}

func TestSeeRookTakesDefendedPawnLoses(t *testing.T) {
	pos := mustFEN(t, "1k6/8/2p5/3p4/8/8/3R4/1K6 w - - 0 1")
	// Rxd5 cxd5 drops a rook for a pawn.
	assert.Equal(t, PawnValue-RookValue, SeeCapture(pos, board.D5))
	// The clamped form never goes below zero: the side to move simply
	// declines the exchange.
	assert.Equal(t, 0, See(pos, board.D5))
}

func TestSeeNoAttacker(t *testing.T) {
	pos := mustFEN(t, "1k6/8/8/3p4/8/8/8/1K6 w - - 0 1")
	assert.Equal(t, 0, SeeCapture(pos, board.D5))
}

func TestSeeLeastAttackerFirst(t *testing.T) {
	// Both a pawn and a rook attack d5; the exchange must open with the
	// pawn, winning the piece outright.
	pos := mustFEN(t, "1k6/8/8/3n4/4P3/8/3R4/1K6 w - - 0 1")
	assert.Equal(t, KnightValue, SeeCapture(pos, board.D5))
}
