// Package engine implements the search core: transposition table, move
// ordering, static exchange evaluation, the alpha-beta search kernel and
// the iterative deepening driver.
package engine

import "github.com/raaidrt/timecat/internal/board"

// Search limits and score encoding.
const (
	// MaxPly bounds the search stack depth.
	MaxPly = 255

	// CheckmateScore is the score of delivering mate at the root.
	// A mate in n plies from the root scores CheckmateScore - n.
	CheckmateScore = 25_000

	// CheckmateThreshold separates mate scores from evaluation scores.
	CheckmateThreshold = CheckmateScore - MaxPly - 1

	// Infinity exceeds every reachable score.
	Infinity = CheckmateScore + 4*MaxPly
)

// Piece values in centipawns, aliased from the board tables.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

// DrawScore is the score of a drawn position from either perspective.
const DrawScore = 0

// RepetitionThreshold is the margin below which the root accepts a
// claimable repetition: only when losing by at least half a pawn.
const RepetitionThreshold = PawnValue / 2

// AspirationWindowCutoff is the half-width of the aspiration window, and
// MateAspirationCutoff the tighter half-width used near mate scores.
const (
	AspirationWindowCutoff = PawnValue / 2
	MateAspirationCutoff   = 5
)

// WinningScoreThreshold is the material edge beyond which a position is
// treated as easily winning for move ordering (king-chase scoring).
const WinningScoreThreshold = 15 * PawnValue

// MateIn returns the score of delivering mate at the given ply.
func MateIn(ply int) int {
	return CheckmateScore - ply
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	if score < 0 {
		score = -score
	}
	return score > CheckmateThreshold
}

// MateDistance returns the number of full moves until mate for a mate
// score, positive when the side to move mates.
func MateDistance(score int) int {
	if score > 0 {
		return (CheckmateScore - score + 1) / 2
	}
	return -(CheckmateScore + score + 1) / 2
}

// pieceValue returns the material value of a piece type.
func pieceValue(pt board.PieceType) int {
	return board.PieceValue[pt]
}
