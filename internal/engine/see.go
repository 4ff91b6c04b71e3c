package engine

import "github.com/raaidrt/timecat/internal/board"

// Static exchange evaluation. The exchange on a square is resolved by
// always recapturing with the least valuable attacker:
//
//	see(sq)        = max(0, value(captured) - see(sq, after capture))
//	seeCapture(sq) =        value(captured) - see(sq, after capture)
//
// The outer max lets the defender decline a losing recapture; the
// initial capture cannot be declined, so SeeCapture omits it. Because
// every step removes a piece from the board, the recursion is finite and
// non-increasing along the capture chain.

// See returns the defender-optimal exchange value on sq for the side to
// move, never below zero.
func See(pos *board.Position, sq board.Square) int {
	m, ok := leastAttackerCapture(pos, sq)
	if !ok {
		return 0
	}
	gain := capturedValue(pos, sq) - seeAfter(pos, m, sq)
	if gain < 0 {
		return 0
	}
	return gain
}

// SeeCapture returns the net material swing of opening the exchange on
// sq, negative when the capture loses material.
func SeeCapture(pos *board.Position, sq board.Square) int {
	m, ok := leastAttackerCapture(pos, sq)
	if !ok {
		return 0
	}
	return capturedValue(pos, sq) - seeAfter(pos, m, sq)
}

func seeAfter(pos *board.Position, m board.Move, sq board.Square) int {
	undo := pos.MakeMove(m)
	value := See(pos, sq)
	pos.UnmakeMove(m, undo)
	return value
}

func capturedValue(pos *board.Position, sq board.Square) int {
	piece := pos.PieceAt(sq)
	if piece == board.NoPiece {
		// The en passant victim is not on the target square.
		return PawnValue
	}
	return piece.Value()
}

// leastAttackerCapture returns the legal capture onto sq made by the
// side to move's least valuable attacker.
func leastAttackerCapture(pos *board.Position, sq board.Square) (board.Move, bool) {
	var ml board.MoveList
	pos.GenerateLegalCaptures(&ml)

	best := board.NoMove
	bestValue := 0
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if m.To() != sq {
			continue
		}
		value := pos.PieceAt(m.From()).Value()
		if best == board.NoMove || value < bestValue {
			best = m
			bestValue = value
		}
	}
	return best, best != board.NoMove
}
