package board

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Walking a deterministic game, make followed by unmake must restore
// the position exactly, including the incremental hash, and the
// incremental hash must always match a from-scratch recomputation.
func TestMakeUnmakeRestoresPosition(t *testing.T) {
	pos := NewPosition()

	type frame struct {
		snapshot Position
		move     Move
		undo     UndoInfo
	}
	var frames []frame

	for step := 0; step < 60; step++ {
		var ml MoveList
		pos.GenerateLegalMoves(&ml)
		if ml.Len() == 0 {
			break
		}
		m := ml.Get(step * 7 % ml.Len())

		frames = append(frames, frame{snapshot: *pos, move: m})
		frames[len(frames)-1].undo = pos.MakeMove(m)

		assert.Equal(t, pos.ComputeHash(), pos.Hash, "incremental hash diverged after %s", m)
	}

	for i := len(frames) - 1; i >= 0; i-- {
		pos.UnmakeMove(frames[i].move, frames[i].undo)
		assert.Equal(t, frames[i].snapshot, *pos, "unmake of %s did not restore the position", frames[i].move)
	}
}

func TestHashMatchesRecomputation(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		assert.NoError(t, err)
		assert.Equal(t, pos.ComputeHash(), pos.Hash, "fen %s", fen)
	}
}

// Moving the a1 rook clears white's queenside right and changes the
// hash; unmake restores both.
func TestCastlingRightsRevocation(t *testing.T) {
	pos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	assert.NoError(t, err)

	hashBefore := pos.Hash
	rightsBefore := pos.CastlingRights
	m := NewMove(A1, A2)
	undo := pos.MakeMove(m)

	assert.Zero(t, pos.CastlingRights&WhiteQueenSideCastle, "queenside right must be revoked")
	assert.NotZero(t, pos.CastlingRights&WhiteKingSideCastle, "kingside right must survive")
	assert.NotEqual(t, hashBefore, pos.Hash)
	assert.Equal(t, pos.ComputeHash(), pos.Hash)

	pos.UnmakeMove(m, undo)
	assert.Equal(t, rightsBefore, pos.CastlingRights)
	assert.Equal(t, hashBefore, pos.Hash)
}

// From the en passant position, exf6 is legal, generated, and removes
// the f5 pawn.
func TestEnPassantCapture(t *testing.T) {
	pos, err := ParseFEN("rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	assert.NoError(t, err)

	m, err := ParseMove("e5f6", pos)
	assert.NoError(t, err)
	assert.True(t, m.IsEnPassant())

	var ml MoveList
	pos.GenerateLegalMoves(&ml)
	assert.True(t, ml.Contains(m), "exf6 must be generated")

	undo := pos.MakeMove(m)
	assert.Equal(t, NoPiece, pos.PieceAt(F5), "the f5 pawn must be gone")
	assert.Equal(t, WhitePawn, pos.PieceAt(F6))
	pos.UnmakeMove(m, undo)
	assert.Equal(t, BlackPawn, pos.PieceAt(F5))
}

func TestStalemateDetection(t *testing.T) {
	pos, err := ParseFEN("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	assert.NoError(t, err)
	assert.False(t, pos.InCheck())
	assert.Equal(t, 0, pos.CountLegalMoves())
	assert.True(t, pos.IsStalemate())
	assert.False(t, pos.IsCheckmate())
}

func TestCheckmateDetection(t *testing.T) {
	pos, err := ParseFEN("R5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1")
	assert.NoError(t, err)
	assert.True(t, pos.InCheck())
	assert.True(t, pos.IsCheckmate())
}

func TestNullMoveInCheck(t *testing.T) {
	pos, err := ParseFEN("R5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1")
	assert.NoError(t, err)
	_, err = pos.MakeNullMove()
	assert.True(t, errors.Is(err, ErrNullMoveInCheck))
}

func TestNullMoveRoundTrip(t *testing.T) {
	pos, err := ParseFEN("rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	assert.NoError(t, err)

	before := *pos
	undo, err := pos.MakeNullMove()
	assert.NoError(t, err)
	assert.Equal(t, Black, pos.SideToMove)
	assert.Equal(t, NoSquare, pos.EnPassant, "null move clears the EP target")
	assert.Equal(t, pos.ComputeHash(), pos.Hash)

	pos.UnmakeNullMove(undo)
	assert.Equal(t, before, *pos)
}

func TestIsIrreversible(t *testing.T) {
	pos := NewPosition()
	assert.True(t, pos.IsIrreversible(NewMove(E2, E4)), "pawn move")
	assert.False(t, pos.IsIrreversible(NewMove(G1, F3)), "quiet knight move")

	rookPos, err := ParseFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	assert.NoError(t, err)
	assert.True(t, rookPos.IsIrreversible(NewMove(A1, A2)), "rook move losing rights")
	assert.True(t, rookPos.IsIrreversible(NewCastling(E1, G1)), "castling")
	assert.True(t, rookPos.IsIrreversible(NewMove(A1, A8)), "rook capture")
}

func TestEndgameAndMaterial(t *testing.T) {
	pos := NewPosition()
	assert.Equal(t, 0, pos.Material())
	assert.False(t, pos.IsEndgame())

	kq, err := ParseFEN("6k1/8/8/8/8/8/8/Q5K1 w - - 0 1")
	assert.NoError(t, err)
	assert.Equal(t, 900, kq.Material())
	assert.True(t, kq.IsEndgame())
	assert.True(t, kq.HasNonPawnMaterial())

	kp, err := ParseFEN("6k1/8/8/8/8/8/4P3/6K1 w - - 0 1")
	assert.NoError(t, err)
	assert.False(t, kp.HasNonPawnMaterial())
}

func TestIsPassedPawn(t *testing.T) {
	pos, err := ParseFEN("6k1/8/8/8/2p5/8/4P3/6K1 w - - 0 1")
	assert.NoError(t, err)
	assert.True(t, pos.IsPassedPawn(E2), "e2 has no opposing pawn ahead on d, e or f")

	blocked, err := ParseFEN("6k1/4p3/8/8/8/8/4P3/6K1 w - - 0 1")
	assert.NoError(t, err)
	assert.False(t, blocked.IsPassedPawn(E2))
}

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 3 17",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		assert.NoError(t, err)
		assert.Equal(t, fen, pos.ToFEN())
	}
}

func TestParseFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNZ w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq zz 0 1",
	}
	for _, fen := range bad {
		_, err := ParseFEN(fen)
		assert.Error(t, err, "fen %q", fen)
	}
}

func TestParseMove(t *testing.T) {
	pos := NewPosition()

	m, err := ParseMove("e2e4", pos)
	assert.NoError(t, err)
	assert.Equal(t, E2, m.From())
	assert.Equal(t, E4, m.To())
	assert.Equal(t, "e2e4", m.String())

	_, err = ParseMove("e9e4", pos)
	assert.Error(t, err)
	_, err = ParseMove("e2", pos)
	assert.Error(t, err)
	_, err = ParseMove("e7e8x", pos)
	assert.Error(t, err)

	promo, err := ParseMove("e7e8q", pos)
	assert.NoError(t, err)
	assert.True(t, promo.IsPromotion())
	assert.Equal(t, Queen, promo.Promotion())
	assert.Equal(t, "e7e8q", promo.String())
}
