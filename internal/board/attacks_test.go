package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Magic-indexed sliding attacks must agree with the ray walkers for
// every square over a spread of occupancies.
func TestMagicAttacksMatchRayAttacks(t *testing.T) {
	rng := prng{state: 0xDEADBEEFCAFE1234}
	for sq := A1; sq <= H8; sq++ {
		// Empty and full boards, then random occupancies.
		occupancies := []Bitboard{0, Universe}
		for i := 0; i < 128; i++ {
			occupancies = append(occupancies, Bitboard(rng.next()&rng.next()))
		}
		for _, occ := range occupancies {
			assert.Equal(t, RookAttacksSlow(sq, occ), RookAttacks(sq, occ),
				"rook attacks differ on %s occ=%016x", sq, uint64(occ))
			assert.Equal(t, BishopAttacksSlow(sq, occ), BishopAttacks(sq, occ),
				"bishop attacks differ on %s occ=%016x", sq, uint64(occ))
			assert.Equal(t, RookAttacks(sq, occ)|BishopAttacks(sq, occ), QueenAttacks(sq, occ))
		}
	}
}

func TestKnightAttacks(t *testing.T) {
	assert.Equal(t, SquareBB(B3)|SquareBB(C2), KnightAttacks(A1))
	assert.Equal(t, 8, KnightAttacks(E4).PopCount())
	assert.Equal(t, 2, KnightAttacks(H8).PopCount())
}

func TestKingAttacks(t *testing.T) {
	assert.Equal(t, 3, KingAttacks(A1).PopCount())
	assert.Equal(t, 8, KingAttacks(E4).PopCount())
	assert.Equal(t, 5, KingAttacks(E1).PopCount())
}

func TestPawnAttacks(t *testing.T) {
	assert.Equal(t, SquareBB(D5)|SquareBB(F5), PawnAttacks(E4, White))
	assert.Equal(t, SquareBB(D3)|SquareBB(F3), PawnAttacks(E4, Black))
	assert.Equal(t, SquareBB(B3), PawnAttacks(A2, White), "no wraparound on the a-file")
}

func TestPawnPushes(t *testing.T) {
	assert.Equal(t, SquareBB(E3), PawnPushes(E2, White, Empty))
	assert.Equal(t, Empty, PawnPushes(E2, White, SquareBB(E3)))
	assert.Equal(t, SquareBB(E6), PawnPushes(E7, Black, Empty))
}

func TestBetweenAndLine(t *testing.T) {
	assert.Equal(t, SquareBB(B1)|SquareBB(C1)|SquareBB(D1)|SquareBB(E1)|SquareBB(F1)|SquareBB(G1), Between(A1, H1))
	assert.Equal(t, SquareBB(B2)|SquareBB(C3), Between(A1, D4))
	assert.Equal(t, Empty, Between(A1, B3), "unaligned squares have no between set")
	assert.True(t, Line(A1, H8).IsSet(D4))
	assert.Equal(t, 8, Line(A1, H8).PopCount())
}

func TestAttackersTo(t *testing.T) {
	pos, err := ParseFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	assert.NoError(t, err)

	// d5 pawn is attacked by the b6 knight and the e6 pawn.
	attackers := pos.AttackersByColor(D5, Black, pos.AllOccupied)
	assert.True(t, attackers.IsSet(B6))
	assert.True(t, attackers.IsSet(E6))

	// f6 is covered by the f3 queen down the open f-file.
	assert.True(t, pos.IsSquareAttacked(F6, White))
}
