package board

// GenerateLegalMoves fills ml with every legal move in the position.
func (p *Position) GenerateLegalMoves(ml *MoveList) {
	var pseudo MoveList
	p.generateAll(&pseudo)
	ml.count = 0
	for i := 0; i < pseudo.Len(); i++ {
		if p.IsLegal(pseudo.Get(i)) {
			ml.Add(pseudo.Get(i))
		}
	}
}

// GenerateLegalCaptures fills ml with every legal capture (and queening
// push, which quiescence treats like a capture).
func (p *Position) GenerateLegalCaptures(ml *MoveList) {
	var pseudo MoveList
	p.generateCaptures(&pseudo)
	ml.count = 0
	for i := 0; i < pseudo.Len(); i++ {
		if p.IsLegal(pseudo.Get(i)) {
			ml.Add(pseudo.Get(i))
		}
	}
}

// LegalMoves is a convenience wrapper returning a fresh list.
func (p *Position) LegalMoves() *MoveList {
	ml := &MoveList{}
	p.GenerateLegalMoves(ml)
	return ml
}

// CountLegalMoves returns the number of legal moves without keeping them.
func (p *Position) CountLegalMoves() int {
	var ml MoveList
	p.GenerateLegalMoves(&ml)
	return ml.Len()
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	var pseudo MoveList
	p.generateAll(&pseudo)
	for i := 0; i < pseudo.Len(); i++ {
		if p.IsLegal(pseudo.Get(i)) {
			return true
		}
	}
	return false
}

// IsLegal reports whether m does not leave the mover's king in check.
// m must be pseudo-legal for the current position.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	from := m.From()
	ksq := p.KingSquare[us]

	if from == ksq {
		if m.IsCastling() {
			// Transit squares were vetted during generation.
			return true
		}
		// Slide the king out of the occupancy so x-rays through its old
		// square are seen.
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(m.To(), them, occ) == 0
	}

	undo := p.MakeMove(m)
	attacked := p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(m, undo)
	return !attacked
}

// generateAll produces all pseudo-legal moves.
func (p *Position) generateAll(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	enemies := p.Occupied[us.Other()]

	p.generatePawnMoves(ml, us, enemies, occupied)

	for _, pt := range [4]PieceType{Knight, Bishop, Rook, Queen} {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := p.pieceAttacks(pt, from, occupied) &^ p.Occupied[us]
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	from := p.KingSquare[us]
	attacks := KingAttacks(from) &^ p.Occupied[us]
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}

	p.generateCastling(ml, us)
}

func (p *Position) pieceAttacks(pt PieceType, sq Square, occupied Bitboard) Bitboard {
	switch pt {
	case Knight:
		return KnightAttacks(sq)
	case Bishop:
		return BishopAttacks(sq, occupied)
	case Rook:
		return RookAttacks(sq, occupied)
	default:
		return QueenAttacks(sq, occupied)
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var push1, push2, attackL, attackR, promoRank Bitboard
	var forward int
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promoRank = Rank8
		forward = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promoRank = Rank1
		forward = -8
	}

	addTargets := func(targets Bitboard, delta int, promotions bool) {
		for targets != 0 {
			to := targets.PopLSB()
			from := Square(int(to) - delta)
			if promotions {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}

	addTargets(push1&^promoRank, forward, false)
	addTargets(push2, 2*forward, false)
	addTargets(attackL&^promoRank, forward-1, false)
	addTargets(attackR&^promoRank, forward+1, false)
	addTargets(push1&promoRank, forward, true)
	addTargets(attackL&promoRank, forward-1, true)
	addTargets(attackR&promoRank, forward+1, true)

	if p.EnPassant != NoSquare {
		for attackers := pawnAttacks[us.Other()][p.EnPassant] & pawns; attackers != 0; {
			ml.Add(NewEnPassant(attackers.PopLSB(), p.EnPassant))
		}
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

func (p *Position) generateCastling(ml *MoveList, us Color) {
	them := us.Other()
	rank := us.BackRank()
	kingFrom := NewSquare(4, rank)

	kingSide := WhiteKingSideCastle
	queenSide := WhiteQueenSideCastle
	if us == Black {
		kingSide = BlackKingSideCastle
		queenSide = BlackQueenSideCastle
	}

	if p.CastlingRights&kingSide != 0 {
		f, g := NewSquare(5, rank), NewSquare(6, rank)
		if p.AllOccupied&(SquareBB(f)|SquareBB(g)) == 0 &&
			!p.IsSquareAttacked(kingFrom, them) &&
			!p.IsSquareAttacked(f, them) &&
			!p.IsSquareAttacked(g, them) {
			ml.Add(NewCastling(kingFrom, g))
		}
	}
	if p.CastlingRights&queenSide != 0 {
		b, c, d := NewSquare(1, rank), NewSquare(2, rank), NewSquare(3, rank)
		if p.AllOccupied&(SquareBB(b)|SquareBB(c)|SquareBB(d)) == 0 &&
			!p.IsSquareAttacked(kingFrom, them) &&
			!p.IsSquareAttacked(d, them) &&
			!p.IsSquareAttacked(c, them) {
			ml.Add(NewCastling(kingFrom, c))
		}
	}
}

// generateCaptures produces pseudo-legal captures plus queening pushes.
func (p *Position) generateCaptures(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	enemies := p.Occupied[us.Other()]

	pawns := p.Pieces[us][Pawn]
	var attackL, attackR, promoRank, promoPush Bitboard
	var forward int
	if us == White {
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promoRank = Rank8
		promoPush = pawns.North() & ^occupied & Rank8
		forward = 8
	} else {
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promoRank = Rank1
		promoPush = pawns.South() & ^occupied & Rank1
		forward = -8
	}

	addTargets := func(targets Bitboard, delta int, promotions bool) {
		for targets != 0 {
			to := targets.PopLSB()
			from := Square(int(to) - delta)
			if promotions {
				addPromotions(ml, from, to)
			} else {
				ml.Add(NewMove(from, to))
			}
		}
	}

	addTargets(attackL&^promoRank, forward-1, false)
	addTargets(attackR&^promoRank, forward+1, false)
	addTargets(attackL&promoRank, forward-1, true)
	addTargets(attackR&promoRank, forward+1, true)
	addTargets(promoPush, forward, true)

	if p.EnPassant != NoSquare {
		for attackers := pawnAttacks[us.Other()][p.EnPassant] & pawns; attackers != 0; {
			ml.Add(NewEnPassant(attackers.PopLSB(), p.EnPassant))
		}
	}

	for _, pt := range [4]PieceType{Knight, Bishop, Rook, Queen} {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			attacks := p.pieceAttacks(pt, from, occupied) & enemies
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB()))
			}
		}
	}

	from := p.KingSquare[us]
	attacks := KingAttacks(from) & enemies
	for attacks != 0 {
		ml.Add(NewMove(from, attacks.PopLSB()))
	}
}

// IsCheckmate reports whether the side to move is mated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move has no move but is not in
// check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && !p.HasLegalMoves()
}

// IsInsufficientMaterial reports whether neither side can possibly mate.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 ||
		p.Pieces[White][Rook]|p.Pieces[Black][Rook] != 0 ||
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}
	wMinor := (p.Pieces[White][Knight] | p.Pieces[White][Bishop]).PopCount()
	bMinor := (p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]).PopCount()
	return (wMinor <= 1 && bMinor == 0) || (bMinor <= 1 && wMinor == 0)
}
