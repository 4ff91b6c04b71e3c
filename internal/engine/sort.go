package engine

import "github.com/raaidrt/timecat/internal/board"

// NumKillerMoves is the number of quiet beta-cutoff moves remembered per
// ply.
const NumKillerMoves = 3

// Move ordering bands, highest searched first. The final weight is
// 1000*score + (MaxMovesPerPosition - generationIndex) so equal scores
// break ties by generation order deterministically.
const (
	pvMoveScore       = 129_000_000
	hashMoveScore     = 128_000_000
	captureScore      = 126_000_000
	killerScore       = 125_000_000
	kingChaseScore    = 124_000_000
	promotionScore    = 123_000_000
	passedPawnScore   = 122_000_000
	irreversibleScore = 121_000_000
	historyScore      = 120_000_000
	givesCheckScore   = -127_000_000
	ttCaptureScore    = 10_000
)

// WeightedMove pairs a move with its ordering weight.
type WeightedMove struct {
	Move   board.Move
	Weight int64
}

// WeightedMoveList yields moves best-first, one at a time. Each Next is
// a linear find-max over the remainder (n² total), which is cheaper than
// a full sort because most beta cutoffs arrive within the first few
// moves.
type WeightedMoveList struct {
	moves [board.MaxMovesPerPosition]WeightedMove
	len   int
	idx   int
}

// Len returns the total number of moves held.
func (wl *WeightedMoveList) Len() int {
	return wl.len
}

// Next selects the highest-weighted remaining move. ok is false when the
// list is exhausted.
func (wl *WeightedMoveList) Next() (wm WeightedMove, ok bool) {
	if wl.idx == wl.len {
		return WeightedMove{}, false
	}
	maxIdx := wl.idx
	for i := wl.idx + 1; i < wl.len; i++ {
		if wl.moves[i].Weight > wl.moves[maxIdx].Weight {
			maxIdx = i
		}
	}
	wl.moves[wl.idx], wl.moves[maxIdx] = wl.moves[maxIdx], wl.moves[wl.idx]
	wm = wl.moves[wl.idx]
	wl.idx++
	return wm, true
}

// MoveSorter scores moves for the search. Killers and history live for
// one go invocation and belong to a single searcher.
type MoveSorter struct {
	// killers is a per-ply ring of the most recent quiet cutoff moves.
	killers [MaxPly][NumKillerMoves]board.Move

	// history accumulates depth² for quiet moves that raised alpha,
	// indexed by piece type, color and destination square.
	history [6][2][64]int64

	followPV bool
	scorePV  bool
}

// Reset clears all ordering state for a new search.
func (ms *MoveSorter) Reset() {
	*ms = MoveSorter{}
}

// FollowPV arms PV scoring for the next descent from the root.
func (ms *MoveSorter) FollowPV() {
	ms.followPV = true
}

// IsFollowingPV reports whether the sorter is still tracking the
// principal variation of the previous iteration.
func (ms *MoveSorter) IsFollowingPV() bool {
	return ms.followPV
}

// UpdateKillers pushes a quiet cutoff move into the killer ring at ply.
func (ms *MoveSorter) UpdateKillers(m board.Move, ply int) {
	ring := &ms.killers[ply]
	copy(ring[1:], ring[:NumKillerMoves-1])
	ring[0] = m
}

// IsKiller reports whether m is one of the killers at ply.
func (ms *MoveSorter) IsKiller(m board.Move, ply int) bool {
	for _, k := range ms.killers[ply] {
		if k == m {
			return m != board.NoMove
		}
	}
	return false
}

// AddHistory credits a quiet move that raised alpha with depth².
func (ms *MoveSorter) AddHistory(pos *board.Position, m board.Move, depth int) {
	piece := pos.PieceAt(m.From())
	if piece == board.NoPiece {
		return
	}
	ms.history[piece.Type()][piece.Color()][m.To()] += int64(depth) * int64(depth)
}

func (ms *MoveSorter) historyOf(pos *board.Position, m board.Move) int64 {
	piece := pos.PieceAt(m.From())
	if piece == board.NoPiece {
		return 0
	}
	return ms.history[piece.Type()][piece.Color()][m.To()]
}

// WeightedMoves scores the legal moves of pos for search at ply.
// bestMove is the transposition table move; pvMove the expected PV move
// for this ply. When following the PV and pvMove is present, PV scoring
// stays armed until the move is matched.
func (ms *MoveSorter) WeightedMoves(pos *board.Position, moves *board.MoveList, tt *TranspositionTable, ply int, bestMove, pvMove board.Move) *WeightedMoveList {
	if bestMove == board.NoMove {
		bestMove = tt.BestMove(pos.Hash)
	}
	if ms.followPV {
		ms.followPV = false
		if pvMove != board.NoMove && moves.Contains(pvMove) {
			ms.followPV = true
			ms.scorePV = true
		}
	}

	wl := &WeightedMoveList{len: moves.Len()}
	if moves.Len() < 2 {
		for i := 0; i < moves.Len(); i++ {
			wl.moves[i] = WeightedMove{Move: moves.Get(i)}
		}
		return wl
	}

	easilyWinning := isEasilyWinning(pos)
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		score := ms.scoreMove(pos, m, ply, bestMove, pvMove, easilyWinning)
		wl.moves[i] = WeightedMove{
			Move:   m,
			Weight: 1000*score + int64(board.MaxMovesPerPosition-i),
		}
	}
	return wl
}

// WeightedCaptures scores the legal captures of pos for quiescence. A
// negative weight means the capture loses material by SEE.
func (ms *MoveSorter) WeightedCaptures(pos *board.Position, tt *TranspositionTable) *WeightedMoveList {
	bestMove := tt.BestMove(pos.Hash)
	var captures board.MoveList
	pos.GenerateLegalCaptures(&captures)

	wl := &WeightedMoveList{len: captures.Len()}
	for i := 0; i < captures.Len(); i++ {
		m := captures.Get(i)
		var score int64
		if m == bestMove {
			score = ttCaptureScore
		} else {
			score = int64(SeeCapture(pos, m.To()))
		}
		wl.moves[i] = WeightedMove{
			Move:   m,
			Weight: 1000*score + int64(board.MaxMovesPerPosition-i),
		}
	}
	return wl
}

// scoreMove ranks a single move by the ordering ladder.
func (ms *MoveSorter) scoreMove(pos *board.Position, m board.Move, ply int, bestMove, pvMove board.Move, easilyWinning bool) int64 {
	if ms.scorePV && pvMove == m {
		ms.scorePV = false
		return pvMoveScore
	}
	if m == bestMove {
		return hashMoveScore
	}
	if pos.IsCapture(m) {
		return captureScore + int64(SeeCapture(pos, m.To()))
	}
	for idx, k := range ms.killers[ply] {
		if k == m {
			return killerScore - int64(idx)
		}
	}
	from, to := m.From(), m.To()
	if easilyWinning {
		if score, ok := kingChase(pos, from, to); ok {
			return kingChaseScore + score
		}
	}
	if m.IsPromotion() {
		return promotionScore
	}
	if pos.IsPassedPawn(from) {
		promotionDistance := abs(pos.SideToMove.Other().BackRank() - from.Rank())
		return passedPawnScore - int64(promotionDistance)
	}

	movingPiece := pos.PieceAt(from).Type()
	undo := pos.MakeMove(m)
	checkers := pos.Checkers
	legalReplies := 0
	if checkers == 0 {
		legalReplies = pos.CountLegalMoves()
	}
	pos.UnmakeMove(m, undo)

	if checkers != 0 {
		return givesCheckScore + 10*int64(checkers.PopCount()) - int64(movingPiece)
	}
	if pos.IsIrreversible(m) {
		return irreversibleScore
	}
	if h := ms.historyOf(pos, m); h > 0 {
		return historyScore + h
	}
	// Quietness fallback: prefer moves that leave the opponent fewer
	// replies.
	return int64(board.MaxMovesPerPosition - legalReplies)
}

// isEasilyWinning reports a material edge large enough that shepherding
// the enemy king matters more than heuristics.
func isEasilyWinning(pos *board.Position) bool {
	return abs(pos.Material()) >= WinningScoreThreshold
}

// kingChase scores non-pawn moves that approach the losing king in an
// easily winning position.
func kingChase(pos *board.Position, from, to board.Square) (int64, bool) {
	movingPiece := pos.PieceAt(from).Type()
	if movingPiece == board.Pawn {
		return 0, false
	}
	winner := board.White
	if pos.Material() < 0 {
		winner = board.Black
	}
	losingKing := pos.KingSquare[winner.Other()]
	if losingKing == from {
		// The losing king itself: pull it toward the center.
		return -100 * int64(board.Distance(from, board.E4)), true
	}
	if board.Distance(to, losingKing) < board.Distance(from, losingKing) {
		var pieceWeight int64
		switch movingPiece {
		case board.King:
			pieceWeight = 5
		case board.Knight:
			pieceWeight = 4
		case board.Queen:
			pieceWeight = 3
		case board.Rook:
			pieceWeight = 2
		default:
			pieceWeight = 1
		}
		return 50*pieceWeight - int64(board.Distance(to, losingKing)), true
	}
	return 0, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
