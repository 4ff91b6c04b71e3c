package engine

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/raaidrt/timecat/internal/board"
)

// LMR tuning.
const (
	fullDepthSearchLMR = 4    // moves searched at full depth before reducing
	reductionLimitLMR  = 3    // minimum depth for reductions
	lmrBaseReduction   = 0.75 // additive base of the reduction formula
	lmrMoveDivider     = 2.25 // divisor of ln(depth)*ln(index)
)

// NullMoveMinDepth is the minimum depth for null move pruning.
const NullMoveMinDepth = 2

// SearchController lets the driver stop a search cooperatively. Root
// checks happen between iterations; node checks between nodes of the
// main searcher.
type SearchController interface {
	StopAtRootNode(s *Searcher) bool
	StopAtEveryNode(s *Searcher) bool
}

// PVTable is the triangular principal variation table. Row p holds the
// best line found from ply p; row lengths are reset at the start of each
// iteration so stale rows are never copied.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Reset zeroes all row lengths.
func (pv *PVTable) Reset() {
	for i := range pv.length {
		pv.length[i] = 0
	}
}

// SetLength truncates row ply to start at ply.
func (pv *PVTable) SetLength(ply int) {
	pv.length[ply] = ply
}

// Update records m as the best move at ply and grafts the child line
// below it.
func (pv *PVTable) Update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for next := ply + 1; next < pv.length[ply+1]; next++ {
		pv.moves[ply][next] = pv.moves[ply+1][next]
	}
	pv.length[ply] = pv.length[ply+1]
}

// Line returns the principal variation from the root.
func (pv *PVTable) Line() []board.Move {
	line := make([]board.Move, 0, pv.length[0])
	for i := 0; i < pv.length[0]; i++ {
		if pv.moves[0][i] == board.NoMove {
			break
		}
		line = append(line, pv.moves[0][i])
	}
	return line
}

// MoveAt returns the n-th move of the root PV, or NoMove.
func (pv *PVTable) MoveAt(n int) board.Move {
	if n >= pv.length[0] {
		return board.NoMove
	}
	return pv.moves[0][n]
}

// Searcher runs the negamax search on its own position copy. The
// transposition table, node counter, selective depth and stop flag are
// shared with sibling searchers; everything else is private.
type Searcher struct {
	id        int
	pos       *board.Position
	history   *board.HistoryStack
	evaluator Evaluator
	tt        *TranspositionTable
	props     Properties

	sorter    MoveSorter
	pv        PVTable
	bestMoves []board.Move // root moves, previous-iteration best first

	// completedPV is the principal variation of the last fully completed
	// iteration. Aborted iterations never touch it.
	completedPV []board.Move

	ply       int
	moveStack [MaxPly]board.Move
	undoStack [MaxPly]board.UndoInfo
	nullStack [MaxPly]board.NullMoveUndo

	score          int
	depthCompleted int
	outsideWindow  bool
	clock          time.Time

	nodes    *atomic.Uint64
	selDepth *atomic.Uint64
	stop     *atomic.Bool
}

// NewSearcher builds a searcher over its own copies of pos and history.
func NewSearcher(id int, pos *board.Position, history *board.HistoryStack, evaluator Evaluator, tt *TranspositionTable, nodes, selDepth *atomic.Uint64, stop *atomic.Bool, props Properties) *Searcher {
	return &Searcher{
		id:        id,
		pos:       pos.Copy(),
		history:   history.Clone(),
		evaluator: evaluator,
		tt:        tt,
		props:     props,
		clock:     time.Now(),
		nodes:     nodes,
		selDepth:  selDepth,
		stop:      stop,
	}
}

// isMainThread reports whether this searcher drives info output and
// controller polling.
func (s *Searcher) isMainThread() bool {
	return s.id == 0
}

// Score returns the score of the last completed iteration.
func (s *Searcher) Score() int {
	return s.score
}

// DepthCompleted returns the last fully completed depth.
func (s *Searcher) DepthCompleted() int {
	return s.depthCompleted
}

// OutsideAspirationWindow reports whether the last iteration failed
// outside its aspiration window and triggered a full-window re-search.
func (s *Searcher) OutsideAspirationWindow() bool {
	return s.outsideWindow
}

// Nodes returns the shared node count.
func (s *Searcher) Nodes() uint64 {
	return s.nodes.Load()
}

// SelectiveDepth returns the shared selective depth.
func (s *Searcher) SelectiveDepth() int {
	return int(s.selDepth.Load())
}

// TimeElapsed returns the time since the search started.
func (s *Searcher) TimeElapsed() time.Duration {
	return time.Since(s.clock)
}

// PV returns the principal variation of the last completed iteration.
func (s *Searcher) PV() []board.Move {
	return s.completedPV
}

// pvMoveAt returns the n-th move of the completed PV, or NoMove.
func (s *Searcher) pvMoveAt(n int) board.Move {
	if n >= len(s.completedPV) {
		return board.NoMove
	}
	return s.completedPV[n]
}

// BestMove returns the first PV move, or NoMove when no iteration
// completed.
func (s *Searcher) BestMove() board.Move {
	return s.pvMoveAt(0)
}

// PonderMove returns the expected reply, the second PV move.
func (s *Searcher) PonderMove() board.Move {
	return s.pvMoveAt(1)
}

func (s *Searcher) evaluate() int {
	return s.evaluator.Evaluate(s.pos)
}

func (s *Searcher) shouldStop(ctrl SearchController) bool {
	if s.stop.Load() {
		return true
	}
	return ctrl != nil && ctrl.StopAtEveryNode(s)
}

// push makes m, recording it on the stacks and in the repetition history.
func (s *Searcher) push(m board.Move) {
	irreversible := s.pos.IsIrreversible(m)
	s.moveStack[s.ply] = m
	s.undoStack[s.ply] = s.pos.MakeMove(m)
	s.ply++
	s.history.Push(s.pos.Hash, irreversible)
}

// pop unmakes the most recent move. Moves are strictly LIFO: the
// position at a ply on exit equals the position on entry, hash included.
func (s *Searcher) pop() {
	if s.ply == 0 {
		panic(ErrStackEmpty)
	}
	s.ply--
	s.history.Pop()
	s.pos.UnmakeMove(s.moveStack[s.ply], s.undoStack[s.ply])
}

// pushNull passes the turn. The caller must have verified the side to
// move is not in check. The history entry is marked irreversible so
// repetition detection never crosses a null move.
func (s *Searcher) pushNull() error {
	undo, err := s.pos.MakeNullMove()
	if err != nil {
		return err
	}
	s.nullStack[s.ply] = undo
	s.ply++
	s.history.Push(s.pos.Hash, true)
	return nil
}

func (s *Searcher) popNull() {
	s.ply--
	s.history.Pop()
	s.pos.UnmakeNullMove(s.nullStack[s.ply])
}

// isOtherDraw covers fifty-move, insufficient material and repetition;
// stalemate is detected by move generation.
func (s *Searcher) isOtherDraw() bool {
	if s.pos.HalfMoveClock >= 100 {
		return true
	}
	if s.pos.IsInsufficientMaterial() {
		return true
	}
	return s.history.IsRepetition(s.pos.Hash)
}

func (s *Searcher) updateSelDepth() {
	ply := uint64(s.ply)
	for {
		cur := s.selDepth.Load()
		if cur >= ply || s.selDepth.CompareAndSwap(cur, ply) {
			return
		}
	}
}

// lmrReduction is the late move reduction in plies:
// round(0.75 + ln(depth)*ln(index)/2.25), scaled by 2/3 at PV nodes.
func lmrReduction(depth, moveIndex int, isPVNode bool) int {
	reduction := lmrBaseReduction + math.Log(float64(depth))*math.Log(float64(moveIndex))/lmrMoveDivider
	if isPVNode {
		reduction *= 2.0 / 3.0
	}
	return int(math.Round(reduction))
}

// Go runs iterative deepening until the depth limit, the stop flag or
// the controller ends it. Aspiration windows are re-centered after each
// iteration; a fail outside the window restores the previous score and
// re-searches with a full window.
func (s *Searcher) Go(maxDepth int, ctrl SearchController, emit func(*Searcher)) {
	s.clock = time.Now()
	s.score = 0
	s.depthCompleted = 0
	s.bestMoves = s.bestMoves[:0]

	if s.pos.CountLegalMoves() == 1 {
		// A single reply needs no deep search.
		maxDepth = 1
	}
	if maxDepth > MaxPly {
		maxDepth = MaxPly
	}

	alpha, beta := -Infinity, Infinity
	for s.depthCompleted < maxDepth &&
		!s.stop.Load() &&
		!(ctrl != nil && ctrl.StopAtRootNode(s)) {

		lastScore := s.score
		score, ok := s.searchRoot(s.depthCompleted+1, alpha, beta, ctrl)
		if !ok {
			// The iteration was cut short; discard it and keep the last
			// completed result.
			s.score = lastScore
			break
		}
		s.score = score

		s.outsideWindow = s.score <= alpha || s.score >= beta
		if s.outsideWindow {
			alpha, beta = -Infinity, Infinity
			s.score = lastScore
			continue
		}

		s.depthCompleted++
		s.completedPV = s.pv.Line()
		if emit != nil && s.isMainThread() {
			emit(s)
		}

		cutoff := AspirationWindowCutoff
		if IsMateScore(s.score) {
			cutoff = MateAspirationCutoff
		}
		alpha, beta = s.score-cutoff, s.score+cutoff
	}
}

// searchRoot searches the root node at the given depth. It orders root
// moves with a root-specific re-score on top of the sorter weights and,
// outside endgames, refuses claimable repetitions while not losing.
func (s *Searcher) searchRoot(depth, alpha, beta int, ctrl SearchController) (int, bool) {
	s.pv.Reset()
	s.sorter.FollowPV()
	if s.isMainThread() {
		s.selDepth.Store(0)
	}

	if !s.pos.HasLegalMoves() {
		if s.pos.InCheck() {
			return -MateIn(0), true
		}
		return DrawScore, true
	}
	if s.isOtherDraw() {
		return DrawScore, true
	}
	if !(depth > 1 && s.isMainThread()) {
		ctrl = nil
	}
	if s.shouldStop(ctrl) {
		return 0, false
	}

	key := s.pos.Hash
	score := -Infinity
	flag := TTAlpha
	isEndgame := s.pos.IsEndgame()
	moves := s.sortedRootMoves()

	for moveIndex, m := range moves {
		if !isEndgame && score > -RepetitionThreshold && s.history.GivesThreefoldRepetition(s.pos, m) {
			continue
		}

		s.push(m)
		full := moveIndex == 0
		if !full {
			scout, ok := s.alphaBeta(depth-1, -alpha-1, -alpha, ctrl)
			if !ok {
				s.pop()
				return 0, false
			}
			full = -scout > alpha
		}
		if full {
			value, ok := s.alphaBeta(depth-1, -beta, -alpha, ctrl)
			if !ok {
				s.pop()
				return 0, false
			}
			score = -value
		}
		s.pop()

		if score > alpha {
			flag = TTExact
			alpha = score
			s.pv.Update(0, m)
			if score >= beta {
				s.tt.Store(key, depth, 0, beta, TTBeta, m)
				return beta, true
			}
		}
	}

	if !s.shouldStop(ctrl) {
		s.tt.Store(key, depth, 0, alpha, flag, s.pv.MoveAt(0))
	}
	s.updateBestMoves()
	return alpha, true
}

// sortedRootMoves orders the root moves: sorter weights first, then a
// stable re-sort by root-specific score so the previous best move leads
// and repetitions sink.
func (s *Searcher) sortedRootMoves() []board.Move {
	var ml board.MoveList
	s.pos.GenerateLegalMoves(&ml)

	weighted := s.sorter.WeightedMoves(s.pos, &ml, s.tt, 0, s.tt.BestMove(s.pos.Hash), s.BestMove())
	ordered := make([]board.Move, 0, ml.Len())
	for {
		wm, ok := weighted.Next()
		if !ok {
			break
		}
		ordered = append(ordered, wm.Move)
	}

	scores := make([]int64, len(ordered))
	for i, m := range ordered {
		scores[i] = s.scoreRootMove(m)
	}
	// Stable insertion sort by root score, descending; ties keep the
	// sorter's order.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && scores[j] > scores[j-1]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
			scores[j], scores[j-1] = scores[j-1], scores[j]
		}
	}
	return ordered
}

// scoreRootMove biases root ordering: the previous-iteration best move
// first, repetitions below every other non-capture move, and direct
// endgame bonuses for promotions, captures (signed by the evaluation)
// and passed pawn pushes.
func (s *Searcher) scoreRootMove(m board.Move) int64 {
	if len(s.bestMoves) > 0 && m == s.bestMoves[0] {
		return 100_000
	}
	if s.history.GivesRepetition(s.pos, m) {
		return -50
	}
	isEndgame := s.pos.IsEndgame()
	if !isEndgame && s.history.GivesThreefoldRepetition(s.pos, m) {
		return -40
	}
	var score int64
	if isEndgame {
		evaluation := s.evaluate()
		if evaluation == 0 {
			evaluation = 1
		}
		if m.IsPromotion() {
			score += 30_000
		}
		if s.pos.IsCapture(m) {
			score += 2000*int64(sign(evaluation)) + int64(SeeCapture(s.pos, m.To()))
		}
		if s.pos.IsPassedPawn(m.From()) {
			promotionDistance := abs(s.pos.SideToMove.Other().BackRank() - m.From().Rank())
			score += int64(20 - promotionDistance)
		}
	}
	return score
}

// updateBestMoves promotes the current best move to the front of the
// root priority list for the next iteration.
func (s *Searcher) updateBestMoves() {
	best := s.pv.MoveAt(0)
	if best == board.NoMove {
		return
	}
	kept := s.bestMoves[:0]
	for _, m := range s.bestMoves {
		if m != best {
			kept = append(kept, m)
		}
	}
	s.bestMoves = append([]board.Move{best}, kept...)
}

// alphaBeta is the recursive negamax search. ok is false when the
// search was stopped; the caller then discards the value and unwinds.
func (s *Searcher) alphaBeta(depth, alpha, beta int, ctrl SearchController) (int, bool) {
	s.pv.SetLength(s.ply)
	mateScore := MateIn(s.ply)
	if s.isOtherDraw() {
		return DrawScore, true
	}

	if s.props.useMateDistancePruning() {
		// No line from here can be better than mating now or worse than
		// being mated now.
		alpha = maxInt(alpha, -mateScore)
		beta = minInt(beta, mateScore-1)
		if alpha >= beta {
			return alpha, true
		}
	}

	checkers := s.pos.Checkers
	if depth > 10 {
		depth += checkers.PopCount()
	}
	if s.sorter.IsFollowingPV() && depth < 1 {
		depth = 1
	}
	isPVNode := beta-alpha > 1
	key := s.pos.Hash

	var ttMove board.Move
	if isPVNode && s.isMainThread() {
		// Keep the full PV intact on the main thread: use the table for
		// ordering only.
		ttMove = s.tt.BestMove(key)
	} else {
		score, flag, usable, best := s.tt.Probe(key, depth, s.ply)
		ttMove = best
		if usable && !s.props.DisableAllPrunings {
			switch flag {
			case TTExact:
				return score, true
			case TTAlpha:
				if score <= alpha {
					return score, true
				}
			case TTBeta:
				if score >= beta {
					return score, true
				}
			}
		}
	}

	if s.ply == MaxPly-1 {
		return s.evaluate(), true
	}
	if s.shouldStop(ctrl) {
		return 0, false
	}
	if depth == 0 {
		return s.quiescence(alpha, beta), true
	}
	if s.isMainThread() && isPVNode {
		s.updateSelDepth()
	}
	s.nodes.Add(1)

	notInCheck := checkers == 0
	futilityPruning := false
	if notInCheck && !s.props.DisableAllPrunings {
		staticEvaluation := s.evaluate()

		// Static null move: when the position is so far above beta that
		// even a margin per ply cannot pull it back.
		if depth < 3 && !isPVNode && !IsMateScore(beta) {
			margin := (6 * PawnValue / 5) * depth
			if staticEvaluation-margin >= beta {
				return staticEvaluation - margin, true
			}
		}

		// Razoring: drop into quiescence when even an optimistic margin
		// stays below beta.
		const razoringDepth = 3
		if !isPVNode && depth <= razoringDepth && !IsMateScore(beta) {
			score := staticEvaluation + 5*PawnValue/4
			if score < beta {
				if depth == 1 {
					return maxInt(score, s.quiescence(alpha, beta)), true
				}
				score += 7 * PawnValue / 4
				if score < beta && depth < razoringDepth {
					if q := s.quiescence(alpha, beta); q < beta {
						return maxInt(score, q), true
					}
				}
			}
		}

		// Null move pruning: pass the turn; if the opponent still cannot
		// reach beta the position is too good to need a full search.
		// Skipped without non-pawn material where zugzwang rules.
		if depth >= NullMoveMinDepth && staticEvaluation >= beta && s.pos.HasNonPawnMaterial() {
			reduced := depth - 2 - depth/4
			if reduced < 0 {
				reduced = 0
			}
			if err := s.pushNull(); err == nil {
				value, ok := s.alphaBeta(reduced, -beta, -beta+1, ctrl)
				s.popNull()
				if !ok {
					return 0, false
				}
				if -value >= beta {
					return beta, true
				}
			}
		}

		// Futility: at shallow depth a quiet move cannot recover a
		// position this far below alpha.
		if depth < 4 && alpha < mateScore {
			futilityMargins := [4]int{0, PawnValue, KnightValue, RookValue}
			futilityPruning = staticEvaluation+futilityMargins[depth] <= alpha
		}
	}

	var moves board.MoveList
	s.pos.GenerateLegalMoves(&moves)
	if moves.Len() == 0 {
		if notInCheck {
			return DrawScore, true
		}
		return -mateScore, true
	}

	flag := TTAlpha
	weighted := s.sorter.WeightedMoves(s.pos, &moves, s.tt, s.ply, ttMove, s.pvMoveAt(s.ply))

	for moveIndex := 0; ; moveIndex++ {
		wm, more := weighted.Next()
		if !more {
			break
		}
		m := wm.Move

		notCapture := !s.pos.IsCapture(m)
		notInteresting := notCapture && notInCheck &&
			!m.IsPromotion() && !s.sorter.IsKiller(m, s.ply)
		if moveIndex != 0 && futilityPruning && notInteresting {
			continue
		}

		safeLMR := moveIndex >= fullDepthSearchLMR &&
			depth >= reductionLimitLMR &&
			s.props.useLMR() &&
			notInteresting

		s.push(m)
		safeLMR = safeLMR && !s.pos.InCheck()

		var score int
		if moveIndex == 0 {
			value, ok := s.alphaBeta(depth-1, -beta, -alpha, ctrl)
			if !ok {
				s.pop()
				return 0, false
			}
			score = -value
		} else {
			score = alpha + 1
			if safeLMR {
				reduction := lmrReduction(depth, moveIndex, isPVNode)
				if depth > reduction {
					value, ok := s.alphaBeta(depth-1-reduction, -alpha-1, -alpha, ctrl)
					if !ok {
						s.pop()
						return 0, false
					}
					score = -value
				}
			}
			if score > alpha {
				// Scout with a null window; re-search on fail-high.
				value, ok := s.alphaBeta(depth-1, -alpha-1, -alpha, ctrl)
				if !ok {
					s.pop()
					return 0, false
				}
				score = -value
				if score > alpha && score < beta {
					value, ok := s.alphaBeta(depth-1, -beta, -alpha, ctrl)
					if !ok {
						s.pop()
						return 0, false
					}
					score = -value
				}
			}
		}
		s.pop()

		if score > alpha {
			flag = TTExact
			s.pv.Update(s.ply, m)
			alpha = score
			if notCapture {
				s.sorter.AddHistory(s.pos, m, depth)
			}
			if score >= beta {
				s.tt.Store(key, depth, s.ply, beta, TTBeta, m)
				if notCapture {
					s.sorter.UpdateKillers(m, s.ply)
				}
				return beta, true
			}
		}
	}

	if !s.shouldStop(ctrl) {
		s.tt.Store(key, depth, s.ply, alpha, flag, s.pvMoveAt(s.ply))
	}
	return alpha, true
}

// quiescence searches captures only, past the nominal depth, to settle
// tactics before trusting the static evaluation. The sorter emits
// captures best-first and a negative weight means SEE considers the
// capture losing, at which point iteration stops.
func (s *Searcher) quiescence(alpha, beta int) int {
	if s.ply == MaxPly-1 {
		return s.evaluate()
	}
	s.pv.SetLength(s.ply)
	if s.isOtherDraw() {
		return DrawScore
	}
	isPVNode := beta-alpha > 1
	if s.isMainThread() && isPVNode {
		s.updateSelDepth()
	}
	s.nodes.Add(1)

	standPat := s.evaluate()
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	weighted := s.sorter.WeightedCaptures(s.pos, s.tt)
	for {
		wm, more := weighted.Next()
		if !more || wm.Weight < 0 {
			break
		}
		s.push(wm.Move)
		score := -s.quiescence(-beta, -alpha)
		s.pop()

		if score >= beta {
			return beta
		}
		if score > alpha {
			s.pv.Update(s.ply, wm.Move)
			alpha = score
		}

		// Delta pruning: even winning a queen (plus any promotion gain)
		// cannot lift this score back to alpha.
		delta := QueenValue
		if promo := wm.Move.Promotion(); promo != board.NoPieceType {
			delta += pieceValue(promo) - PawnValue
		}
		if score+delta < alpha {
			return alpha
		}
	}
	return alpha
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func sign(x int) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}
