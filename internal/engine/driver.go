package engine

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/raaidrt/timecat/internal/board"
	"github.com/raaidrt/timecat/internal/logging"
)

var log = logging.GetLog()

// GoKind discriminates the GoCommand variants.
type GoKind uint8

const (
	GoInfinite GoKind = iota
	GoPonder
	GoMoveTime
	GoDepth
	GoTimed
)

// GoCommand is the parsed form of a "go" command: exactly one of
// Infinite, Ponder, MoveTime, Depth or Timed.
type GoCommand struct {
	Kind     GoKind
	MoveTime time.Duration
	Depth    int

	// Timed fields.
	WTime, BTime time.Duration
	WInc, BInc   time.Duration
	MovesToGo    int
}

// NewDepthCommand returns a fixed-depth go command.
func NewDepthCommand(depth int) GoCommand {
	return GoCommand{Kind: GoDepth, Depth: depth}
}

// NewMoveTimeCommand returns a fixed-time go command.
func NewMoveTimeCommand(d time.Duration) GoCommand {
	return GoCommand{Kind: GoMoveTime, MoveTime: d}
}

// ParseGoCommand parses the tokens following "go". Grammar:
//
//	go (infinite | ponder | depth N | movetime MS |
//	    [wtime MS] [btime MS] [winc MS] [binc MS] [movestogo N])
//
// Mutually exclusive terms in one command are a parse error.
func ParseGoCommand(args []string) (GoCommand, error) {
	input := "go " + strings.Join(args, " ")
	fail := func(reason string) (GoCommand, error) {
		return GoCommand{}, &ParseError{Input: input, Reason: reason}
	}

	if len(args) == 0 {
		return GoCommand{Kind: GoInfinite}, nil
	}

	exclusive := 0
	for _, term := range []string{"infinite", "ponder", "depth", "movetime"} {
		if containsToken(args, term) {
			exclusive++
		}
	}
	if exclusive > 1 {
		return fail("mutually exclusive go terms")
	}
	timed := containsToken(args, "wtime") || containsToken(args, "btime") ||
		containsToken(args, "winc") || containsToken(args, "binc") ||
		containsToken(args, "movestogo")
	if exclusive > 0 && timed {
		return fail("mutually exclusive go terms")
	}

	switch args[0] {
	case "infinite":
		return GoCommand{Kind: GoInfinite}, nil
	case "ponder":
		return GoCommand{Kind: GoPonder}, nil
	case "depth":
		if len(args) < 2 {
			return fail("depth needs a value")
		}
		depth, err := strconv.Atoi(args[1])
		if err != nil {
			return fail("bad depth value")
		}
		if depth < 0 {
			return GoCommand{}, invalidConfigf("depth must not be negative, got %d", depth)
		}
		return GoCommand{Kind: GoDepth, Depth: depth}, nil
	case "movetime":
		if len(args) < 2 {
			return fail("movetime needs a value")
		}
		ms, err := strconv.Atoi(args[1])
		if err != nil || ms < 0 {
			return fail("bad movetime value")
		}
		return NewMoveTimeCommand(time.Duration(ms) * time.Millisecond), nil
	}

	if !timed {
		return fail("unknown go term")
	}
	cmd := GoCommand{Kind: GoTimed}
	haveWTime, haveBTime := false, false
	for i := 0; i < len(args); i++ {
		value := func() (int, error) {
			if i+1 >= len(args) {
				return 0, fmt.Errorf("missing value")
			}
			i++
			return strconv.Atoi(args[i])
		}
		switch args[i] {
		case "wtime":
			ms, err := value()
			if err != nil {
				return fail("bad wtime value")
			}
			cmd.WTime = time.Duration(ms) * time.Millisecond
			haveWTime = true
		case "btime":
			ms, err := value()
			if err != nil {
				return fail("bad btime value")
			}
			cmd.BTime = time.Duration(ms) * time.Millisecond
			haveBTime = true
		case "winc":
			ms, err := value()
			if err != nil {
				return fail("bad winc value")
			}
			cmd.WInc = time.Duration(ms) * time.Millisecond
		case "binc":
			ms, err := value()
			if err != nil {
				return fail("bad binc value")
			}
			cmd.BInc = time.Duration(ms) * time.Millisecond
		case "movestogo":
			n, err := value()
			if err != nil {
				return fail("bad movestogo value")
			}
			cmd.MovesToGo = n
		default:
			return fail("unknown go term " + args[i])
		}
	}
	if !haveWTime {
		return fail("wtime not mentioned")
	}
	if !haveBTime {
		return fail("btime not mentioned")
	}
	return cmd, nil
}

func containsToken(args []string, token string) bool {
	for _, a := range args {
		if a == token {
			return true
		}
	}
	return false
}

// SearchInfo is the per-iteration report emitted by the driver.
type SearchInfo struct {
	Depth      int
	SelDepth   int
	Score      int // side to move perspective
	Nodes      uint64
	Time       time.Duration
	HashFull   int // permille
	Overwrites uint64
	Collisions uint64
	PV         []board.Move
}

// NPS returns the nodes-per-second rate for the report.
func (si SearchInfo) NPS() uint64 {
	if si.Time <= 0 {
		return 0
	}
	return uint64(float64(si.Nodes) / si.Time.Seconds())
}

var infoPrinter = message.NewPrinter(language.English)

// String renders the report in UCI info format.
func (si SearchInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "depth %d seldepth %d", si.Depth, si.SelDepth)
	if IsMateScore(si.Score) {
		fmt.Fprintf(&sb, " score mate %d", MateDistance(si.Score))
	} else {
		fmt.Fprintf(&sb, " score cp %d", si.Score)
	}
	fmt.Fprintf(&sb, " nodes %d nps %d hashfull %d time %d",
		si.Nodes, si.NPS(), si.HashFull, si.Time.Milliseconds())
	if len(si.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range si.PV {
			sb.WriteByte(' ')
			sb.WriteString(m.String())
		}
	}
	return sb.String()
}

// Summary renders node count and speed with digit grouping, for logs.
func (si SearchInfo) Summary() string {
	return infoPrinter.Sprintf("depth %d, %d nodes, %d nps", si.Depth, si.Nodes, si.NPS())
}

// timedController stops the search when the allotment runs out.
type timedController struct {
	start     time.Time
	allotment time.Duration
}

func (tc *timedController) StopAtRootNode(*Searcher) bool {
	return time.Since(tc.start) >= tc.allotment
}

func (tc *timedController) StopAtEveryNode(*Searcher) bool {
	return time.Since(tc.start) >= tc.allotment
}

// allotTime computes the time budget for the move: remaining time
// divided by an estimate of the moves left, plus the increment,
// minus the configured move overhead.
func allotTime(cmd GoCommand, us board.Color, fullMoveNumber int, overhead time.Duration) time.Duration {
	remaining, inc := cmd.WTime, cmd.WInc
	if us == board.Black {
		remaining, inc = cmd.BTime, cmd.BInc
	}

	movesToGo := cmd.MovesToGo
	if movesToGo == 0 {
		// Sudden death: assume the game shortens as it progresses.
		movesToGo = 40 - fullMoveNumber/2
		if movesToGo < 12 {
			movesToGo = 12
		}
	}

	allotment := remaining/time.Duration(movesToGo) + inc - overhead
	if max := remaining * 9 / 10; allotment > max {
		allotment = max
	}
	if allotment < 10*time.Millisecond {
		allotment = 10 * time.Millisecond
	}
	return allotment
}

// Engine owns the shared search resources and drives Lazy SMP searches.
type Engine struct {
	tt        *TranspositionTable
	evaluator Evaluator
	props     Properties

	threads      int
	moveOverhead time.Duration

	nodes    atomic.Uint64
	selDepth atomic.Uint64
	stop     atomic.Bool

	// OnInfo, when set, receives a report after every completed
	// iteration of the main searcher.
	OnInfo func(SearchInfo)
}

// NewEngine creates an engine with a transposition table of the given
// size in megabytes.
func NewEngine(ttSizeMB int) *Engine {
	return &Engine{
		tt:           NewTranspositionTable(ttSizeMB),
		evaluator:    ClassicalEvaluator{},
		props:        DefaultProperties(),
		threads:      ThreadsOption.Default,
		moveOverhead: DefaultMoveOverhead,
	}
}

// SetEvaluator replaces the evaluation oracle. The evaluator must be
// safe for concurrent use by parallel searchers.
func (e *Engine) SetEvaluator(ev Evaluator) {
	e.evaluator = ev
}

// SetHashSize resizes the transposition table.
func (e *Engine) SetHashSize(sizeMB int) error {
	if err := HashOption.Validate(sizeMB); err != nil {
		return err
	}
	e.tt.ResetSize(sizeMB)
	return nil
}

// SetThreads sets the number of parallel searchers.
func (e *Engine) SetThreads(n int) error {
	if err := ThreadsOption.Validate(n); err != nil {
		return err
	}
	e.threads = n
	return nil
}

// SetMoveOverhead sets the per-move latency allowance.
func (e *Engine) SetMoveOverhead(ms int) error {
	if err := MoveOverheadOption.Validate(ms); err != nil {
		return err
	}
	e.moveOverhead = time.Duration(ms) * time.Millisecond
	return nil
}

// SetDisableAllPrunings toggles the pruning bypass used for correctness
// testing.
func (e *Engine) SetDisableAllPrunings(disable bool) {
	e.props.DisableAllPrunings = disable
}

// Properties returns the current search configuration.
func (e *Engine) Properties() Properties {
	return e.props
}

// TranspositionTable exposes the shared table.
func (e *Engine) TranspositionTable() *TranspositionTable {
	return e.tt
}

// Stop raises the shared stop flag; every searcher returns within one
// recursion-unwind pass.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// NewGame clears the shared state between games.
func (e *Engine) NewGame() {
	e.tt.Clear()
}

// Search runs the go command on pos and returns the best move. history
// carries the game's position hashes for repetition detection. When the
// search is stopped before any iteration completes the first legal move
// is returned alongside ErrBestMoveNotFound.
func (e *Engine) Search(pos *board.Position, history *board.HistoryStack, cmd GoCommand) (board.Move, error) {
	e.stop.Store(false)
	e.nodes.Store(0)
	e.selDepth.Store(0)

	maxDepth := MaxPly
	var ctrl SearchController
	switch cmd.Kind {
	case GoDepth:
		maxDepth = cmd.Depth
	case GoMoveTime:
		allotment := cmd.MoveTime - e.moveOverhead
		if allotment < 10*time.Millisecond {
			allotment = 10 * time.Millisecond
		}
		ctrl = &timedController{start: time.Now(), allotment: allotment}
	case GoTimed:
		allotment := allotTime(cmd, pos.SideToMove, pos.FullMoveNumber, e.moveOverhead)
		ctrl = &timedController{start: time.Now(), allotment: allotment}
	case GoInfinite, GoPonder:
		// Run until stopped.
	}
	log.Debugf("search started: kind=%d depth=%d threads=%d", cmd.Kind, maxDepth, e.threads)

	if history == nil {
		history = board.NewHistoryStack()
		history.Push(pos.Hash, true)
	}

	searchers := make([]*Searcher, e.threads)
	for i := range searchers {
		searchers[i] = NewSearcher(i, pos, history, e.evaluator, e.tt,
			&e.nodes, &e.selDepth, &e.stop, e.props)
	}

	var wg sync.WaitGroup
	for i := 1; i < len(searchers); i++ {
		wg.Add(1)
		go func(s *Searcher) {
			defer wg.Done()
			s.Go(maxDepth, nil, nil)
		}(searchers[i])
	}

	main := searchers[0]
	main.Go(maxDepth, ctrl, func(s *Searcher) {
		if e.OnInfo != nil {
			e.OnInfo(e.buildInfo(s))
		}
	})

	e.stop.Store(true)
	wg.Wait()

	best := main.BestMove()
	if best == board.NoMove {
		// Stopped before depth 1 completed; fall back to the first
		// legal move.
		legal := pos.LegalMoves()
		if legal.Len() > 0 {
			return legal.Get(0), fmt.Errorf("%w in position %s", ErrBestMoveNotFound, pos.ToFEN())
		}
		return board.NoMove, fmt.Errorf("%w in position %s", ErrBestMoveNotFound, pos.ToFEN())
	}
	return best, nil
}

func (e *Engine) buildInfo(s *Searcher) SearchInfo {
	return SearchInfo{
		Depth:      s.DepthCompleted(),
		SelDepth:   s.SelectiveDepth(),
		Score:      s.Score(),
		Nodes:      s.Nodes(),
		Time:       s.TimeElapsed(),
		HashFull:   e.tt.HashFull(),
		Overwrites: e.tt.Overwrites(),
		Collisions: e.tt.Collisions(),
		PV:         s.PV(),
	}
}

// Perft counts leaf nodes of the legal move tree to the given depth.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var ml board.MoveList
	pos.GenerateLegalMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}
	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		undo := pos.MakeMove(m)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}
