// Package uci implements the Universal Chess Interface front end over
// the engine driver.
package uci

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/raaidrt/timecat/internal/board"
	"github.com/raaidrt/timecat/internal/engine"
	"github.com/raaidrt/timecat/internal/logging"
)

var log = logging.GetLog()

const (
	engineName   = "timecat"
	engineAuthor = "timecat developers"
)

// UCI is the protocol handler. It owns the current position and the
// game's repetition history.
type UCI struct {
	engine  *engine.Engine
	pos     *board.Position
	history *board.HistoryStack

	out io.Writer

	searching  bool
	searchDone chan struct{}
}

// New creates a handler writing responses to out.
func New(eng *engine.Engine, out io.Writer) *UCI {
	u := &UCI{
		engine: eng,
		out:    out,
	}
	u.resetPosition()
	return u
}

func (u *UCI) resetPosition() {
	u.pos = board.NewPosition()
	u.history = board.NewHistoryStack()
	u.history.Push(u.pos.Hash, true)
}

func (u *UCI) printf(format string, args ...any) {
	fmt.Fprintf(u.out, format+"\n", args...)
}

// Run reads commands from in until "quit" or EOF.
func (u *UCI) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !u.Handle(line) {
			return
		}
	}
}

// Handle processes one command line; it returns false on "quit".
func (u *UCI) Handle(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "uci":
		u.handleUCI()
	case "isready":
		u.printf("readyok")
	case "ucinewgame":
		u.engine.NewGame()
		u.resetPosition()
	case "position":
		if err := u.handlePosition(args); err != nil {
			u.printf("info string %v", err)
		}
	case "go":
		u.handleGo(args)
	case "stop":
		u.handleStop()
	case "setoption":
		u.handleSetOption(args)
	case "d":
		u.printf("%s", u.pos)
	case "perft":
		u.handlePerft(args)
	case "quit":
		u.handleStop()
		return false
	default:
		u.printf("info string unknown command %q", line)
	}
	return true
}

func (u *UCI) handleUCI() {
	u.printf("id name %s", engineName)
	u.printf("id author %s", engineAuthor)
	u.printf("")
	u.printf("option name Hash type spin default %d min %d max %d",
		engine.HashOption.Default, engine.HashOption.Min, engine.HashOption.Max)
	u.printf("option name Threads type spin default %d min %d max %d",
		engine.ThreadsOption.Default, engine.ThreadsOption.Min, engine.ThreadsOption.Max)
	u.printf("option name Move Overhead type spin default %d min %d max %d",
		engine.MoveOverheadOption.Default, engine.MoveOverheadOption.Min, engine.MoveOverheadOption.Max)
	u.printf("option name DisableAllPrunings type check default false")
	u.printf("uciok")
}

// handlePosition parses "position (startpos | fen <fen>) [moves ...]".
func (u *UCI) handlePosition(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("position needs startpos or fen")
	}

	movesAt := len(args)
	for i, a := range args {
		if a == "moves" {
			movesAt = i
			break
		}
	}

	switch args[0] {
	case "startpos":
		u.resetPosition()
	case "fen":
		pos, err := board.ParseFEN(strings.Join(args[1:movesAt], " "))
		if err != nil {
			return err
		}
		u.pos = pos
		u.history = board.NewHistoryStack()
		u.history.Push(u.pos.Hash, true)
	default:
		return fmt.Errorf("position needs startpos or fen")
	}

	for _, moveStr := range args[min(movesAt+1, len(args)):] {
		m, err := u.findLegalMove(moveStr)
		if err != nil {
			return err
		}
		irreversible := u.pos.IsIrreversible(m)
		u.pos.MakeMove(m)
		u.history.Push(u.pos.Hash, irreversible)
	}
	return nil
}

// findLegalMove resolves a UCI move string against the current position.
func (u *UCI) findLegalMove(moveStr string) (board.Move, error) {
	m, err := board.ParseMove(moveStr, u.pos)
	if err != nil {
		return board.NoMove, err
	}
	var legal board.MoveList
	u.pos.GenerateLegalMoves(&legal)
	if !legal.Contains(m) {
		return board.NoMove, &engine.IllegalMoveError{MoveText: moveStr, FEN: u.pos.ToFEN()}
	}
	return m, nil
}

func (u *UCI) handleGo(args []string) {
	if u.searching {
		return
	}
	cmd, err := engine.ParseGoCommand(args)
	if err != nil {
		u.printf("info string %v", err)
		return
	}

	u.engine.OnInfo = func(info engine.SearchInfo) {
		u.printf("info %s", info)
	}

	pos := u.pos.Copy()
	history := u.history.Clone()
	u.searching = true
	u.searchDone = make(chan struct{})

	go func() {
		defer close(u.searchDone)
		best, err := u.engine.Search(pos, history, cmd)
		u.searching = false
		if err != nil {
			log.Warningf("search: %v", err)
		}
		u.printf("bestmove %s", best)
	}()
}

func (u *UCI) handleStop() {
	if !u.searching {
		return
	}
	u.engine.Stop()
	<-u.searchDone
}

// WaitSearch blocks until an in-flight search finishes.
func (u *UCI) WaitSearch() {
	if u.searchDone != nil {
		<-u.searchDone
	}
}

func (u *UCI) handleSetOption(args []string) {
	var name, value string
	target := &name
	for _, a := range args {
		switch a {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if *target != "" {
				*target += " "
			}
			*target += a
		}
	}

	fail := func(err error) {
		u.printf("info string %v", err)
	}
	switch strings.ToLower(name) {
	case "hash":
		mb, err := strconv.Atoi(value)
		if err != nil {
			fail(fmt.Errorf("bad Hash value %q", value))
			return
		}
		if err := u.engine.SetHashSize(mb); err != nil {
			fail(err)
		}
	case "threads":
		n, err := strconv.Atoi(value)
		if err != nil {
			fail(fmt.Errorf("bad Threads value %q", value))
			return
		}
		if err := u.engine.SetThreads(n); err != nil {
			fail(err)
		}
	case "move overhead":
		ms, err := strconv.Atoi(value)
		if err != nil {
			fail(fmt.Errorf("bad Move Overhead value %q", value))
			return
		}
		if err := u.engine.SetMoveOverhead(ms); err != nil {
			fail(err)
		}
	case "disableallprunings":
		u.engine.SetDisableAllPrunings(strings.EqualFold(value, "true"))
	default:
		u.printf("info string unknown option %q", name)
	}
}

func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}
	start := time.Now()
	nodes := u.engine.Perft(u.pos, depth)
	elapsed := time.Since(start)
	u.printf("nodes %d", nodes)
	u.printf("time %v", elapsed)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
