package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/raaidrt/timecat/internal/board"
)

func TestParseGoCommand(t *testing.T) {
	tests := []struct {
		args []string
		want GoCommand
	}{
		{[]string{}, GoCommand{Kind: GoInfinite}},
		{[]string{"infinite"}, GoCommand{Kind: GoInfinite}},
		{[]string{"ponder"}, GoCommand{Kind: GoPonder}},
		{[]string{"depth", "7"}, GoCommand{Kind: GoDepth, Depth: 7}},
		{[]string{"movetime", "1500"}, GoCommand{Kind: GoMoveTime, MoveTime: 1500 * time.Millisecond}},
		{
			[]string{"wtime", "60000", "btime", "55000", "winc", "1000", "binc", "900", "movestogo", "20"},
			GoCommand{
				Kind:      GoTimed,
				WTime:     time.Minute,
				BTime:     55 * time.Second,
				WInc:      time.Second,
				BInc:      900 * time.Millisecond,
				MovesToGo: 20,
			},
		},
		{
			[]string{"wtime", "1000", "btime", "1000"},
			GoCommand{Kind: GoTimed, WTime: time.Second, BTime: time.Second},
		},
	}
	for _, tc := range tests {
		got, err := ParseGoCommand(tc.args)
		assert.NoError(t, err, "args %v", tc.args)
		assert.Equal(t, tc.want, got, "args %v", tc.args)
	}
}

func TestParseGoCommandErrors(t *testing.T) {
	var parseErr *ParseError
	bad := [][]string{
		{"depth", "3", "movetime", "100"}, // mutually exclusive
		{"infinite", "ponder"},
		{"depth", "3", "wtime", "100"},
		{"depth"},
		{"depth", "x"},
		{"movetime"},
		{"wtime", "1000"}, // btime missing
		{"btime", "1000"}, // wtime missing
		{"frobnicate"},
	}
	for _, args := range bad {
		_, err := ParseGoCommand(args)
		assert.Error(t, err, "args %v", args)
		if err != nil {
			assert.True(t, errors.As(err, &parseErr), "args %v: want ParseError, got %v", args, err)
		}
	}
}

func TestParseGoCommandNegativeDepth(t *testing.T) {
	_, err := ParseGoCommand([]string{"depth", "-3"})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestAllotTime(t *testing.T) {
	cmd := GoCommand{
		Kind:      GoTimed,
		WTime:     2 * time.Minute,
		BTime:     time.Minute,
		WInc:      2 * time.Second,
		MovesToGo: 40,
	}
	got := allotTime(cmd, board.White, 1, 100*time.Millisecond)
	// 120s/40 + 2s - 0.1s = 4.9s
	assert.Equal(t, 4900*time.Millisecond, got)

	// Black uses its own clock, without increment here.
	got = allotTime(cmd, board.Black, 1, 100*time.Millisecond)
	assert.Equal(t, 1400*time.Millisecond, got)

	// The allotment never exceeds 90% of the remaining time.
	short := GoCommand{Kind: GoTimed, WTime: time.Second, BTime: time.Second, MovesToGo: 1}
	got = allotTime(short, board.White, 1, 0)
	assert.Equal(t, 900*time.Millisecond, got)

	// And never drops below the floor.
	tiny := GoCommand{Kind: GoTimed, WTime: 20 * time.Millisecond, BTime: 20 * time.Millisecond}
	got = allotTime(tiny, board.White, 1, 100*time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, got)
}

func TestSearchInfoString(t *testing.T) {
	info := SearchInfo{
		Depth:    8,
		SelDepth: 12,
		Score:    35,
		Nodes:    100_000,
		Time:     time.Second,
		HashFull: 42,
		PV:       []board.Move{board.NewMove(board.E2, board.E4), board.NewMove(board.E7, board.E5)},
	}
	s := info.String()
	assert.Contains(t, s, "depth 8")
	assert.Contains(t, s, "seldepth 12")
	assert.Contains(t, s, "score cp 35")
	assert.Contains(t, s, "nodes 100000")
	assert.Contains(t, s, "nps 100000")
	assert.Contains(t, s, "hashfull 42")
	assert.Contains(t, s, "time 1000")
	assert.Contains(t, s, "pv e2e4 e7e5")

	info.Score = CheckmateScore - 3
	assert.Contains(t, info.String(), "score mate 2")
}

func TestEngineSearchDepth(t *testing.T) {
	eng := NewEngine(16)
	pos := board.NewPosition()

	var infos []SearchInfo
	eng.OnInfo = func(si SearchInfo) { infos = append(infos, si) }

	best, err := eng.Search(pos, nil, NewDepthCommand(3))
	assert.NoError(t, err)

	var legal board.MoveList
	pos.GenerateLegalMoves(&legal)
	assert.True(t, legal.Contains(best), "the best move must be legal")

	assert.NotEmpty(t, infos)
	last := infos[len(infos)-1]
	assert.Equal(t, 3, last.Depth)
	assert.NotEmpty(t, last.PV)
	assert.Greater(t, last.Nodes, uint64(0))
}

func TestEngineSearchFindsMate(t *testing.T) {
	eng := NewEngine(16)
	pos := mustFEN(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")

	best, err := eng.Search(pos, nil, NewDepthCommand(3))
	assert.NoError(t, err)
	assert.Equal(t, "a1a8", best.String())
}

func TestEngineSearchParallel(t *testing.T) {
	eng := NewEngine(16)
	assert.NoError(t, eng.SetThreads(4))
	pos := board.NewPosition()

	best, err := eng.Search(pos, nil, NewDepthCommand(4))
	assert.NoError(t, err)

	var legal board.MoveList
	pos.GenerateLegalMoves(&legal)
	assert.True(t, legal.Contains(best))
}

func TestEngineOptionValidation(t *testing.T) {
	eng := NewEngine(16)
	assert.True(t, errors.Is(eng.SetThreads(0), ErrInvalidConfig))
	assert.True(t, errors.Is(eng.SetThreads(2048), ErrInvalidConfig))
	assert.True(t, errors.Is(eng.SetHashSize(0), ErrInvalidConfig))
	assert.True(t, errors.Is(eng.SetMoveOverhead(-1), ErrInvalidConfig))
	assert.NoError(t, eng.SetThreads(2))
	assert.NoError(t, eng.SetHashSize(32))
	assert.NoError(t, eng.SetMoveOverhead(50))
}

func TestEnginePerft(t *testing.T) {
	eng := NewEngine(1)
	pos := board.NewPosition()
	assert.Equal(t, uint64(20), eng.Perft(pos, 1))
	assert.Equal(t, uint64(400), eng.Perft(pos, 2))
	assert.Equal(t, uint64(8902), eng.Perft(pos, 3))
}
