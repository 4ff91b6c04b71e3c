package engine

import "time"

// Properties holds the tunable search switches. DisableAllPrunings
// bypasses LMR, null move, razoring, futility and TT score reuse, for
// correctness testing against a plain negamax; move generation and the
// returned best moves stay correct.
type Properties struct {
	UseLMR                 bool
	UseMateDistancePruning bool
	DisableAllPrunings     bool
}

// DefaultProperties returns the standard search configuration.
func DefaultProperties() Properties {
	return Properties{
		UseLMR:                 true,
		UseMateDistancePruning: true,
	}
}

// useLMR reports whether late move reductions are active.
func (p Properties) useLMR() bool {
	return p.UseLMR && !p.DisableAllPrunings
}

// useMateDistancePruning reports whether mate distance pruning is active.
func (p Properties) useMateDistancePruning() bool {
	return p.UseMateDistancePruning && !p.DisableAllPrunings
}

// SpinOption is a UCI spin option with its declared range.
type SpinOption struct {
	Name     string
	Default  int
	Min, Max int
}

// Validate checks value against the declared range.
func (o SpinOption) Validate(value int) error {
	if value < o.Min || value > o.Max {
		return invalidConfigf("%s must be in [%d, %d], got %d", o.Name, o.Min, o.Max, value)
	}
	return nil
}

// Declared option ranges.
var (
	HashOption         = SpinOption{Name: "Hash", Default: 16, Min: 1, Max: 1 << 20}
	ThreadsOption      = SpinOption{Name: "Threads", Default: 1, Min: 1, Max: 1024}
	MoveOverheadOption = SpinOption{Name: "Move Overhead", Default: 100, Min: 0, Max: 60_000}
)

// DefaultMoveOverhead is subtracted from every time allotment to absorb
// transport latency.
const DefaultMoveOverhead = 100 * time.Millisecond
