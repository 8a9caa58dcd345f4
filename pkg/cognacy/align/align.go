// Package align implements the pairwise sequence aligner used by both
// scorers: a normalized edit distance pre-filter and Needleman-Wunsch with
// affine gap penalties over alphabet-encoded symbol sequences.
package align

import (
	"fmt"
	"slices"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Gap is the symbol index standing for an indel in an alignment column.
const Gap = -1

// Column is one aligned position. Either side may be Gap, never both.
type Column struct {
	X, Y int
}

// IsGap reports whether either side of the column is a gap.
func (c Column) IsGap() bool {
	return c.X == Gap || c.Y == Gap
}

// Alignment is an ordered sequence of aligned columns.
type Alignment []Column

// Pair holds two encoded sequences to be aligned or scored together.
type Pair struct {
	X, Y []int
}

// Empty reports whether either sequence of the pair has zero length.
func (p Pair) Empty() bool {
	return len(p.X) == 0 || len(p.Y) == 0
}

// Table supplies substitution scores. Score(a, Gap) and Score(Gap, b) are
// consulted for per-symbol gap costs when no gap-open penalty is set.
type Table interface {
	Score(a, b int) (float64, bool)
}

// MapTable is a sparse Table keyed by column.
type MapTable map[Column]float64

// Score implements Table.
func (t MapTable) Score(a, b int) (float64, bool) {
	v, ok := t[Column{X: a, Y: b}]
	return v, ok
}

// Options configures Align.
type Options struct {
	// GapOpen is the cost of the first gap in a run. When nil, gap costs are
	// looked up per symbol in the table and default to GapExtend.
	GapOpen   *float64
	GapExtend float64
	Local     bool
}

// DefaultOptions returns the penalties the PMI scorer trains with.
func DefaultOptions() Options {
	return Options{GapOpen: Float(-2.5), GapExtend: -1.75}
}

// Float returns a pointer to v, for Options.GapOpen.
func Float(v float64) *float64 {
	return &v
}

// Result is the optimal score and one optimal alignment.
type Result struct {
	Score     float64
	Alignment Alignment
}

// traceback pointers, in tie-break order
const (
	opDiag uint8 = iota
	opUp         // x symbol against a gap
	opLeft       // gap against a y symbol
)

// Align aligns x and y. When several moves reach the best score of a cell
// the diagonal wins, then the move consuming x, then the move consuming y.
func Align(x, y []int, table Table, opts Options) (Result, error) {
	if len(x) == 0 || len(y) == 0 {
		return Result{}, fmt.Errorf("align %d×%d: %w", len(x), len(y), internalerr.ErrEmptySequence)
	}

	s := costs{table: table, opts: opts}
	n, m := len(x), len(y)
	cols := m + 1
	dp := make([]float64, (n+1)*cols)
	ptr := make([]uint8, (n+1)*cols)

	if !opts.Local {
		for i := 1; i <= n; i++ {
			dp[i*cols] = dp[(i-1)*cols] + s.gap(x[i-1], Gap, i > 1)
			ptr[i*cols] = opUp
		}
		for j := 1; j <= m; j++ {
			dp[j] = dp[j-1] + s.gap(Gap, y[j-1], j > 1)
			ptr[j] = opLeft
		}
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			up := (i-1)*cols + j
			left := i*cols + j - 1

			best, op := dp[up-1]+s.sub(x[i-1], y[j-1]), opDiag
			if v := dp[up] + s.gap(x[i-1], Gap, ptr[up] == opUp); v > best {
				best, op = v, opUp
			}
			if v := dp[left] + s.gap(Gap, y[j-1], ptr[left] == opLeft); v > best {
				best, op = v, opLeft
			}
			if opts.Local && best < 0 {
				best = 0
			}
			dp[i*cols+j] = best
			ptr[i*cols+j] = op
		}
	}

	i, j := n, m
	if opts.Local {
		i, j = 0, 0
		for a := 0; a <= n; a++ {
			for b := 0; b <= m; b++ {
				if dp[a*cols+b] > dp[i*cols+j] {
					i, j = a, b
				}
			}
		}
	}

	res := Result{Score: dp[i*cols+j]}
	for i > 0 || j > 0 {
		switch ptr[i*cols+j] {
		case opDiag:
			i--
			j--
			res.Alignment = append(res.Alignment, Column{X: x[i], Y: y[j]})
		case opUp:
			i--
			res.Alignment = append(res.Alignment, Column{X: x[i], Y: Gap})
		case opLeft:
			j--
			res.Alignment = append(res.Alignment, Column{X: Gap, Y: y[j]})
		}
		if opts.Local && dp[i*cols+j] == 0 {
			break
		}
	}
	slices.Reverse(res.Alignment)

	return res, nil
}

type costs struct {
	table Table
	opts  Options
}

func (c costs) lookup(a, b int) (float64, bool) {
	if c.table == nil {
		return 0, false
	}
	return c.table.Score(a, b)
}

func (c costs) sub(a, b int) float64 {
	if v, ok := c.lookup(a, b); ok {
		return v
	}
	if a == b {
		return 1
	}
	return -1
}

// gap returns the cost of aligning a symbol against a gap. extend is set
// when the predecessor cell was reached by a gap in the same direction.
func (c costs) gap(a, b int, extend bool) float64 {
	if c.opts.GapOpen == nil {
		if v, ok := c.lookup(a, b); ok {
			return v
		}
		return c.opts.GapExtend
	}
	if extend {
		return c.opts.GapExtend
	}
	return *c.opts.GapOpen
}
