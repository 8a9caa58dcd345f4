package phmm

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// PseudoCounts seed every accumulator so that normalization never divides
// by zero.
type PseudoCounts struct {
	Emission   float64
	Gap        float64
	Transition float64
}

// DefaultPseudoCounts returns the seeds used in training.
func DefaultPseudoCounts() PseudoCounts {
	return PseudoCounts{Emission: 1e-4, Gap: 1e-4, Transition: 10}
}

// Counts are Baum-Welch expected counts for one batch.
type Counts struct {
	Size int
	Em   []float64
	GX   []float64
	GY   []float64

	// transitions leaving Match
	MatchMatch float64
	MatchGap   float64 // to either gap state
	MatchEnd   float64

	// transitions leaving a gap state
	GapMatch  float64
	GapExtend float64
	GapSwitch float64
	GapEnd    float64

	Pairs     int // pairs that contributed
	Underflow int // pairs skipped because their probability was zero
}

// NewCounts creates accumulators seeded with pc.
func NewCounts(size int, pc PseudoCounts) *Counts {
	c := &Counts{
		Size: size,
		Em:   make([]float64, size*size),
		GX:   make([]float64, size),
		GY:   make([]float64, size),

		MatchMatch: pc.Transition,
		MatchGap:   pc.Transition,
		MatchEnd:   pc.Transition,
		GapMatch:   pc.Transition,
		GapExtend:  pc.Transition,
		GapSwitch:  pc.Transition,
		GapEnd:     pc.Transition,
	}
	for i := range c.Em {
		c.Em[i] = pc.Emission
	}
	for i := range c.GX {
		c.GX[i] = pc.Gap
		c.GY[i] = pc.Gap
	}
	return c
}

// Accumulate adds weight times the expected counts of every pair to c.
// Pairs with an empty side are ignored; pairs whose forward probability is
// zero are skipped and counted in c.Underflow.
func (m *Model) Accumulate(pairs []align.Pair, weight float64, c *Counts) error {
	for _, pair := range pairs {
		if pair.Empty() {
			continue
		}
		err := m.accumulatePair(pair.X, pair.Y, weight, c)
		if errors.Is(err, internalerr.ErrUnderflow) {
			c.Underflow++
			continue
		}
		if err != nil {
			return err
		}
		c.Pairs++
	}
	return nil
}

func (m *Model) accumulatePair(s1, s2 []int, weight float64, c *Counts) error {
	f, prob, err := m.Forward(s1, s2)
	if err != nil {
		return err
	}
	if prob <= 0 {
		return fmt.Errorf("accumulate: zero forward probability: %w", internalerr.ErrUnderflow)
	}
	b, err := m.Backward(s1, s2)
	if err != nil {
		return err
	}

	p := m.p
	tr := p.Trans
	stayM, stayXY := tr.MatchToMatch(), tr.GapToMatch()
	n, k := len(s1), len(s2)
	w := weight / prob

	// Cell (i,j) is the state after emitting s1[:i] and s2[:j]: forward
	// index (i+1,j+1), backward index (i,j). The begin cell (0,0) emits
	// nothing and its transitions are not counted.
	for i := 0; i <= n; i++ {
		for j := 0; j <= k; j++ {
			if i == 0 && j == 0 {
				continue
			}
			am, ax, ay := f.At(i+1, j+1)
			bm, bx, by := b.At(i, j)

			if i > 0 && j > 0 {
				x, y := s1[i-1], s2[j-1]
				v := w * am * bm
				c.Em[x*c.Size+y] += v
				c.Em[y*c.Size+x] += v
			}
			if i > 0 {
				c.GX[s1[i-1]] += w * ax * bx
			}
			if j > 0 {
				c.GY[s2[j-1]] += w * ay * by
			}

			if i < n && j < k {
				nm, _, _ := b.At(i+1, j+1)
				next := p.Emission(s1[i], s2[j]) * nm
				c.MatchMatch += w * am * stayM * next
				c.GapMatch += w * (ax + ay) * stayXY * next
			}
			if i < n {
				_, nx, _ := b.At(i+1, j)
				next := p.GX[s1[i]] * nx
				c.MatchGap += w * am * tr.Delta * next
				c.GapExtend += w * ax * tr.Epsilon * next
				c.GapSwitch += w * ay * tr.Lambda * next
			}
			if j < k {
				_, _, ny := b.At(i, j+1)
				next := p.GY[s2[j]] * ny
				c.MatchGap += w * am * tr.Delta * next
				c.GapExtend += w * ay * tr.Epsilon * next
				c.GapSwitch += w * ax * tr.Lambda * next
			}
			if i == n && j == k {
				c.MatchEnd += w * am * tr.TauM
				c.GapEnd += w * (ax + ay) * tr.TauXY
			}
		}
	}
	return nil
}

// Normalize turns expected counts into parameters. Emissions are
// normalized over the whole matrix; each gap vector sums to one, and when
// tieGaps is set both vectors are the normalized sum of the two. Match-exit
// and gap-exit transitions are normalized by their own totals.
func Normalize(c *Counts, tieGaps bool) (*Params, error) {
	p := &Params{
		Size: c.Size,
		Em:   make([]float64, len(c.Em)),
		GX:   make([]float64, len(c.GX)),
		GY:   make([]float64, len(c.GY)),
	}
	copy(p.Em, c.Em)
	copy(p.GX, c.GX)
	copy(p.GY, c.GY)

	if tieGaps {
		floats.Add(p.GX, c.GY)
		copy(p.GY, p.GX)
	}

	for name, v := range map[string][]float64{"emission": p.Em, "gapX": p.GX, "gapY": p.GY} {
		s := floats.Sum(v)
		if s <= 0 {
			return nil, fmt.Errorf("normalize %s: zero total: %w", name, internalerr.ErrUnderflow)
		}
		floats.Scale(1/s, v)
	}

	mNorm := c.MatchMatch + c.MatchGap + c.MatchEnd
	gNorm := c.GapMatch + c.GapExtend + c.GapSwitch + c.GapEnd
	if mNorm <= 0 || gNorm <= 0 {
		return nil, fmt.Errorf("normalize transitions: zero total: %w", internalerr.ErrUnderflow)
	}
	p.Trans = Transitions{
		Delta:   c.MatchGap / 2 / mNorm,
		Epsilon: c.GapExtend / gNorm,
		Lambda:  c.GapSwitch / gNorm,
		TauM:    c.MatchEnd / mNorm,
		TauXY:   c.GapEnd / gNorm,
	}
	return p, nil
}
