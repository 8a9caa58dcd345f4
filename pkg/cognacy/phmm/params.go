// Package phmm implements a three-state pair hidden Markov model (Match,
// InsertX, InsertY) over alphabet-encoded sequences, with forward, backward
// and Viterbi passes and Baum-Welch expected-count accumulation.
package phmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Transitions are the five free transition probabilities of the model.
type Transitions struct {
	Delta   float64 // Match -> InsertX, and Match -> InsertY
	Epsilon float64 // gap extension
	Lambda  float64 // InsertX <-> InsertY
	TauM    float64 // Match -> End
	TauXY   float64 // gap state -> End
}

// MatchToMatch returns the stay-in-Match probability 1-2δ-τM.
func (t Transitions) MatchToMatch() float64 {
	return 1 - 2*t.Delta - t.TauM
}

// GapToMatch returns the gap-to-Match probability 1-ε-λ-τXY.
func (t Transitions) GapToMatch() float64 {
	return 1 - t.Epsilon - t.Lambda - t.TauXY
}

// Vector returns the transitions in the order δ, ε, λ, τM, τXY.
func (t Transitions) Vector() []float64 {
	return []float64{t.Delta, t.Epsilon, t.Lambda, t.TauM, t.TauXY}
}

// TransitionsFromVector is the inverse of Transitions.Vector.
func TransitionsFromVector(v []float64) (Transitions, error) {
	if len(v) != 5 {
		return Transitions{}, fmt.Errorf("transitions: want 5 values, got %d: %w", len(v), internalerr.ErrBadModel)
	}
	return Transitions{Delta: v[0], Epsilon: v[1], Lambda: v[2], TauM: v[3], TauXY: v[4]}, nil
}

// Params holds the model parameters for an alphabet of Size symbols. Em is
// row-major Size×Size.
type Params struct {
	Size  int
	Em    []float64
	GX    []float64
	GY    []float64
	Trans Transitions
}

// Uniform returns the training starting point: uniform emissions and gaps,
// δ=ε=λ=0.3 and τM=τXY=0.1.
func Uniform(size int) *Params {
	p := &Params{
		Size: size,
		Em:   make([]float64, size*size),
		GX:   make([]float64, size),
		GY:   make([]float64, size),
		Trans: Transitions{
			Delta:   0.3,
			Epsilon: 0.3,
			Lambda:  0.3,
			TauM:    0.1,
			TauXY:   0.1,
		},
	}
	for i := range p.Em {
		p.Em[i] = 1 / float64(size*size)
	}
	for i := 0; i < size; i++ {
		p.GX[i] = 1 / float64(size)
		p.GY[i] = 1 / float64(size)
	}
	return p
}

// Emission returns e[a,b].
func (p *Params) Emission(a, b int) float64 {
	return p.Em[a*p.Size+b]
}

const sumTolerance = 1e-6

// Validate checks shapes, non-negativity and that every distribution sums
// to one.
func (p *Params) Validate() error {
	if p.Size <= 0 {
		return fmt.Errorf("phmm params: size %d: %w", p.Size, internalerr.ErrBadModel)
	}
	if len(p.Em) != p.Size*p.Size || len(p.GX) != p.Size || len(p.GY) != p.Size {
		return fmt.Errorf("phmm params: shape mismatch for size %d: %w", p.Size, internalerr.ErrBadModel)
	}

	for name, v := range map[string][]float64{"emission": p.Em, "gapX": p.GX, "gapY": p.GY} {
		for _, x := range v {
			if x < 0 || math.IsNaN(x) {
				return fmt.Errorf("phmm params: negative %s probability: %w", name, internalerr.ErrBadModel)
			}
		}
		if s := floats.Sum(v); math.Abs(s-1) > sumTolerance {
			return fmt.Errorf("phmm params: %s sums to %f: %w", name, s, internalerr.ErrBadModel)
		}
	}

	for _, x := range p.Trans.Vector() {
		if x < 0 || math.IsNaN(x) {
			return fmt.Errorf("phmm params: negative transition: %w", internalerr.ErrBadModel)
		}
	}
	if p.Trans.MatchToMatch() < -sumTolerance {
		return fmt.Errorf("phmm params: 2δ+τM exceeds 1: %w", internalerr.ErrBadModel)
	}
	if p.Trans.GapToMatch() < -sumTolerance {
		return fmt.Errorf("phmm params: ε+λ+τXY exceeds 1: %w", internalerr.ErrBadModel)
	}
	return nil
}

// Clone returns a deep copy.
func (p *Params) Clone() *Params {
	c := &Params{
		Size:  p.Size,
		Em:    make([]float64, len(p.Em)),
		GX:    make([]float64, len(p.GX)),
		GY:    make([]float64, len(p.GY)),
		Trans: p.Trans,
	}
	copy(c.Em, p.Em)
	copy(c.GX, p.GX)
	copy(c.GY, p.GY)
	return c
}

// Merge replaces every parameter with (1-eta)·p + eta·partial.
func (p *Params) Merge(partial *Params, eta float64) {
	blend := func(dst, src []float64) {
		floats.Scale(1-eta, dst)
		floats.AddScaled(dst, eta, src)
	}
	blend(p.Em, partial.Em)
	blend(p.GX, partial.GX)
	blend(p.GY, partial.GY)

	tv := p.Trans.Vector()
	blend(tv, partial.Trans.Vector())
	p.Trans = Transitions{Delta: tv[0], Epsilon: tv[1], Lambda: tv[2], TauM: tv[3], TauXY: tv[4]}
}

// Flatten concatenates emissions, gap vectors and transitions.
func (p *Params) Flatten() []float64 {
	out := make([]float64, 0, len(p.Em)+len(p.GX)+len(p.GY)+5)
	out = append(out, p.Em...)
	out = append(out, p.GX...)
	out = append(out, p.GY...)
	return append(out, p.Trans.Vector()...)
}
