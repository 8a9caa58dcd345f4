// Package score turns trained models into distances between synonymous
// words. Throughout the pipeline a distance is 1 - sigmoid(similarity): it
// lies in [0,1] and lower means more similar.
package score

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/alphabet"
	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/phmm"
)

// Key identifies an unordered word pair. A never sorts after B.
type Key struct {
	A, B dataset.Word
}

// NewKey returns the canonical key of a and b
func NewKey(a, b dataset.Word) Key {
	if b.Less(a) {
		a, b = b, a
	}
	return Key{A: a, B: b}
}

// Distances maps word pairs to distances in [0,1]
type Distances map[Key]float64

// Get looks up a pair in either order
func (d Distances) Get(a, b dataset.Word) (float64, bool) {
	v, ok := d[NewKey(a, b)]
	return v, ok
}

// Report counts how the distances were obtained
type Report struct {
	Pairs     int
	Empty     int // pairs with an empty transcription
	Underflow int // pairs whose probability vanished, scored 1
}

// Sigmoid is the logistic function
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Distance maps a similarity onto [0,1], lower meaning more similar
func Distance(similarity float64) float64 {
	return 1 - Sigmoid(similarity)
}

// Equilibrium normalizes symbol counts into frequencies
func Equilibrium(counts []float64) ([]float64, error) {
	s := floats.Sum(counts)
	if s <= 0 {
		return nil, fmt.Errorf("equilibrium: no symbols counted: %w", internalerr.ErrUnderflow)
	}
	out := make([]float64, len(counts))
	copy(out, counts)
	floats.Scale(1/s, out)
	return out, nil
}

// Scale selects how a pair HMM score becomes a similarity
type Scale int

const (
	// ScaleRatio uses P_viterbi / P_random as is
	ScaleRatio Scale = iota
	// ScaleLogOdds uses log P_viterbi - log P_random
	ScaleLogOdds
)

func (s Scale) String() string {
	if s == ScaleLogOdds {
		return "logodds"
	}
	return "ratio"
}

// ParseScale is the inverse of Scale.String
func ParseScale(s string) (Scale, error) {
	switch s {
	case "ratio", "":
		return ScaleRatio, nil
	case "logodds":
		return ScaleLogOdds, nil
	}
	return 0, fmt.Errorf("scale %q: %w", s, internalerr.ErrInvalidConfig)
}

// BreakEven returns the distance of a pair the pair HMM explains exactly as
// well as the random model. Under ScaleRatio every distance is at most 0.5,
// so clustering thresholds have to sit below it.
func (s Scale) BreakEven() float64 {
	if s == ScaleLogOdds {
		return Distance(0)
	}
	return Distance(1)
}

// emptyDistance applies the empty transcription policy: two empty words
// are identical, one empty word is maximally distant.
func emptyDistance(x, y []int) float64 {
	if len(x) == 0 && len(y) == 0 {
		return 0
	}
	return 1
}

type scorer func(x, y []int) (float64, error)

func apply(pairs []dataset.WordPair, a *alphabet.Alphabet, fn scorer) (Distances, Report, error) {
	out := make(Distances, len(pairs))
	var rep Report
	for _, p := range pairs {
		x, err := a.Encode(p.A.ASJP)
		if err != nil {
			return nil, rep, fmt.Errorf("score %s: %w", p.A, err)
		}
		y, err := a.Encode(p.B.ASJP)
		if err != nil {
			return nil, rep, fmt.Errorf("score %s: %w", p.B, err)
		}

		key := NewKey(p.A, p.B)
		if _, dup := out[key]; dup {
			continue
		}
		rep.Pairs++

		if len(x) == 0 || len(y) == 0 {
			out[key] = emptyDistance(x, y)
			rep.Empty++
			continue
		}

		d, err := fn(x, y)
		if errors.Is(err, internalerr.ErrUnderflow) {
			out[key] = 1
			rep.Underflow++
			continue
		}
		if err != nil {
			return nil, rep, fmt.Errorf("score %s - %s: %w", p.A, p.B, err)
		}
		out[key] = d
	}
	return out, rep, nil
}

// PMI scores every pair by 1 - sigmoid of its alignment score under table
func PMI(pairs []dataset.WordPair, a *alphabet.Alphabet, table align.Table, opts align.Options) (Distances, Report, error) {
	return apply(pairs, a, func(x, y []int) (float64, error) {
		res, err := align.Align(x, y, table, opts)
		if err != nil {
			return 0, err
		}
		return Distance(res.Score), nil
	})
}

// PHMM scores every pair by comparing its Viterbi probability with the
// random model built from the equilibrium frequencies.
func PHMM(pairs []dataset.WordPair, a *alphabet.Alphabet, m *phmm.Model, equilibrium []float64, scale Scale) (Distances, Report, error) {
	return apply(pairs, a, func(x, y []int) (float64, error) {
		_, v, err := m.Viterbi(x, y)
		if err != nil {
			return 0, err
		}
		if v <= 0 {
			return 0, fmt.Errorf("viterbi: %w", internalerr.ErrUnderflow)
		}

		if scale == ScaleRatio {
			r, err := phmm.RandomModel(x, y, equilibrium)
			if err != nil {
				return 0, err
			}
			return Distance(v / r), nil
		}

		lr, err := phmm.LogRandomModel(x, y, equilibrium)
		if err != nil {
			return 0, err
		}
		return Distance(math.Log(v) - lr), nil
	})
}
