package pmi

import (
	"fmt"
	"math"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// PMI calculates the pointwise mutual information of a symbol pair
//
// PMI(a,b) = log(c_ab) - log(f_a) - log(f_b) + 2·log(Σf) - log(Σc)
//
// Where:
//   - c_ab = weighted number of times a was aligned with b
//   - f_a, f_b = weighted marginal counts of each symbol
//   - Σf, Σc = totals of the marginal and pair counts
func PMI(cAB, fA, fB, sumF, sumC float64) float64 {
	return math.Log(cAB) - math.Log(fA) - math.Log(fB) + 2*math.Log(sumF) - math.Log(sumC)
}

// Compute turns counts into a partial substitution table. Only observed
// pairs receive an entry. A non-positive count for an observed pair is
// reported as ErrUnderflow rather than producing -Inf.
func Compute(c *Counter) (*Table, error) {
	if c.TotalPairs() <= 0 || c.TotalSymbols() <= 0 {
		return nil, fmt.Errorf("compute pmi: empty batch: %w", internalerr.ErrUnderflow)
	}

	t := NewTable(c.size)
	for a := 0; a < c.size; a++ {
		for b := a; b < c.size; b++ {
			if !c.Observed(a, b) {
				continue
			}
			cAB, fA, fB := c.PairCount(a, b), c.SymbolCount(a), c.SymbolCount(b)
			if cAB <= 0 || fA <= 0 || fB <= 0 {
				return nil, fmt.Errorf("compute pmi (%d,%d): zero count: %w", a, b, internalerr.ErrUnderflow)
			}
			t.Set(a, b, PMI(cAB, fA, fB, c.TotalSymbols(), c.TotalPairs()))
		}
	}
	return t, nil
}

// ComputePMI builds a partial table from weighted alignments. A nil weights
// slice weighs every alignment 1.
func ComputePMI(size int, alignments []align.Alignment, weights []float64) (*Table, error) {
	if weights != nil && len(weights) != len(alignments) {
		return nil, fmt.Errorf("compute pmi: %d alignments, %d weights: %w",
			len(alignments), len(weights), internalerr.ErrInvalidInput)
	}

	c := NewCounter(size)
	for i, alg := range alignments {
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		c.Add(alg, w)
	}
	return Compute(c)
}
