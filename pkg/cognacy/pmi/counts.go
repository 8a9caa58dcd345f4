package pmi

import "github.com/cognicore/cognacy/pkg/cognacy/align"

// Counter maintains weighted symbol co-occurrence counts over alignments
type Counter struct {
	size     int
	pairs    []float64 // size*size, symmetric
	observed []bool
	freq     []float64
	total    float64 // sum of pairs
	marginal float64 // sum of freq
}

// NewCounter creates a counter over an alphabet of the given size
func NewCounter(size int) *Counter {
	return &Counter{
		size:     size,
		pairs:    make([]float64, size*size),
		observed: make([]bool, size*size),
		freq:     make([]float64, size),
	}
}

// Add updates counts for every non-gap column of an alignment
func (c *Counter) Add(alg align.Alignment, weight float64) {
	for _, col := range alg {
		if col.IsGap() {
			continue
		}
		a, b := col.X, col.Y

		c.pairs[a*c.size+b] += weight
		c.pairs[b*c.size+a] += weight
		c.observed[a*c.size+b] = true
		c.observed[b*c.size+a] = true
		c.freq[a] += 2 * weight
		c.freq[b] += 2 * weight

		c.total += 2 * weight
		c.marginal += 4 * weight
	}
}

// PairCount returns the weighted count of a symbol pair
func (c *Counter) PairCount(a, b int) float64 {
	return c.pairs[a*c.size+b]
}

// Observed reports whether the pair occurred in any added alignment
func (c *Counter) Observed(a, b int) bool {
	return c.observed[a*c.size+b]
}

// SymbolCount returns the weighted marginal count of a symbol
func (c *Counter) SymbolCount(a int) float64 {
	return c.freq[a]
}

// TotalPairs returns the sum of all pair counts
func (c *Counter) TotalPairs() float64 {
	return c.total
}

// TotalSymbols returns the sum of all marginal counts
func (c *Counter) TotalSymbols() float64 {
	return c.marginal
}

// UniquePairs returns the number of observed ordered pairs
func (c *Counter) UniquePairs() int {
	n := 0
	for _, ok := range c.observed {
		if ok {
			n++
		}
	}
	return n
}

// Size returns the alphabet size
func (c *Counter) Size() int {
	return c.size
}
