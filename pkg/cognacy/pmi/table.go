package pmi

import "github.com/cognicore/cognacy/pkg/cognacy/align"

// Table is a dense, symmetric substitution table over an alphabet plus the
// gap symbol. Entries are absent until first written.
type Table struct {
	size   int
	stride int
	vals   []float64
	set    []bool
}

// NewTable creates an empty table for an alphabet of the given size
func NewTable(size int) *Table {
	stride := size + 1
	return &Table{
		size:   size,
		stride: stride,
		vals:   make([]float64, stride*stride),
		set:    make([]bool, stride*stride),
	}
}

// Size returns the alphabet size the table was built for
func (t *Table) Size() int {
	return t.size
}

func (t *Table) index(a, b int) int {
	if a == align.Gap {
		a = t.size
	}
	if b == align.Gap {
		b = t.size
	}
	return a*t.stride + b
}

// Score implements align.Table
func (t *Table) Score(a, b int) (float64, bool) {
	i := t.index(a, b)
	return t.vals[i], t.set[i]
}

// Get returns the score of a pair, 0 when absent
func (t *Table) Get(a, b int) float64 {
	return t.vals[t.index(a, b)]
}

// Set writes the score of (a,b) and (b,a)
func (t *Table) Set(a, b int, v float64) {
	i, j := t.index(a, b), t.index(b, a)
	t.vals[i], t.vals[j] = v, v
	t.set[i], t.set[j] = true, true
}

// Len returns the number of present ordered entries
func (t *Table) Len() int {
	n := 0
	for _, ok := range t.set {
		if ok {
			n++
		}
	}
	return n
}

// Each calls fn for every present entry with a <= b, in index order. The
// gap symbol is passed as align.Gap.
func (t *Table) Each(fn func(a, b int, v float64)) {
	for a := 0; a < t.stride; a++ {
		for b := a; b < t.stride; b++ {
			i := a*t.stride + b
			if !t.set[i] {
				continue
			}
			fn(t.symbol(a), t.symbol(b), t.vals[i])
		}
	}
}

func (t *Table) symbol(i int) int {
	if i == t.size {
		return align.Gap
	}
	return i
}

// Merge blends a partial table into t: t[k] = eta·p[k] + (1-eta)·t[k] for
// every key present in the partial table. Other keys are left untouched.
func (t *Table) Merge(partial *Table, eta float64) {
	partial.Each(func(a, b int, v float64) {
		t.Set(a, b, eta*v+(1-eta)*t.Get(a, b))
	})
}

// Values returns a copy of the dense score array, absent entries as 0
func (t *Table) Values() []float64 {
	out := make([]float64, len(t.vals))
	copy(out, t.vals)
	return out
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	c := NewTable(t.size)
	copy(c.vals, t.vals)
	copy(c.set, t.set)
	return c
}
