package phmm

// Trellis holds per-cell state probabilities for Match, InsertX and InsertY.
// Cells are stored row-major.
type Trellis struct {
	Rows, Cols int
	M, X, Y    []float64
}

func newTrellis(rows, cols int) *Trellis {
	return &Trellis{
		Rows: rows,
		Cols: cols,
		M:    make([]float64, rows*cols),
		X:    make([]float64, rows*cols),
		Y:    make([]float64, rows*cols),
	}
}

// At returns the three state values of cell (i, j).
func (t *Trellis) At(i, j int) (m, x, y float64) {
	k := i*t.Cols + j
	return t.M[k], t.X[k], t.Y[k]
}

func (t *Trellis) set(i, j int, m, x, y float64) {
	k := i*t.Cols + j
	t.M[k], t.X[k], t.Y[k] = m, x, y
}
