package phmm

import (
	"fmt"
	"math"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Model evaluates sequence pairs under a parameter set. It only reads the
// parameters; a Model is safe for concurrent use as long as nobody merges
// into them meanwhile.
type Model struct {
	p *Params
}

// NewModel wraps p without copying it.
func NewModel(p *Params) *Model {
	return &Model{p: p}
}

// Params returns the parameters the model reads.
func (m *Model) Params() *Params {
	return m.p
}

func checkPair(s1, s2 []int) error {
	if len(s1) == 0 || len(s2) == 0 {
		return fmt.Errorf("phmm %d×%d: %w", len(s1), len(s2), internalerr.ErrEmptySequence)
	}
	return nil
}

// Forward fills the forward trellis and returns the total probability of
// the pair summed over all alignments. The trellis is (n+2)×(m+2); cell
// (1,1) holds the begin distribution and cell (i+1,j+1) the probability of
// having emitted s1[:i] and s2[:j].
func (m *Model) Forward(s1, s2 []int) (*Trellis, float64, error) {
	if err := checkPair(s1, s2); err != nil {
		return nil, 0, err
	}

	p := m.p
	tr := p.Trans
	stayM, stayXY := tr.MatchToMatch(), tr.GapToMatch()
	n, k := len(s1), len(s2)

	f := newTrellis(n+2, k+2)
	f.set(1, 1, stayM, tr.Delta, tr.Delta)

	for i := 1; i <= n+1; i++ {
		for j := 1; j <= k+1; j++ {
			if i == 1 && j == 1 {
				continue
			}
			var vm, vx, vy float64
			if i > 1 && j > 1 {
				pm, px, py := f.At(i-1, j-1)
				vm = p.Emission(s1[i-2], s2[j-2]) * (pm*stayM + (px+py)*stayXY)
			}
			if i > 1 {
				pm, px, py := f.At(i-1, j)
				vx = p.GX[s1[i-2]] * (pm*tr.Delta + px*tr.Epsilon + py*tr.Lambda)
			}
			if j > 1 {
				pm, px, py := f.At(i, j-1)
				vy = p.GY[s2[j-2]] * (pm*tr.Delta + px*tr.Lambda + py*tr.Epsilon)
			}
			f.set(i, j, vm, vx, vy)
		}
	}

	fm, fx, fy := f.At(n+1, k+1)
	return f, tr.TauM*fm + tr.TauXY*(fx+fy), nil
}

// Backward fills the backward trellis. It is (n+1)×(m+1); cell (i,j) holds
// the probability of emitting s1[i:] and s2[j:] and ending, given the state
// reached after s1[:i] and s2[:j].
func (m *Model) Backward(s1, s2 []int) (*Trellis, error) {
	if err := checkPair(s1, s2); err != nil {
		return nil, err
	}

	p := m.p
	tr := p.Trans
	stayM, stayXY := tr.MatchToMatch(), tr.GapToMatch()
	n, k := len(s1), len(s2)

	b := newTrellis(n+1, k+1)
	b.set(n, k, tr.TauM, tr.TauXY, tr.TauXY)

	for i := n; i >= 0; i-- {
		for j := k; j >= 0; j-- {
			if i == n && j == k {
				continue
			}
			var nm, nx, ny float64
			if i < n && j < k {
				bm, _, _ := b.At(i+1, j+1)
				nm = bm * p.Emission(s1[i], s2[j])
			}
			if i < n {
				_, bx, _ := b.At(i+1, j)
				nx = bx * p.GX[s1[i]]
			}
			if j < k {
				_, _, by := b.At(i, j+1)
				ny = by * p.GY[s2[j]]
			}
			b.set(i, j,
				stayM*nm+tr.Delta*(nx+ny),
				stayXY*nm+tr.Epsilon*nx+tr.Lambda*ny,
				stayXY*nm+tr.Lambda*nx+tr.Epsilon*ny,
			)
		}
	}
	return b, nil
}

// Viterbi is Forward with max in place of the sums. It returns the
// probability of the single best alignment; no traceback is kept.
func (m *Model) Viterbi(s1, s2 []int) (*Trellis, float64, error) {
	if err := checkPair(s1, s2); err != nil {
		return nil, 0, err
	}

	p := m.p
	tr := p.Trans
	stayM, stayXY := tr.MatchToMatch(), tr.GapToMatch()
	n, k := len(s1), len(s2)

	v := newTrellis(n+2, k+2)
	v.set(1, 1, stayM, tr.Delta, tr.Delta)

	for i := 1; i <= n+1; i++ {
		for j := 1; j <= k+1; j++ {
			if i == 1 && j == 1 {
				continue
			}
			var vm, vx, vy float64
			if i > 1 && j > 1 {
				pm, px, py := v.At(i-1, j-1)
				vm = p.Emission(s1[i-2], s2[j-2]) * max(pm*stayM, px*stayXY, py*stayXY)
			}
			if i > 1 {
				pm, px, py := v.At(i-1, j)
				vx = p.GX[s1[i-2]] * max(pm*tr.Delta, px*tr.Epsilon, py*tr.Lambda)
			}
			if j > 1 {
				pm, px, py := v.At(i, j-1)
				vy = p.GY[s2[j-2]] * max(pm*tr.Delta, px*tr.Lambda, py*tr.Epsilon)
			}
			v.set(i, j, vm, vx, vy)
		}
	}

	vm, vx, vy := v.At(n+1, k+1)
	return v, max(tr.TauM*vm, tr.TauXY*vx, tr.TauXY*vy), nil
}

// RandomModel returns the probability of the pair as two unrelated draws
// from the equilibrium distribution, with a geometric length factor
// η=1/(L/2+1) where L=|s1|+|s2|.
func RandomModel(s1, s2 []int, equilibrium []float64) (float64, error) {
	l := float64(len(s1) + len(s2))
	eta := 1 / (l/2 + 1)

	r := eta * eta * math.Pow(1-eta, l)
	for _, s := range s1 {
		r *= equilibrium[s]
	}
	for _, s := range s2 {
		r *= equilibrium[s]
	}
	if r == 0 {
		return 0, fmt.Errorf("random model %d×%d: %w", len(s1), len(s2), internalerr.ErrUnderflow)
	}
	return r, nil
}

// LogRandomModel is the natural log of RandomModel, computed in log space
// so that only zero equilibrium entries underflow.
func LogRandomModel(s1, s2 []int, equilibrium []float64) (float64, error) {
	l := float64(len(s1) + len(s2))
	eta := 1 / (l/2 + 1)

	r := 2*math.Log(eta) + l*math.Log1p(-eta)
	for _, seq := range [][]int{s1, s2} {
		for _, s := range seq {
			if equilibrium[s] <= 0 {
				return 0, fmt.Errorf("random model: zero equilibrium for symbol %d: %w", s, internalerr.ErrUnderflow)
			}
			r += math.Log(equilibrium[s])
		}
	}
	return r, nil
}
