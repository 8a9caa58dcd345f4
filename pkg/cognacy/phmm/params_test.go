package phmm

import (
	"errors"
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

func TestUniformIsValid(t *testing.T) {
	p := Uniform(5)

	if err := p.Validate(); err != nil {
		t.Fatalf("Uniform params invalid: %v", err)
	}
	if !closeTo(p.Trans.MatchToMatch(), 0.3, 1e-12) || !closeTo(p.Trans.GapToMatch(), 0.3, 1e-12) {
		t.Errorf("Expected stay probabilities 0.3, got %+v", p.Trans)
	}
}

func TestValidateRejectsBadParams(t *testing.T) {
	cases := map[string]func(*Params){
		"shape":      func(p *Params) { p.GX = p.GX[:1] },
		"negative":   func(p *Params) { p.Em[0] = -p.Em[0] },
		"sum":        func(p *Params) { p.GY[0] += 0.5 },
		"match exit": func(p *Params) { p.Trans.Delta = 0.6 },
		"gap exit":   func(p *Params) { p.Trans.Epsilon = 0.9 },
	}
	for name, mutate := range cases {
		p := Uniform(3)
		mutate(p)
		if err := p.Validate(); !errors.Is(err, internalerr.ErrBadModel) {
			t.Errorf("%s: expected ErrBadModel, got %v", name, err)
		}
	}
}

func TestMerge(t *testing.T) {
	p := Uniform(2)
	q := skewed(2)

	p.Merge(q, 1)
	for i, v := range p.Flatten() {
		if !closeTo(v, q.Flatten()[i], 1e-12) {
			t.Fatalf("eta=1 should copy the partial params, index %d: %g vs %g", i, v, q.Flatten()[i])
		}
	}

	p = Uniform(2)
	p.Merge(q, 0.5)
	if want := (0.3 + 0.2) / 2; !closeTo(p.Trans.Delta, want, 1e-12) {
		t.Errorf("Expected δ=%g, got %g", want, p.Trans.Delta)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Convex combination should stay valid: %v", err)
	}
}

func TestMergeBlendsEveryTransition(t *testing.T) {
	p := Uniform(2)
	p.Merge(skewed(2), 0.25)

	want := Transitions{
		Delta:   0.75*0.3 + 0.25*0.2,
		Epsilon: 0.75*0.3 + 0.25*0.35,
		Lambda:  0.75*0.3 + 0.25*0.15,
		TauM:    0.75*0.1 + 0.25*0.1,
		TauXY:   0.75*0.1 + 0.25*0.2,
	}
	got := p.Trans.Vector()
	for i, w := range want.Vector() {
		if !closeTo(got[i], w, 1e-12) {
			t.Errorf("Transition %d: expected %g, got %g", i, w, got[i])
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := Uniform(2)
	c := p.Clone()
	c.Em[0] = 1

	if p.Em[0] == 1 {
		t.Error("Clone should not share emission storage")
	}
}

func TestFlattenLength(t *testing.T) {
	if got := len(Uniform(3).Flatten()); got != 9+3+3+5 {
		t.Errorf("Expected 20 values, got %d", got)
	}
}
