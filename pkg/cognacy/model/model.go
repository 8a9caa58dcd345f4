// Package model defines the trained-model artifact shared by the CLI and
// the stores: either a PMI substitution table or pair HMM parameters,
// together with the alphabet they are indexed by.
package model

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/alphabet"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/phmm"
	"github.com/cognicore/cognacy/pkg/cognacy/pmi"
)

// Kind tags the model variant
type Kind string

const (
	KindPMI  Kind = "pmi"
	KindPHMM Kind = "phmm"
)

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPMI, KindPHMM:
		return Kind(s), nil
	}
	return "", fmt.Errorf("model kind %q: %w", s, internalerr.ErrInvalidInput)
}

// Entry is one substitution table score. An empty symbol stands for a gap.
type Entry struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// Model is a trained model. Only the fields of its Kind are set.
type Model struct {
	ID        string    `json:"id,omitempty"`
	Kind      Kind      `json:"kind"`
	Symbols   string    `json:"alphabet"`
	CreatedAt time.Time `json:"created_at"`

	PMI []Entry `json:"pmi,omitempty"`

	Em    []float64 `json:"em,omitempty"`
	GX    []float64 `json:"gx,omitempty"`
	GY    []float64 `json:"gy,omitempty"`
	Trans []float64 `json:"trans,omitempty"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new lexicographically sortable model ID
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

func symbol(a *alphabet.Alphabet, i int) string {
	if i == align.Gap {
		return ""
	}
	return string(a.Symbol(i))
}

// FromPMI captures a trained substitution table
func FromPMI(a *alphabet.Alphabet, t *pmi.Table) *Model {
	m := &Model{Kind: KindPMI, Symbols: a.String(), CreatedAt: time.Now().UTC()}
	t.Each(func(x, y int, v float64) {
		m.PMI = append(m.PMI, Entry{A: symbol(a, x), B: symbol(a, y), Score: v})
	})
	return m
}

// FromPHMM captures trained pair HMM parameters
func FromPHMM(a *alphabet.Alphabet, p *phmm.Params) *Model {
	c := p.Clone()
	return &Model{
		Kind:      KindPHMM,
		Symbols:   a.String(),
		CreatedAt: time.Now().UTC(),
		Em:        c.Em,
		GX:        c.GX,
		GY:        c.GY,
		Trans:     c.Trans.Vector(),
	}
}

// Alphabet rebuilds the alphabet in its stored order
func (m *Model) Alphabet() *alphabet.Alphabet {
	return alphabet.FromSymbols([]rune(m.Symbols))
}

// Validate checks that the fields of the model's kind are consistent
func (m *Model) Validate() error {
	if m.Symbols == "" {
		return fmt.Errorf("model: empty alphabet: %w", internalerr.ErrBadModel)
	}
	switch m.Kind {
	case KindPMI:
		_, err := m.PMITable()
		return err
	case KindPHMM:
		_, err := m.PHMMParams()
		return err
	}
	return fmt.Errorf("model: unknown kind %q: %w", m.Kind, internalerr.ErrBadModel)
}

func index(a *alphabet.Alphabet, s string) (int, error) {
	if s == "" {
		return align.Gap, nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("model: symbol %q: %w", s, internalerr.ErrBadModel)
	}
	i, ok := a.Index(r[0])
	if !ok {
		return 0, fmt.Errorf("model: symbol %q not in alphabet: %w", s, internalerr.ErrBadModel)
	}
	return i, nil
}

// PMITable rebuilds the substitution table
func (m *Model) PMITable() (*pmi.Table, error) {
	if m.Kind != KindPMI {
		return nil, fmt.Errorf("model: %s model has no pmi table: %w", m.Kind, internalerr.ErrBadModel)
	}
	a := m.Alphabet()
	t := pmi.NewTable(a.Size())
	for _, e := range m.PMI {
		x, err := index(a, e.A)
		if err != nil {
			return nil, err
		}
		y, err := index(a, e.B)
		if err != nil {
			return nil, err
		}
		if x == align.Gap && y == align.Gap {
			return nil, fmt.Errorf("model: gap against gap entry: %w", internalerr.ErrBadModel)
		}
		t.Set(x, y, e.Score)
	}
	return t, nil
}

// PHMMParams rebuilds and validates the pair HMM parameters
func (m *Model) PHMMParams() (*phmm.Params, error) {
	if m.Kind != KindPHMM {
		return nil, fmt.Errorf("model: %s model has no pair hmm parameters: %w", m.Kind, internalerr.ErrBadModel)
	}
	tr, err := phmm.TransitionsFromVector(m.Trans)
	if err != nil {
		return nil, err
	}
	p := &phmm.Params{
		Size:  m.Alphabet().Size(),
		Em:    append([]float64(nil), m.Em...),
		GX:    append([]float64(nil), m.GX...),
		GY:    append([]float64(nil), m.GY...),
		Trans: tr,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Encode writes the model as JSON
func Encode(w io.Writer, m *Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Decode reads and validates a JSON model
func Decode(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %v: %w", err, internalerr.ErrBadModel)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteFile saves the model to path
func WriteFile(path string, m *Model) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := Encode(f, m); err != nil {
		f.Close()
		return fmt.Errorf("write model: %w", err)
	}
	return f.Close()
}

// ReadFile loads a model from path
func ReadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
