package phmm

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Options configures a Learner
type Options struct {
	Pseudo PseudoCounts
	// TieGaps trains a single gap distribution shared by both sequences
	TieGaps bool
}

// DefaultOptions returns the training defaults
func DefaultOptions() Options {
	return Options{Pseudo: DefaultPseudoCounts(), TieGaps: true}
}

// Learner adapts the model to mini-batch EM. It owns its parameters and
// merges batch estimates into them.
type Learner struct {
	params  *Params
	opts    Options
	updates int
}

// NewLearner starts from p, which the learner takes ownership of
func NewLearner(p *Params, opts Options) *Learner {
	return &Learner{params: p, opts: opts}
}

// Params returns the running parameters
func (l *Learner) Params() *Params {
	return l.params
}

// Model returns a model reading the running parameters
func (l *Learner) Model() *Model {
	return NewModel(l.params)
}

// Updates returns the number of merges applied so far
func (l *Learner) Updates() int {
	return l.updates
}

// Accumulate computes expected counts for a batch. Every pair stays in the
// training set.
func (l *Learner) Accumulate(pairs []align.Pair) (*Counts, []align.Pair, error) {
	c := NewCounts(l.params.Size, l.opts.Pseudo)
	if err := l.Model().Accumulate(pairs, 1, c); err != nil {
		return nil, nil, err
	}
	return c, pairs, nil
}

// Normalize turns batch counts into a parameter estimate. A batch to which
// no pair contributed yields ErrUnderflow.
func (l *Learner) Normalize(c *Counts) (*Params, error) {
	if c.Pairs == 0 {
		return nil, fmt.Errorf("phmm normalize: %d pairs underflowed, none usable: %w", c.Underflow, internalerr.ErrUnderflow)
	}
	return Normalize(c, l.opts.TieGaps)
}

// Merge blends a batch estimate into the running parameters
func (l *Learner) Merge(partial *Params, eta float64) {
	l.params.Merge(partial, eta)
	l.updates++
}

// Snapshot returns all parameters as one flat vector
func (l *Learner) Snapshot() []float64 {
	return l.params.Flatten()
}

// LogLikelihood returns the mean log forward probability of the pairs.
// Empty and underflowing pairs are skipped.
func (l *Learner) LogLikelihood(pairs []align.Pair) (float64, error) {
	m := l.Model()
	logs := make(stats.Float64Data, 0, len(pairs))
	for _, p := range pairs {
		if p.Empty() {
			continue
		}
		_, prob, err := m.Forward(p.X, p.Y)
		if err != nil {
			return 0, err
		}
		if prob <= 0 {
			continue
		}
		logs = append(logs, math.Log(prob))
	}
	if len(logs) == 0 {
		return 0, fmt.Errorf("phmm likelihood: no scorable pairs: %w", internalerr.ErrInvalidInput)
	}
	return stats.Mean(logs)
}
