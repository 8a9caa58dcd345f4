package pmi

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Options configures a Scorer
type Options struct {
	// Margin is the alignment score at or below which a pair is pruned
	Margin float64
	// Alpha is the decay exponent used by Update, in [0.5, 1]
	Alpha float64
	Align align.Options
}

// DefaultOptions returns the settings the online trainer starts from
func DefaultOptions() Options {
	return Options{
		Margin: 1.0,
		Alpha:  0.75,
		Align:  align.DefaultOptions(),
	}
}

// Batch holds the surviving alignments of one mini-batch and their scores,
// which double as PMI weights.
type Batch struct {
	Alignments []align.Alignment
	Weights    []float64
}

// Scorer trains a substitution table on always improving alignments.
// The table is owned by the scorer; callers read it via Table.
type Scorer struct {
	table   *Table
	opts    Options
	updates int
}

// NewScorer creates a scorer with an empty table
func NewScorer(size int, opts Options) *Scorer {
	return &Scorer{
		table: NewTable(size),
		opts:  opts,
	}
}

// Table returns the running substitution table
func (s *Scorer) Table() *Table {
	return s.table
}

// Updates returns the number of merges applied so far
func (s *Scorer) Updates() int {
	return s.updates
}

// AlignBatch aligns every pair with the current table. Pairs whose score is
// at or below the margin, or that cannot be aligned at all, are dropped from
// kept and counted as pruned.
func (s *Scorer) AlignBatch(pairs []align.Pair) (batch Batch, kept []align.Pair, pruned int) {
	kept = make([]align.Pair, 0, len(pairs))
	for _, p := range pairs {
		res, err := align.Align(p.X, p.Y, s.table, s.opts.Align)
		if err != nil || res.Score <= s.opts.Margin {
			pruned++
			continue
		}
		batch.Alignments = append(batch.Alignments, res.Alignment)
		batch.Weights = append(batch.Weights, res.Score)
		kept = append(kept, p)
	}
	return batch, kept, pruned
}

// Accumulate aligns a batch and returns its sufficient statistics
func (s *Scorer) Accumulate(pairs []align.Pair) (Batch, []align.Pair, error) {
	batch, kept, _ := s.AlignBatch(pairs)
	return batch, kept, nil
}

// Normalize computes the partial PMI table of a batch
func (s *Scorer) Normalize(b Batch) (*Table, error) {
	return ComputePMI(s.table.Size(), b.Alignments, b.Weights)
}

// Merge blends a partial table into the running table with weight eta and
// counts one update.
func (s *Scorer) Merge(partial *Table, eta float64) {
	s.table.Merge(partial, eta)
	s.updates++
}

// Update merges a partial table with the scorer's own decay schedule,
// eta = (updates+2)^(-alpha).
func (s *Scorer) Update(partial *Table) {
	s.Merge(partial, math.Pow(float64(s.updates+2), -s.opts.Alpha))
}

// Snapshot returns the dense table values
func (s *Scorer) Snapshot() []float64 {
	return s.table.Values()
}

// LogLikelihood returns the mean alignment score of the pairs under the
// current table. Pairs with an empty side are skipped.
func (s *Scorer) LogLikelihood(pairs []align.Pair) (float64, error) {
	scores := make(stats.Float64Data, 0, len(pairs))
	for _, p := range pairs {
		res, err := align.Align(p.X, p.Y, s.table, s.opts.Align)
		if errors.Is(err, internalerr.ErrEmptySequence) {
			continue
		}
		if err != nil {
			return 0, err
		}
		scores = append(scores, res.Score)
	}
	if len(scores) == 0 {
		return 0, fmt.Errorf("pmi likelihood: no alignable pairs: %w", internalerr.ErrInvalidInput)
	}
	return stats.Mean(scores)
}
