// Package online drives mini-batch stochastic EM over any scorer that can
// turn a batch of sequence pairs into sufficient statistics and merge the
// resulting estimate into its running parameters.
package online

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Strategy is a trainable scorer. S is the per-batch statistic, P the
// per-batch parameter estimate.
type Strategy[S, P any] interface {
	// Accumulate computes statistics for a batch and returns the pairs that
	// stay in the training set.
	Accumulate(batch []align.Pair) (S, []align.Pair, error)
	// Normalize turns statistics into an estimate. ErrUnderflow marks a
	// batch that carried no usable information.
	Normalize(stats S) (P, error)
	// Merge blends an estimate into the running parameters with weight eta.
	Merge(partial P, eta float64)
	// Snapshot returns the running parameters as a flat vector.
	Snapshot() []float64
	// LogLikelihood returns the mean per-pair log score.
	LogLikelihood(pairs []align.Pair) (float64, error)
}

// Mode selects the convergence criterion.
type Mode int

const (
	// ParameterCloseness stops when no parameter moved more than the
	// tolerance during an epoch.
	ParameterCloseness Mode = iota
	// LikelihoodStabilization stops when the mean log-likelihood changed by
	// less than the tolerance between two epochs.
	LikelihoodStabilization
)

func (m Mode) String() string {
	switch m {
	case ParameterCloseness:
		return "parameters"
	case LikelihoodStabilization:
		return "likelihood"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "parameters", "":
		return ParameterCloseness, nil
	case "likelihood":
		return LikelihoodStabilization, nil
	}
	return 0, fmt.Errorf("convergence mode %q: %w", s, internalerr.ErrInvalidConfig)
}

// Options configures a training run.
type Options struct {
	BatchSize int
	Alpha     float64
	Mode      Mode
	Tolerance float64
	MaxEpochs int
}

// DefaultOptions returns the usual online EM settings.
func DefaultOptions() Options {
	return Options{
		BatchSize: 256,
		Alpha:     0.75,
		Mode:      ParameterCloseness,
		Tolerance: 1e-5,
		MaxEpochs: 15,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d: %w", o.BatchSize, internalerr.ErrInvalidConfig)
	}
	if o.Alpha < 0.5 || o.Alpha > 1 {
		return fmt.Errorf("alpha must be in [0.5, 1], got %f: %w", o.Alpha, internalerr.ErrInvalidConfig)
	}
	if o.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %f: %w", o.Tolerance, internalerr.ErrInvalidConfig)
	}
	if o.MaxEpochs <= 0 {
		return fmt.Errorf("max epochs must be positive, got %d: %w", o.MaxEpochs, internalerr.ErrInvalidConfig)
	}
	if o.Mode != ParameterCloseness && o.Mode != LikelihoodStabilization {
		return fmt.Errorf("unknown convergence mode %d: %w", o.Mode, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Eta returns the merge weight of the k-th update, (k+2)^(-alpha).
func Eta(k int, alpha float64) float64 {
	return math.Pow(float64(k+2), -alpha)
}

// Result summarizes a training run.
type Result struct {
	Epochs         int
	Batches        int // merged batches
	SkippedBatches int // batches whose estimate underflowed
	Pruned         int
	Remaining      int // pairs still in the training set
	Converged      bool
	// LogLikelihood holds the mean log-likelihood after each epoch, only
	// filled in LikelihoodStabilization mode.
	LogLikelihood []float64
}

// Err reports a run that stopped at its epoch cap as ErrNonConvergence.
func (r Result) Err() error {
	if r.Converged {
		return nil
	}
	return fmt.Errorf("stopped after %d epochs: %w", r.Epochs, internalerr.ErrNonConvergence)
}

// Trainer runs stochastic EM for one strategy. It is not safe for
// concurrent use.
type Trainer[S, P any] struct {
	strategy Strategy[S, P]
	rng      *rand.Rand
	logger   *zap.Logger
	updates  int
}

// New creates a trainer. The random source fixes the shuffle order and is
// the only source of randomness in training. A nil logger disables logging.
func New[S, P any](strategy Strategy[S, P], rng *rand.Rand, logger *zap.Logger) *Trainer[S, P] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer[S, P]{strategy: strategy, rng: rng, logger: logger}
}

// Updates returns the number of merges performed so far.
func (t *Trainer[S, P]) Updates() int {
	return t.updates
}

// Run trains on pairs until the convergence criterion holds or MaxEpochs is
// reached. The caller's slice is not modified. Reaching MaxEpochs is not an
// error; see Result.Err.
func (t *Trainer[S, P]) Run(pairs []align.Pair, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}
	if len(pairs) == 0 {
		return Result{}, fmt.Errorf("train: no pairs: %w", internalerr.ErrInvalidInput)
	}

	work := make([]align.Pair, len(pairs))
	copy(work, pairs)

	var res Result
	var prevLL float64
	if opts.Mode == LikelihoodStabilization {
		ll, err := t.strategy.LogLikelihood(work)
		if err != nil {
			return res, fmt.Errorf("initial likelihood: %w", err)
		}
		prevLL = ll
	}

	t.logger.Info("training started",
		zap.String("pairs", humanize.Comma(int64(len(work)))),
		zap.Int("batch_size", opts.BatchSize),
		zap.Stringer("mode", opts.Mode),
	)

	for res.Epochs < opts.MaxEpochs {
		before := t.strategy.Snapshot()

		t.rng.Shuffle(len(work), func(i, j int) { work[i], work[j] = work[j], work[i] })

		kept := make([]align.Pair, 0, len(work))
		for start := 0; start < len(work); start += opts.BatchSize {
			batch := work[start:min(start+opts.BatchSize, len(work))]

			stats, survivors, err := t.strategy.Accumulate(batch)
			if err != nil {
				return res, fmt.Errorf("epoch %d: accumulate: %w", res.Epochs+1, err)
			}
			res.Pruned += len(batch) - len(survivors)
			kept = append(kept, survivors...)

			partial, err := t.strategy.Normalize(stats)
			if errors.Is(err, internalerr.ErrUnderflow) {
				res.SkippedBatches++
				t.logger.Debug("batch skipped", zap.Int("epoch", res.Epochs+1), zap.Error(err))
				continue
			}
			if err != nil {
				return res, fmt.Errorf("epoch %d: normalize: %w", res.Epochs+1, err)
			}

			t.strategy.Merge(partial, Eta(t.updates, opts.Alpha))
			t.updates++
			res.Batches++
		}
		work = kept
		res.Epochs++
		res.Remaining = len(work)

		if len(work) == 0 {
			// nothing left to train on, the parameters are final
			t.logger.Warn("all pairs pruned", zap.Int("epoch", res.Epochs))
			res.Converged = true
			break
		}

		converged := false
		switch opts.Mode {
		case ParameterCloseness:
			converged = floats.EqualApprox(before, t.strategy.Snapshot(), opts.Tolerance)
		case LikelihoodStabilization:
			ll, err := t.strategy.LogLikelihood(work)
			if err != nil {
				return res, fmt.Errorf("epoch %d: likelihood: %w", res.Epochs, err)
			}
			res.LogLikelihood = append(res.LogLikelihood, ll)
			converged = math.Abs(ll-prevLL) < opts.Tolerance
			prevLL = ll
		}

		t.logger.Info("epoch finished",
			zap.Int("epoch", res.Epochs),
			zap.String("remaining", humanize.Comma(int64(res.Remaining))),
			zap.Int("pruned", res.Pruned),
			zap.Bool("converged", converged),
		)

		if converged {
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		t.logger.Warn("training stopped at epoch cap", zap.Int("max_epochs", opts.MaxEpochs))
	}
	return res, nil
}
