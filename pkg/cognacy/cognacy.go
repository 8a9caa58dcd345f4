// Package cognacy identifies cognates in multilingual wordlists. It trains a
// PMI substitution table or a pair HMM online on the wordlist itself, scores
// every synonymous word pair and clusters each concept into cognate sets.
package cognacy

import (
	"context"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/alphabet"
	"github.com/cognicore/cognacy/pkg/cognacy/cluster"
	"github.com/cognicore/cognacy/pkg/cognacy/config"
	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/eval"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/online"
	"github.com/cognicore/cognacy/pkg/cognacy/phmm"
	"github.com/cognicore/cognacy/pkg/cognacy/pmi"
	"github.com/cognicore/cognacy/pkg/cognacy/score"
	"github.com/cognicore/cognacy/pkg/cognacy/store"
)

var (
	_ online.Strategy[pmi.Batch, *pmi.Table]      = (*pmi.Scorer)(nil)
	_ online.Strategy[*phmm.Counts, *phmm.Params] = (*phmm.Learner)(nil)
)

// Engine is the main facade over one wordlist
type Engine struct {
	data   *dataset.Dataset
	cfg    *config.Config
	store  store.Store
	logger *zap.Logger
	rng    *rand.Rand
	pairs  [][2]string

	model  *model.Model
	result online.Result
}

// Options configures an Engine
type Options struct {
	Config *config.Config // defaults to config.Default()
	Store  store.Store    // optional, required by Save
	Logger *zap.Logger
	// TrainingPairs replaces the edit distance prefilter with a fixed list
	// of transcription pairs, as read by dataset.ReadPairs.
	TrainingPairs [][2]string
}

// New creates an engine for a dataset. The trainer's random source is
// seeded from the training section of the config.
func New(data *dataset.Dataset, opts Options) *Engine {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var pairs [][2]string
	for _, p := range opts.TrainingPairs {
		if !cfg.Dataset.Raw {
			p = [2]string{alphabet.CleanASJP(p[0]), alphabet.CleanASJP(p[1])}
		}
		pairs = append(pairs, p)
	}

	seed := cfg.Training.Seed
	return &Engine{
		pairs:  pairs,
		data:   data,
		cfg:    cfg,
		store:  opts.Store,
		logger: logger,
		rng:    rand.New(rand.NewPCG(seed, seed)),
	}
}

// Model returns the current model, nil before training or Use
func (e *Engine) Model() *model.Model {
	return e.model
}

// Result returns the summary of the last training run
func (e *Engine) Result() online.Result {
	return e.result
}

// Use installs a previously trained model instead of training one
func (e *Engine) Use(m *model.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	e.model = m
	e.result = online.Result{}
	return nil
}

// alphabet covers the wordlist and any fixed training pairs
func (e *Engine) alphabet() *alphabet.Alphabet {
	if len(e.pairs) == 0 {
		return e.data.Alphabet()
	}
	words := make([]string, 0, e.data.Len()+2*len(e.pairs))
	for _, w := range e.data.Words() {
		words = append(words, w.ASJP)
	}
	for _, p := range e.pairs {
		words = append(words, p[0], p[1])
	}
	return alphabet.New(words...)
}

func (e *Engine) trainingPairs(a *alphabet.Alphabet) ([]align.Pair, error) {
	if len(e.pairs) > 0 {
		out := make([]align.Pair, 0, len(e.pairs))
		for _, p := range e.pairs {
			x, err := a.Encode(p[0])
			if err != nil {
				return nil, err
			}
			y, err := a.Encode(p[1])
			if err != nil {
				return nil, err
			}
			if len(x) == 0 || len(y) == 0 {
				continue
			}
			out = append(out, align.Pair{X: x, Y: y})
		}
		e.logger.Info("training pairs loaded", zap.Int("pairs", len(out)))
		return out, nil
	}

	pairs, err := e.data.TrainingPairs(a, e.cfg.Training.Cutoff)
	if err != nil {
		return nil, err
	}
	e.logger.Info("training pairs selected",
		zap.Int("pairs", len(pairs)),
		zap.Float64("cutoff", e.cfg.Training.Cutoff),
	)
	return pairs, nil
}

// TrainPMI trains a substitution table on the wordlist
func (e *Engine) TrainPMI() (*pmi.Table, online.Result, error) {
	opts, err := e.cfg.OnlineOptions()
	if err != nil {
		return nil, online.Result{}, err
	}
	a := e.alphabet()
	pairs, err := e.trainingPairs(a)
	if err != nil {
		return nil, online.Result{}, err
	}

	scorer := pmi.NewScorer(a.Size(), e.cfg.PMIOptions())
	trainer := online.New[pmi.Batch, *pmi.Table](scorer, e.rng, e.logger.Named("pmi"))
	res, err := trainer.Run(pairs, opts)
	if err != nil {
		return nil, res, fmt.Errorf("train pmi: %w", err)
	}

	e.model = model.FromPMI(a, scorer.Table())
	e.result = res
	return scorer.Table(), res, nil
}

// TrainPHMM trains pair HMM parameters on the wordlist, starting from
// uniform parameters.
func (e *Engine) TrainPHMM() (*phmm.Params, online.Result, error) {
	opts, err := e.cfg.OnlineOptions()
	if err != nil {
		return nil, online.Result{}, err
	}
	a := e.alphabet()
	pairs, err := e.trainingPairs(a)
	if err != nil {
		return nil, online.Result{}, err
	}

	learner := phmm.NewLearner(phmm.Uniform(a.Size()), e.cfg.PHMMOptions())
	trainer := online.New[*phmm.Counts, *phmm.Params](learner, e.rng, e.logger.Named("phmm"))
	res, err := trainer.Run(pairs, opts)
	if err != nil {
		return nil, res, fmt.Errorf("train phmm: %w", err)
	}

	e.model = model.FromPHMM(a, learner.Params())
	e.result = res
	return learner.Params(), res, nil
}

// Train trains a model of the given kind and returns it
func (e *Engine) Train(kind model.Kind) (*model.Model, online.Result, error) {
	var err error
	var res online.Result
	switch kind {
	case model.KindPMI:
		_, res, err = e.TrainPMI()
	case model.KindPHMM:
		_, res, err = e.TrainPHMM()
	default:
		return nil, res, fmt.Errorf("model kind %q: %w", kind, internalerr.ErrInvalidInput)
	}
	if err != nil {
		return nil, res, err
	}
	return e.model, res, nil
}

// Distances scores every cross-doculect synonymous pair with the current
// model.
func (e *Engine) Distances() (score.Distances, score.Report, error) {
	if e.model == nil {
		return nil, score.Report{}, fmt.Errorf("distances: no model: %w", internalerr.ErrNotFound)
	}
	a := e.model.Alphabet()
	pairs := e.data.Pairs()

	var (
		dist score.Distances
		rep  score.Report
		err  error
	)
	switch e.model.Kind {
	case model.KindPMI:
		table, terr := e.model.PMITable()
		if terr != nil {
			return nil, rep, terr
		}
		dist, rep, err = score.PMI(pairs, a, table, e.cfg.PMIOptions().Align)
	case model.KindPHMM:
		params, perr := e.model.PHMMParams()
		if perr != nil {
			return nil, rep, perr
		}
		scale, serr := e.cfg.Scale()
		if serr != nil {
			return nil, rep, serr
		}
		eq, qerr := score.Equilibrium(e.data.SymbolCounts(a))
		if qerr != nil {
			return nil, rep, qerr
		}
		dist, rep, err = score.PHMM(pairs, a, phmm.NewModel(params), eq, scale)
	default:
		return nil, rep, fmt.Errorf("model kind %q: %w", e.model.Kind, internalerr.ErrBadModel)
	}
	if err != nil {
		return nil, rep, err
	}

	if rep.Underflow > 0 {
		e.logger.Warn("pairs scored at maximal distance after underflow", zap.Int("pairs", rep.Underflow))
	}
	e.logger.Info("pairs scored", zap.Int("pairs", rep.Pairs), zap.Int("empty", rep.Empty))
	return dist, rep, nil
}

// Cluster partitions every concept into cognate sets using the current
// model's distances.
func (e *Engine) Cluster() (dataset.Clusters, error) {
	dist, _, err := e.Distances()
	if err != nil {
		return nil, err
	}
	opts, err := e.cfg.ClusterOptions(e.model.Kind)
	if err != nil {
		return nil, err
	}
	return cluster.Cluster(e.data.Concepts(), dist, opts)
}

// Evaluate scores predicted clusters against the dataset's gold cognate
// classes.
func (e *Engine) Evaluate(pred dataset.Clusters) (eval.Scores, error) {
	gold, err := e.data.GoldClusters()
	if err != nil {
		return eval.Scores{}, err
	}
	return eval.FScore(gold, pred)
}

// Save stores the current model and a record of the run that produced it.
// fscore is recorded as is; pass 0 when no evaluation was made.
func (e *Engine) Save(ctx context.Context, datasetName string, fscore float64) (string, error) {
	if e.store == nil {
		return "", fmt.Errorf("save: no store configured: %w", internalerr.ErrInvalidConfig)
	}
	if e.model == nil {
		return "", fmt.Errorf("save: no model: %w", internalerr.ErrNotFound)
	}

	id, err := e.store.SaveModel(ctx, e.model)
	if err != nil {
		return "", fmt.Errorf("save model: %w", err)
	}

	run := store.Run{
		ModelID:   id,
		Dataset:   datasetName,
		Pairs:     e.result.Remaining + e.result.Pruned,
		Epochs:    e.result.Epochs,
		Batches:   e.result.Batches,
		Pruned:    e.result.Pruned,
		Converged: e.result.Converged,
		FScore:    fscore,
		CreatedAt: e.model.CreatedAt,
	}
	if err := e.store.SaveRun(ctx, run); err != nil {
		return id, fmt.Errorf("save run: %w", err)
	}

	e.logger.Info("model saved", zap.String("id", id), zap.String("kind", string(e.model.Kind)))
	return id, nil
}
