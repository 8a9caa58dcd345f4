package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/cognicore/cognacy/internal/logging"
	"github.com/cognicore/cognacy/pkg/cognacy"
	"github.com/cognicore/cognacy/pkg/cognacy/config"
	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/maintenance"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/store"
	"github.com/cognicore/cognacy/pkg/cognacy/store/sqlite"
)

const usage = `usage: cognacy [flags] pmi|phmm dataset.tsv

Trains a PMI or pair HMM model on the wordlist, clusters every concept into
cognate sets and writes them as a wordlist with a cog_class column.

flags:
`

type options struct {
	kind        model.Kind
	datasetPath string
	configPath  string
	dbPath      string
	loadPath    string
	savePath    string
	pairsPath   string
	outputPath  string
	logLevel    string
	evaluate    bool
	seed        uint64
	keep        int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("cognacy", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", "", "YAML config file (optional)")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite model store; trained models and runs are recorded there")
	fs.StringVar(&opts.loadPath, "load", "", "Skip training: model JSON file, or 'latest' to use the newest model in -db")
	fs.StringVar(&opts.savePath, "save", "", "Write the model as JSON to this file")
	fs.StringVar(&opts.pairsPath, "pairs", "", "Train on tab-separated transcription pairs instead of the prefiltered wordlist")
	fs.StringVar(&opts.outputPath, "output", "", "Cluster output file (default stdout)")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	fs.BoolVar(&opts.evaluate, "evaluate", false, "Report B-cubed scores against the dataset's cognate classes")
	fs.Uint64Var(&opts.seed, "seed", 0, "Shuffle seed (0 keeps the config value)")
	fs.IntVar(&opts.keep, "keep", 0, "After saving, keep only this many models per kind in -db (0 keeps all)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return opts, fmt.Errorf("expected a model kind and a dataset, got %d arguments", fs.NArg())
	}

	kind, err := model.ParseKind(fs.Arg(0))
	if err != nil {
		return opts, err
	}
	opts.kind = kind
	opts.datasetPath = fs.Arg(1)

	if opts.loadPath == "latest" && opts.dbPath == "" {
		return opts, errors.New("-load latest requires -db")
	}
	if opts.keep < 0 || (opts.keep > 0 && opts.dbPath == "") {
		return opts, errors.New("-keep must be positive and requires -db")
	}
	return opts, nil
}

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain runs the command and returns its exit code: 0 on success, 1 when
// the run fails and 2 on bad usage. The logger is flushed before returning.
func realMain(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger, err := logging.New(logging.Options{Level: opts.logLevel, Output: stderr})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if err := run(context.Background(), opts, stdout, logger); err != nil {
		logger.Error("cognacy failed", zap.Error(err))
		_ = logger.Sync()
		return 1
	}
	_ = logger.Sync()
	return 0
}

func run(ctx context.Context, opts options, stdout io.Writer, logger *zap.Logger) error {
	loader := config.Loader{ConfigPath: opts.configPath, DatasetPath: opts.datasetPath}
	if opts.loadPath != "latest" {
		loader.ModelPath = opts.loadPath
	}
	components, err := loader.Load()
	if err != nil {
		return err
	}
	cfg := components.Config
	if opts.seed != 0 {
		cfg.Training.Seed = opts.seed
	}
	logger.Info("wordlist loaded",
		zap.String("path", opts.datasetPath),
		zap.String("words", humanize.Comma(int64(components.Dataset.Len()))),
		zap.Int("concepts", len(components.Dataset.ConceptNames())),
	)

	var st store.Store
	if opts.dbPath != "" {
		st, err = sqlite.OpenSQLite(ctx, opts.dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	var pairs [][2]string
	if opts.pairsPath != "" {
		pairs, err = dataset.OpenPairs(opts.pairsPath)
		if err != nil {
			return err
		}
	}

	engine := cognacy.New(components.Dataset, cognacy.Options{
		Config:        cfg,
		Store:         st,
		Logger:        logger,
		TrainingPairs: pairs,
	})

	trained := false
	switch {
	case opts.loadPath == "latest":
		m, err := st.LatestModel(ctx, opts.kind)
		if err != nil {
			return fmt.Errorf("latest %s model: %w", opts.kind, err)
		}
		if err := engine.Use(m); err != nil {
			return err
		}
	case components.Model != nil:
		if components.Model.Kind != opts.kind {
			return fmt.Errorf("%s holds a %s model, not %s", opts.loadPath, components.Model.Kind, opts.kind)
		}
		if err := engine.Use(components.Model); err != nil {
			return err
		}
	default:
		_, res, err := engine.Train(opts.kind)
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			logger.Warn("using parameters of an unconverged run", zap.Error(err))
		}
		trained = true
	}

	clusters, err := engine.Cluster()
	if err != nil {
		return err
	}

	var fscore float64
	if opts.evaluate {
		scores, err := engine.Evaluate(clusters)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		fscore = scores.F
		logger.Info("b-cubed scores",
			zap.Float64("precision", scores.Precision),
			zap.Float64("recall", scores.Recall),
			zap.Float64("f", scores.F),
		)
	}

	if opts.savePath != "" {
		if err := model.WriteFile(opts.savePath, engine.Model()); err != nil {
			return err
		}
	}
	if st != nil && trained {
		if _, err := engine.Save(ctx, filepath.Base(opts.datasetPath), fscore); err != nil {
			return err
		}
	}
	if st != nil && opts.keep > 0 {
		pruner := maintenance.Pruner{Store: st, Keep: opts.keep}
		res, err := pruner.Prune(ctx)
		if err != nil {
			return fmt.Errorf("prune store: %w", err)
		}
		logger.Info("store pruned", zap.Int("deleted", res.Deleted), zap.Int("errors", res.Errors))
	}

	return writeClusters(opts, stdout, clusters)
}

func writeClusters(opts options, stdout io.Writer, clusters dataset.Clusters) error {
	comma := dataset.DialectAuto.Comma(opts.datasetPath)
	if opts.outputPath == "" {
		return dataset.WriteClusters(stdout, clusters, comma)
	}

	f, err := os.Create(opts.outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := dataset.WriteClusters(f, clusters, dataset.DialectAuto.Comma(opts.outputPath)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
