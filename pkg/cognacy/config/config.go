package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/cluster"
	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/online"
	"github.com/cognicore/cognacy/pkg/cognacy/phmm"
	"github.com/cognicore/cognacy/pkg/cognacy/pmi"
	"github.com/cognicore/cognacy/pkg/cognacy/score"
)

// Config is the YAML configuration of a cognacy run
type Config struct {
	Dataset  DatasetConfig  `yaml:"dataset"`
	Training TrainingConfig `yaml:"training"`
	PMI      PMIConfig      `yaml:"pmi"`
	PHMM     PHMMConfig     `yaml:"phmm"`
	Cluster  ClusterConfig  `yaml:"cluster"`
}

// DatasetConfig controls wordlist reading
type DatasetConfig struct {
	Dialect string `yaml:"dialect"` // auto, tsv or csv
	Raw     bool   `yaml:"raw"`
}

// TrainingConfig controls the online EM loop
type TrainingConfig struct {
	BatchSize   int     `yaml:"batch_size"`
	Alpha       float64 `yaml:"alpha"`
	Convergence string  `yaml:"convergence"` // parameters or likelihood
	Tolerance   float64 `yaml:"tolerance"`
	MaxEpochs   int     `yaml:"max_epochs"`
	Cutoff      float64 `yaml:"cutoff"` // edit distance prefilter
	Seed        uint64  `yaml:"seed"`
}

// PMIConfig controls the PMI scorer
type PMIConfig struct {
	Margin    float64 `yaml:"margin"`
	GapOpen   float64 `yaml:"gap_open"`
	GapExtend float64 `yaml:"gap_extend"`
}

// PHMMConfig controls the pair HMM
type PHMMConfig struct {
	TieGaps      bool               `yaml:"tie_gaps"`
	Scale        string             `yaml:"scale"` // ratio or logodds
	PseudoCounts PseudoCountsConfig `yaml:"pseudo_counts"`
}

// PseudoCountsConfig seeds the Baum-Welch accumulators
type PseudoCountsConfig struct {
	Emission   float64 `yaml:"emission"`
	Gap        float64 `yaml:"gap"`
	Transition float64 `yaml:"transition"`
}

// ClusterConfig controls clustering
type ClusterConfig struct {
	Method    string  `yaml:"method"` // multilevel or labelprop
	Threshold float64 `yaml:"threshold"`
	// PHMMThreshold replaces Threshold for pair HMM distances. Unset means
	// the break-even distance of the configured scale.
	PHMMThreshold *float64 `yaml:"phmm_threshold"`
	MaxIterations int      `yaml:"max_iterations"`
	Resolution    float64  `yaml:"resolution"`
}

// Default returns the built-in configuration
func Default() *Config {
	on := online.DefaultOptions()
	sc := pmi.DefaultOptions()
	hm := phmm.DefaultOptions()
	cl := cluster.DefaultOptions()

	return &Config{
		Dataset: DatasetConfig{Dialect: "auto"},
		Training: TrainingConfig{
			BatchSize:   on.BatchSize,
			Alpha:       on.Alpha,
			Convergence: on.Mode.String(),
			Tolerance:   on.Tolerance,
			MaxEpochs:   on.MaxEpochs,
			Cutoff:      0.5,
			Seed:        1,
		},
		PMI: PMIConfig{
			Margin:    sc.Margin,
			GapOpen:   *sc.Align.GapOpen,
			GapExtend: sc.Align.GapExtend,
		},
		PHMM: PHMMConfig{
			TieGaps: hm.TieGaps,
			Scale:   score.ScaleRatio.String(),
			PseudoCounts: PseudoCountsConfig{
				Emission:   hm.Pseudo.Emission,
				Gap:        hm.Pseudo.Gap,
				Transition: hm.Pseudo.Transition,
			},
		},
		Cluster: ClusterConfig{
			Method:        string(cl.Method),
			Threshold:     cl.Threshold,
			MaxIterations: cl.MaxIterations,
			Resolution:    cl.Resolution,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if _, err := c.DatasetOptions(); err != nil {
		return err
	}
	if _, err := c.OnlineOptions(); err != nil {
		return err
	}
	if c.Training.Cutoff < 0 || c.Training.Cutoff > 1 {
		return fmt.Errorf("cutoff must be in [0, 1], got %f: %w", c.Training.Cutoff, internalerr.ErrInvalidConfig)
	}
	if c.PMI.GapExtend > 0 || c.PMI.GapOpen > 0 {
		return fmt.Errorf("gap penalties must not be positive: %w", internalerr.ErrInvalidConfig)
	}
	pc := c.PHMM.PseudoCounts
	if pc.Emission <= 0 || pc.Gap <= 0 || pc.Transition <= 0 {
		return fmt.Errorf("pseudo counts must be positive: %w", internalerr.ErrInvalidConfig)
	}
	if _, err := c.Scale(); err != nil {
		return err
	}
	for _, kind := range []model.Kind{model.KindPMI, model.KindPHMM} {
		opts, err := c.ClusterOptions(kind)
		if err != nil {
			return err
		}
		if err := opts.Validate(); err != nil {
			return fmt.Errorf("cluster %s: %w", kind, err)
		}
	}
	return nil
}

// DatasetOptions converts the dataset section
func (c *Config) DatasetOptions() (dataset.Options, error) {
	opts := dataset.Options{Raw: c.Dataset.Raw}
	switch c.Dataset.Dialect {
	case "auto", "":
		opts.Dialect = dataset.DialectAuto
	case "tsv":
		opts.Dialect = dataset.DialectTSV
	case "csv":
		opts.Dialect = dataset.DialectCSV
	default:
		return opts, fmt.Errorf("dialect %q: %w", c.Dataset.Dialect, internalerr.ErrInvalidConfig)
	}
	return opts, nil
}

// OnlineOptions converts the training section
func (c *Config) OnlineOptions() (online.Options, error) {
	mode, err := online.ParseMode(c.Training.Convergence)
	if err != nil {
		return online.Options{}, err
	}
	opts := online.Options{
		BatchSize: c.Training.BatchSize,
		Alpha:     c.Training.Alpha,
		Mode:      mode,
		Tolerance: c.Training.Tolerance,
		MaxEpochs: c.Training.MaxEpochs,
	}
	return opts, opts.Validate()
}

// PMIOptions converts the pmi section. The decay exponent comes from the
// training section.
func (c *Config) PMIOptions() pmi.Options {
	return pmi.Options{
		Margin: c.PMI.Margin,
		Alpha:  c.Training.Alpha,
		Align: align.Options{
			GapOpen:   align.Float(c.PMI.GapOpen),
			GapExtend: c.PMI.GapExtend,
		},
	}
}

// PHMMOptions converts the phmm section
func (c *Config) PHMMOptions() phmm.Options {
	pc := c.PHMM.PseudoCounts
	return phmm.Options{
		TieGaps: c.PHMM.TieGaps,
		Pseudo:  phmm.PseudoCounts{Emission: pc.Emission, Gap: pc.Gap, Transition: pc.Transition},
	}
}

// Scale returns the pair HMM distance scale
func (c *Config) Scale() (score.Scale, error) {
	return score.ParseScale(c.PHMM.Scale)
}

// ClusterOptions converts the cluster section for distances of the given
// model kind. Ratio scaled pair HMM distances never exceed 0.5, so the PMI
// threshold would link every pair; pair HMM clustering uses phmm_threshold
// or else the scale's break-even distance. The Louvain seed is the training
// seed, so a reloaded model clusters like the run that trained it.
func (c *Config) ClusterOptions(kind model.Kind) (cluster.Options, error) {
	method, err := cluster.ParseMethod(c.Cluster.Method)
	if err != nil {
		return cluster.Options{}, err
	}
	opts := cluster.Options{
		Method:        method,
		Threshold:     c.Cluster.Threshold,
		MaxIterations: c.Cluster.MaxIterations,
		Resolution:    c.Cluster.Resolution,
		Seed:          c.Training.Seed,
	}
	if kind != model.KindPHMM {
		return opts, nil
	}

	if c.Cluster.PHMMThreshold != nil {
		opts.Threshold = *c.Cluster.PHMMThreshold
		return opts, nil
	}
	scale, err := c.Scale()
	if err != nil {
		return cluster.Options{}, err
	}
	opts.Threshold = scale.BreakEven()
	return opts, nil
}
