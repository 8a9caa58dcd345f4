package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/cluster"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/online"
	"github.com/cognicore/cognacy/pkg/cognacy/score"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}

	opts, err := cfg.OnlineOptions()
	if err != nil {
		t.Fatalf("OnlineOptions: %v", err)
	}
	if opts != online.DefaultOptions() {
		t.Errorf("Expected online defaults, got %+v", opts)
	}
	if cfg.PMI.GapOpen != -2.5 || cfg.PMI.GapExtend != -1.75 || cfg.PMI.Margin != 1.0 {
		t.Errorf("Unexpected PMI defaults: %+v", cfg.PMI)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "cognacy.yaml")

	content := `training:
  batch_size: 64
  convergence: likelihood
  seed: 7
phmm:
  scale: ratio
cluster:
  threshold: 0.4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Training.BatchSize != 64 || cfg.Training.Seed != 7 {
		t.Errorf("Training overrides not applied: %+v", cfg.Training)
	}
	if cfg.Training.Alpha != 0.75 {
		t.Errorf("Unset fields should keep defaults, alpha=%f", cfg.Training.Alpha)
	}
	opts, _ := cfg.OnlineOptions()
	if opts.Mode != online.LikelihoodStabilization {
		t.Errorf("Expected likelihood mode, got %v", opts.Mode)
	}
	if s, _ := cfg.Scale(); s != score.ScaleRatio {
		t.Errorf("Expected ratio scale, got %v", s)
	}
	co, err := cfg.ClusterOptions(model.KindPMI)
	if err != nil || co.Threshold != 0.4 || co.Seed != 7 {
		t.Errorf("Expected threshold 0.4 and seed 7, got %+v (%v)", co, err)
	}
}

func TestDefaultScaleIsRatio(t *testing.T) {
	cfg := Default()
	if cfg.PHMM.Scale != "ratio" {
		t.Errorf("Expected ratio scale by default, got %q", cfg.PHMM.Scale)
	}
	if s, _ := cfg.Scale(); s != score.ScaleRatio {
		t.Errorf("Expected ScaleRatio, got %v", s)
	}
}

func TestClusterOptionsByKind(t *testing.T) {
	cfg := Default()

	pm, err := cfg.ClusterOptions(model.KindPMI)
	if err != nil {
		t.Fatalf("ClusterOptions: %v", err)
	}
	if pm.Threshold != 0.5 || pm.Method != cluster.MethodMultilevel || pm.Seed != 1 {
		t.Errorf("Unexpected PMI cluster options: %+v", pm)
	}

	hm, err := cfg.ClusterOptions(model.KindPHMM)
	if err != nil {
		t.Fatalf("ClusterOptions: %v", err)
	}
	if hm.Threshold != score.Distance(1) {
		t.Errorf("Ratio scale should cluster at %f, got %f", score.Distance(1), hm.Threshold)
	}

	cfg.PHMM.Scale = "logodds"
	hm, _ = cfg.ClusterOptions(model.KindPHMM)
	if hm.Threshold != 0.5 {
		t.Errorf("Log-odds scale should cluster at 0.5, got %f", hm.Threshold)
	}

	fixed := 0.1
	cfg.Cluster.PHMMThreshold = &fixed
	hm, _ = cfg.ClusterOptions(model.KindPHMM)
	if hm.Threshold != 0.1 {
		t.Errorf("phmm_threshold should win, got %f", hm.Threshold)
	}
}

func TestLoadClusterSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognacy.yaml")
	content := `cluster:
  method: labelprop
  phmm_threshold: 0.2
  resolution: 0.8
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	opts, err := cfg.ClusterOptions(model.KindPHMM)
	if err != nil {
		t.Fatalf("ClusterOptions: %v", err)
	}
	if opts.Method != cluster.MethodLabelPropagation || opts.Threshold != 0.2 || opts.Resolution != 0.8 {
		t.Errorf("Cluster overrides not applied: %+v", opts)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"alpha":      "training:\n  alpha: 0.2\n",
		"mode":       "training:\n  convergence: sometimes\n",
		"cutoff":     "training:\n  cutoff: 2\n",
		"gap":        "pmi:\n  gap_open: 1\n",
		"pseudo":     "phmm:\n  pseudo_counts:\n    gap: 0\n",
		"scale":      "phmm:\n  scale: linear\n",
		"dialect":    "dataset:\n  dialect: xml\n",
		"threshold":  "cluster:\n  threshold: -1\n",
		"phmm":       "cluster:\n  phmm_threshold: 1.5\n",
		"method":     "cluster:\n  method: infomap\n",
		"resolution": "cluster:\n  resolution: 0\n",
		"yaml":       "training: [\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), name+".yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/cognacy.yaml"); err == nil {
		t.Error("Should error on nonexistent config")
	}
}

func TestPMIOptionsUseTrainingAlpha(t *testing.T) {
	cfg := Default()
	cfg.Training.Alpha = 0.6

	opts := cfg.PMIOptions()
	if opts.Alpha != 0.6 || opts.Align.GapOpen == nil || *opts.Align.GapOpen != -2.5 {
		t.Errorf("Unexpected PMI options: %+v", opts)
	}
}
