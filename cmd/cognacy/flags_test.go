package main

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/model"
)

// TestParseFlagsDefaults tests the minimal invocation
func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags([]string{"pmi", "words.tsv"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	if opts.kind != model.KindPMI {
		t.Errorf("Expected pmi, got %q", opts.kind)
	}
	if opts.datasetPath != "words.tsv" {
		t.Errorf("Expected words.tsv, got %q", opts.datasetPath)
	}
	if opts.logLevel != "info" || opts.evaluate || opts.seed != 0 {
		t.Errorf("Unexpected defaults: %+v", opts)
	}
}

// TestParseFlagsAll tests that every flag reaches the options
func TestParseFlagsAll(t *testing.T) {
	args := []string{
		"-config", "c.yaml",
		"-db", "m.db",
		"-load", "latest",
		"-save", "model.json",
		"-pairs", "pairs.tsv",
		"-output", "out.tsv",
		"-log-level", "debug",
		"-evaluate",
		"-seed", "42",
		"-keep", "3",
		"phmm", "words.csv",
	}
	opts, err := parseFlags(args, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}

	want := options{
		kind:        model.KindPHMM,
		datasetPath: "words.csv",
		configPath:  "c.yaml",
		dbPath:      "m.db",
		loadPath:    "latest",
		savePath:    "model.json",
		pairsPath:   "pairs.tsv",
		outputPath:  "out.tsv",
		logLevel:    "debug",
		evaluate:    true,
		seed:        42,
		keep:        3,
	}
	if opts != want {
		t.Errorf("Expected %+v, got %+v", want, opts)
	}
}

// TestParseFlagsErrors tests invalid invocations
func TestParseFlagsErrors(t *testing.T) {
	cases := map[string][]string{
		"no arguments":      {},
		"missing dataset":   {"pmi"},
		"too many":          {"pmi", "a.tsv", "b.tsv"},
		"unknown kind":      {"lexstat", "a.tsv"},
		"latest without db": {"-load", "latest", "pmi", "a.tsv"},
		"unknown flag":      {"-verbose", "pmi", "a.tsv"},
		"keep without db":   {"-keep", "2", "pmi", "a.tsv"},
		"negative keep":     {"-db", "m.db", "-keep", "-1", "pmi", "a.tsv"},
	}
	for name, args := range cases {
		if _, err := parseFlags(args, io.Discard); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

// TestParseFlagsHelp tests that -h is reported as flag.ErrHelp
func TestParseFlagsHelp(t *testing.T) {
	_, err := parseFlags([]string{"-h"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Expected flag.ErrHelp, got %v", err)
	}
}
