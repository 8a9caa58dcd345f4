package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/alphabet"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/phmm"
)

func TestLoaderAllEmpty(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Config == nil {
		t.Error("Should fall back to the default config")
	}
	if comp.Dataset != nil || comp.Model != nil {
		t.Error("Nothing else should be loaded")
	}
}

func TestLoaderNonExistentDataset(t *testing.T) {
	loader := Loader{DatasetPath: "/nonexistent/words.tsv"}

	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent dataset")
	}
}

func TestLoaderAllFiles(t *testing.T) {
	tmpDir := t.TempDir()

	cfgPath := filepath.Join(tmpDir, "cognacy.yaml")
	if err := os.WriteFile(cfgPath, []byte("dataset:\n  dialect: csv\n"), 0644); err != nil {
		t.Fatal(err)
	}

	dataPath := filepath.Join(tmpDir, "words.txt")
	if err := os.WriteFile(dataPath, []byte("doculect,concept,asjp\neng,hand,hEnt\ndeu,hand,hant\n"), 0644); err != nil {
		t.Fatal(err)
	}

	modelPath := filepath.Join(tmpDir, "model.json")
	a := alphabet.New("Eahnt")
	if err := model.WriteFile(modelPath, model.FromPHMM(a, phmm.Uniform(a.Size()))); err != nil {
		t.Fatal(err)
	}

	loader := Loader{ConfigPath: cfgPath, DatasetPath: dataPath, ModelPath: modelPath}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if comp.Dataset == nil || comp.Dataset.Len() != 2 {
		t.Errorf("Expected 2 words read as CSV, got %v", comp.Dataset)
	}
	if comp.Model == nil || comp.Model.Kind != model.KindPHMM {
		t.Errorf("Expected a phmm model, got %v", comp.Model)
	}
}
