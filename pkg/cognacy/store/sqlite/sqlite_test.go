package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/alphabet"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/model"
	"github.com/cognicore/cognacy/pkg/cognacy/phmm"
	"github.com/cognicore/cognacy/pkg/cognacy/pmi"
	"github.com/cognicore/cognacy/pkg/cognacy/store"
)

func openTemp(t *testing.T) store.Store {
	t.Helper()
	st, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func pmiModel() *model.Model {
	a := alphabet.New("hant")
	table := pmi.NewTable(a.Size())
	table.Set(0, 1, 2.5)
	return model.FromPMI(a, table)
}

func TestSaveAndGetModel(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	id, err := st.SaveModel(ctx, pmiModel())
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	if id == "" {
		t.Fatal("Expected an assigned ID")
	}

	m, err := st.GetModel(ctx, id)
	if err != nil {
		t.Fatalf("GetModel: %v", err)
	}
	table, err := m.PMITable()
	if err != nil {
		t.Fatalf("PMITable: %v", err)
	}
	if v, ok := table.Score(1, 0); !ok || v != 2.5 {
		t.Errorf("Expected stored score 2.5, got %f/%v", v, ok)
	}
}

func TestGetMissingModel(t *testing.T) {
	st := openTemp(t)

	if _, err := st.GetModel(context.Background(), "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := st.LatestModel(context.Background(), model.KindPHMM); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLatestModelByKind(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	a := alphabet.New("ab")
	first, _ := st.SaveModel(ctx, model.FromPHMM(a, phmm.Uniform(a.Size())))
	if _, err := st.SaveModel(ctx, pmiModel()); err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	second, _ := st.SaveModel(ctx, model.FromPHMM(a, phmm.Uniform(a.Size())))

	m, err := st.LatestModel(ctx, model.KindPHMM)
	if err != nil {
		t.Fatalf("LatestModel: %v", err)
	}
	if m.ID != second || m.ID == first {
		t.Errorf("Expected latest phmm model %s, got %s", second, m.ID)
	}

	list, err := st.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(list) != 3 || list[0].ID != second {
		t.Errorf("Expected 3 models newest first, got %+v", list)
	}
}

func TestSaveRejectsInvalidModel(t *testing.T) {
	st := openTemp(t)

	_, err := st.SaveModel(context.Background(), &model.Model{Kind: model.KindPMI})
	if !errors.Is(err, internalerr.ErrBadModel) {
		t.Errorf("Expected ErrBadModel, got %v", err)
	}
}

func TestRunsAndDelete(t *testing.T) {
	ctx := context.Background()
	st := openTemp(t)

	id, err := st.SaveModel(ctx, pmiModel())
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	run := store.Run{ModelID: id, Dataset: "words.tsv", Pairs: 10, Epochs: 3, Batches: 6, Pruned: 2, Converged: true, FScore: 0.8}
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	runs, err := st.RunsForModel(ctx, id)
	if err != nil {
		t.Fatalf("RunsForModel: %v", err)
	}
	if len(runs) != 1 || !runs[0].Converged || runs[0].FScore != 0.8 || runs[0].Pruned != 2 {
		t.Errorf("Unexpected runs: %+v", runs)
	}

	if err := st.DeleteModel(ctx, id); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}
	if runs, _ := st.RunsForModel(ctx, id); len(runs) != 0 {
		t.Errorf("Runs should be deleted with the model, got %d", len(runs))
	}
	if err := st.DeleteModel(ctx, id); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestReopenKeepsModels(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	id, err := st.SaveModel(ctx, pmiModel())
	if err != nil {
		t.Fatalf("SaveModel: %v", err)
	}
	st.Close()

	st, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	if _, err := st.GetModel(ctx, id); err != nil {
		t.Errorf("Model lost after reopen: %v", err)
	}
}
