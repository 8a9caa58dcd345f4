package model

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/alphabet"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/phmm"
	"github.com/cognicore/cognacy/pkg/cognacy/pmi"
)

func TestPMIRoundTrip(t *testing.T) {
	a := alphabet.New("hant")
	table := pmi.NewTable(a.Size())
	table.Set(0, 1, 1.5)
	table.Set(2, align.Gap, -0.25)

	var buf bytes.Buffer
	if err := Encode(&buf, FromPMI(a, table)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	m, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.Kind != KindPMI || m.Symbols != "ahnt" {
		t.Errorf("Unexpected header: %s %q", m.Kind, m.Symbols)
	}

	back, err := m.PMITable()
	if err != nil {
		t.Fatalf("PMITable: %v", err)
	}
	if v, ok := back.Score(1, 0); !ok || v != 1.5 {
		t.Errorf("Expected (1,0)=1.5, got %f/%v", v, ok)
	}
	if v, ok := back.Score(align.Gap, 2); !ok || v != -0.25 {
		t.Errorf("Expected gap entry -0.25, got %f/%v", v, ok)
	}
	if back.Len() != table.Len() {
		t.Errorf("Expected %d entries, got %d", table.Len(), back.Len())
	}
}

func TestPHMMRoundTrip(t *testing.T) {
	a := alphabet.New("ab")
	p := phmm.Uniform(a.Size())

	path := filepath.Join(t.TempDir(), "model.json")
	if err := WriteFile(path, FromPHMM(a, p)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	m, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	back, err := m.PHMMParams()
	if err != nil {
		t.Fatalf("PHMMParams: %v", err)
	}
	if back.Trans != p.Trans || len(back.Em) != 4 {
		t.Errorf("Parameters changed in round trip: %+v", back)
	}
}

func TestDecodeRejectsBadModels(t *testing.T) {
	cases := map[string]string{
		"garbage":       `{`,
		"kind":          `{"kind":"hmm","alphabet":"ab"}`,
		"alphabet":      `{"kind":"pmi","alphabet":""}`,
		"symbol":        `{"kind":"pmi","alphabet":"ab","pmi":[{"a":"z","b":"a","score":1}]}`,
		"gap gap":       `{"kind":"pmi","alphabet":"ab","pmi":[{"a":"","b":"","score":1}]}`,
		"transitions":   `{"kind":"phmm","alphabet":"a","em":[1],"gx":[1],"gy":[1],"trans":[0.3]}`,
		"probabilities": `{"kind":"phmm","alphabet":"a","em":[2],"gx":[1],"gy":[1],"trans":[0.3,0.3,0.3,0.1,0.1]}`,
	}
	for name, body := range cases {
		if _, err := Decode(strings.NewReader(body)); !errors.Is(err, internalerr.ErrBadModel) {
			t.Errorf("%s: expected ErrBadModel, got %v", name, err)
		}
	}
}

func TestNewIDIsSortable(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 26 || !(a < b) {
		t.Errorf("Expected increasing 26-char IDs, got %s, %s", a, b)
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("phmm"); err != nil || k != KindPHMM {
		t.Errorf("ParseKind(phmm) = %v, %v", k, err)
	}
	if _, err := ParseKind("hmm"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
