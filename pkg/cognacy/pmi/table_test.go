package pmi

import (
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
)

func TestTableSetIsSymmetric(t *testing.T) {
	table := NewTable(3)

	table.Set(0, 2, 1.5)

	if v, ok := table.Score(2, 0); !ok || v != 1.5 {
		t.Errorf("Expected (2,0)=1.5, got %f (present=%v)", v, ok)
	}
	if table.Len() != 2 {
		t.Errorf("Expected 2 ordered entries, got %d", table.Len())
	}
}

func TestTableGapEntries(t *testing.T) {
	table := NewTable(2)

	table.Set(1, align.Gap, -0.5)

	if v, ok := table.Score(align.Gap, 1); !ok || v != -0.5 {
		t.Errorf("Expected (gap,1)=-0.5, got %f (present=%v)", v, ok)
	}

	var seen int
	table.Each(func(a, b int, v float64) {
		seen++
		if a != 1 || b != align.Gap {
			t.Errorf("Unexpected entry (%d,%d)", a, b)
		}
	})
	if seen != 1 {
		t.Errorf("Expected one unordered entry, got %d", seen)
	}
}

func TestTableMerge(t *testing.T) {
	table := NewTable(2)
	table.Set(0, 0, 4)
	table.Set(1, 1, 8)

	partial := NewTable(2)
	partial.Set(0, 0, 2)
	partial.Set(0, 1, 2)

	table.Merge(partial, 0.5)

	if got := table.Get(0, 0); got != 3 {
		t.Errorf("Expected blended (0,0)=3, got %f", got)
	}
	if got := table.Get(0, 1); got != 1 {
		t.Errorf("Expected new key blended against 0, got %f", got)
	}
	if got := table.Get(1, 1); got != 8 {
		t.Errorf("Keys absent from the partial table must be untouched, got %f", got)
	}
	if table.Get(1, 0) != table.Get(0, 1) {
		t.Error("Merge should keep the table symmetric")
	}
}

func TestTableClone(t *testing.T) {
	table := NewTable(2)
	table.Set(0, 1, 1)

	c := table.Clone()
	c.Set(0, 1, 5)

	if table.Get(0, 1) != 1 {
		t.Error("Clone should not share storage")
	}
}
