package cluster

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/score"
)

func words(concept string, doculects ...string) []dataset.Word {
	out := make([]dataset.Word, len(doculects))
	for i, d := range doculects {
		out[i] = dataset.Word{Doculect: d, Concept: concept, ASJP: d}
	}
	return out
}

// distances sets every pair to far, then applies the overrides
func distances(ws []dataset.Word, far float64, near map[[2]int]float64) score.Distances {
	d := make(score.Distances)
	for i := range ws {
		for j := i + 1; j < len(ws); j++ {
			v, ok := near[[2]int{i, j}]
			if !ok {
				v = far
			}
			d[score.NewKey(ws[i], ws[j])] = v
		}
	}
	return d
}

func optionsFor(m Method) Options {
	opts := DefaultOptions()
	opts.Method = m
	return opts
}

var methods = []Method{MethodMultilevel, MethodLabelPropagation}

func TestClusterTwoGroups(t *testing.T) {
	ws := words("hand", "a", "b", "c", "d", "e")
	d := distances(ws, 0.9, map[[2]int]float64{
		{0, 1}: 0.1, {0, 2}: 0.1, {1, 2}: 0.2,
		{3, 4}: 0.2,
	})

	for _, m := range methods {
		c, err := Cluster(map[string][]dataset.Word{"hand": ws}, d, optionsFor(m))
		if err != nil {
			t.Fatalf("%s: Cluster: %v", m, err)
		}

		sets := c["hand"]
		if len(sets) != 2 {
			t.Fatalf("%s: expected 2 cognate sets, got %d: %v", m, len(sets), sets)
		}
		if len(sets[0]) != 3 || len(sets[1]) != 2 {
			t.Errorf("%s: expected sets of 3 and 2 words, got %v", m, sets)
		}
	}
}

// Two tight triangles joined by one weaker link form one component, which
// modularity splits back into the triangles.
func TestClusterMultilevelSplitsBridgedGroups(t *testing.T) {
	ws := words("night", "a", "b", "c", "d", "e", "f")
	d := distances(ws, 0.9, map[[2]int]float64{
		{0, 1}: 0.1, {0, 2}: 0.1, {1, 2}: 0.1,
		{3, 4}: 0.1, {3, 5}: 0.1, {4, 5}: 0.1,
		{2, 3}: 0.45,
	})

	g := Graph(ws, d, 0.5)
	if n := g.Edges().Len(); n != 7 {
		t.Fatalf("Expected 7 edges in the threshold graph, got %d", n)
	}

	c, err := Cluster(map[string][]dataset.Word{"night": ws}, d, DefaultOptions())
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	sets := c["night"]
	if len(sets) != 2 || len(sets[0]) != 3 || len(sets[1]) != 3 {
		t.Fatalf("Expected two sets of 3, got %v", sets)
	}
	if sets[0][0] != ws[0] || sets[1][0] != ws[3] {
		t.Errorf("Expected the triangles {a b c} and {d e f}, got %v", sets)
	}
}

func TestClusterMultilevelDeterministic(t *testing.T) {
	ws := words("star", "a", "b", "c", "d", "e", "f", "g")
	d := distances(ws, 0.45, map[[2]int]float64{
		{0, 1}: 0.1, {1, 2}: 0.2, {2, 3}: 0.3, {4, 5}: 0.1, {5, 6}: 0.2,
	})
	concepts := map[string][]dataset.Word{"star": ws}

	first, err := Cluster(concepts, d, DefaultOptions())
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _ := Cluster(concepts, d, DefaultOptions())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Run %d differs: %v vs %v", i, again, first)
		}
	}
}

func TestClusterAllFar(t *testing.T) {
	ws := words("one", "a", "b", "c")

	c, err := Cluster(map[string][]dataset.Word{"one": ws}, distances(ws, 0.8, nil), DefaultOptions())
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(c["one"]) != 3 {
		t.Errorf("Expected singletons, got %v", c["one"])
	}
}

func TestClusterMissingDistanceIsNoEdge(t *testing.T) {
	ws := words("one", "a", "b")

	c, err := Cluster(map[string][]dataset.Word{"one": ws}, score.Distances{}, DefaultOptions())
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(c["one"]) != 2 {
		t.Errorf("Expected 2 singletons, got %v", c["one"])
	}
}

func TestClusterThresholdIsInclusive(t *testing.T) {
	ws := words("one", "a", "b")
	opts := DefaultOptions()
	opts.Threshold = 0.3

	c, err := Cluster(map[string][]dataset.Word{"one": ws}, distances(ws, 0.3, nil), opts)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(c["one"]) != 1 {
		t.Errorf("Distance equal to the threshold should link, got %v", c["one"])
	}
}

func TestClusterSingleWord(t *testing.T) {
	ws := words("fish", "a")

	c, err := Cluster(map[string][]dataset.Word{"fish": ws}, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(c["fish"]) != 1 || len(c["fish"][0]) != 1 {
		t.Errorf("Expected one singleton set, got %v", c["fish"])
	}
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{"": MethodMultilevel, "multilevel": MethodMultilevel, "labelprop": MethodLabelPropagation} {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMethod("infomap"); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := (Options{Method: "infomap", Threshold: 0.5, MaxIterations: 1, Resolution: 1}).Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for the method, got %v", err)
	}
	if err := (Options{Threshold: 0.5, MaxIterations: 1}).Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for the resolution, got %v", err)
	}
	if err := (Options{Threshold: 2, MaxIterations: 1}).Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if err := (Options{Threshold: 0.5}).Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
