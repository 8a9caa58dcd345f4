// Package cluster partitions each concept's words into cognate sets from
// pairwise distances.
package cluster

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
	"github.com/cognicore/cognacy/pkg/cognacy/score"
)

// Method selects the community detection algorithm
type Method string

const (
	// MethodMultilevel is Louvain modularity optimization
	MethodMultilevel Method = "multilevel"
	// MethodLabelPropagation is weighted label propagation
	MethodLabelPropagation Method = "labelprop"
)

// ParseMethod validates a method name
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodMultilevel, MethodLabelPropagation:
		return Method(s), nil
	case "":
		return MethodMultilevel, nil
	}
	return "", fmt.Errorf("cluster method %q: %w", s, internalerr.ErrInvalidConfig)
}

// Options configures clustering
type Options struct {
	Method Method
	// Threshold is the largest distance that still links two words
	Threshold float64
	// MaxIterations caps label propagation sweeps per concept
	MaxIterations int
	// Resolution is the Louvain resolution, 1 for plain modularity
	Resolution float64
	// Seed fixes the Louvain visiting order. Every concept gets its own
	// source seeded with it, so results do not depend on map order.
	Seed uint64
}

// DefaultOptions returns the usual settings
func DefaultOptions() Options {
	return Options{
		Method:        MethodMultilevel,
		Threshold:     0.5,
		MaxIterations: 100,
		Resolution:    1,
		Seed:          1,
	}
}

// Validate checks the options
func (o Options) Validate() error {
	if _, err := ParseMethod(string(o.Method)); err != nil {
		return err
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %f: %w", o.Threshold, internalerr.ErrInvalidConfig)
	}
	if o.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d: %w", o.MaxIterations, internalerr.ErrInvalidConfig)
	}
	if o.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %f: %w", o.Resolution, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Cluster partitions the words of every concept. Words are linked when
// their distance is at most the threshold, with weight 1-distance, and the
// resulting graph is split into communities by the configured method.
func Cluster(concepts map[string][]dataset.Word, dist score.Distances, opts Options) (dataset.Clusters, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	out := make(dataset.Clusters, len(concepts))
	for concept, words := range concepts {
		if len(words) == 0 {
			continue
		}
		g := Graph(words, dist, opts.Threshold)

		var labels []int
		switch opts.Method {
		case MethodLabelPropagation:
			labels = propagate(g, opts.MaxIterations)
		default:
			labels = modularize(g, opts.Resolution, rand.NewPCG(opts.Seed, opts.Seed))
		}

		sets := make(map[int][]dataset.Word)
		var order []int
		for i, l := range labels {
			if _, ok := sets[l]; !ok {
				order = append(order, l)
			}
			sets[l] = append(sets[l], words[i])
		}
		for _, l := range order {
			out[concept] = append(out[concept], sets[l])
		}
	}
	out.Sort()
	return out, nil
}

// Graph builds the threshold graph of one concept. Node IDs are indices
// into words.
func Graph(words []dataset.Word, dist score.Distances, threshold float64) *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range words {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < len(words); i++ {
		for j := i + 1; j < len(words); j++ {
			d, ok := dist.Get(words[i], words[j])
			if !ok || d > threshold {
				continue
			}
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), 1-d))
		}
	}
	return g
}

// modularize labels every node with the index of its Louvain community.
// A graph without edges yields singletons.
func modularize(g *simple.WeightedUndirectedGraph, resolution float64, src rand.Source) []int {
	labels := make([]int, g.Nodes().Len())
	for l, comm := range community.Modularize(g, resolution, src).Communities() {
		for _, n := range comm {
			labels[n.ID()] = l
		}
	}
	return labels
}

// neighbours returns the node's neighbours sorted by ID
func neighbours(g graph.Undirected, id int64) []int64 {
	var ids []int64
	to := g.From(id)
	for to.Next() {
		ids = append(ids, to.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

// propagate runs in-place label propagation. Each node takes the label
// carrying the most edge weight among its neighbours; ties go to the
// smallest label. Nodes are visited by ID, so the result is deterministic.
func propagate(g *simple.WeightedUndirectedGraph, maxIter int) []int {
	n := g.Nodes().Len()
	labels := make([]int, n)
	adj := make([][]int64, n)
	for i := range labels {
		labels[i] = i
		adj[i] = neighbours(g, int64(i))
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, nbrs := range adj {
			if len(nbrs) == 0 {
				continue
			}
			weight := make(map[int]float64)
			for _, j := range nbrs {
				weight[labels[j]] += g.WeightedEdge(int64(i), j).Weight()
			}

			best, bestW := labels[i], -1.0
			for l, w := range weight {
				if w > bestW || (w == bestW && l < best) {
					best, bestW = l, w
				}
			}
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}
