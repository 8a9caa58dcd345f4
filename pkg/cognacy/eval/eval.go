// Package eval scores predicted cognate sets against gold ones with the
// B-cubed measures.
package eval

import (
	"fmt"
	"slices"

	"github.com/montanaflynn/stats"

	"github.com/cognicore/cognacy/pkg/cognacy/dataset"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Scores holds B-cubed precision, recall and their harmonic mean
type Scores struct {
	Precision float64
	Recall    float64
	F         float64
}

func fscore(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// BCubed compares two labelings of the same items. Labels are only
// compared for equality within each slice.
func BCubed(gold, pred []string) (Scores, error) {
	if len(gold) != len(pred) {
		return Scores{}, fmt.Errorf("b-cubed: %d gold labels, %d predicted: %w", len(gold), len(pred), internalerr.ErrInvalidInput)
	}
	if len(gold) == 0 {
		return Scores{}, fmt.Errorf("b-cubed: no items: %w", internalerr.ErrInvalidInput)
	}

	precision := make(stats.Float64Data, len(gold))
	recall := make(stats.Float64Data, len(gold))
	for i := range gold {
		var match, sameCluster, sameClass float64
		for j := range gold {
			if pred[i] == pred[j] {
				sameCluster++
			}
			if gold[i] == gold[j] {
				sameClass++
				if pred[i] == pred[j] {
					match++
				}
			}
		}
		precision[i] = match / sameCluster
		recall[i] = match / sameClass
	}

	p, _ := stats.Mean(precision)
	r, _ := stats.Mean(recall)
	return Scores{Precision: p, Recall: r, F: fscore(p, r)}, nil
}

// FScore evaluates predicted clusters per gold concept and averages
// precision and recall over concepts. Every gold word must appear in the
// prediction.
func FScore(gold, pred dataset.Clusters) (Scores, error) {
	if len(gold) == 0 {
		return Scores{}, fmt.Errorf("f-score: no gold clusters: %w", internalerr.ErrInvalidInput)
	}

	goldLabels := gold.Labels()
	predLabels := pred.Labels()

	concepts := make([]string, 0, len(gold))
	for c := range gold {
		concepts = append(concepts, c)
	}
	slices.Sort(concepts)

	var precision, recall stats.Float64Data
	for _, concept := range concepts {
		var g, p []string
		for _, set := range gold[concept] {
			for _, w := range set {
				l, ok := predLabels[w]
				if !ok {
					return Scores{}, fmt.Errorf("f-score: %s missing from prediction: %w", w, internalerr.ErrInvalidInput)
				}
				g = append(g, goldLabels[w])
				p = append(p, l)
			}
		}
		if len(g) == 0 {
			continue
		}
		s, err := BCubed(g, p)
		if err != nil {
			return Scores{}, fmt.Errorf("concept %s: %w", concept, err)
		}
		precision = append(precision, s.Precision)
		recall = append(recall, s.Recall)
	}

	pm, err := stats.Mean(precision)
	if err != nil {
		return Scores{}, fmt.Errorf("f-score: %w", internalerr.ErrInvalidInput)
	}
	rm, _ := stats.Mean(recall)
	return Scores{Precision: pm, Recall: rm, F: fscore(pm, rm)}, nil
}
