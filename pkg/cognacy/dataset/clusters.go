package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
)

// Clusters maps each concept to its cognate sets. Every set is sorted and
// the sets of a concept are ordered by their first word.
type Clusters map[string][][]Word

// FromLabels groups words per concept by label
func FromLabels(words []Word, labels map[Word]string) Clusters {
	byConcept := make(map[string]map[string][]Word)
	for _, w := range words {
		sets, ok := byConcept[w.Concept]
		if !ok {
			sets = make(map[string][]Word)
			byConcept[w.Concept] = sets
		}
		l := labels[w]
		sets[l] = append(sets[l], w)
	}

	out := make(Clusters, len(byConcept))
	for concept, sets := range byConcept {
		for _, set := range sets {
			out[concept] = append(out[concept], set)
		}
	}
	out.Sort()
	return out
}

// Sort puts every concept's sets into canonical order
func (c Clusters) Sort() {
	for _, sets := range c {
		for _, set := range sets {
			slices.SortFunc(set, compareWords)
		}
		slices.SortFunc(sets, func(a, b []Word) int {
			return compareWords(a[0], b[0])
		})
	}
}

// Labels assigns every word the label "<concept>:<n>", n being the index of
// its set
func (c Clusters) Labels() map[Word]string {
	out := make(map[Word]string)
	for concept, sets := range c {
		for i, set := range sets {
			for _, w := range set {
				out[w] = concept + ":" + strconv.Itoa(i)
			}
		}
	}
	return out
}

// WriteClusters writes the clusters as a wordlist with a cog_class column.
// Concepts are written in sorted order.
func WriteClusters(w io.Writer, c Clusters, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write([]string{"doculect", "concept", "asjp", "cog_class"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	concepts := make([]string, 0, len(c))
	for concept := range c {
		concepts = append(concepts, concept)
	}
	slices.Sort(concepts)

	class := 0
	for _, concept := range concepts {
		for _, set := range c[concept] {
			for _, word := range set {
				row := []string{word.Doculect, word.Concept, word.ASJP, strconv.Itoa(class)}
				if err := cw.Write(row); err != nil {
					return fmt.Errorf("write %s: %w", word, err)
				}
			}
			class++
		}
	}
	cw.Flush()
	return cw.Error()
}
