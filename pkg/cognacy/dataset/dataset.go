// Package dataset reads wordlists: delimited files with one word per row,
// giving at least the doculect, the concept and the ASJP transcription.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cognicore/cognacy/pkg/cognacy/align"
	"github.com/cognicore/cognacy/pkg/cognacy/alphabet"
	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Column names recognised in a header row, compared case-insensitively
var recognisedColumns = map[string][]string{
	"doculect": {"doculect", "language", "lang"},
	"concept":  {"concept", "gloss"},
	"asjp":     {"asjp", "transcription"},
	"cognate":  {"cog_class", "cogid", "cognate_class"},
}

var requiredColumns = []string{"doculect", "concept", "asjp"}

// Word is one row of a wordlist
type Word struct {
	Doculect string
	Concept  string
	ASJP     string
}

// Less orders words by doculect, then concept, then transcription
func (w Word) Less(o Word) bool {
	if w.Doculect != o.Doculect {
		return w.Doculect < o.Doculect
	}
	if w.Concept != o.Concept {
		return w.Concept < o.Concept
	}
	return w.ASJP < o.ASJP
}

func (w Word) String() string {
	return w.Doculect + "/" + w.Concept + "/" + w.ASJP
}

func compareWords(a, b Word) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// WordPair is two synonymous words from different doculects
type WordPair struct {
	A, B Word
}

// Dialect selects the field delimiter
type Dialect int

const (
	// DialectAuto picks TSV for .tsv files and CSV otherwise
	DialectAuto Dialect = iota
	DialectTSV
	DialectCSV
)

// Comma returns the field delimiter of the dialect for the given path
func (d Dialect) Comma(path string) rune {
	switch d {
	case DialectTSV:
		return '\t'
	case DialectCSV:
		return ','
	}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// Options configures reading
type Options struct {
	Dialect Dialect
	// Raw keeps transcriptions as they are instead of reducing them to
	// their first ASJP entry
	Raw bool
}

// Dataset is an in-memory wordlist
type Dataset struct {
	Path     string
	words    []Word
	cognates []string // per word, nil when the file has no cognate column
}

// Open reads the wordlist at path
func Open(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("dataset %s: %w", path, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	d, err := Read(f, opts.Dialect.Comma(path), opts)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	d.Path = path
	return d, nil
}

// Read parses a wordlist from r using the given delimiter
func Read(r io.Reader, comma rune, opts Options) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file: %w", internalerr.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	d := &Dataset{}
	_, hasCognates := cols["cognate"]
	width := 0
	for _, i := range cols {
		width = max(width, i+1)
	}

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < width {
			return nil, fmt.Errorf("line %d: %d fields, need %d: %w", line, len(row), width, internalerr.ErrInvalidInput)
		}

		asjp := row[cols["asjp"]]
		if !opts.Raw {
			asjp = alphabet.CleanASJP(asjp)
		}
		d.words = append(d.words, Word{
			Doculect: strings.TrimSpace(row[cols["doculect"]]),
			Concept:  strings.TrimSpace(row[cols["concept"]]),
			ASJP:     asjp,
		})
		if hasCognates {
			d.cognates = append(d.cognates, strings.TrimSpace(row[cols["cognate"]]))
		}
	}
	return d, nil
}

func parseHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for col, names := range recognisedColumns {
			if _, seen := cols[col]; !seen && slices.Contains(names, h) {
				cols[col] = i
			}
		}
	}
	for _, col := range requiredColumns {
		if _, ok := cols[col]; !ok {
			return nil, fmt.Errorf("no column for %s: %w", col, internalerr.ErrInvalidInput)
		}
	}
	return cols, nil
}

// New builds a dataset from words, for callers that already hold them
func New(words []Word) *Dataset {
	return &Dataset{words: slices.Clone(words)}
}

// Len returns the number of words
func (d *Dataset) Len() int {
	return len(d.words)
}

// Words returns all words in file order
func (d *Dataset) Words() []Word {
	return slices.Clone(d.words)
}

// Alphabet returns the sorted set of symbols used in the transcriptions
func (d *Dataset) Alphabet() *alphabet.Alphabet {
	words := make([]string, len(d.words))
	for i, w := range d.words {
		words[i] = w.ASJP
	}
	return alphabet.New(words...)
}

// Concepts groups the words by concept, keeping file order within each
func (d *Dataset) Concepts() map[string][]Word {
	out := make(map[string][]Word)
	for _, w := range d.words {
		out[w.Concept] = append(out[w.Concept], w)
	}
	return out
}

// ConceptNames returns the concepts in sorted order
func (d *Dataset) ConceptNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, w := range d.words {
		if !seen[w.Concept] {
			seen[w.Concept] = true
			names = append(names, w.Concept)
		}
	}
	slices.Sort(names)
	return names
}

// Pairs returns every pair of synonymous words from different doculects.
// Concepts are visited in sorted order and words in file order.
func (d *Dataset) Pairs() []WordPair {
	concepts := d.Concepts()
	var out []WordPair
	for _, c := range d.ConceptNames() {
		words := concepts[c]
		for i := 0; i < len(words); i++ {
			for j := i + 1; j < len(words); j++ {
				if words[i].Doculect != words[j].Doculect {
					out = append(out, WordPair{A: words[i], B: words[j]})
				}
			}
		}
	}
	return out
}

// Encode turns word pairs into symbol sequence pairs
func Encode(a *alphabet.Alphabet, pairs []WordPair) ([]align.Pair, error) {
	out := make([]align.Pair, len(pairs))
	for i, p := range pairs {
		x, err := a.Encode(p.A.ASJP)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.A, err)
		}
		y, err := a.Encode(p.B.ASJP)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.B, err)
		}
		out[i] = align.Pair{X: x, Y: y}
	}
	return out, nil
}

// TrainingPairs returns the encoded synonymous pairs whose normalized edit
// distance is at most cutoff. Pairs with an empty transcription are left out.
func (d *Dataset) TrainingPairs(a *alphabet.Alphabet, cutoff float64) ([]align.Pair, error) {
	all, err := Encode(a, d.Pairs())
	if err != nil {
		return nil, err
	}
	out := make([]align.Pair, 0, len(all))
	for _, p := range all {
		if p.Empty() {
			continue
		}
		if align.EditDistance(p.X, p.Y) <= cutoff {
			out = append(out, p)
		}
	}
	return out, nil
}

// SymbolCounts returns how often each alphabet symbol occurs across all
// transcriptions. Symbols outside the alphabet are ignored.
func (d *Dataset) SymbolCounts(a *alphabet.Alphabet) []float64 {
	counts := make([]float64, a.Size())
	for _, w := range d.words {
		for _, r := range w.ASJP {
			if i, ok := a.Index(r); ok {
				counts[i]++
			}
		}
	}
	return counts
}

// HasCognates reports whether the file carried a cognate class column
func (d *Dataset) HasCognates() bool {
	return d.cognates != nil
}

// GoldClusters groups each concept's words by their cognate class
func (d *Dataset) GoldClusters() (Clusters, error) {
	if !d.HasCognates() {
		return nil, fmt.Errorf("cognate classes: %w", internalerr.ErrNotFound)
	}
	labels := make(map[Word]string, len(d.words))
	for i, w := range d.words {
		labels[w] = d.cognates[i]
	}
	return FromLabels(d.words, labels), nil
}
