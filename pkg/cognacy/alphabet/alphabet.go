package alphabet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// Alphabet is an ordered registry of phonetic symbols. Indices are stable
// for the lifetime of the value: symbols are sorted by code point when the
// alphabet is built and never reordered afterwards.
type Alphabet struct {
	symbols []rune
	index   map[rune]int
}

// New builds an alphabet from every symbol occurring in words.
func New(words ...string) *Alphabet {
	seen := make(map[rune]struct{})
	for _, w := range words {
		for _, r := range w {
			seen[r] = struct{}{}
		}
	}

	symbols := make([]rune, 0, len(seen))
	for r := range seen {
		symbols = append(symbols, r)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	return FromSymbols(symbols)
}

// FromSymbols builds an alphabet that keeps the given symbol order.
// Duplicates after the first occurrence are ignored.
func FromSymbols(symbols []rune) *Alphabet {
	a := &Alphabet{
		symbols: make([]rune, 0, len(symbols)),
		index:   make(map[rune]int, len(symbols)),
	}
	for _, r := range symbols {
		if _, dup := a.index[r]; dup {
			continue
		}
		a.index[r] = len(a.symbols)
		a.symbols = append(a.symbols, r)
	}
	return a
}

// Size returns the number of symbols.
func (a *Alphabet) Size() int {
	return len(a.symbols)
}

// Index returns the stable index of a symbol.
func (a *Alphabet) Index(symbol rune) (int, bool) {
	i, ok := a.index[symbol]
	return i, ok
}

// Symbol returns the symbol stored at index i.
func (a *Alphabet) Symbol(i int) rune {
	return a.symbols[i]
}

// Symbols returns a copy of the ordered symbol list.
func (a *Alphabet) Symbols() []rune {
	out := make([]rune, len(a.symbols))
	copy(out, a.symbols)
	return out
}

// String renders the alphabet as its symbols in index order.
func (a *Alphabet) String() string {
	return string(a.symbols)
}

// Encode maps a word onto symbol indices.
func (a *Alphabet) Encode(word string) ([]int, error) {
	seq := make([]int, 0, len(word))
	for _, r := range word {
		i, ok := a.index[r]
		if !ok {
			return nil, fmt.Errorf("encode %q: %q: %w", word, r, internalerr.ErrUnknownSymbol)
		}
		seq = append(seq, i)
	}
	return seq, nil
}

// MustEncode is Encode for words known to be covered by the alphabet.
func (a *Alphabet) MustEncode(word string) []int {
	seq, err := a.Encode(word)
	if err != nil {
		panic(err)
	}
	return seq
}

// Decode maps symbol indices back onto a word. Negative indices are
// rendered as gap.
func (a *Alphabet) Decode(seq []int, gap string) string {
	var b strings.Builder
	for _, i := range seq {
		if i < 0 {
			b.WriteString(gap)
			continue
		}
		b.WriteRune(a.symbols[i])
	}
	return b.String()
}
