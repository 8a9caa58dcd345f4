package align

import "github.com/texttheater/golang-levenshtein/levenshtein"

var unitCosts = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: levenshtein.IdenticalRunes,
}

// EditDistance returns the Levenshtein distance of a and b divided by the
// length of the longer sequence. Two empty sequences are at distance 0, an
// empty and a non-empty one at distance 1.
func EditDistance(a, b []int) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}
	d := levenshtein.DistanceForStrings(runes(a), runes(b), unitCosts)
	return float64(d) / float64(longest)
}

func runes(seq []int) []rune {
	out := make([]rune, len(seq))
	for i, s := range seq {
		out[i] = rune(s)
	}
	return out
}
