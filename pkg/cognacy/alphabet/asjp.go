package alphabet

import "strings"

// ASJPSymbols lists every valid ASJP symbol.
const ASJPSymbols = "pbmfv84tdszcnSZCjT5kgxNqGX7hlLwyr!ieE3auo"

// CleanASJP returns a valid ASJP string out of a dataset field. Only the
// first comma-separated entry is kept and non-ASJP symbols (modifiers such
// as ~ and ", spaces) are dropped.
func CleanASJP(field string) string {
	field = strings.TrimSpace(field)
	if i := strings.IndexByte(field, ','); i >= 0 {
		field = field[:i]
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(field) {
		if strings.ContainsRune(ASJPSymbols, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ASJP returns the full ASJP alphabet in its canonical order.
func ASJP() *Alphabet {
	return FromSymbols([]rune(ASJPSymbols))
}
