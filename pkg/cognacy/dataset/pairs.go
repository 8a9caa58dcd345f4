package dataset

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/cognicore/cognacy/pkg/cognacy/internalerr"
)

// ReadPairs parses a pre-filtered training file: one pair of
// transcriptions per line, separated by a tab. Blank lines are skipped.
func ReadPairs(r io.Reader) ([][2]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pairs: %w", err)
	}

	var out [][2]string
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, b, ok := strings.Cut(line, "\t")
		if !ok || strings.Contains(b, "\t") {
			return nil, fmt.Errorf("line %d: want two tab-separated fields: %w", i+1, internalerr.ErrInvalidInput)
		}
		out = append(out, [2]string{strings.TrimSpace(a), strings.TrimSpace(b)})
	}
	return out, nil
}

// OpenPairs reads a pre-filtered training file from disk
func OpenPairs(path string) ([][2]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("pairs %s: %w", path, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open pairs: %w", err)
	}
	defer f.Close()
	return ReadPairs(f)
}
