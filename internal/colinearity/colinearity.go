// Package colinearity indexes scored colinear blocks by chromosome pair.
package colinearity

import (
	"fmt"
	"io"

	"github.com/inodb/merge-score/internal/tsvio"
)

// Block is a pair of syntenic intervals, one per genome, with its score.
// Both intervals are closed.
type Block struct {
	Start1, End1 int
	Start2, End2 int
	Score        float64
}

// Contains reports whether pos1 lies in the first interval and pos2 in the second.
func (b Block) Contains(pos1, pos2 int) bool {
	return b.Start1 <= pos1 && pos1 <= b.End1 &&
		b.Start2 <= pos2 && pos2 <= b.End2
}

// Index maps a chromosome pair key to its blocks in file order.
type Index map[string][]Block

// Key builds the index key for a chromosome pair. The key is directional:
// Key("chr1", "chr2") and Key("chr2", "chr1") differ.
func Key(chrom1, chrom2 string) string {
	return chrom1 + "," + chrom2
}

// Blocks returns the blocks recorded for the chromosome pair.
func (idx Index) Blocks(chrom1, chrom2 string) []Block {
	return idx[Key(chrom1, chrom2)]
}

// Scores returns the scores of every block under the chromosome pair that
// contains both positions, in file order.
func (idx Index) Scores(chrom1 string, pos1 int, chrom2 string, pos2 int) []float64 {
	var scores []float64
	for _, b := range idx.Blocks(chrom1, chrom2) {
		if b.Contains(pos1, pos2) {
			scores = append(scores, b.Score)
		}
	}
	return scores
}

// BlockCount returns the total number of blocks across all keys.
func (idx Index) BlockCount() int {
	n := 0
	for _, blocks := range idx {
		n += len(blocks)
	}
	return n
}

// Load reads a colinearity block file.
// Columns: chr1, start1, end1, chr2, start2, end2, score.
func Load(path string) (Index, error) {
	rc, err := tsvio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open colinearity file: %w", err)
	}
	defer rc.Close()

	return Parse(rc)
}

// Parse reads colinearity block content from r.
func Parse(r io.Reader) (Index, error) {
	idx := make(Index)
	scanner := tsvio.NewScanner(r)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := tsvio.Fields(scanner.Text())
		if len(fields) < 7 {
			return nil, &tsvio.ParseError{
				Kind:    "colinearity",
				Line:    lineNumber,
				Message: fmt.Sprintf("expected at least 7 columns, found %d", len(fields)),
			}
		}

		var coords [4]int
		for i, col := range [4]int{1, 2, 4, 5} {
			v, err := tsvio.ParseInt(fields[col])
			if err != nil {
				return nil, &tsvio.ParseError{
					Kind:    "colinearity",
					Line:    lineNumber,
					Message: fmt.Sprintf("invalid coordinate in column %d %q", col+1, fields[col]),
					Err:     err,
				}
			}
			coords[i] = v
		}

		score, err := tsvio.ParseFloat(fields[6])
		if err != nil {
			return nil, &tsvio.ParseError{
				Kind:    "colinearity",
				Line:    lineNumber,
				Message: fmt.Sprintf("invalid score %q", fields[6]),
				Err:     err,
			}
		}

		key := Key(fields[0], fields[3])
		idx[key] = append(idx[key], Block{
			Start1: coords[0],
			End1:   coords[1],
			Start2: coords[2],
			End2:   coords[3],
			Score:  score,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan colinearity file: %w", err)
	}

	return idx, nil
}
