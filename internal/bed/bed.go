// Package bed loads gene start positions from BED-like annotation files.
package bed

import (
	"fmt"
	"io"

	"github.com/inodb/merge-score/internal/tsvio"
)

// GenePosition is the chromosome and start coordinate of a gene.
type GenePosition struct {
	GeneID string
	Chrom  string
	Start  int
}

// Positions maps gene ID -> position.
type Positions map[string]GenePosition

// Lookup returns the position of the given gene.
func (p Positions) Lookup(geneID string) (GenePosition, bool) {
	pos, ok := p[geneID]
	return pos, ok
}

// Load reads a BED file with columns chrom, start, end, gene ID.
// Plain and gzipped files are accepted.
func Load(path string) (Positions, error) {
	rc, err := tsvio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bed file: %w", err)
	}
	defer rc.Close()

	return Parse(rc)
}

// Parse reads BED content from r. When a gene ID appears more than once
// the last row wins. The end column is not interpreted.
func Parse(r io.Reader) (Positions, error) {
	positions := make(Positions)
	scanner := tsvio.NewScanner(r)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		fields := tsvio.Fields(scanner.Text())
		if len(fields) < 4 {
			return nil, &tsvio.ParseError{
				Kind:    "bed",
				Line:    lineNumber,
				Message: fmt.Sprintf("expected at least 4 columns, found %d", len(fields)),
			}
		}

		start, err := tsvio.ParseInt(fields[1])
		if err != nil {
			return nil, &tsvio.ParseError{
				Kind:    "bed",
				Line:    lineNumber,
				Message: fmt.Sprintf("invalid start %q", fields[1]),
				Err:     err,
			}
		}

		positions[fields[3]] = GenePosition{
			GeneID: fields[3],
			Chrom:  fields[0],
			Start:  start,
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan bed file: %w", err)
	}

	return positions, nil
}
