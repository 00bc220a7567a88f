// Package merge annotates gene pair scores with the median score of the
// colinear blocks that contain both genes.
package merge

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/inodb/merge-score/internal/bed"
	"github.com/inodb/merge-score/internal/colinearity"
	"github.com/inodb/merge-score/internal/tsvio"
)

// BlockLookup finds the scores of blocks containing a pair of positions.
type BlockLookup interface {
	Scores(chrom1 string, pos1 int, chrom2 string, pos2 int) []float64
}

var _ BlockLookup = colinearity.Index(nil)

// Row is one annotated gene pair row.
type Row struct {
	Line   int
	Fields []string
	Gene1  bed.GenePosition
	Gene2  bed.GenePosition
	Score  BlockScore
}

// RowWriter receives annotated rows in input order.
type RowWriter interface {
	WriteRow(r Row) error
	Flush() error
}

// Stats summarises a merge pass.
type Stats struct {
	Rows    int // rows read
	Written int // rows handed to the writer
	Skipped int // rows with a gene missing from its position map
	Matched int // written rows with at least one containing block
}

// Merger joins gene pair rows against gene positions and colinear blocks.
type Merger struct {
	genes1 bed.Positions
	genes2 bed.Positions
	blocks BlockLookup
	logger *zap.Logger
}

// New creates a merger. genes1 resolves the first column of each score row,
// genes2 the second.
func New(genes1, genes2 bed.Positions, blocks BlockLookup) *Merger {
	return &Merger{
		genes1: genes1,
		genes2: genes2,
		blocks: blocks,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug and summary messages.
func (m *Merger) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Annotate computes the row for a single score line. ok is false when either
// gene has no known position, in which case the row is dropped.
func (m *Merger) Annotate(fields []string) (row Row, ok bool, err error) {
	if len(fields) < 2 {
		return Row{}, false, fmt.Errorf("expected at least 2 columns, found %d", len(fields))
	}

	g1, ok := m.genes1.Lookup(fields[0])
	if !ok {
		return Row{}, false, nil
	}
	g2, ok := m.genes2.Lookup(fields[1])
	if !ok {
		return Row{}, false, nil
	}

	scores := m.blocks.Scores(g1.Chrom, g1.Start, g2.Chrom, g2.Start)
	return Row{
		Fields: fields,
		Gene1:  g1,
		Gene2:  g2,
		Score:  NewBlockScore(scores),
	}, true, nil
}

// Merge streams gene pair rows from r and writes one annotated row per input
// row whose genes are both known. Each row is flushed before the next is
// read, so rows written before an error remain in the output.
func (m *Merger) Merge(r io.Reader, w RowWriter) (Stats, error) {
	var stats Stats
	scanner := tsvio.NewScanner(r)

	for scanner.Scan() {
		stats.Rows++
		fields := tsvio.Fields(scanner.Text())

		row, ok, err := m.Annotate(fields)
		if err != nil {
			return stats, &tsvio.ParseError{
				Kind:    "score",
				Line:    stats.Rows,
				Message: err.Error(),
			}
		}
		if !ok {
			stats.Skipped++
			m.logger.Debug("skipping gene pair without position",
				zap.Int("line", stats.Rows),
				zap.String("gene1", fields[0]),
				zap.String("gene2", fields[1]))
			continue
		}

		row.Line = stats.Rows
		if err := w.WriteRow(row); err != nil {
			return stats, fmt.Errorf("write row %d: %w", stats.Rows, err)
		}
		if err := w.Flush(); err != nil {
			return stats, fmt.Errorf("flush row %d: %w", stats.Rows, err)
		}

		stats.Written++
		if row.Score.Blocks > 0 {
			stats.Matched++
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan score file: %w", err)
	}

	m.logger.Info("merge complete",
		zap.Int("rows", stats.Rows),
		zap.Int("written", stats.Written),
		zap.Int("skipped", stats.Skipped),
		zap.Int("matched", stats.Matched))

	return stats, nil
}

// MergeFile opens the score file at path and merges it into w.
func (m *Merger) MergeFile(path string, w RowWriter) (Stats, error) {
	rc, err := tsvio.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open score file: %w", err)
	}
	defer rc.Close()

	return m.Merge(rc, w)
}
