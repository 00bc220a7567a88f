package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/merge-score/internal/merge"
)

// flushEvery is the number of appended rows between appender flushes.
const flushEvery = 10000

// ScoreResult is one stored merged row.
type ScoreResult struct {
	Line       int64
	Gene1      string
	Chrom1     string
	Start1     int64
	Gene2      string
	Chrom2     string
	Start2     int64
	Fields     string
	BlockScore float64
	BlockCount int
}

// ScoreWriter appends merged rows to the merged_scores table.
// It implements merge.RowWriter.
type ScoreWriter struct {
	conn     *sql.Conn
	appender *goduckdb.Appender
	pending  int
}

var _ merge.RowWriter = (*ScoreWriter)(nil)

// Writer returns a ScoreWriter backed by a dedicated connection.
// The caller must Close it to flush the remaining rows.
func (s *Store) Writer(ctx context.Context) (*ScoreWriter, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "merged_scores")
		return err
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create appender: %w", err)
	}

	return &ScoreWriter{conn: conn, appender: appender}, nil
}

// WriteRow appends a single row. Rows without a containing block are stored
// with block_score 0 and block_count 0.
func (w *ScoreWriter) WriteRow(r merge.Row) error {
	if err := w.appender.AppendRow(
		int64(r.Line),
		r.Gene1.GeneID, r.Gene1.Chrom, int64(r.Gene1.Start),
		r.Gene2.GeneID, r.Gene2.Chrom, int64(r.Gene2.Start),
		strings.Join(r.Fields, "\t"),
		r.Score.Value(),
		int32(r.Score.Blocks),
	); err != nil {
		return fmt.Errorf("append merged score: %w", err)
	}
	w.pending++
	return nil
}

// Flush writes buffered rows to the table once enough have accumulated.
func (w *ScoreWriter) Flush() error {
	if w.pending < flushEvery {
		return nil
	}
	w.pending = 0
	return w.appender.Flush()
}

// Close flushes all remaining rows and releases the connection.
func (w *ScoreWriter) Close() error {
	err := w.appender.Close()
	if cerr := w.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Count returns the number of stored rows.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM merged_scores").Scan(&n); err != nil {
		return 0, fmt.Errorf("count merged scores: %w", err)
	}
	return n, nil
}

// LookupPair returns the stored rows for a gene pair in input order.
func (s *Store) LookupPair(gene1, gene2 string) ([]ScoreResult, error) {
	rows, err := s.db.Query(`SELECT
		line, gene1, chrom1, start1, gene2, chrom2, start2,
		fields, block_score, block_count
		FROM merged_scores
		WHERE gene1=? AND gene2=?
		ORDER BY line`, gene1, gene2)
	if err != nil {
		return nil, fmt.Errorf("query gene pair: %w", err)
	}
	defer rows.Close()

	return scanScoreResults(rows)
}

// TopScores returns the n rows with the highest block score among rows
// that matched at least one block.
func (s *Store) TopScores(n int) ([]ScoreResult, error) {
	rows, err := s.db.Query(`SELECT
		line, gene1, chrom1, start1, gene2, chrom2, start2,
		fields, block_score, block_count
		FROM merged_scores
		WHERE block_count > 0
		ORDER BY block_score DESC, line
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	defer rows.Close()

	return scanScoreResults(rows)
}

// scanScoreResults scans rows into ScoreResult slices.
func scanScoreResults(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]ScoreResult, error) {
	var results []ScoreResult
	for rows.Next() {
		var r ScoreResult
		if err := rows.Scan(
			&r.Line, &r.Gene1, &r.Chrom1, &r.Start1,
			&r.Gene2, &r.Chrom2, &r.Start2,
			&r.Fields, &r.BlockScore, &r.BlockCount,
		); err != nil {
			return nil, fmt.Errorf("scan merged score: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merged scores: %w", err)
	}
	return results, nil
}
