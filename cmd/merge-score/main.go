// Package main provides the merge-score command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/merge-score/internal/bed"
	"github.com/inodb/merge-score/internal/colinearity"
	"github.com/inodb/merge-score/internal/duckdb"
	"github.com/inodb/merge-score/internal/merge"
	"github.com/inodb/merge-score/internal/output"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Config keys, shared by flags and the optional config file.
const (
	keyScore       = "score"
	keyColinearity = "colinearity"
	keyBed1        = "bed1"
	keyBed2        = "bed2"
	keyOutput      = "output"
	keyDuckDB      = "duckdb"
	keyVerbose     = "verbose"
	keyTop         = "top"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// runError marks a failure after argument validation succeeded.
type runError struct{ err error }

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(viper.New(), stdout, stderr)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var re *runError
		if errors.As(err, &re) {
			return ExitError
		}
		return ExitUsage
	}
	return ExitSuccess
}

func newRootCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "merge-score -i SCORE -c COLINEARITY -a BED1 -b BED2",
		Short: "Annotate gene pair scores with colinear block scores",
		Long: `Merge a gene pair score file with colinear block scores.

For every gene pair whose genes are found in the two BED files, the median
score of the colinear blocks containing both gene start positions is appended
as a new column (0 when no block contains them). Pairs with an unknown gene
are dropped.`,
		Example: `  merge-score -i pairs.tsv -c blocks.tsv -a genome1.bed -b genome2.bed > merged.tsv
  merge-score -i pairs.tsv.gz -c blocks.tsv -a genome1.bed -b genome2.bed --duckdb merged.duckdb`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, cfgFile, cmd.Name() == "set")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFrom(v)
			if err != nil {
				return err
			}

			logger := newLogger(stderr, opts.verbose)
			defer logger.Sync() //nolint:errcheck

			if err := runMerge(cmd.Context(), opts, stdout, logger); err != nil {
				return &runError{err: err}
			}
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file providing defaults for the flags below")
	flags.StringP(keyScore, "i", "", "Gene pair score file (gene1, gene2, ...); '-' for stdin")
	flags.StringP(keyColinearity, "c", "", "Colinear block file (chr1, start1, end1, chr2, start2, end2, score)")
	flags.StringP(keyBed1, "a", "", "BED file resolving the first gene column")
	flags.StringP(keyBed2, "b", "", "BED file resolving the second gene column")
	flags.StringP(keyOutput, "o", "", "Output file (default: stdout)")
	flags.String(keyDuckDB, "", "Also store merged rows in this DuckDB database")
	flags.BoolP(keyVerbose, "v", false, "Log skipped rows")
	flags.Int(keyTop, 0, "After a --duckdb export, log the N pairs with the highest block score")

	for _, key := range []string{keyScore, keyColinearity, keyBed1, keyBed2, keyOutput, keyDuckDB, keyVerbose, keyTop} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}

	cmd.AddCommand(newConfigCmd(v, stdout))

	return cmd
}

// options holds the resolved settings for a merge run.
type options struct {
	scorePath       string
	colinearityPath string
	bed1Path        string
	bed2Path        string
	outputPath      string
	duckdbPath      string
	verbose         bool
	top             int
}

func optionsFrom(v *viper.Viper) (options, error) {
	opts := options{
		scorePath:       v.GetString(keyScore),
		colinearityPath: v.GetString(keyColinearity),
		bed1Path:        v.GetString(keyBed1),
		bed2Path:        v.GetString(keyBed2),
		outputPath:      v.GetString(keyOutput),
		duckdbPath:      v.GetString(keyDuckDB),
		verbose:         v.GetBool(keyVerbose),
		top:             v.GetInt(keyTop),
	}

	if opts.top < 0 {
		return opts, fmt.Errorf("--top must not be negative")
	}
	if opts.top > 0 && opts.duckdbPath == "" {
		return opts, fmt.Errorf("--top requires --duckdb")
	}

	required := []struct{ flag, value string }{
		{"-i/--score", opts.scorePath},
		{"-c/--colinearity", opts.colinearityPath},
		{"-a/--bed1", opts.bed1Path},
		{"-b/--bed2", opts.bed2Path},
	}
	for _, r := range required {
		if r.value == "" {
			return opts, fmt.Errorf("%s is required", r.flag)
		}
	}
	return opts, nil
}

// newLogger builds a console logger on w. Debug level includes skipped rows.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func runMerge(ctx context.Context, opts options, stdout io.Writer, logger *zap.Logger) error {
	genes1, err := bed.Load(opts.bed1Path)
	if err != nil {
		return fmt.Errorf("load bed1: %w", err)
	}
	logger.Info("loaded gene positions", zap.String("file", opts.bed1Path), zap.Int("genes", len(genes1)))

	genes2, err := bed.Load(opts.bed2Path)
	if err != nil {
		return fmt.Errorf("load bed2: %w", err)
	}
	logger.Info("loaded gene positions", zap.String("file", opts.bed2Path), zap.Int("genes", len(genes2)))

	idx, err := colinearity.Load(opts.colinearityPath)
	if err != nil {
		return fmt.Errorf("load colinearity blocks: %w", err)
	}
	logger.Info("loaded colinear blocks",
		zap.String("file", opts.colinearityPath),
		zap.Int("blocks", idx.BlockCount()),
		zap.Int("chromosome_pairs", len(idx)))

	out := stdout
	if opts.outputPath != "" {
		f, err := os.Create(opts.outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var writer merge.RowWriter = output.NewTabWriter(out)

	var store *duckdb.Store
	var dbWriter *duckdb.ScoreWriter
	if opts.duckdbPath != "" {
		var err error
		store, err = openExport(opts, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		dbWriter, err = store.Writer(ctx)
		if err != nil {
			return fmt.Errorf("open duckdb writer: %w", err)
		}
		writer = output.NewMultiWriter(writer, dbWriter)
	}

	m := merge.New(genes1, genes2, idx)
	m.SetLogger(logger)

	_, mergeErr := m.MergeFile(opts.scorePath, writer)

	// Rows merged before a failure are kept in the export as well.
	if dbWriter != nil {
		if err := dbWriter.Close(); err != nil && mergeErr == nil {
			return fmt.Errorf("close duckdb writer: %w", err)
		}
	}

	if mergeErr != nil {
		return fmt.Errorf("merge scores: %w", mergeErr)
	}

	if store != nil && opts.top > 0 {
		return logTopScores(store, opts.top, logger)
	}
	return nil
}

// logTopScores logs the exported pairs with the highest block scores.
func logTopScores(store *duckdb.Store, n int, logger *zap.Logger) error {
	top, err := store.TopScores(n)
	if err != nil {
		return fmt.Errorf("query top scores: %w", err)
	}
	for i, r := range top {
		logger.Info("top block score",
			zap.Int("rank", i+1),
			zap.String("gene1", r.Gene1),
			zap.String("gene2", r.Gene2),
			zap.Float64("block_score", r.BlockScore),
			zap.Int("blocks", r.BlockCount),
			zap.Int64("line", r.Line))
	}
	return nil
}

// openExport opens the DuckDB database, clears previous results and records
// the fingerprints of the input files.
func openExport(opts options, logger *zap.Logger) (*duckdb.Store, error) {
	store, err := duckdb.Open(opts.duckdbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := store.Clear(); err != nil {
		store.Close()
		return nil, err
	}

	inputs := []struct{ role, path string }{
		{"score", opts.scorePath},
		{"colinearity", opts.colinearityPath},
		{"bed1", opts.bed1Path},
		{"bed2", opts.bed2Path},
	}
	for _, in := range inputs {
		fp, err := duckdb.StatFile(in.path)
		if err != nil {
			logger.Warn("could not fingerprint input", zap.String("role", in.role), zap.Error(err))
			continue
		}
		if err := store.RecordInput(in.role, fp); err != nil {
			store.Close()
			return nil, err
		}
	}

	logger.Info("exporting to duckdb", zap.String("file", opts.duckdbPath))
	return store, nil
}
