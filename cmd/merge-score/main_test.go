package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/merge-score/internal/duckdb"
)

type testInputs struct {
	dir, score, blocks, bed1, bed2 string
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestInputs(t *testing.T, scores, blocks string) testInputs {
	t.Helper()
	dir := t.TempDir()
	return testInputs{
		dir:    dir,
		score:  writeFile(t, dir, "pairs.tsv", scores),
		blocks: writeFile(t, dir, "blocks.tsv", blocks),
		bed1:   writeFile(t, dir, "genome1.bed", "chr1\t100\t200\tgeneA\nchr1\t300\t400\tgeneC\n"),
		bed2:   writeFile(t, dir, "genome2.bed", "chr2\t500\t600\tgeneB\nchr2\t900\t950\tgeneD\n"),
	}
}

func (in testInputs) args(extra ...string) []string {
	return append([]string{"-i", in.score, "-c", in.blocks, "-a", in.bed1, "-b", in.bed2}, extra...)
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Merge(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\t10.0\n", "chr1\t50\t150\tchr2\t400\t600\t0.8\n")

	code, stdout, stderr := runCLI(t, in.args()...)
	assert.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "geneA\tgeneB\t10.0\t0.8\n", stdout)
	assert.Contains(t, stderr, "loaded colinear blocks")
}

func TestRun_NoMatchingBlock(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\t10.0\n", "")

	code, stdout, _ := runCLI(t, in.args()...)
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "geneA\tgeneB\t10.0\t0\n", stdout)
}

func TestRun_SkipsAndOrder(t *testing.T) {
	scores := "geneC\tgeneD\t1\n" +
		"geneZ\tgeneB\t2\n" +
		"geneA\tgeneB\t3\n"
	blocks := "chr1\t50\t150\tchr2\t400\t600\t1.0\n" +
		"chr1\t100\t100\tchr2\t500\t500\t2.0\n"
	in := newTestInputs(t, scores, blocks)

	code, stdout, _ := runCLI(t, in.args()...)
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "geneC\tgeneD\t1\t0\ngeneA\tgeneB\t3\t1.5\n", stdout)
}

func TestRun_AllSkipped(t *testing.T) {
	in := newTestInputs(t, "geneX\tgeneY\n", "")

	code, stdout, _ := runCLI(t, in.args()...)
	assert.Equal(t, ExitSuccess, code)
	assert.Empty(t, stdout)
}

func TestRun_VerboseLogsSkips(t *testing.T) {
	in := newTestInputs(t, "geneX\tgeneY\n", "")

	code, _, stderr := runCLI(t, in.args("-v")...)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stderr, "skipping gene pair without position")
}

func TestRun_OutputFile(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\t10.0\n", "chr1\t50\t150\tchr2\t400\t600\t0.8\n")
	outPath := filepath.Join(in.dir, "merged.tsv")

	code, stdout, _ := runCLI(t, in.args("-o", outPath)...)
	assert.Equal(t, ExitSuccess, code)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "geneA\tgeneB\t10.0\t0.8\n", string(data))
}

func TestRun_MissingFlag(t *testing.T) {
	in := newTestInputs(t, "", "")

	code, _, stderr := runCLI(t, "-i", in.score, "-c", in.blocks, "-a", in.bed1)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "-b/--bed2 is required")
}

func TestRun_UnknownFlag(t *testing.T) {
	code, _, _ := runCLI(t, "--nope")
	assert.Equal(t, ExitUsage, code)
}

func TestRun_MissingInputFile(t *testing.T) {
	in := newTestInputs(t, "", "")
	in.bed2 = filepath.Join(in.dir, "missing.bed")

	code, _, stderr := runCLI(t, in.args()...)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "load bed2")
}

func TestRun_MalformedBlocks(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\n", "chr1\t50\t150\tchr2\t400\t600\tx\n")

	code, stdout, stderr := runCLI(t, in.args()...)
	assert.Equal(t, ExitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "colinearity parse error at line 1")
}

func TestRun_MalformedScoreRowKeepsEarlierOutput(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\t1\ngeneC\n", "")

	code, stdout, stderr := runCLI(t, in.args()...)
	assert.Equal(t, ExitError, code)
	assert.Equal(t, "geneA\tgeneB\t1\t0\n", stdout)
	assert.Contains(t, stderr, "score parse error at line 2")
}

func TestRun_DuckDBExport(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\t10.0\ngeneC\tgeneD\t2\n", "chr1\t50\t150\tchr2\t400\t600\t0.8\n")
	dbPath := filepath.Join(in.dir, "merged.duckdb")

	code, stdout, stderr := runCLI(t, in.args("--duckdb", dbPath)...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "geneA\tgeneB\t10.0\t0.8\ngeneC\tgeneD\t2\t0\n", stdout)

	store, err := duckdb.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := store.LookupPair("geneA", "geneB")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.8, results[0].BlockScore)

	inputs, err := store.Inputs()
	require.NoError(t, err)
	assert.Len(t, inputs, 4)
	assert.Equal(t, in.blocks, inputs["colinearity"].Path)
}

func TestRun_OverflowingBlockScore(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\t10.0\n", "chr1\t50\t150\tchr2\t400\t600\t1e400\n")

	code, stdout, stderr := runCLI(t, in.args()...)
	assert.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "geneA\tgeneB\t10.0\tinf\n", stdout)
}

func TestRun_TopScores(t *testing.T) {
	scores := "geneA\tgeneB\t1\n" +
		"geneC\tgeneD\t2\n"
	blocks := "chr1\t50\t150\tchr2\t400\t600\t0.8\n" +
		"chr1\t250\t450\tchr2\t850\t1000\t0.95\n"
	in := newTestInputs(t, scores, blocks)
	dbPath := filepath.Join(in.dir, "merged.duckdb")

	code, _, stderr := runCLI(t, in.args("--duckdb", dbPath, "--top", "1")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, 1, strings.Count(stderr, "top block score"))
	assert.Contains(t, stderr, `"gene1": "geneC"`)
}

func TestRun_TopRequiresDuckDB(t *testing.T) {
	in := newTestInputs(t, "", "")

	code, _, stderr := runCLI(t, in.args("--top", "3")...)
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "--top requires --duckdb")
}

func TestRun_ConfigFile(t *testing.T) {
	in := newTestInputs(t, "geneA\tgeneB\t10.0\n", "chr1\t50\t150\tchr2\t400\t600\t0.8\n")
	cfg := writeFile(t, in.dir, "merge.yaml",
		"colinearity: "+in.blocks+"\nbed1: "+in.bed1+"\nbed2: "+in.bed2+"\n")

	code, stdout, stderr := runCLI(t, "--config", cfg, "-i", in.score)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Equal(t, "geneA\tgeneB\t10.0\t0.8\n", stdout)
}

func TestRun_ConfigSetGetShow(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "merge.yaml")

	code, stdout, stderr := runCLI(t, "config", "set", "colinearity", "blocks.tsv", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Set colinearity = blocks.tsv")

	code, stdout, _ = runCLI(t, "config", "get", "colinearity", "--config", cfg)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "blocks.tsv\n", stdout)

	code, stdout, _ = runCLI(t, "config", "--config", cfg)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "colinearity: blocks.tsv")

	code, _, _ = runCLI(t, "config", "get", "bed1", "--config", cfg)
	assert.Equal(t, ExitError, code)

	code, _, _ = runCLI(t, "config", "set", "nope", "x", "--config", cfg)
	assert.Equal(t, ExitError, code)
}

func TestRun_ConfigSetWritesOnlySetKeys(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "merge.yaml", "bed1: genome1.bed\n")

	code, _, stderr := runCLI(t, "config", "set", "colinearity", "blocks.tsv", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)
	code, _, stderr = runCLI(t, "config", "set", "top", "5", "--config", cfg)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "bed1: genome1.bed")
	assert.Contains(t, content, "colinearity: blocks.tsv")
	assert.Contains(t, content, "top: 5")
	assert.NotContains(t, content, "score:")
	assert.NotContains(t, content, "output:")
	assert.NotContains(t, content, "verbose:")
}

func TestRun_ConfigSetRequiresFile(t *testing.T) {
	code, _, stderr := runCLI(t, "config", "set", "bed1", "genome1.bed")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "requires --config")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "dev")
}
