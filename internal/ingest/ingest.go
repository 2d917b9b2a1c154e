// Package ingest splits a raw dataset into train and test CSV files.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapml/internal/adapter"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
)

const op = "ingest.Split"

// Output file names written to the output directory.
const (
	RawFile   = "raw.csv"
	TrainFile = "train.csv"
	TestFile  = "test.csv"
)

// Defaults for Options.
const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
)

// Options configures a split.
type Options struct {
	// OutDir receives raw.csv, train.csv and test.csv.
	OutDir string
	// TestSize is the fraction of rows held out, in (0, 1).
	TestSize float64
	// Seed makes the shuffle reproducible.
	Seed uint64
	// Adapter configures the engine. Empty means an in-memory DuckDB.
	Adapter adapter.Config
	Logger  *slog.Logger
}

// Result describes the files written by Split.
type Result struct {
	RawPath   string `json:"raw_path"`
	TrainPath string `json:"train_path"`
	TestPath  string `json:"test_path"`
	TrainRows int    `json:"train_rows"`
	TestRows  int    `json:"test_rows"`
}

// Split loads rawPath, draws a seeded random test set of ceil(TestSize*n)
// rows and writes both splits plus a copy of the raw data to OutDir. Rows
// keep their file order within each split.
func Split(ctx context.Context, rawPath string, opts Options) (*Result, error) {
	res, err := split(ctx, rawPath, opts)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindIO, err)
	}
	return res, nil
}

func split(ctx context.Context, rawPath string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.TestSize == 0 {
		opts.TestSize = DefaultTestSize
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		return nil, pipeerr.Errorf(op, pipeerr.KindConfig, "test size must be in (0, 1), got %v", opts.TestSize)
	}
	if opts.Adapter.Path == "" {
		opts.Adapter.Path = ":memory:"
	}

	db, err := adapter.Open(ctx, opts.Adapter, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	logger.Info("entered data ingestion", "path", rawPath)
	if err := db.LoadCSV(ctx, "raw", rawPath); err != nil {
		return nil, err
	}
	meta, err := db.GetTableMetadata(ctx, "raw")
	if err != nil {
		return nil, err
	}
	n := int(meta.RowCount)

	testIDs, err := sampleTest(n, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, pipeerr.Wrap(op, pipeerr.KindData, err)
	}
	idList := joinInts(testIDs)

	res := &Result{
		RawPath:   filepath.Join(opts.OutDir, RawFile),
		TrainPath: filepath.Join(opts.OutDir, TrainFile),
		TestPath:  filepath.Join(opts.OutDir, TestFile),
		TrainRows: n - len(testIDs),
		TestRows:  len(testIDs),
	}
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	exports := []struct {
		path  string
		query string
	}{
		{res.RawPath, "SELECT * FROM raw ORDER BY rowid"},
		{res.TrainPath, fmt.Sprintf("SELECT * FROM raw WHERE rowid NOT IN (%s) ORDER BY rowid", idList)},
		{res.TestPath, fmt.Sprintf("SELECT * FROM raw WHERE rowid IN (%s) ORDER BY rowid", idList)},
	}
	for _, e := range exports {
		if err := db.ExportCSV(ctx, e.query, e.path); err != nil {
			return nil, err
		}
	}

	logger.Info("ingestion of the data is completed",
		"train_rows", res.TrainRows, "test_rows", res.TestRows, "out_dir", opts.OutDir)
	return res, nil
}

// sampleTest returns the sorted row ids of the test split.
func sampleTest(n int, testSize float64, seed uint64) ([]int, error) {
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || nTest >= n {
		return nil, fmt.Errorf("cannot hold out %v of %d rows", testSize, n)
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	ids := append([]int(nil), perm[:nTest]...)
	sort.Ints(ids)
	return ids, nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
