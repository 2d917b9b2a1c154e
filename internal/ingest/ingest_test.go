package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/testutil"
)

func rawRows(n int) []string {
	rows := make([]string, n)
	for i := range rows {
		gender := "female"
		if i%2 == 1 {
			gender = "male"
		}
		rows[i] = fmt.Sprintf("%s,group B,some college,standard,none,%d,%d,%d", gender, 50+i, 60+i, 55+i)
	}
	return rows
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestSplit(t *testing.T) {
	raw := testutil.WriteCSV(t, t.TempDir(), "stud.csv", testutil.StudentHeader, rawRows(10))
	out := filepath.Join(t.TempDir(), "artifact")

	res, err := Split(context.Background(), raw, Options{OutDir: out, Seed: DefaultSeed, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	assert.Equal(t, 8, res.TrainRows)
	assert.Equal(t, 2, res.TestRows)

	train := readCSV(t, res.TrainPath)
	test := readCSV(t, res.TestPath)
	all := readCSV(t, res.RawPath)
	require.Len(t, train, 9)
	require.Len(t, test, 3)
	require.Len(t, all, 11)
	assert.Equal(t, all[0], train[0])
	assert.Equal(t, all[0], test[0])

	// Every raw row lands in exactly one split.
	var got []string
	for _, r := range append(train[1:], test[1:]...) {
		got = append(got, r[5])
	}
	var want []string
	for _, r := range all[1:] {
		want = append(want, r[5])
	}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestSplit_Reproducible(t *testing.T) {
	raw := testutil.WriteCSV(t, t.TempDir(), "stud.csv", testutil.StudentHeader, rawRows(20))

	first, err := Split(context.Background(), raw, Options{OutDir: t.TempDir(), Seed: 7})
	require.NoError(t, err)
	second, err := Split(context.Background(), raw, Options{OutDir: t.TempDir(), Seed: 7})
	require.NoError(t, err)

	assert.Equal(t, readCSV(t, first.TestPath), readCSV(t, second.TestPath))
	assert.Equal(t, 4, first.TestRows)
}

func TestSplit_InvalidTestSize(t *testing.T) {
	raw := testutil.WriteCSV(t, t.TempDir(), "stud.csv", testutil.StudentHeader, rawRows(5))
	_, err := Split(context.Background(), raw, Options{OutDir: t.TempDir(), TestSize: 1.5})
	require.Error(t, err)
	kind, ok := pipeerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, pipeerr.KindConfig, kind)
}

func TestSplit_MissingFile(t *testing.T) {
	_, err := Split(context.Background(), filepath.Join(t.TempDir(), "none.csv"), Options{OutDir: t.TempDir()})
	require.Error(t, err)
	kind, _ := pipeerr.KindOf(err)
	assert.Equal(t, pipeerr.KindIO, kind)
}

func TestSampleTest(t *testing.T) {
	ids, err := sampleTest(1000, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, ids, 200)
	assert.True(t, sort.IntsAreSorted(ids))

	again, err := sampleTest(1000, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, ids, again)

	_, err = sampleTest(1, 0.2, 42)
	assert.Error(t, err)
}
