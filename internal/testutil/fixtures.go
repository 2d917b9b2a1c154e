package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// StudentHeader is the column header of the student-performance dataset.
const StudentHeader = `gender,race/ethnicity,parental level of education,lunch,test preparation course,math score,reading score,writing score`

// TrainRows is a three-row training split. Its math scores are 60, 70, 80.
var TrainRows = []string{
	`female,group B,bachelor's degree,standard,none,60,72,70`,
	`male,group C,some college,free/reduced,completed,70,82,80`,
	`female,group B,master's degree,standard,none,80,92,90`,
}

// TestRows is a one-row test split using only categories seen in TrainRows.
var TestRows = []string{
	`male,group C,some college,standard,none,75,85,84`,
}

// WriteCSV writes a header and rows to dir/name and returns the path.
func WriteCSV(t testing.TB, dir, name, header string, rows []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := header + "\n" + strings.Join(rows, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// WriteStudentSplits writes train.csv and test.csv from TrainRows and
// TestRows into a temp dir.
func WriteStudentSplits(t testing.TB) (trainPath, testPath string) {
	t.Helper()
	dir := t.TempDir()
	return WriteCSV(t, dir, "train.csv", StudentHeader, TrainRows),
		WriteCSV(t, dir, "test.csv", StudentHeader, TestRows)
}

// StudentRows generates n rows whose math score is an exact linear function
// of the other columns. Categorical values cycle, so any 30 consecutive rows
// cover every category.
func StudentRows(n int) []string {
	genders := []string{"female", "male"}
	races := []string{"group A", "group B", "group C", "group D", "group E"}
	educations := []string{"high school", "some college", "bachelor's degree"}
	lunches := []string{"free/reduced", "standard"}
	preps := []string{"none", "completed"}

	rows := make([]string, n)
	for i := range rows {
		g, l := i%2, (i/2)%2
		reading := 50 + (i*7)%40
		writing := 45 + (i*11)%45
		math := 0.5*float64(reading) + 0.4*float64(writing) + 5*float64(g) + 3*float64(l)
		rows[i] = fmt.Sprintf("%s,%s,%s,%s,%s,%g,%d,%d",
			genders[g], races[i%5], educations[i%3], lunches[l], preps[(i/3)%2],
			math, reading, writing)
	}
	return rows
}
