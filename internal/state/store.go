// Package state records pipeline runs and their evaluation scores in SQLite.
package state

import (
	"time"

	"github.com/leapstack-labs/leapml/internal/evaluate"
	"github.com/leapstack-labs/leapml/internal/model"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of a pipeline command.
type Run struct {
	ID           string     `json:"id" yaml:"id"`
	Command      string     `json:"command" yaml:"command"`
	Status       RunStatus  `json:"status" yaml:"status"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error        string     `json:"error,omitempty" yaml:"error,omitempty"`
	ArtifactPath string     `json:"artifact_path,omitempty" yaml:"artifact_path,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Score is one evaluated candidate of a run. Undefined R² values are NaN.
type Score struct {
	Position   int          `json:"position" yaml:"position"`
	Model      string       `json:"model" yaml:"model"`
	Kind       string       `json:"kind" yaml:"kind"`
	CVR2       float64      `json:"cv_r2" yaml:"cv_r2"`
	TrainR2    float64      `json:"train_r2" yaml:"train_r2"`
	TestR2     float64      `json:"test_r2" yaml:"test_r2"`
	BestParams model.Params `json:"best_params" yaml:"best_params"`
}

// Store persists runs and scores.
type Store interface {
	Close() error
	CreateRun(command string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg, artifactPath string) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	RecordScores(runID string, report *evaluate.Report) error
	GetScores(runID string) ([]Score, error)
}

var _ Store = (*SQLiteStore)(nil)
