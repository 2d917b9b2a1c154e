// Package config provides configuration management for the leapml CLI.
package config

import (
	"github.com/leapstack-labs/leapml/internal/preprocess"
	"github.com/leapstack-labs/leapml/internal/trainer"
)

// Config holds all CLI configuration options.
type Config struct {
	ArtifactDir    string             `koanf:"artifact_dir"`
	StatePath      string             `koanf:"state_path"`
	Database       string             `koanf:"database"`
	DatabaseParams map[string]any     `koanf:"database_params"`
	TargetColumn   string             `koanf:"target_column"`
	Columns        preprocess.Columns `koanf:"columns"`
	Verbose        bool               `koanf:"verbose"`
	OutputFormat   string             `koanf:"output"`
	Evaluate       EvaluateConfig     `koanf:"evaluate"`
	Ingest         IngestConfig       `koanf:"ingest"`
	UI             UIConfig           `koanf:"ui"`
}

// EvaluateConfig controls model search.
type EvaluateConfig struct {
	Jobs       int                 `koanf:"jobs"`
	Folds      int                 `koanf:"folds"`
	MinScore   float64             `koanf:"min_score"`
	Candidates []trainer.Candidate `koanf:"candidates"`
}

// IngestConfig controls the train/test split.
type IngestConfig struct {
	TestSize float64 `koanf:"test_size"`
	Seed     uint64  `koanf:"seed"`
}

// UIConfig controls the run history dashboard.
type UIConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// Default configuration values.
const (
	DefaultArtifactDir = "artifact"
	DefaultStateFile   = ".leapml/state.db"
	DefaultDatabase    = ":memory:"
	DefaultOutput      = "auto"
	DefaultUIPort      = 8765
)

// Output modes.
const (
	OutputAuto     = "auto"
	OutputText     = "text"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)
