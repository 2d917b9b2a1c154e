package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leapml/internal/evaluate"
	"github.com/leapstack-labs/leapml/internal/ingest"
	"github.com/leapstack-labs/leapml/internal/preprocess"
	"github.com/leapstack-labs/leapml/internal/trainer"
	"github.com/leapstack-labs/leapml/internal/transform"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// configKey is used to store the loaded config in a command context.
type configKey struct{}

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: LEAPML_EVALUATE__MIN_SCORE sets evaluate.min_score.
const EnvPrefix = "LEAPML_"

// configFileNames are searched, in order, in the working directory.
var configFileNames = []string{"leapml.yaml", "leapml.yml"}

// flagKeys maps flag names to config keys where they differ after
// kebab-to-snake conversion.
var flagKeys = map[string]string{
	"state":     "state_path",
	"jobs":      "evaluate.jobs",
	"folds":     "evaluate.folds",
	"min-score": "evaluate.min_score",
	"test-size": "ingest.test_size",
	"seed":      "ingest.seed",
	"port":      "ui.port",
	"watch":     "ui.watch",
}

func defaults() map[string]any {
	cols := preprocess.DefaultColumns()
	return map[string]any{
		"artifact_dir":        DefaultArtifactDir,
		"state_path":          DefaultStateFile,
		"database":            DefaultDatabase,
		"target_column":       transform.DefaultTargetColumn,
		"columns.numeric":     cols.Numeric,
		"columns.categorical": cols.Categorical,
		"verbose":             false,
		"output":              DefaultOutput,
		"evaluate.jobs":       1,
		"evaluate.folds":      evaluate.DefaultFolds,
		"evaluate.min_score":  trainer.DefaultMinScore,
		"ingest.test_size":    ingest.DefaultTestSize,
		"ingest.seed":         ingest.DefaultSeed,
		"ui.port":             DefaultUIPort,
		"ui.watch":            true,
	}
}

// Loaded is a resolved configuration plus where it came from.
type Loaded struct {
	*Config
	// File is the config file that was read, or empty.
	File string
}

// Load builds the configuration from defaults, the config file, LEAPML_
// environment variables and changed flags, in increasing precedence.
// Relative paths from the config file resolve against the file's directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Loaded, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if len(cfg.Evaluate.Candidates) == 0 {
		cfg.Evaluate.Candidates = trainer.DefaultCandidates()
	}

	if used != "" {
		base := filepath.Dir(used)
		if !flagChanged(flags, "artifact-dir") {
			cfg.ArtifactDir = resolvePathRelativeTo(cfg.ArtifactDir, base)
		}
		if !flagChanged(flags, "state") {
			cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, base)
		}
		if cfg.Database != DefaultDatabase && !flagChanged(flags, "database") {
			cfg.Database = resolvePathRelativeTo(cfg.Database, base)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Loaded{Config: &cfg, File: used}, nil
}

// envKey maps LEAPML_EVALUATE__MIN_SCORE to evaluate.min_score.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	return flags != nil && flags.Lookup(name) != nil && flags.Changed(name)
}

// resolvePathRelativeTo resolves path against baseDir unless it is empty or
// absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ArtifactPath joins name onto the artifact directory.
func (c *Config) ArtifactPath(name string) string {
	return filepath.Join(c.ArtifactDir, name)
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() any {
	return configKey{}
}

// GetConfig retrieves the config from the command context. Without one it
// loads the defaults, the config file in the working directory and the
// environment.
func GetConfig(ctx context.Context) (*Config, error) {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c, nil
	}
	loaded, err := Load("", nil)
	if err != nil {
		return nil, err
	}
	return loaded.Config, nil
}
