// Package artifact persists fitted pipeline objects to disk.
//
// Objects are gob-encoded. Concrete types stored behind interfaces must be
// registered with gob by their defining package. The files are opaque and
// only read back by this program.
package artifact

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapml/internal/model"
	"github.com/leapstack-labs/leapml/internal/pipeerr"
	"github.com/leapstack-labs/leapml/internal/preprocess"
)

// Default artifact file names inside the artifact directory.
const (
	PreprocessorFile = "preprocessor.pkl"
	ModelFile        = "model.pkl"
)

// Save encodes obj to path, creating parent directories as needed. The file
// is written to a temporary sibling and renamed into place.
func Save(path string, obj any) error {
	if err := save(path, obj); err != nil {
		return pipeerr.Wrap("artifact.Save", pipeerr.KindIO, err)
	}
	return nil
}

func save(path string, obj any) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := gob.NewEncoder(tmp).Encode(&obj); err != nil {
		return fmt.Errorf("failed to encode %T: %w", obj, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

// Load decodes the object stored at path.
func Load(path string) (any, error) {
	obj, err := load(path)
	if err != nil {
		return nil, pipeerr.Wrap("artifact.Load", pipeerr.KindIO, err)
	}
	return obj, nil
}

func load(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	var obj any
	if err := gob.NewDecoder(f).Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	return obj, nil
}

// LoadTransformer loads a fitted column transformer.
func LoadTransformer(path string) (*preprocess.ColumnTransformer, error) {
	obj, err := Load(path)
	if err != nil {
		return nil, err
	}
	ct, ok := obj.(*preprocess.ColumnTransformer)
	if !ok {
		return nil, pipeerr.Errorf("artifact.LoadTransformer", pipeerr.KindIO, "%s holds %T, not a transformer", path, obj)
	}
	return ct, nil
}

// LoadModel loads a fitted regressor.
func LoadModel(path string) (model.Regressor, error) {
	obj, err := Load(path)
	if err != nil {
		return nil, err
	}
	m, ok := obj.(model.Regressor)
	if !ok {
		return nil, pipeerr.Errorf("artifact.LoadModel", pipeerr.KindIO, "%s holds %T, not a model", path, obj)
	}
	return m, nil
}
