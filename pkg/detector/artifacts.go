package detector

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadOutcome reports how an attempt to restore a persisted model ended.
type LoadOutcome int

const (
	// LoadOutcomeLoaded means a valid artifact was found and restored.
	LoadOutcomeLoaded LoadOutcome = iota
	// LoadOutcomeNotFound means no artifact exists for the algorithm.
	LoadOutcomeNotFound
	// LoadOutcomeCorrupt means an artifact exists but could not be decoded.
	LoadOutcomeCorrupt
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadOutcomeLoaded:
		return "loaded"
	case LoadOutcomeNotFound:
		return "not_found"
	case LoadOutcomeCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("LoadOutcome(%d)", int(o))
	}
}

// artifactStore persists trained models under a directory, one file per
// algorithm. Writes go through a temp file and rename so a crash mid-write
// never leaves a truncated artifact behind.
type artifactStore struct {
	dir string
}

func newArtifactStore(dir string) *artifactStore {
	return &artifactStore{dir: dir}
}

func (a *artifactStore) path(algorithm Algorithm) string {
	return filepath.Join(a.dir, string(algorithm)+".model")
}

func (a *artifactStore) save(m Model) error {
	data, err := m.Save()
	if err != nil {
		return fmt.Errorf("encoding %s model: %w", m.Algorithm(), err)
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}
	final := a.path(m.Algorithm())
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing model artifact: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publishing model artifact: %w", err)
	}
	return nil
}

// load restores the model's state from its artifact, if one exists.
// A missing file is not an error; a present-but-undecodable file is
// reported as corrupt so the caller can fall back to retraining.
func (a *artifactStore) load(m Model) (LoadOutcome, error) {
	data, err := os.ReadFile(a.path(m.Algorithm()))
	if err != nil {
		if os.IsNotExist(err) {
			return LoadOutcomeNotFound, nil
		}
		return LoadOutcomeNotFound, fmt.Errorf("reading model artifact: %w", err)
	}
	if err := m.Load(data); err != nil {
		return LoadOutcomeCorrupt, fmt.Errorf("decoding %s model: %w", m.Algorithm(), err)
	}
	return LoadOutcomeLoaded, nil
}
