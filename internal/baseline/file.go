package baseline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// FileStore keeps baselines in a YAML file. Access is serialized across
// processes with a lock file next to it.
type FileStore struct {
	path string
	lock *flock.Flock
}

type fileContents struct {
	Baselines map[string]Record `yaml:"baselines"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context, name string) (Record, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return Record{}, fmt.Errorf("create baseline directory: %w", err)
	}
	locked, err := s.lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return Record{}, fmt.Errorf("lock baseline file: %w", err)
	}
	if !locked {
		return Record{}, fmt.Errorf("lock baseline file %s: not acquired", s.path)
	}
	defer s.lock.Unlock()

	contents, err := s.read()
	if err != nil {
		return Record{}, err
	}
	rec, ok := contents.Baselines[name]
	if !ok {
		return Record{}, fmt.Errorf("%w: %q in %s", ErrNotFound, name, s.path)
	}
	return rec, nil
}

func (s *FileStore) Save(ctx context.Context, rec Record) error {
	if rec.Name == "" {
		return errors.New("baseline name is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create baseline directory: %w", err)
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock baseline file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock baseline file %s: not acquired", s.path)
	}
	defer s.lock.Unlock()

	contents, err := s.read()
	if err != nil {
		return err
	}
	contents.Baselines[rec.Name] = rec

	data, err := yaml.Marshal(contents)
	if err != nil {
		return fmt.Errorf("encode baselines: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write baselines: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace baselines: %w", err)
	}
	return nil
}

// read loads the file; a missing file is an empty store. Callers hold the lock.
func (s *FileStore) read() (fileContents, error) {
	contents := fileContents{Baselines: map[string]Record{}}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return contents, nil
	}
	if err != nil {
		return contents, fmt.Errorf("read baselines: %w", err)
	}
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return contents, fmt.Errorf("parse baselines %s: %w", s.path, err)
	}
	if contents.Baselines == nil {
		contents.Baselines = map[string]Record{}
	}
	return contents, nil
}
