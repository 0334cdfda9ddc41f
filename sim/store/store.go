// Package store persists simulation artifacts as write-once files.
//
// Cache identity is structured: every artifact family is addressed by a Key
// whose fields are the parameters that affect its content. Keys are
// serialized to directory paths only here, at the storage boundary, so two
// configurations never collide and an identical configuration always resolves
// to the same cache.
//
// Artifacts are committed atomically (temp file + rename in the same
// directory) and never mutated after first write: a reader either sees a
// complete, checksummed artifact or none at all.
package store

import (
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/sirupsen/logrus"
)

// Key is a structured cache identity. Segments returns the path elements,
// in order, encoding every parameter that affects the artifact's content.
type Key interface {
	Segments() []string
}

// Store reads and writes artifacts under a single cache root.
type Store struct {
	fs billy.Filesystem
}

// New wraps an existing filesystem, typically memfs.New() in tests.
func New(fs billy.Filesystem) *Store { return &Store{fs: fs} }

// Open returns a Store rooted at the given directory on the OS filesystem.
func Open(root string) *Store { return &Store{fs: osfs.New(root)} }

// InMemory returns a Store backed by a fresh in-memory filesystem.
func InMemory() *Store { return New(memfs.New()) }

func (s *Store) dir(key Key) string {
	return path.Join(key.Segments()...)
}

func (s *Store) path(key Key, name string) string {
	return path.Join(s.dir(key), name+".lif")
}

// EnsureDir creates the key's directory if missing. The directory doubles as
// the on-disk identity of the configuration.
func (s *Store) EnsureDir(key Key) error {
	if err := s.fs.MkdirAll(s.dir(key), 0o755); err != nil {
		return fmt.Errorf("store: mkdir %s: %w", s.dir(key), err)
	}
	return nil
}

// Exists reports whether the named artifact has been committed.
func (s *Store) Exists(key Key, name string) (bool, error) {
	_, err := s.fs.Stat(s.path(key, name))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("store: stat %s: %w", s.path(key, name), err)
	}
}

// Read loads and verifies the named artifact.
func (s *Store) Read(key Key, name string) (*Artifact, error) {
	p := s.path(key, name)
	raw, err := util.ReadFile(s.fs, p)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", p, err)
	}
	a, err := decode(raw)
	if err != nil {
		return nil, CorruptArtifactError{Path: p, Reason: err.Error()}
	}
	logrus.Debugf("Read artifact %s (%d fields)", p, len(a.Fields))
	return a, nil
}

// Write commits the artifact atomically. Existing artifacts are left
// untouched: generation is idempotent and realizations are write-once, so a
// second Write with the same key and name is a no-op.
func (s *Store) Write(key Key, name string, a *Artifact) error {
	p := s.path(key, name)
	if ok, err := s.Exists(key, name); err != nil {
		return err
	} else if ok {
		logrus.Debugf("Artifact %s already committed, skipping write", p)
		return nil
	}
	if err := s.EnsureDir(key); err != nil {
		return err
	}
	raw, err := encode(a)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", p, err)
	}
	tmp, err := s.fs.TempFile(s.dir(key), "."+name+"-*")
	if err != nil {
		return fmt.Errorf("store: temp file for %s: %w", p, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmp.Name(), err)
	}
	// Rename is the commit point. If another process committed the same
	// realization in the meantime, this replaces it with identical bytes.
	if err := s.fs.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("store: rename %s -> %s: %w", tmp.Name(), p, err)
	}
	logrus.Debugf("Committed artifact %s (%d bytes)", p, len(raw))
	return nil
}

// CorruptArtifactError reports an artifact that failed header or checksum
// verification. The artifact is left in place; the caller decides.
type CorruptArtifactError struct {
	Path   string
	Reason string
}

func (e CorruptArtifactError) Error() string {
	return fmt.Sprintf("store: corrupt artifact %s: %s", e.Path, e.Reason)
}
