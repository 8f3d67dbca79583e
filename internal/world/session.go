package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Session owns a world for the length of one experiment together with the
// transient directory holding descriptor files handed to the world.
type Session struct {
	mu     sync.Mutex
	world  World
	dir    string
	files  []string
	closed bool
	log    *zap.Logger
}

// Open starts a session over w. Closing the session closes w.
func Open(w World, log *zap.Logger) (*Session, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil world", ErrInvalidArgument)
	}
	if log == nil {
		log = zap.NewNop()
	}

	dir, err := os.MkdirTemp("", "frictionlab-*")
	if err != nil {
		return nil, fmt.Errorf("create descriptor dir: %w", err)
	}

	log = log.Named("session")
	log.Debug("session opened", zap.String("dir", dir))
	return &Session{world: w, dir: dir, log: log}, nil
}

func (s *Session) World() World {
	return s.world
}

// Dir is the transient directory for descriptor files.
func (s *Session) Dir() string {
	return s.dir
}

// WriteDescriptor stores data in a fresh file of the session directory and
// returns its path.
func (s *Session) WriteDescriptor(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}

	f, err := os.CreateTemp(s.dir, filepath.Base(name)+"-*.urdf")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	s.files = append(s.files, f.Name())
	return f.Name(), nil
}

// Files lists the descriptor files written so far.
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]string, len(s.files))
	copy(files, s.files)
	return files
}

// Close tears down the world and removes the descriptor directory.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := errors.Join(s.world.Close(), os.RemoveAll(s.dir))
	s.log.Debug("session closed", zap.Int("descriptors", len(s.files)), zap.Error(err))
	return err
}
