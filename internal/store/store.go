// Package store persists the ordered command list as a JSON document.
//
// Writes never modify the target in place: the new document is written to a
// temporary file in the same directory, synced, and renamed over the target,
// so a crash mid-write leaves either the old or the new list on disk.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/Paintersrp/cmdlaunch/internal/command"
)

// DefaultFileName is the name of the command list next to the executable.
const DefaultFileName = "commands.json"

// StoreError reports a read or write failure on the persisted list.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Option configures a Store.
type Option func(*Store)

// WithFs replaces the filesystem the store reads and writes through.
func WithFs(fs afero.Fs) Option {
	return func(s *Store) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithLogger attaches a logger to the store.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "store").Logger()
	}
}

// Store loads and saves a command list file.
type Store struct {
	fs     afero.Fs
	path   string
	logger zerolog.Logger
}

// New constructs a Store backed by the OS filesystem unless overridden.
func New(path string, opts ...Option) *Store {
	s := &Store{
		fs:     afero.NewOsFs(),
		path:   path,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the command list.
func (s *Store) Path() string {
	return s.path
}

// Load reads the command list. A missing file yields an empty list. Entries
// written without an identifier are assigned one.
func (s *Store) Load() ([]command.Command, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug().Str("path", s.path).Msg("command list not found, starting empty")
			return []command.Command{}, nil
		}
		return nil, &StoreError{Op: "load", Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []command.Command{}, nil
	}

	cmds, err := decodeJSON(data)
	if err != nil {
		return nil, &StoreError{Op: "load", Path: s.path, Err: err}
	}
	s.logger.Debug().Str("path", s.path).Int("commands", len(cmds)).Msg("command list loaded")
	return cmds, nil
}

// Save replaces the command list on disk.
func (s *Store) Save(cmds []command.Command) error {
	for _, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return &StoreError{Op: "save", Path: s.path, Err: err}
		}
	}
	data, err := encodeJSON(cmds)
	if err != nil {
		return &StoreError{Op: "save", Path: s.path, Err: err}
	}
	if err := s.writeAtomic(data); err != nil {
		return &StoreError{Op: "save", Path: s.path, Err: err}
	}
	s.logger.Debug().Str("path", s.path).Int("commands", len(cmds)).Msg("command list saved")
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(s.path), err)
	}
	committed = true
	return nil
}

func decodeJSON(data []byte) ([]command.Command, error) {
	if err := validateAgainstSchema(data); err != nil {
		return nil, err
	}
	var cmds []command.Command
	if err := json.Unmarshal(data, &cmds); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return normalize(cmds)
}

func encodeJSON(cmds []command.Command) ([]byte, error) {
	if cmds == nil {
		cmds = []command.Command{}
	}
	data, err := json.MarshalIndent(cmds, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return append(data, '\n'), nil
}

// normalize assigns identifiers to entries that lack one and rejects
// duplicated identifiers.
func normalize(cmds []command.Command) ([]command.Command, error) {
	seen := make(map[string]int, len(cmds))
	for i := range cmds {
		if cmds[i].ID == "" {
			cmds[i].ID = command.NewID()
		}
		if prev, ok := seen[cmds[i].ID]; ok {
			return nil, fmt.Errorf("commands[%d]: id %s duplicates commands[%d]", i, cmds[i].ID, prev)
		}
		seen[cmds[i].ID] = i
		if err := cmds[i].Validate(); err != nil {
			return nil, fmt.Errorf("commands[%d]: %w", i, err)
		}
	}
	if cmds == nil {
		cmds = []command.Command{}
	}
	return cmds, nil
}
