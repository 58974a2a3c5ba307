// Package decisions persists user choices made during conflict prompts
// so later runs never ask the same question twice. The store owns a
// single JSON document, loaded lazily once per process and flushed
// eagerly on every write.
package decisions

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/hostup/pkg/errors"
	"github.com/arthur-debert/hostup/pkg/logging"
	"github.com/arthur-debert/hostup/pkg/types"
	"github.com/rs/zerolog"
)

// Store is a file-backed decision store. It implements
// types.DecisionStore.
type Store struct {
	path   string
	logger zerolog.Logger
	data   fileData
	loaded bool
}

// fileData mirrors the on-disk layout:
// {"symlink": {"<target>": {"action": "ignore"}}}
type fileData struct {
	Symlink map[string]decisionEntry `json:"symlink,omitempty"`
}

type decisionEntry struct {
	Action string `json:"action"`
}

// DefaultPath returns the decision file location under the XDG config
// directory.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "hostup", "decisions.json")
}

// NewStore creates a store backed by the given file. The file is not
// read until the first lookup or write.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: logging.GetLogger("decisions"),
	}
}

// load reads the file once. A missing file means an empty store; an
// unreadable or corrupt file is repaired to empty with a warning, never
// a fatal error.
func (s *Store) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.data = fileData{}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to read decisions file, starting empty")
		}
		return
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Failed to parse decisions file, starting empty")
		s.data = fileData{}
	}
}

// SymlinkDecision reports the persisted decision for a target path.
func (s *Store) SymlinkDecision(target string) (types.DecisionAction, bool) {
	s.load()
	entry, ok := s.data.Symlink[target]
	if !ok {
		return "", false
	}
	if entry.Action != string(types.DecisionIgnore) {
		return "", false
	}
	return types.DecisionIgnore, true
}

// SetSymlinkIgnore records an ignore decision for a target and flushes
// the store to disk.
func (s *Store) SetSymlinkIgnore(target string) error {
	s.load()
	if s.data.Symlink == nil {
		s.data.Symlink = make(map[string]decisionEntry)
	}
	s.data.Symlink[target] = decisionEntry{Action: string(types.DecisionIgnore)}

	if err := s.flush(); err != nil {
		return err
	}
	s.logger.Debug().Str("target", target).Msg("Saved decision: ignore symlink")
	return nil
}

// flush writes the whole document atomically: temp file in the same
// directory, then rename over the target.
func (s *Store) flush() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create decisions directory %s", dir)
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "failed to encode decisions")
	}
	raw = append(raw, '\n')

	tmp, err := os.CreateTemp(dir, ".decisions-*.json")
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create temp file in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write decisions to %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to close %s", tmpName)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to replace %s", s.path)
	}
	return nil
}
