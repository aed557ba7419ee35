// Package persistence is the on-disk adapter for the leaderboard and
// finished-game history named as an external boundary in spec.md SS4.7:
// the coordinator treats its errors as non-fatal warnings, never as
// reasons to stop a game.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lightcycle-mcp/arena/internal/scoring"
	"github.com/lightcycle-mcp/arena/internal/world"
)

const (
	leaderboardFile = "leaderboard.json"
	finishedFile    = "finished_games.json"
)

// Snapshot bundles everything one call to SaveAfterGame persists.
type Snapshot struct {
	Leaderboard []scoring.Entry
	Finished    []world.World
}

// Store is a file-backed adapter rooted at a data directory, persisting
// both files atomically (write-to-temp then rename) the way the teacher's
// FilePersistence persists one session per file, generalized here to
// cover the leaderboard and the bounded finished-game history together.
type Store struct {
	dir    string
	retain int
}

// NewStore creates dir if needed and returns a Store that retains at
// most retain finished games (spec.md SS6 default: 200).
func NewStore(dir string, retain int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence: create data dir: %w", err)
	}
	if retain <= 0 {
		retain = 200
	}
	return &Store{dir: dir, retain: retain}, nil
}

// Load reads both files at startup. A missing file is not an error — it
// simply means a fresh data directory — but a malformed one is reported
// so the caller can decide whether to treat it as fatal.
func (s *Store) Load() (Snapshot, error) {
	var snap Snapshot

	lb, err := readJSON[[]scoring.Entry](filepath.Join(s.dir, leaderboardFile))
	if err != nil {
		return Snapshot{}, fmt.Errorf("persistence: load leaderboard: %w", err)
	}
	if lb != nil {
		snap.Leaderboard = *lb
	}

	fg, err := readJSON[[]world.World](filepath.Join(s.dir, finishedFile))
	if err != nil {
		return Snapshot{}, fmt.Errorf("persistence: load finished games: %w", err)
	}
	if fg != nil {
		snap.Finished = *fg
	}
	return snap, nil
}

// SaveAfterGame persists the current leaderboard and the bounded,
// oldest-first (most recent last) finished-game history. finished is
// expected already to have the new game appended by the caller;
// SaveAfterGame applies the retention cap, keeping the newest entries,
// before writing.
func (s *Store) SaveAfterGame(leaderboard []scoring.Entry, finished []world.World) error {
	if len(finished) > s.retain {
		finished = finished[len(finished)-s.retain:]
	}
	if err := writeJSONAtomic(filepath.Join(s.dir, leaderboardFile), leaderboard); err != nil {
		return fmt.Errorf("persistence: save leaderboard: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(s.dir, finishedFile), finished); err != nil {
		return fmt.Errorf("persistence: save finished games: %w", err)
	}
	return nil
}

func readJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// writeJSONAtomic marshals v and writes it to path via a temp file in
// the same directory followed by os.Rename, so a crash mid-write never
// leaves a half-written leaderboard or history file behind.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
