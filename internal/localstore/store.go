// Package localstore keeps the on-device ledger of completed runs inside a
// prefs.Store. The ledger is append-only and index addressed: a run reserves
// the next index when it finishes, and the player's name is written to that
// same index later, once they confirm it.
package localstore

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/models"
	"github.com/upward-game/leaderboard/internal/prefs"
)

var ErrInvalidTime = errors.New("run time must be a finite, non-negative number of seconds")

// Keys names the settings keys the ledger is stored under. Time and Name are
// prefixes; the entry index is appended to them.
type Keys struct {
	Count  string
	Time   string
	Name   string
	Legacy string
}

// CanonicalKeys is the layout every current build reads and writes.
var CanonicalKeys = Keys{
	Count:  "LevelCompletionCount",
	Time:   "LevelCompletionTimes",
	Name:   "LevelCompletionNames",
	Legacy: "LevelTimes",
}

// SpacedKeys is the layout early desktop builds wrote. Point a Store at it
// to read a save file from one of those builds.
var SpacedKeys = Keys{
	Count:  "Level Completion Count",
	Time:   "Level Completion Times",
	Name:   "Level Completion Names",
	Legacy: "Level Times",
}

func (k Keys) timeKey(i int) string { return k.Time + strconv.Itoa(i) }
func (k Keys) nameKey(i int) string { return k.Name + strconv.Itoa(i) }

// Store is the local score ledger.
type Store struct {
	mu     sync.Mutex
	prefs  prefs.Store
	keys   Keys
	logger *zap.SugaredLogger
}

// New wraps p. Zero-value keys select CanonicalKeys.
func New(p prefs.Store, keys Keys, logger *zap.Logger) *Store {
	if keys == (Keys{}) {
		keys = CanonicalKeys
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{prefs: p, keys: keys, logger: logger.Sugar()}
}

// Count returns the number of reserved indices.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs.GetInt(s.keys.Count, 0)
}

// RecordRun appends a run with a blank name and flushes the store before
// returning the reserved index.
func (s *Store) RecordRun(seconds float64) (int, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return -1, ErrInvalidTime
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.prefs.GetInt(s.keys.Count, 0)
	if err := s.prefs.SetFloat(s.keys.timeKey(index), seconds); err != nil {
		return -1, err
	}
	if err := s.prefs.SetString(s.keys.nameKey(index), ""); err != nil {
		return -1, err
	}
	if err := s.prefs.SetInt(s.keys.Count, index+1); err != nil {
		return -1, err
	}
	if err := s.prefs.Save(); err != nil {
		return -1, err
	}

	s.logger.Infow("Run recorded", "index", index, "time", seconds)
	return index, nil
}

// SetName backfills the name of a reserved entry. Indices outside the ledger
// are ignored.
func (s *Store) SetName(index int, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= s.prefs.GetInt(s.keys.Count, 0) {
		s.logger.Debugw("Ignoring name for unknown index", "index", index)
		return nil
	}
	if err := s.prefs.SetString(s.keys.nameKey(index), name); err != nil {
		return err
	}
	return s.prefs.Save()
}

// ReadAll returns every ledger entry followed by every legacy entry, in
// storage order. Entries with a missing or negative time are skipped.
func (s *Store) ReadAll() []models.ScoreRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.prefs.GetInt(s.keys.Count, 0)
	result := make([]models.ScoreRecord, 0, count)
	for i := 0; i < count; i++ {
		t := s.prefs.GetFloat(s.keys.timeKey(i), -1)
		if t < 0 || math.IsNaN(t) {
			continue
		}
		name := s.prefs.GetString(s.keys.nameKey(i), "")
		result = append(result, models.ScoreRecord{Name: name, Time: t}.WithDefaultName())
	}

	if raw := s.prefs.GetString(s.keys.Legacy, ""); raw != "" {
		result = append(result, ParseLegacyTimes(raw)...)
	}
	return result
}

// ParseLegacyTimes reads the old "|"-separated list of integer milliseconds.
// Tokens that are not integers, or are negative, are dropped.
func ParseLegacyTimes(raw string) []models.ScoreRecord {
	var result []models.ScoreRecord
	for _, token := range strings.Split(raw, "|") {
		ms, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || ms < 0 {
			continue
		}
		result = append(result, models.ScoreRecord{
			Name: models.DefaultName,
			Time: float64(ms) / 1000,
		})
	}
	return result
}
