package models

import (
	"math"
	"strings"
)

// DefaultName is shown for runs whose player never entered a name.
const DefaultName = "Player"

// ScoreRecord is one completed run. Timestamp is only set on records that
// went through the remote leaderboard.
type ScoreRecord struct {
	Name      string  `json:"name" validate:"max=64"`
	Time      float64 `json:"time" validate:"gte=0"`
	Timestamp int64   `json:"timestamp"`
}

// Valid reports whether the record can be ranked.
func (r ScoreRecord) Valid() bool {
	return !math.IsNaN(r.Time) && !math.IsInf(r.Time, 0) && r.Time >= 0
}

// DisplayName returns the name with the default applied to blank names.
func (r ScoreRecord) DisplayName() string {
	if strings.TrimSpace(r.Name) == "" {
		return DefaultName
	}
	return r.Name
}

// WithDefaultName returns a copy whose blank name is replaced by DefaultName.
func (r ScoreRecord) WithDefaultName() ScoreRecord {
	r.Name = r.DisplayName()
	return r
}

// PushResponse mirrors the body the document store returns for a POST.
type PushResponse struct {
	Name string `json:"name"`
}
