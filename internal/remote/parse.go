package remote

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/upward-game/leaderboard/internal/models"
)

// parseLeaderboard turns a leaderboard.json response body into records sorted
// ascending by time and cut to limit. The body is walked as a generic JSON
// document when it parses; a body that does not (truncated, or with trailing
// junk from a proxy) goes through ExtractChildObjects so the intact
// fragments still count. Records that fail to decode are skipped.
func parseLeaderboard(body []byte, limit int) []models.ScoreRecord {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return []models.ScoreRecord{}
	}

	var fragments []string
	if gjson.Valid(trimmed) {
		doc := gjson.Parse(trimmed)
		// The store answers with an array when every key is a small integer.
		if doc.IsObject() || doc.IsArray() {
			doc.ForEach(func(_, child gjson.Result) bool {
				if child.IsObject() {
					fragments = append(fragments, child.Raw)
				}
				return true
			})
		}
	} else {
		fragments = ExtractChildObjects(trimmed)
	}

	result := make([]models.ScoreRecord, 0, len(fragments))
	for _, fragment := range fragments {
		var rec models.ScoreRecord
		if err := json.Unmarshal([]byte(fragment), &rec); err != nil {
			continue
		}
		if !rec.Valid() {
			continue
		}
		result = append(result, rec.WithDefaultName())
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time < result[j].Time
	})
	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
