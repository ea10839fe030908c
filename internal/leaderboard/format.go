package leaderboard

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/upward-game/leaderboard/internal/models"
)

// Text shown instead of a table.
const (
	LoadingText  = "Loading..."
	EmptyText    = "No times recorded yet."
	DefaultTitle = "Leaderboard"
)

// Renderer turns records into the fixed-width leaderboard text.
type Renderer struct {
	MaxEntries      int
	NameColumnWidth int
}

// Render filters out unrankable records, sorts the rest fastest first, keeps
// MaxEntries of them and lays them out one per line under title. Equal
// times are ordered by name so the output does not depend on input order.
func (r Renderer) Render(entries []models.ScoreRecord, title string) string {
	ordered := SortRecords(entries)
	if r.MaxEntries >= 0 && len(ordered) > r.MaxEntries {
		ordered = ordered[:r.MaxEntries]
	}
	if len(ordered) == 0 {
		return EmptyText
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteByte('\n')

	for i, e := range ordered {
		sb.WriteString(FormatRank(i + 1))
		sb.WriteString("  ")
		sb.WriteString(padOrTrimName(SanitizeName(e.Name), r.NameColumnWidth))
		sb.WriteString("  ")
		sb.WriteString(FormatSeconds(e.Time))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SortRecords returns the valid records of entries sorted ascending by time.
// The input slice is not modified.
func SortRecords(entries []models.ScoreRecord) []models.ScoreRecord {
	out := make([]models.ScoreRecord, 0, len(entries))
	for _, e := range entries {
		if e.Valid() {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return SanitizeName(out[i].Name) < SanitizeName(out[j].Name)
	})
	return out
}

// SanitizeName maps blank names to the default and line breaks to spaces,
// then trims.
func SanitizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return models.DefaultName
	}
	name = strings.NewReplacer("\n", " ", "\r", " ").Replace(name)
	return strings.TrimSpace(name)
}

// padOrTrimName fits name into exactly width terminal cells.
func padOrTrimName(name string, width int) string {
	if width <= 0 {
		return name
	}
	if runewidth.StringWidth(name) > width {
		name = runewidth.Truncate(name, width, "")
	}
	return runewidth.FillRight(name, width)
}

// FormatRank right-aligns single digit ranks: " 1.", "10.".
func FormatRank(rank int) string {
	if rank < 10 {
		return fmt.Sprintf(" %d.", rank)
	}
	return fmt.Sprintf("%d.", rank)
}

// FormatSeconds rounds to the nearest millisecond and formats mm:ss:mmm.
func FormatSeconds(seconds float64) string {
	return FormatMillis(int(math.Round(seconds * 1000)))
}

// FormatMillis formats a millisecond count as mm:ss:mmm.
func FormatMillis(totalMs int) string {
	minutes := totalMs / 60000
	seconds := (totalMs % 60000) / 1000
	millis := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%03d", minutes, seconds, millis)
}
