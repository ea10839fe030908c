package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrMissingTime is returned for a record without a usable time.
	ErrMissingTime = errors.New("score record has no time")

	ErrNotAnObject = errors.New("score record is not a JSON object")
)

// UnmarshalJSON decodes a record leniently. Records edited by hand in the
// database console often carry "12.5" instead of 12.5, so numeric fields may
// arrive as strings and the name as a number. Any other type in a known
// field is an error, and so is a record without a time: a zero time would
// otherwise rank first.
func (r *ScoreRecord) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("score record: invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if doc.Type == gjson.Null {
		return nil
	}
	if !doc.IsObject() {
		return ErrNotAnObject
	}

	var rec ScoreRecord
	var err error

	t := doc.Get("time")
	if !t.Exists() || t.Type == gjson.Null {
		return ErrMissingTime
	}
	if rec.Time, err = flexFloat(t); err != nil {
		return fmt.Errorf("score record time: %w", err)
	}

	if name := doc.Get("name"); name.Exists() {
		if rec.Name, err = flexString(name); err != nil {
			return fmt.Errorf("score record name: %w", err)
		}
	}

	if ts := doc.Get("timestamp"); ts.Exists() && ts.Type != gjson.Null {
		f, err := flexFloat(ts)
		if err != nil {
			return fmt.Errorf("score record timestamp: %w", err)
		}
		// "1700000000.0" truncates to an int
		rec.Timestamp = int64(f)
	}

	*r = rec
	return nil
}

func flexFloat(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return strconv.ParseFloat(v.Raw, 64)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseFloat(s, 64)
	default:
		return 0, fmt.Errorf("unsupported value %s", v.Raw)
	}
}

func flexString(v gjson.Result) (string, error) {
	switch v.Type {
	case gjson.String:
		return v.Str, nil
	case gjson.Number:
		return v.Raw, nil
	case gjson.Null:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value %s", v.Raw)
	}
}
