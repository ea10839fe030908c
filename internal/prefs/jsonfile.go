package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSONStore keeps keys as top-level members of a single JSON document.
// Reads go through gjson and writes through sjson so the rest of the
// document (anything another tool put there) is preserved byte for byte.
type JSONStore struct {
	mu   sync.Mutex
	path string
	doc  []byte
}

// OpenJSON loads path, starting with an empty object when it is missing.
func OpenJSON(path string) (*JSONStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &JSONStore{path: path, doc: []byte("{}")}, nil
		}
		return nil, fmt.Errorf("read prefs %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("read prefs %s: invalid JSON", path)
	}
	return &JSONStore{path: path, doc: data}, nil
}

// escapePath turns a flat key into a gjson/sjson path naming one member.
func escapePath(key string) string {
	var sb strings.Builder
	sb.Grow(len(key))
	for i := 0; i < len(key); i++ {
		switch c := key[i]; c {
		case '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func (s *JSONStore) get(key string) gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gjson.GetBytes(s.doc, escapePath(key))
}

func (s *JSONStore) set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := sjson.SetBytes(s.doc, escapePath(key), value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.doc = out
	return nil
}

func (s *JSONStore) GetInt(key string, def int) int {
	res := s.get(key)
	if res.Type != gjson.Number {
		return def
	}
	return int(res.Int())
}

func (s *JSONStore) SetInt(key string, value int) error { return s.set(key, value) }

func (s *JSONStore) GetFloat(key string, def float64) float64 {
	res := s.get(key)
	if res.Type != gjson.Number {
		return def
	}
	return res.Float()
}

func (s *JSONStore) SetFloat(key string, value float64) error { return s.set(key, value) }

func (s *JSONStore) GetString(key string, def string) string {
	res := s.get(key)
	if res.Type != gjson.String {
		return def
	}
	return res.Str
}

func (s *JSONStore) SetString(key string, value string) error { return s.set(key, value) }

func (s *JSONStore) HasKey(key string) bool { return s.get(key).Exists() }

func (s *JSONStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path, s.doc)
}

func (s *JSONStore) Close() error { return nil }
