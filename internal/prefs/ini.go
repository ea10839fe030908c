package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/ini.v1"
)

// IniStore keeps every key in the default section of an INI file.
type IniStore struct {
	mu   sync.Mutex
	path string
	file *ini.File
}

// loadOptions keeps a value ending in a backslash (a player name like
// `Neo\`) from swallowing the following line on reload.
var loadOptions = ini.LoadOptions{IgnoreContinuation: true}

// OpenIni loads path, starting empty when the file does not exist yet.
func OpenIni(path string) (*IniStore, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &IniStore{path: path, file: ini.Empty(loadOptions)}, nil
	}
	file, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("load prefs %s: %w", path, err)
	}
	return &IniStore{path: path, file: file}, nil
}

func (s *IniStore) key(name string) *ini.Key {
	return s.file.Section(ini.DefaultSection).Key(name)
}

func (s *IniStore) GetInt(key string, def int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.file.Section(ini.DefaultSection).HasKey(key) {
		return def
	}
	return parseInt(s.key(key).String(), def)
}

func (s *IniStore) SetInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key(key).SetValue(fmt.Sprint(value))
	return nil
}

func (s *IniStore) GetFloat(key string, def float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.file.Section(ini.DefaultSection).HasKey(key) {
		return def
	}
	return parseFloat(s.key(key).String(), def)
}

func (s *IniStore) SetFloat(key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key(key).SetValue(formatFloat(value))
	return nil
}

func (s *IniStore) GetString(key string, def string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.file.Section(ini.DefaultSection).HasKey(key) {
		return def
	}
	return s.key(key).String()
}

func (s *IniStore) SetString(key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key(key).SetValue(value)
	return nil
}

func (s *IniStore) HasKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Section(ini.DefaultSection).HasKey(key)
}

// Save writes the whole file atomically.
func (s *IniStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if _, err := s.file.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	return writeFileAtomic(s.path, buf.Bytes())
}

func (s *IniStore) Close() error { return nil }
