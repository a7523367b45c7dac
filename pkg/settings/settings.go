// Package settings provides the robot's durable key-value settings document.
//
// Settings are addressed by dotted paths ("chat.openai.apiKey") into a nested
// JSON document. Numeric path segments index arrays. Every mutation is
// persisted with an atomic temp-file + rename, so a crash mid-write never
// corrupts the stored document.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Store is the dotted-path settings document. All methods are safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string // empty: in-memory only (tests)
	doc  map[string]interface{}
}

// New creates a store persisted at the given path.
// An existing file is loaded; a missing file starts an empty document.
func New(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc:  make(map[string]interface{}),
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store with no persistence. Intended for tests.
func NewMemory() *Store {
	return &Store{doc: make(map[string]interface{})}
}

// save writes the document to disk. Caller must hold s.mu.
func (s *Store) save() bool {
	if s.path == "" {
		return true
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return false
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return false
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return false
	}
	return true
}

// lookup walks the dotted path and returns the value, or nil if absent.
// Caller must hold s.mu for reading.
func (s *Store) lookup(key string) interface{} {
	var cur interface{} = s.doc
	if key == "" {
		return cur
	}
	for _, seg := range strings.Split(key, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			cur = node[seg]
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			cur = node[idx]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// parent returns the container holding the last path segment, creating
// intermediate objects as needed. Caller must hold s.mu for writing.
func (s *Store) parent(key string) (map[string]interface{}, string) {
	segs := strings.Split(key, ".")
	last := segs[len(segs)-1]

	cur := s.doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[seg] = next
		}
		cur = next
	}
	return cur, last
}

// Get returns the raw value at key, or nil when absent.
// An empty key returns the whole document.
func (s *Store) Get(key string) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(key)
}

// Has reports whether key exists in the document.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(key) != nil
}

// GetString returns the string at key, or def when absent or not a string.
func (s *Store) GetString(key, def string) string {
	if v, ok := s.Get(key).(string); ok {
		return v
	}
	return def
}

// GetInt returns the integer at key, or def when absent.
// JSON numbers decode as float64; both are accepted.
func (s *Store) GetInt(key string, def int) int {
	switch v := s.Get(key).(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// GetBool returns the boolean at key, or def when absent or not a bool.
func (s *Store) GetBool(key string, def bool) bool {
	if v, ok := s.Get(key).(bool); ok {
		return v
	}
	return def
}

// GetStringArray returns the array at key with each element as a string.
// Absent keys yield nil.
func (s *Store) GetStringArray(key string) []string {
	arr, ok := s.Get(key).([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if str, ok := e.(string); ok {
			out = append(out, str)
		} else {
			out = append(out, fmt.Sprintf("%v", e))
		}
	}
	return out
}

// GetIntArray returns the array at key with each numeric element as an int.
// Non-numeric elements are skipped.
func (s *Store) GetIntArray(key string) []int {
	arr, ok := s.Get(key).([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, e := range arr {
		switch v := e.(type) {
		case float64:
			out = append(out, int(v))
		case int:
			out = append(out, v)
		}
	}
	return out
}

// Set stores value at key, creating intermediate objects, and persists.
func (s *Store) Set(key string, value interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, last := s.parent(key)
	p[last] = value
	return s.save()
}

// Remove deletes the value at key and persists.
func (s *Store) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, last := s.parent(key)
	delete(p, last)
	return s.save()
}

// Add appends value to the array at key, creating the array if needed,
// and persists.
func (s *Store) Add(key string, value interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, last := s.parent(key)
	arr, _ := p[last].([]interface{})
	p[last] = append(arr, value)
	return s.save()
}

// Clear resets the array at key to empty and persists.
func (s *Store) Clear(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, last := s.parent(key)
	p[last] = []interface{}{}
	return s.save()
}

// Load imports a JSON document. With merge, objects are deep-merged into the
// current document; otherwise the document is replaced. Malformed JSON leaves
// the document untouched and returns false.
func (s *Store) Load(text []byte, merge bool) bool {
	var incoming map[string]interface{}
	if err := json.Unmarshal(text, &incoming); err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if merge {
		mergeObjects(s.doc, incoming)
	} else {
		s.doc = incoming
	}
	return s.save()
}

// mergeObjects deep-merges src into dst. Non-object values overwrite.
func mergeObjects(dst, src map[string]interface{}) {
	for k, v := range src {
		if srcObj, ok := v.(map[string]interface{}); ok {
			if dstObj, ok := dst[k].(map[string]interface{}); ok {
				mergeObjects(dstObj, srcObj)
				continue
			}
		}
		dst[k] = v
	}
}

// JSON returns the whole document serialized as JSON.
func (s *Store) JSON() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.Marshal(s.doc)
	if err != nil {
		return []byte("{}")
	}
	return data
}
