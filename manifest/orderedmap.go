package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StringMap is a string-to-string map that remembers insertion order, so
// that serializing a manifest back to JSON reproduces the field order the
// author wrote rather than Go's randomized map iteration order. All of the
// manifest's dependency-shaped fields (dependencies, dev-dependencies,
// python-dependencies, scripts, engines) use this type instead of a plain
// map[string]string.
type StringMap struct {
	keys   []string
	values map[string]string
}

// NewStringMap creates an empty ordered string map.
func NewStringMap() *StringMap {
	return &StringMap{values: map[string]string{}}
}

// Set inserts or updates a key, appending it to the iteration order if new.
func (m *StringMap) Set(key, value string) {
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *StringMap) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Delete removes a key.
func (m *StringMap) Delete(key string) {
	if m == nil {
		return
	}
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *StringMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len reports the number of entries.
func (m *StringMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON writes the map as a JSON object with keys in insertion order.
func (m *StringMap) MarshalJSON() ([]byte, error) {
	if m == nil || len(m.keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, recording keys in the order they
// appear in the source document.
func (m *StringMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("manifest: expected JSON object, got %v", tok)
	}
	m.keys = nil
	m.values = map[string]string{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("manifest: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("manifest: value for key %q: %w", key, err)
		}
		m.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
