// Package variables holds the named values that fill a profile's tokens.
// Names are case-insensitive: "PROJECT_ID" and "project_id" are the same value.
package variables

import "strings"

// Store defines the interface for named value storage.
type Store interface {
	// Set stores a value under the given name.
	Set(name, value string)

	// Get retrieves a value by name. Returns ("", false) if absent.
	Get(name string) (string, bool)

	// Merge combines the store with a lower-precedence record. Stored values
	// win over record values with the same name.
	Merge(record map[string]string) map[string]string

	// Len returns the number of stored values.
	Len() int
}

// MemoryStore is a map-backed Store. It is not safe for concurrent use.
type MemoryStore struct {
	values map[string]string
}

// FromMap creates a store pre-filled with values.
func FromMap(values map[string]string) Store {
	s := &MemoryStore{values: make(map[string]string, len(values))}
	for name, value := range values {
		s.Set(name, value)
	}
	return s
}

// Normalize returns the canonical form of a value name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (m *MemoryStore) Set(name, value string) {
	m.values[Normalize(name)] = value
}

func (m *MemoryStore) Get(name string) (string, bool) {
	value, ok := m.values[Normalize(name)]
	return value, ok
}

func (m *MemoryStore) Merge(record map[string]string) map[string]string {
	result := make(map[string]string, len(record)+len(m.values))
	for name, value := range record {
		result[Normalize(name)] = value
	}
	for name, value := range m.values {
		result[name] = value
	}
	return result
}

func (m *MemoryStore) Len() int {
	return len(m.values)
}
