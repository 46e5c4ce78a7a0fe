package domain

import (
	"bytes"
	"fmt"
	"iter"
	"slices"

	json "github.com/goccy/go-json"
)

// ─── Ordered Map ────────────────────────────────────────────────────────────
// Leaderboard ties keep the order in which users and items were first seen,
// so the document's maps remember insertion order and keep it on disk.

// OrderedMap is a string-keyed map that iterates in insertion order.
// The zero value is an empty map ready to use.
type OrderedMap[K ~string, V any] struct {
	keys []K
	vals map[K]V
}

// NewOrderedMap returns an empty map.
func NewOrderedMap[K ~string, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{}
}

// Len returns the number of entries.
func (m *OrderedMap[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value for k and whether it was present.
func (m *OrderedMap[K, V]) Get(k K) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.vals[k]
	return v, ok
}

// GetOr returns the value for k, or def when k is absent.
// A stored zero value is returned as-is; only absence falls back.
func (m *OrderedMap[K, V]) GetOr(k K, def V) V {
	if v, ok := m.Get(k); ok {
		return v
	}
	return def
}

// Has reports whether k is present.
func (m *OrderedMap[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Set stores v under k. New keys are appended; existing keys keep their position.
func (m *OrderedMap[K, V]) Set(k K, v V) {
	if m.vals == nil {
		m.vals = make(map[K]V)
	}
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

// Delete removes k if present.
func (m *OrderedMap[K, V]) Delete(k K) {
	if _, ok := m.vals[k]; !ok {
		return
	}
	delete(m.vals, k)
	if i := slices.Index(m.keys, k); i >= 0 {
		m.keys = slices.Delete(m.keys, i, i+1)
	}
}

// Clear removes every entry.
func (m *OrderedMap[K, V]) Clear() {
	m.keys = nil
	m.vals = nil
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// All iterates over entries in insertion order.
func (m *OrderedMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.vals[k]) {
				return
			}
		}
	}
}

// Clone returns a copy of the map. cloneV deep-copies values; nil copies them as-is.
func (m *OrderedMap[K, V]) Clone(cloneV func(V) V) *OrderedMap[K, V] {
	out := &OrderedMap[K, V]{}
	for k, v := range m.All() {
		if cloneV != nil {
			v = cloneV(v)
		}
		out.Set(k, v)
	}
	return out
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m OrderedMap[K, V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(string(k))
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.vals[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", string(k), err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the key order of the input.
// A JSON null leaves the map empty.
func (m *OrderedMap[K, V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	m.Clear()
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		m.Set(K(key), v)
	}
	_, err = dec.Token()
	return err
}
