// Package idmap provides a table keyed by small dense integer ids.
//
// The backend lowers one function at a time and needs O(1) lookup from
// temporary, variable, block and function ids to their compiled form. A Map
// is an array of optional values indexed directly by id. Its capacity only
// grows, so one Map can be cleared and reused for every function lowered.
package idmap

import "fmt"

// ID is any dense zero-based id.
type ID interface {
	~int32
}

// Map is a growable array of optional values indexed by K.
// The zero value is an empty map ready for use.
type Map[K ID, V any] struct {
	vals []V
	set  []bool
}

// New returns a map with room for n ids.
func New[K ID, V any](n int) *Map[K, V] {
	m := &Map[K, V]{}
	m.Reserve(n)
	return m
}

// Reserve ensures ids below n can be stored. It never shrinks the map.
func (m *Map[K, V]) Reserve(n int) {
	if n <= len(m.vals) {
		return
	}
	grow := n - len(m.vals)
	m.vals = append(m.vals, make([]V, grow)...)
	m.set = append(m.set, make([]bool, grow)...)
}

// Cap returns the number of ids the map can hold without growing.
func (m *Map[K, V]) Cap() int { return len(m.vals) }

// Len returns the number of ids currently bound.
func (m *Map[K, V]) Len() int {
	n := 0
	for _, ok := range m.set {
		if ok {
			n++
		}
	}
	return n
}

// Clear unbinds every id but keeps the backing storage.
func (m *Map[K, V]) Clear() {
	var zero V
	for i := range m.vals {
		m.vals[i] = zero
		m.set[i] = false
	}
}

// Set binds k to v, growing the map if k is beyond its capacity.
func (m *Map[K, V]) Set(k K, v V) {
	i := int(k)
	if i < 0 {
		panic(fmt.Sprintf("idmap: negative id %d", i))
	}
	m.Reserve(i + 1)
	m.vals[i] = v
	m.set[i] = true
}

// Get returns the value bound to k. Reading an unbound id is a contract
// violation by whoever produced the id and panics.
func (m *Map[K, V]) Get(k K) V {
	v, ok := m.Lookup(k)
	if !ok {
		panic(fmt.Sprintf("idmap: read of unset id %d (capacity %d)", int(k), len(m.vals)))
	}
	return v
}

// Lookup returns the value bound to k and whether it is bound.
func (m *Map[K, V]) Lookup(k K) (V, bool) {
	i := int(k)
	if i < 0 || i >= len(m.vals) || !m.set[i] {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}
