package idmap

import (
	"math/rand"
	"testing"
)

type testID int32

func TestReserveIsMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var m Map[testID, int]
	high := 0
	for i := 0; i < 200; i++ {
		if rng.Intn(5) == 0 {
			m.Clear()
		} else {
			n := rng.Intn(64)
			m.Reserve(n)
			high = max(high, n)
		}
		if m.Cap() != high {
			t.Fatalf("step %d: capacity %d, want %d", i, m.Cap(), high)
		}
	}
}

func TestClearUnbindsButKeepsCapacity(t *testing.T) {
	m := New[testID, string](4)
	m.Set(0, "a")
	m.Set(3, "d")
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	m.Clear()
	if m.Cap() != 4 {
		t.Fatalf("Cap after Clear = %d, want 4", m.Cap())
	}
	if _, ok := m.Lookup(0); ok {
		t.Fatal("id 0 still bound after Clear")
	}
	if m.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", m.Len())
	}
}

func TestSetGet(t *testing.T) {
	var m Map[testID, int]
	m.Reserve(2)
	m.Set(1, 42)
	if got := m.Get(1); got != 42 {
		t.Fatalf("Get(1) = %d, want 42", got)
	}
	m.Set(9, 7)
	if m.Cap() != 10 {
		t.Fatalf("Set beyond capacity left Cap = %d, want 10", m.Cap())
	}
	if got := m.Get(9); got != 7 {
		t.Fatalf("Get(9) = %d, want 7", got)
	}
}

func TestGetUnsetPanics(t *testing.T) {
	tests := []struct {
		name string
		id   testID
	}{
		{"unset_in_range", 1},
		{"out_of_range", 10},
		{"negative", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New[testID, int](3)
			m.Set(0, 1)
			defer func() {
				if recover() == nil {
					t.Fatalf("Get(%d) did not panic", tt.id)
				}
			}()
			m.Get(tt.id)
		})
	}
}
