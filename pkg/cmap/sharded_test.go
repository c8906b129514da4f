package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func newStringMap[V any]() *Map[string, V] {
	return New[string, V](0, HashString)
}

func TestNew_ShardCount(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultShardCount},
		{-1, DefaultShardCount},
		{1, 1},
		{3, 4},
		{8, 8},
		{33, 64},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("shards=%d", tt.in), func(t *testing.T) {
			m := New[string, int](tt.in, HashString)
			if len(m.shards) != tt.want {
				t.Errorf("shards = %d, want %d", len(m.shards), tt.want)
			}
		})
	}
}

func TestMap_SetGetDelete(t *testing.T) {
	m := newStringMap[int]()
	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = (%d, %v), want (1, true)", v, ok)
	}
	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("Get(a) found a deleted key")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMap_ByteKeysSpreadAcrossShards(t *testing.T) {
	m := New[[8]byte, string](4, func(k [8]byte) uint64 { return HashBytes(k[:]) })
	for i := 0; i < 64; i++ {
		m.Set([8]byte{byte(i)}, fmt.Sprint(i))
	}
	if m.Len() != 64 {
		t.Fatalf("Len() = %d, want 64", m.Len())
	}

	used := 0
	for _, s := range m.shards {
		if len(s.items) > 0 {
			used++
		}
	}
	if used < 2 {
		t.Errorf("keys landed in %d of 4 shards", used)
	}
	if v, ok := m.Get([8]byte{42}); !ok || v != "42" {
		t.Errorf("Get(42) = (%q, %v)", v, ok)
	}
}

func TestHashBytes(t *testing.T) {
	if HashBytes([]byte("tag")) != HashString("tag") {
		t.Error("HashBytes and HashString disagree")
	}
	if HashBytes([]byte("a")) == HashBytes([]byte("b")) {
		t.Error("distinct inputs hashed equal")
	}
}

func TestMap_Replace(t *testing.T) {
	m := newStringMap[int]()
	m.Set("old", 1)

	m.Replace(map[string]int{"x": 10, "y": 20})

	if _, ok := m.Get("old"); ok {
		t.Error("Replace() kept a stale key")
	}
	if v, _ := m.Get("y"); v != 20 {
		t.Errorf("Get(y) = %d, want 20", v)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestMap_Update(t *testing.T) {
	m := newStringMap[int]()
	for i := 0; i < 3; i++ {
		m.Update("n", func(v int, exists bool) int {
			if !exists {
				return 1
			}
			return v + 1
		})
	}
	if v, _ := m.Get("n"); v != 3 {
		t.Errorf("Update() result = %d, want 3", v)
	}
}

func TestMap_Compute(t *testing.T) {
	m := newStringMap[int]()

	if _, keep := m.Compute("absent", func(int, bool) (int, bool) { return 0, false }); keep {
		t.Error("Compute() keep = true, want false")
	}
	if _, ok := m.Get("absent"); ok {
		t.Error("Compute() without keep inserted the key")
	}

	m.Set("n", 1)
	m.Compute("n", func(v int, exists bool) (int, bool) {
		if !exists {
			t.Error("exists = false for a stored key")
		}
		return v + 1, true
	})
	if v, _ := m.Get("n"); v != 2 {
		t.Errorf("Get(n) = %d, want 2", v)
	}

	m.Compute("n", func(int, bool) (int, bool) { return 0, false })
	if _, ok := m.Get("n"); ok || m.Len() != 0 {
		t.Errorf("Compute() delete left Len() = %d", m.Len())
	}
}

func TestMap_DeleteFunc(t *testing.T) {
	m := New[int, int](4, func(k int) uint64 { return uint64(k) })
	for i := 0; i < 10; i++ {
		m.Set(i, i)
	}

	if n := m.DeleteFunc(func(_, v int) bool { return v%2 == 0 }); n != 5 {
		t.Errorf("DeleteFunc() = %d, want 5", n)
	}
	for k := range m.All() {
		if k%2 == 0 {
			t.Errorf("even key %d survived", k)
		}
	}
}

func TestMap_AllAndKeys(t *testing.T) {
	m := New[int, int](4, func(k int) uint64 { return uint64(k) })
	for i := 0; i < 10; i++ {
		m.Set(i, i*i)
	}
	if len(m.Keys()) != 10 {
		t.Errorf("Keys() len = %d, want 10", len(m.Keys()))
	}

	seen := 0
	for k, v := range m.All() {
		if v != k*k {
			t.Errorf("All() yielded %d => %d", k, v)
		}
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Errorf("All() stopped after %d, want 3", seen)
	}

	// The loop body may write to the map.
	for k := range m.All() {
		m.Delete(k)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after deleting during All()", m.Len())
	}
}

func TestMap_Concurrent(t *testing.T) {
	m := New[int, int](0, func(k int) uint64 { return uint64(k) })
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				m.Set(g*1000+i, i)
				m.Get(g*1000 + i)
				m.Update(-1, func(v int, _ bool) int { return v + 1 })
			}
		}(g)
	}
	wg.Wait()

	if v, _ := m.Get(-1); v != 8*500 {
		t.Errorf("concurrent Update() total = %d, want %d", v, 8*500)
	}
}
