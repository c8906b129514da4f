package counter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/tagurl-go/internal/core/domain"
	"github.com/yndnr/tagurl-go/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	cfg := storage.InMemoryKVConfig()
	cfg.Badger.GCInterval = time.Hour
	kv, err := storage.NewBadgerEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewBadgerEngine() error = %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return New(kv)
}

func TestNext(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	a := domain.TagID{1}
	b := domain.TagID{2}

	for want := uint32(1); want <= 3; want++ {
		got, err := s.Next(ctx, a)
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}

	if got, _ := s.Next(ctx, b); got != 1 {
		t.Errorf("Next(other tag) = %d, want 1", got)
	}
	if cur, _ := s.Current(ctx, a); cur != 3 {
		t.Errorf("Current() = %d, want 3", cur)
	}
	if cur, _ := s.Current(ctx, domain.TagID{9}); cur != 0 {
		t.Errorf("Current(unused) = %d, want 0", cur)
	}
}

func TestNext_Concurrent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	id := domain.TagID{7}

	var (
		mu   sync.Mutex
		seen = map[uint32]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				v, err := s.Next(ctx, id)
				if err != nil {
					continue
				}
				mu.Lock()
				if seen[v] {
					t.Errorf("value %d handed out twice", v)
				}
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestSet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	id := domain.TagID{3}

	if err := s.Set(ctx, id, 100); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := s.Next(ctx, id); got != 101 {
		t.Errorf("Next() after Set = %d, want 101", got)
	}
	if err := s.Set(ctx, id, 50); !errors.Is(err, ErrRewind) {
		t.Errorf("Set(lower) error = %v, want ErrRewind", err)
	}
	if err := s.Set(ctx, id, 101); !errors.Is(err, ErrRewind) {
		t.Errorf("Set(equal) error = %v, want ErrRewind", err)
	}
}

func TestNext_Exhausted(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	id := domain.TagID{4}

	if err := s.Set(ctx, id, ^uint32(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(ctx, id); !errors.Is(err, ErrExhausted) {
		t.Errorf("Next() at max error = %v, want ErrExhausted", err)
	}
}
