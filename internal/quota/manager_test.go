package quota

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mock-interview/internal/storage"
)

type memCounter struct {
	mu      sync.Mutex
	used    map[string]int
	charges map[string]bool
}

func newMemCounter() *memCounter {
	return &memCounter{used: make(map[string]int), charges: make(map[string]bool)}
}

func (m *memCounter) Used(ctx context.Context, userID, period string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[userID+"/"+period], nil
}

func (m *memCounter) Charge(ctx context.Context, chargeID, userID, period string, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok, seen := m.charges[chargeID]; seen {
		return ok, nil
	}
	k := userID + "/" + period
	ok := m.used[k] < limit
	if ok {
		m.used[k]++
	}
	m.charges[chargeID] = ok
	return ok, nil
}

func TestReserveOncePerMonth(t *testing.T) {
	now := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
	mgr := New(newMemCounter(), 1, time.UTC).WithClock(func() time.Time { return now })
	ctx := context.Background()

	rem, err := mgr.RemainingFor(ctx, "u1")
	if err != nil || rem != 1 {
		t.Fatalf("initial remaining: %d %v", rem, err)
	}

	res, err := mgr.CheckAndReserve(ctx, "u1", "s1")
	if err != nil || !res.Allowed || res.Remaining != 0 || res.Period != "2026-01" {
		t.Fatalf("first reserve: %+v %v", res, err)
	}

	// the same session is never charged twice
	res, err = mgr.CheckAndReserve(ctx, "u1", "s1")
	if err != nil || !res.Allowed || res.Remaining != 0 {
		t.Fatalf("repeated reserve for s1: %+v %v", res, err)
	}

	res, err = mgr.CheckAndReserve(ctx, "u1", "s2")
	if err != nil || res.Allowed {
		t.Fatalf("second reserve must be rejected: %+v %v", res, err)
	}

	// month boundary resets the window
	now = now.Add(2 * time.Hour)
	rem, err = mgr.RemainingFor(ctx, "u1")
	if err != nil || rem != 1 {
		t.Fatalf("remaining after month boundary: %d %v", rem, err)
	}
}

func TestPeriodUsesConfiguredLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2026-01-31 16:00 UTC is already February in Tokyo
	now := time.Date(2026, 1, 31, 16, 0, 0, 0, time.UTC)
	mgr := New(newMemCounter(), 1, tokyo).WithClock(func() time.Time { return now })
	if got := mgr.Period(); got != "2026-02" {
		t.Fatalf("want 2026-02, got %s", got)
	}
}

func TestConcurrentReserveWithSQLStore(t *testing.T) {
	st, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	mgr := New(st, 1, time.UTC)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := mgr.CheckAndReserve(ctx, "u1", fmt.Sprintf("s%d", i))
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if allowed != 1 {
		t.Fatalf("want exactly one reservation, got %d", allowed)
	}
	st2, err := mgr.Status(ctx, "u1")
	if err != nil || st2.Remaining != 0 || st2.Limit != 1 {
		t.Fatalf("status: %+v %v", st2, err)
	}
}
