package content

import (
	"context"
	"errors"
	"testing"

	"visionbot/pkg/logx"
)

// fakeStore is an in-memory RotationStore.
type fakeStore struct {
	used  map[string]map[int]bool
	today map[string]int // pool+"|"+day -> id
	fail  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{used: map[string]map[int]bool{}, today: map[string]int{}}
}

func (f *fakeStore) UsedIDs(_ context.Context, pool string) (map[int]bool, error) {
	if f.fail {
		return nil, errors.New("store down")
	}
	out := map[int]bool{}
	for id := range f.used[pool] {
		out[id] = true
	}
	return out, nil
}

func (f *fakeStore) MarkUsed(_ context.Context, pool string, id int) error {
	if f.fail {
		return errors.New("store down")
	}
	if f.used[pool] == nil {
		f.used[pool] = map[int]bool{}
	}
	f.used[pool][id] = true
	return nil
}

func (f *fakeStore) ResetUsed(_ context.Context, pool string) error {
	if f.fail {
		return errors.New("store down")
	}
	delete(f.used, pool)
	return nil
}

func (f *fakeStore) TodayPick(_ context.Context, pool, day string) (int, bool, error) {
	if f.fail {
		return 0, false, errors.New("store down")
	}
	id, ok := f.today[pool+"|"+day]
	return id, ok, nil
}

func (f *fakeStore) SaveTodayPick(_ context.Context, pool, day string, id int) error {
	if f.fail {
		return errors.New("store down")
	}
	f.today[pool+"|"+day] = id
	return nil
}

func TestPickTodayStableWithinDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	p := NewPicker(fs, logx.Nop())
	ids := []int{1, 2, 3, 4, 5}

	first, err := p.PickToday(ctx, "manifest", ids, "2026-08-30", "s", true)
	if err != nil {
		t.Fatalf("PickToday: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := p.PickToday(ctx, "manifest", ids, "2026-08-30", "s", true)
		if err != nil {
			t.Fatalf("PickToday: %v", err)
		}
		if again != first {
			t.Fatalf("pick changed within a day: %d then %d", first, again)
		}
	}
}

func TestPickTodaySurvivesRestart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	ids := []int{1, 2, 3}

	p1 := NewPicker(fs, logx.Nop())
	first, err := p1.PickToday(ctx, "manifest", ids, "2026-08-30", "s", true)
	if err != nil {
		t.Fatalf("PickToday: %v", err)
	}

	// fresh picker, same backing store = same pick
	p2 := NewPicker(fs, logx.Nop())
	again, err := p2.PickToday(ctx, "manifest", ids, "2026-08-30", "s", true)
	if err != nil {
		t.Fatalf("PickToday: %v", err)
	}
	if again != first {
		t.Fatalf("pick not stable across restart: %d then %d", first, again)
	}
}

func TestPickTodayNoRepeatUntilExhaustion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	p := NewPicker(fs, logx.Nop())
	ids := []int{1, 2, 3}

	seen := map[int]bool{}
	days := []string{"2026-08-01", "2026-08-02", "2026-08-03"}
	for _, day := range days {
		id, err := p.PickToday(ctx, "manifest", ids, day, "s", true)
		if err != nil {
			t.Fatalf("PickToday(%s): %v", day, err)
		}
		if seen[id] {
			t.Fatalf("id %d repeated before exhaustion", id)
		}
		seen[id] = true
	}

	// pool exhausted: day 4 resets and picks again
	id, err := p.PickToday(ctx, "manifest", ids, "2026-08-04", "s", true)
	if err != nil {
		t.Fatalf("PickToday after exhaustion: %v", err)
	}
	if !seen[id] {
		t.Fatalf("reset pick should come from the full pool, got %d", id)
	}
	if len(fs.used["manifest"]) != 1 {
		t.Fatalf("used set should restart at 1 after reset, got %d", len(fs.used["manifest"]))
	}
}

func TestPickTodayDeterministicFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ids := []int{10, 20, 30, 40}

	fs := newFakeStore()
	fs.fail = true
	p := NewPicker(fs, logx.Nop())

	a, err := p.PickToday(ctx, "manifest", ids, "2026-08-30", "salt", true)
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}

	p2 := NewPicker(fs, logx.Nop())
	b, err := p2.PickToday(ctx, "manifest", ids, "2026-08-30", "salt", true)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if a != b {
		t.Fatalf("fallback not deterministic: %d vs %d", a, b)
	}

	// different day or salt shifts the pick eventually; at minimum it stays valid
	c, err := p2.PickToday(ctx, "other", ids, "2026-08-31", "salt2", true)
	if err != nil {
		t.Fatalf("fallback: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == c {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback pick %d not in pool", c)
	}
}

func TestPickTodayEmptyPool(t *testing.T) {
	t.Parallel()

	p := NewPicker(newFakeStore(), logx.Nop())
	if _, err := p.PickToday(context.Background(), "manifest", nil, "2026-08-30", "s", true); err == nil {
		t.Fatal("empty pool should error")
	}
}

func TestPickTodayIgnoresStalePersistedPick(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	fs.today["manifest|2026-08-30"] = 99 // id removed from the pool
	p := NewPicker(fs, logx.Nop())

	id, err := p.PickToday(ctx, "manifest", []int{1, 2}, "2026-08-30", "s", true)
	if err != nil {
		t.Fatalf("PickToday: %v", err)
	}
	if id == 99 {
		t.Fatal("stale persisted id should be replaced")
	}
}

func TestClearUsed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := newFakeStore()
	p := NewPicker(fs, logx.Nop())
	ids := []int{1, 2}

	if _, err := p.PickToday(ctx, "manifest", ids, "2026-08-30", "s", true); err != nil {
		t.Fatalf("PickToday: %v", err)
	}
	if err := p.ClearUsed(ctx, "manifest"); err != nil {
		t.Fatalf("ClearUsed: %v", err)
	}
	if len(fs.used["manifest"]) != 0 {
		t.Fatalf("used not cleared: %v", fs.used["manifest"])
	}
}
