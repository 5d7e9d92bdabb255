package content

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sync"

	"visionbot/pkg/logx"
)

// RotationStore is the persisted rotation state: spent ids per pool plus the
// item already chosen for a given day.
type RotationStore interface {
	UsedIDs(ctx context.Context, pool string) (map[int]bool, error)
	MarkUsed(ctx context.Context, pool string, itemID int) error
	ResetUsed(ctx context.Context, pool string) error
	TodayPick(ctx context.Context, pool, day string) (int, bool, error)
	SaveTodayPick(ctx context.Context, pool, day string, itemID int) error
}

// Picker chooses one item per pool per calendar day. A day's pick is stable:
// once made it is persisted and every later call that day returns the same
// id, across restarts. Ids are not repeated until the pool is exhausted;
// exhaustion resets the spent set.
//
// If persistence is unavailable the pick degrades to a deterministic hash of
// (day, salt) so it still changes daily and stays identical across replicas.
type Picker struct {
	store RotationStore
	log   logx.Logger

	mu    sync.Mutex
	cache map[string]dayPick // pool -> today's pick
}

type dayPick struct {
	day string
	id  int
}

func NewPicker(store RotationStore, log logx.Logger) *Picker {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Picker{store: store, log: log, cache: map[string]dayPick{}}
}

// PickToday returns the item id chosen for (pool, day). ids is the full pool;
// rotate controls no-repeat tracking (cards repeat freely, manifestations do
// not). salt feeds the deterministic fallback.
func (p *Picker) PickToday(ctx context.Context, pool string, ids []int, day, salt string, rotate bool) (int, error) {
	if len(ids) == 0 {
		return 0, errEmptyPool(pool)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.cache[pool]; ok && c.day == day && containsID(ids, c.id) {
		return c.id, nil
	}

	// Reuse the persisted pick if it still exists in the pool.
	if id, ok, err := p.store.TodayPick(ctx, pool, day); err != nil {
		p.log.Warn("rotation state read failed, deterministic fallback", logx.String("pool", pool), logx.Err(err))
		return p.fallback(pool, ids, day, salt), nil
	} else if ok && containsID(ids, id) {
		p.cache[pool] = dayPick{day: day, id: id}
		return id, nil
	}

	id, err := p.pickFresh(ctx, pool, ids, rotate)
	if err != nil {
		p.log.Warn("rotation pick failed, deterministic fallback", logx.String("pool", pool), logx.Err(err))
		return p.fallback(pool, ids, day, salt), nil
	}
	if err := p.store.SaveTodayPick(ctx, pool, day, id); err != nil {
		p.log.Warn("rotation today-pick save failed", logx.String("pool", pool), logx.Err(err))
	}
	p.cache[pool] = dayPick{day: day, id: id}
	p.log.Info("rotation pick", logx.String("pool", pool), logx.String("day", day), logx.Int("id", id))
	return id, nil
}

// ClearUsed resets a pool's spent set and forgets the cached pick.
func (p *Picker) ClearUsed(ctx context.Context, pool string) error {
	p.mu.Lock()
	delete(p.cache, pool)
	p.mu.Unlock()
	return p.store.ResetUsed(ctx, pool)
}

func (p *Picker) pickFresh(ctx context.Context, pool string, ids []int, rotate bool) (int, error) {
	if !rotate {
		return ids[rand.Intn(len(ids))], nil
	}

	used, err := p.store.UsedIDs(ctx, pool)
	if err != nil {
		return 0, err
	}
	unused := make([]int, 0, len(ids))
	for _, id := range ids {
		if !used[id] {
			unused = append(unused, id)
		}
	}
	if len(unused) == 0 {
		// Pool exhausted: start a new cycle.
		if err := p.store.ResetUsed(ctx, pool); err != nil {
			return 0, err
		}
		p.log.Info("rotation pool exhausted, reset", logx.String("pool", pool))
		unused = ids
	}
	id := unused[rand.Intn(len(unused))]
	if err := p.store.MarkUsed(ctx, pool, id); err != nil {
		return 0, err
	}
	return id, nil
}

// fallback picks deterministically from day and salt, changing once per
// calendar day without any writes.
func (p *Picker) fallback(pool string, ids []int, day, salt string) int {
	h := sha256.Sum256([]byte(day + "|" + salt))
	idx := int(binary.BigEndian.Uint64(h[:8]) % uint64(len(ids)))
	id := ids[idx]
	p.cache[pool] = dayPick{day: day, id: id}
	return id
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type errEmptyPool string

func (e errEmptyPool) Error() string { return "content pool " + string(e) + " is empty" }
