package favorites

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// State is the hydration state of a Cache.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "uninitialized"
}

// Persister is what the cache loads from and saves to. *Store implements it.
type Persister interface {
	Load() []string
	Save(ids []string) error
	Clear() error
}

type opKind int

const (
	opAdd opKind = iota
	opRemove
	opClear
)

type op struct {
	kind opKind
	id   string
}

// Cache is the app-wide favorites set. Mutations apply to memory at once; while
// Ready each one schedules a background save of the whole set. Mutations made
// before hydration completes are kept and replayed onto the loaded set, and the
// merged result is saved once.
type Cache struct {
	store Persister
	log   *zap.Logger

	mu      sync.Mutex
	state   State
	ids     []string
	pending []op
	dirty   bool
	closed  bool

	kick  chan struct{}
	done  chan struct{}
	ready chan struct{}
	once  sync.Once
}

// NewCache returns an Uninitialized cache and starts its writer.
func NewCache(store Persister, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{
		store: store,
		log:   log,
		ids:   []string{},
		kick:  make(chan struct{}, 1),
		done:  make(chan struct{}),
		ready: make(chan struct{}),
	}
	go c.run()
	return c
}

// Start begins hydration in the background. Later calls do nothing.
func (c *Cache) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Uninitialized {
		return
	}
	c.state = Loading
	go c.hydrate()
}

// Load starts hydration if needed and waits for it.
func (c *Cache) Load(ctx context.Context) error {
	c.Start()
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready is closed once the cache has been hydrated.
func (c *Cache) Ready() <-chan struct{} { return c.ready }

// State reports the hydration state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Add appends id if absent.
func (c *Cache) Add(id string) {
	c.mutate(op{kind: opAdd, id: id})
}

// Remove drops id if present.
func (c *Cache) Remove(id string) {
	c.mutate(op{kind: opRemove, id: id})
}

// Clear drops every id.
func (c *Cache) Clear() {
	c.mutate(op{kind: opClear})
}

// Contains reports whether id is a favorite.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.ids, id)
}

// List returns the favorites in insertion order.
func (c *Cache) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ids)
}

// Len returns the number of favorites.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// Close waits for hydration, if started, flushes the last pending save and stops the writer.
func (c *Cache) Close() error {
	c.mu.Lock()
	started := c.state != Uninitialized
	c.mu.Unlock()
	if started {
		<-c.ready
	}
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.kick)
	})
	<-c.done
	return nil
}

func (c *Cache) mutate(o op) {
	if o.kind != opClear && o.id == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := apply(&c.ids, o)
	if c.state != Ready {
		c.pending = append(c.pending, o)
		return
	}
	if changed {
		c.scheduleLocked()
	}
}

func (c *Cache) hydrate() {
	loaded := c.store.Load()

	c.mu.Lock()
	ids := slices.Clone(loaded)
	for _, o := range c.pending {
		apply(&ids, o)
	}
	replayed := len(c.pending) > 0
	c.ids, c.pending = ids, nil
	c.state = Ready
	if replayed {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	close(c.ready)
}

func (c *Cache) scheduleLocked() {
	c.dirty = true
	if c.closed {
		return
	}
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

func (c *Cache) run() {
	defer close(c.done)
	for range c.kick {
		c.flush()
	}
	c.flush()
}

// flush writes the latest snapshot. Snapshots taken while a save was running coalesce into one.
// An empty set clears the persisted state instead of storing an empty list.
func (c *Cache) flush() {
	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return
	}
	snap := slices.Clone(c.ids)
	c.dirty = false
	c.mu.Unlock()

	if len(snap) == 0 {
		if err := c.store.Clear(); err != nil {
			c.log.Warn("favorites: clear failed", zap.Error(err))
		}
		return
	}
	if err := c.store.Save(snap); err != nil {
		c.log.Warn("favorites: save failed", zap.Int("count", len(snap)), zap.Error(err))
	}
}

func apply(ids *[]string, o op) bool {
	switch o.kind {
	case opAdd:
		if slices.Contains(*ids, o.id) {
			return false
		}
		*ids = append(*ids, o.id)
		return true
	case opRemove:
		i := slices.Index(*ids, o.id)
		if i < 0 {
			return false
		}
		*ids = slices.Delete(*ids, i, i+1)
		return true
	case opClear:
		if len(*ids) == 0 {
			return false
		}
		*ids = []string{}
		return true
	}
	return false
}
