package favorites

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakePersister struct {
	mu      sync.Mutex
	loaded  []string
	gate    chan struct{}
	saves   [][]string
	saveErr error
	clears  int
}

func (f *fakePersister) Load() []string {
	if f.gate != nil {
		<-f.gate
	}
	return append([]string{}, f.loaded...)
}

func (f *fakePersister) Save(ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, append([]string{}, ids...))
	return f.saveErr
}

func (f *fakePersister) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return f.saveErr
}

func (f *fakePersister) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

func (f *fakePersister) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakePersister) lastSave() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

func loadedCache(t *testing.T, p *fakePersister) *Cache {
	t.Helper()
	c := NewCache(p, zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Load(ctx))
	return c
}

func TestCache_AddRemoveContains(t *testing.T) {
	p := &fakePersister{loaded: []string{"x"}}
	c := loadedCache(t, p)
	require.Equal(t, Ready, c.State())

	require.True(t, c.Contains("x"))
	c.Add("a")
	require.True(t, c.Contains("a"))
	c.Add("a")
	require.Equal(t, []string{"x", "a"}, c.List())

	c.Remove("x")
	require.False(t, c.Contains("x"))
	c.Remove("missing")
	require.Equal(t, 1, c.Len())

	require.NoError(t, c.Close())
	require.Equal(t, []string{"a"}, p.lastSave())
}

func TestCache_NoSaveForNoop(t *testing.T) {
	p := &fakePersister{loaded: []string{"x"}}
	c := loadedCache(t, p)

	c.Add("x")
	c.Remove("y")
	require.NoError(t, c.Close())
	require.Zero(t, p.saveCount())
}

func TestCache_MutationsWhileLoading(t *testing.T) {
	p := &fakePersister{loaded: []string{"a", "b"}, gate: make(chan struct{})}
	c := NewCache(p, zaptest.NewLogger(t))
	require.Equal(t, Uninitialized, c.State())

	c.Start()
	require.Equal(t, Loading, c.State())

	c.Add("c")
	c.Remove("a")
	require.True(t, c.Contains("c"))

	// nothing may be written before the persisted set is known
	time.Sleep(10 * time.Millisecond)
	require.Zero(t, p.saveCount())

	close(p.gate)
	<-c.Ready()
	require.Equal(t, []string{"b", "c"}, c.List())

	require.NoError(t, c.Close())
	require.Equal(t, []string{"b", "c"}, p.lastSave())
}

func TestCache_ClearWhileLoading(t *testing.T) {
	p := &fakePersister{loaded: []string{"a"}, gate: make(chan struct{})}
	c := NewCache(p, nil)
	c.Start()
	c.Clear()
	c.Add("z")
	close(p.gate)

	require.NoError(t, c.Load(context.Background()))
	require.Equal(t, []string{"z"}, c.List())
	require.NoError(t, c.Close())
}

func TestCache_ClearRemovesPersistedSet(t *testing.T) {
	p := &fakePersister{loaded: []string{"a", "b"}}
	c := loadedCache(t, p)

	c.Clear()
	require.Zero(t, c.Len())
	require.NoError(t, c.Close())
	require.Equal(t, 1, p.clearCount())
	require.Zero(t, p.saveCount())
}

func TestCache_RemovingLastIDClears(t *testing.T) {
	p := &fakePersister{loaded: []string{"a"}}
	c := loadedCache(t, p)

	c.Remove("a")
	require.NoError(t, c.Close())
	require.Equal(t, 1, p.clearCount())
	require.Zero(t, p.saveCount())
}

func TestCache_SaveFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := &fakePersister{saveErr: errors.New("disk full")}
	c := NewCache(p, zap.New(core))
	require.NoError(t, c.Load(context.Background()))

	c.Add("a")
	require.True(t, c.Contains("a"))
	require.NoError(t, c.Close())

	require.GreaterOrEqual(t, logs.FilterMessage("favorites: save failed").Len(), 1)
	require.Equal(t, []string{"a"}, c.List())
}

func TestCache_LoadHonoursContext(t *testing.T) {
	p := &fakePersister{gate: make(chan struct{})}
	c := NewCache(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Load(ctx), context.Canceled)

	close(p.gate)
	require.NoError(t, c.Close())
}

func TestCache_ConcurrentMutations(t *testing.T) {
	p := &fakePersister{}
	c := loadedCache(t, p)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Add(string(rune('a' + i%10)))
		}(i)
	}
	wg.Wait()
	require.Equal(t, 10, c.Len())

	require.NoError(t, c.Close())
	require.Len(t, p.lastSave(), 10)
}
