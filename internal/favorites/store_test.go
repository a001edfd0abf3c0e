package favorites

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/localstore"
)

func openKV(t *testing.T) *localstore.Store {
	t.Helper()
	kv, err := localstore.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore(openKV(t), nil)

	require.Empty(t, s.Load())

	ids := []string{"c", "a", "b"}
	require.NoError(t, s.Save(ids))
	require.Equal(t, ids, s.Load())

	require.NoError(t, s.Clear())
	require.Empty(t, s.Load())
}

func TestStore_LoadNormalizes(t *testing.T) {
	kv := openKV(t)
	require.NoError(t, kv.Set(Key, []string{"a", " ", "b", "a"}))
	require.Equal(t, []string{"a", "b"}, NewStore(kv, nil).Load())
}

func TestStore_CorruptIsSwallowed(t *testing.T) {
	kv := openKV(t)
	require.NoError(t, kv.SetRaw(Key, []byte(`{"oops":`)))

	core, logs := observer.New(zapcore.WarnLevel)
	s := NewStore(kv, zap.New(core))

	got := s.Load()
	require.NotNil(t, got)
	require.Empty(t, got)
	require.Equal(t, 1, logs.Len())
}

type brokenKV struct{ err error }

func (b brokenKV) Get(string, any) (bool, error) { return false, b.err }
func (b brokenKV) Set(string, any) error         { return b.err }
func (b brokenKV) Remove(string) error           { return b.err }

func TestStore_WriteErrors(t *testing.T) {
	s := NewStore(brokenKV{err: errors.New("disk full")}, nil)

	require.Empty(t, s.Load())
	require.ErrorIs(t, s.Save([]string{"a"}), errs.ErrWrite)
	require.ErrorIs(t, s.Clear(), errs.ErrWrite)
}
