package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/price"
	"github.com/and161185/ecoeat/internal/service"
)

type fakeStore struct {
	mu sync.Mutex

	all     []model.Product
	allErr  error
	allHook func()

	don     []model.Product
	donErr  error
	donHook func()

	mutErr error

	fetchAllCalls int
	fetchDonCalls int
	donOwner      string
	created       model.Product
}

func (f *fakeStore) Create(_ context.Context, req model.ProductRequest, _ string) (model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutErr != nil {
		return model.Product{}, f.mutErr
	}
	f.created = model.Product{ID: uuid.Must(uuid.NewV4()), Name: req.Name, IsDonation: req.IsDonation}
	return f.created, nil
}
func (f *fakeStore) FetchAll(context.Context) ([]model.Product, error) {
	f.mu.Lock()
	f.fetchAllCalls++
	hook := f.allHook
	out, err := append([]model.Product(nil), f.all...), f.allErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, err
}
func (f *fakeStore) FetchDonations(_ context.Context, owner string) ([]model.Product, error) {
	f.mu.Lock()
	f.fetchDonCalls++
	f.donOwner = owner
	hook := f.donHook
	out, err := append([]model.Product(nil), f.don...), f.donErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, err
}
func (f *fakeStore) Update(context.Context, uuid.UUID, model.ProductPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutErr
}
func (f *fakeStore) Delete(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutErr
}

func (f *fakeStore) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchAllCalls, f.fetchDonCalls
}

func named(names ...string) []model.Product {
	out := make([]model.Product, 0, len(names))
	for _, n := range names {
		out = append(out, model.Product{ID: uuid.Must(uuid.NewV4()), Name: n})
	}
	return out
}

func TestReload_Success(t *testing.T) {
	st := &fakeStore{all: named("a", "b"), don: named("d")}
	c := New(st, zaptest.NewLogger(t), "u1")

	require.NoError(t, c.Reload(context.Background()))
	require.Len(t, c.Products(), 2)
	require.Len(t, c.Donations(), 1)
	require.Equal(t, "u1", st.donOwner)
	require.False(t, c.Loading())
	require.NoError(t, c.Err())
}

func TestReload_FetchAllFailureKeepsProducts(t *testing.T) {
	st := &fakeStore{all: named("a", "b", "c")}
	c := New(st, zaptest.NewLogger(t), "u1")
	require.NoError(t, c.Reload(context.Background()))
	require.Len(t, c.Products(), 3)

	st.allErr = errors.New("connection reset")
	err := c.Reload(context.Background())
	require.Error(t, err)
	require.EqualError(t, c.Err(), MsgFetchProducts)
	require.Len(t, c.Products(), 3)

	st.allErr = nil
	require.NoError(t, c.Reload(context.Background()))
	require.NoError(t, c.Err())
}

func TestReload_DonationsFailureIgnored(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	st := &fakeStore{all: named("a"), donErr: errors.New("unauthenticated")}
	c := New(st, zap.New(core), "u1")

	require.NoError(t, c.Reload(context.Background()))
	require.NoError(t, c.Err())
	require.Len(t, c.Products(), 1)
	require.Empty(t, c.Donations())
	require.Equal(t, 1, logs.Len())
}

func TestReload_NoOwnerSkipsDonations(t *testing.T) {
	st := &fakeStore{all: named("a")}
	c := New(st, nil, "")
	require.NoError(t, c.Reload(context.Background()))
	_, don := st.calls()
	require.Zero(t, don)
}

func TestLoading_DuringFetch(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	st := &fakeStore{all: named("a")}
	st.allHook = func() {
		close(entered)
		<-release
	}
	c := New(st, nil, "")

	done := make(chan error)
	go func() { done <- c.Reload(context.Background()) }()
	<-entered
	require.True(t, c.Loading())
	close(release)
	require.NoError(t, <-done)
	require.False(t, c.Loading())
}

func TestReload_LoadingFollowsProductsOnly(t *testing.T) {
	st := &fakeStore{all: named("a"), don: named("d")}
	entered, release := make(chan struct{}), make(chan struct{})
	st.donHook = func() {
		close(entered)
		<-release
	}
	c := New(st, nil, "u1")

	done := make(chan error)
	go func() { done <- c.Reload(context.Background()) }()
	<-entered

	// products land while donations are still in flight
	require.Eventually(t, func() bool { return len(c.Products()) == 1 }, time.Second, time.Millisecond)
	require.False(t, c.Loading())
	require.Empty(t, c.Donations())

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, "d", c.Donations()[0].Name)
}

func TestReload_StaleResultDropped(t *testing.T) {
	st := &fakeStore{all: named("old")}
	entered, release := make(chan struct{}), make(chan struct{})
	var calls atomic.Int32
	st.allHook = func() {
		// only the first fetch stalls
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
	}
	c := New(st, nil, "")

	slow := make(chan error)
	go func() { slow <- c.Reload(context.Background()) }()
	<-entered

	// the slow call already read "old"; a newer reload lands first
	st.mu.Lock()
	st.all = named("new")
	st.mu.Unlock()
	require.NoError(t, c.Reload(context.Background()))
	require.Equal(t, "new", c.Products()[0].Name)

	close(release)
	require.NoError(t, <-slow)
	require.Equal(t, "new", c.Products()[0].Name)
}

func TestMutations_ReloadRules(t *testing.T) {
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())
	yes := true
	name := "x"

	cases := []struct {
		name    string
		run     func(c *Catalog) error
		wantDon int
	}{
		{"create plain", func(c *Catalog) error { _, err := c.Create(ctx, model.ProductRequest{Name: "p"}); return err }, 0},
		{"create donation", func(c *Catalog) error {
			_, err := c.Create(ctx, model.ProductRequest{Name: "p", IsDonation: true})
			return err
		}, 1},
		{"update name", func(c *Catalog) error { return c.Update(ctx, id, model.ProductPatch{Name: &name}) }, 0},
		{"update donation flag", func(c *Catalog) error { return c.Update(ctx, id, model.ProductPatch{IsDonation: &yes}) }, 1},
		{"mark as donation", func(c *Catalog) error { return c.MarkAsDonation(ctx, id, false) }, 1},
		{"delete", func(c *Catalog) error { return c.Delete(ctx, id) }, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := &fakeStore{all: named("a")}
			c := New(st, nil, "u1")
			require.NoError(t, tc.run(c))
			all, don := st.calls()
			require.Equal(t, 1, all)
			require.Equal(t, tc.wantDon, don)
			require.Len(t, c.Products(), 1)
		})
	}
}

func TestMutations_FailureMessages(t *testing.T) {
	ctx := context.Background()
	cause := errors.Join(errs.ErrWrite, errors.New("unavailable"))
	st := &fakeStore{mutErr: cause}
	c := New(st, nil, "u1")
	id := uuid.Must(uuid.NewV4())

	_, err := c.Create(ctx, model.ProductRequest{})
	require.EqualError(t, err, MsgCreateProduct)
	require.ErrorIs(t, err, errs.ErrWrite)

	require.EqualError(t, c.Update(ctx, id, model.ProductPatch{}), MsgUpdateProduct)
	require.EqualError(t, c.MarkAsDonation(ctx, id, true), MsgMarkAsDonation)
	require.EqualError(t, c.Delete(ctx, id), MsgDeleteProduct)

	var ce *Error
	require.ErrorAs(t, c.Delete(ctx, id), &ce)
	require.ErrorIs(t, ce.Err, errs.ErrWrite)

	all, don := st.calls()
	require.Zero(t, all)
	require.Zero(t, don)
}

func TestSetOwner_DropsDonations(t *testing.T) {
	st := &fakeStore{all: named("a"), don: named("d1")}
	c := New(st, nil, "u1")
	require.NoError(t, c.Reload(context.Background()))
	require.Len(t, c.Donations(), 1)

	c.SetOwner("u2")
	require.Equal(t, "u2", c.Owner())
	require.Empty(t, c.Donations())

	require.NoError(t, c.Reload(context.Background()))
	require.Equal(t, "u2", st.donOwner)
}

// memRepo is an in-memory product repository behind the real product service.
type memRepo struct {
	mu    sync.Mutex
	items []model.Product
}

func (m *memRepo) Create(_ context.Context, owner string, req model.ProductRequest) (model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	p := model.Product{ID: uuid.Must(uuid.NewV4()), Name: req.Name, Price: req.Price, ExpiryDate: req.ExpiryDate,
		WasteRisk: req.WasteRisk, IsDonation: req.IsDonation, OwnerID: owner, CreatedAt: now, UpdatedAt: now}
	m.items = append(m.items, p)
	return p, nil
}
func (m *memRepo) FetchAll(context.Context) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Product(nil), m.items...), nil
}
func (m *memRepo) FetchDonations(_ context.Context, owner string) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Product
	for _, p := range m.items {
		if p.OwnerID == owner && p.IsDonation {
			out = append(out, p)
		}
	}
	return out, nil
}
func (m *memRepo) Get(_ context.Context, id uuid.UUID) (*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, errs.ErrNotFound
}
func (m *memRepo) Update(_ context.Context, id uuid.UUID, patch model.ProductPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		p := &m.items[i]
		if p.ID != id {
			continue
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.IsDonation != nil {
			p.IsDonation = *patch.IsDonation
		}
		p.UpdatedAt = time.Now()
		return nil
	}
	return errs.ErrNotFound
}
func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

func TestScenario_UpdateToDonationResetsPrice(t *testing.T) {
	ctx := context.Background()
	svc := service.NewProductService(&memRepo{}, true)
	c := New(svc, zaptest.NewLogger(t), "u1")

	p, err := c.Create(ctx, model.ProductRequest{
		Name:       "Fromage",
		Price:      price.Lenient("5€"),
		ExpiryDate: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		WasteRisk:  model.RiskMedium,
	})
	require.NoError(t, err)
	require.Equal(t, "5€", p.Price.String())
	require.Empty(t, c.Donations())

	yes := true
	require.NoError(t, c.Update(ctx, p.ID, model.ProductPatch{IsDonation: &yes}))

	require.Equal(t, "0€", c.Products()[0].Price.String())
	don := c.Donations()
	require.Len(t, don, 1)
	require.True(t, don[0].Price.Amount.Equal(decimal.Zero))

	require.NoError(t, c.Delete(ctx, p.ID))
	require.Empty(t, c.Products())
	require.Empty(t, c.Donations())
}
