// Package catalog owns the in-memory product and donation collections shown by the
// client and reloads them after every mutation.
package catalog

import (
	"context"
	"slices"
	"sync"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/ecoeat/internal/model"
)

// User-facing messages of failed operations.
const (
	MsgFetchProducts  = "failed to fetch products"
	MsgCreateProduct  = "failed to create product"
	MsgUpdateProduct  = "failed to update product"
	MsgMarkAsDonation = "failed to mark product as donation"
	MsgDeleteProduct  = "failed to delete product"
)

// Error carries a stable message for display and the underlying cause.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

// Store is the remote product store the catalog reads and writes.
type Store interface {
	Create(ctx context.Context, req model.ProductRequest, ownerID string) (model.Product, error)
	FetchAll(ctx context.Context) ([]model.Product, error)
	FetchDonations(ctx context.Context, ownerID string) ([]model.Product, error)
	Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Catalog is safe for concurrent use. Each collection tracks the sequence number of
// the fetch it was last replaced by; a fetch that completes after a newer one has
// landed is discarded.
type Catalog struct {
	store Store
	log   *zap.Logger

	mu        sync.Mutex
	owner     string
	products  []model.Product
	donations []model.Product
	err       error
	inflight  int

	prodSeq, prodApplied uint64
	donSeq, donApplied   uint64
}

// New constructs a Catalog for owner; an empty owner has no donations view.
func New(store Store, log *zap.Logger, owner string) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{store: store, log: log, owner: owner, products: []model.Product{}, donations: []model.Product{}}
}

// SetOwner switches the principal whose donations are shown. Donations of the previous
// owner are dropped, including any fetch still in flight.
func (c *Catalog) SetOwner(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == c.owner {
		return
	}
	c.owner = id
	c.donations = []model.Product{}
	c.donSeq++
	c.donApplied = c.donSeq
}

func (c *Catalog) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Products returns a copy of the product collection.
func (c *Catalog) Products() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.products)
}

// Donations returns a copy of the owner's donations, newest first.
func (c *Catalog) Donations() []model.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.donations)
}

// Loading reports whether a products fetch is in flight.
func (c *Catalog) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Err returns the last products fetch failure, cleared by the next successful fetch.
func (c *Catalog) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reload fetches both collections concurrently. A products failure is kept in Err
// and returned; the previous products stay in place. A donations failure is only logged.
func (c *Catalog) Reload(ctx context.Context) error {
	return c.reload(ctx, true)
}

// Create stores a product, then reloads products, and donations when the new product is one.
func (c *Catalog) Create(ctx context.Context, req model.ProductRequest) (model.Product, error) {
	p, err := c.store.Create(ctx, req, c.Owner())
	if err != nil {
		return model.Product{}, &Error{Msg: MsgCreateProduct, Err: err}
	}
	_ = c.reload(ctx, p.IsDonation)
	return p, nil
}

// Update applies a partial change, then reloads products, and donations when the
// patch sets the donation flag either way.
func (c *Catalog) Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) error {
	if err := c.store.Update(ctx, id, patch); err != nil {
		return &Error{Msg: MsgUpdateProduct, Err: err}
	}
	_ = c.reload(ctx, patch.IsDonation != nil)
	return nil
}

// MarkAsDonation sets or clears the donation flag, then reloads both collections.
func (c *Catalog) MarkAsDonation(ctx context.Context, id uuid.UUID, flag bool) error {
	if err := c.store.Update(ctx, id, model.ProductPatch{IsDonation: &flag}); err != nil {
		return &Error{Msg: MsgMarkAsDonation, Err: err}
	}
	_ = c.reload(ctx, true)
	return nil
}

// Delete removes a product, then reloads both collections.
func (c *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return &Error{Msg: MsgDeleteProduct, Err: err}
	}
	_ = c.reload(ctx, true)
	return nil
}

func (c *Catalog) reload(ctx context.Context, withDonations bool) error {
	var g errgroup.Group
	g.Go(func() error { return c.reloadProducts(ctx) })
	if withDonations {
		g.Go(func() error {
			c.reloadDonations(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (c *Catalog) reloadProducts(ctx context.Context) error {
	c.mu.Lock()
	c.prodSeq++
	seq := c.prodSeq
	c.inflight++
	c.mu.Unlock()

	ps, err := c.store.FetchAll(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if seq < c.prodApplied {
		return nil
	}
	if err != nil {
		c.err = &Error{Msg: MsgFetchProducts, Err: err}
		c.log.Warn("catalog: fetch products", zap.Error(err))
		return c.err
	}
	if ps == nil {
		ps = []model.Product{}
	}
	c.products, c.prodApplied, c.err = ps, seq, nil
	return nil
}

func (c *Catalog) reloadDonations(ctx context.Context) {
	c.mu.Lock()
	owner := c.owner
	c.donSeq++
	seq := c.donSeq
	c.mu.Unlock()

	if owner == "" {
		return
	}
	ds, err := c.store.FetchDonations(ctx, owner)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.donApplied || owner != c.owner {
		return
	}
	if err != nil {
		c.log.Warn("catalog: fetch donations ignored", zap.String("owner", owner), zap.Error(err))
		return
	}
	if ds == nil {
		ds = []model.Product{}
	}
	c.donations, c.donApplied = ds, seq
}
