package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/repository"
)

// ProductService is the product store contract: CRUD over the catalog with the
// donation price invariant applied on every write.
type ProductService interface {
	// Create validates and stores a product owned by ownerID.
	Create(ctx context.Context, req model.ProductRequest, ownerID string) (model.Product, error)
	// FetchAll returns every product.
	FetchAll(ctx context.Context) ([]model.Product, error)
	// FetchDonations returns the owner's donations, newest first.
	FetchDonations(ctx context.Context, ownerID string) ([]model.Product, error)
	// Get returns one product.
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// Update merges a partial change into a product.
	Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) error
	// Delete removes a product; deleting a missing product succeeds.
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProductServiceImpl struct {
	repo         repository.ProductRepository
	requireOwner bool
}

// NewProductService constructs ProductService. With requireOwner set, Create rejects an empty owner.
func NewProductService(repo repository.ProductRepository, requireOwner bool) *ProductServiceImpl {
	return &ProductServiceImpl{repo: repo, requireOwner: requireOwner}
}

// Create validates input, forces donations to a zero price and delegates to the repository.
// Validation rules:
// - name not blank
// - waste risk is low/medium/high
// - expiry date set
// - price not negative
// - owner id present when required
func (s *ProductServiceImpl) Create(ctx context.Context, req model.ProductRequest, ownerID string) (model.Product, error) {
	ownerID = strings.TrimSpace(ownerID)
	if s.requireOwner && ownerID == "" {
		return model.Product{}, fmt.Errorf("%w: owner id required", errs.ErrValidation)
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateRequest(req); err != nil {
		return model.Product{}, err
	}
	if req.IsDonation {
		req.Price.Amount = decimal.Zero
	}
	p, err := s.repo.Create(ctx, ownerID, req)
	if err != nil {
		return model.Product{}, writeErr("create product", err)
	}
	return p, nil
}

// FetchAll returns every product.
func (s *ProductServiceImpl) FetchAll(ctx context.Context) ([]model.Product, error) {
	out, err := s.repo.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w: %w", errs.ErrRead, err)
	}
	return out, nil
}

// FetchDonations returns donations of ownerID ordered by creation time, newest first.
func (s *ProductServiceImpl) FetchDonations(ctx context.Context, ownerID string) ([]model.Product, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id required", errs.ErrValidation)
	}
	out, err := s.repo.FetchDonations(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("fetch donations: %w: %w", errs.ErrRead, err)
	}
	return out, nil
}

// Get fetches a single product by id.
func (s *ProductServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("get product: %w", err)
		}
		return nil, fmt.Errorf("get product: %w: %w", errs.ErrRead, err)
	}
	return p, nil
}

// Update validates the patch and applies it. Marking a product as a donation resets
// its price to zero in the same write.
func (s *ProductServiceImpl) Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	if patch.Empty() {
		return fmt.Errorf("%w: empty update", errs.ErrValidation)
	}
	if err := validatePatch(&patch); err != nil {
		return err
	}
	if patch.IsDonation != nil && *patch.IsDonation {
		free := model.NewPrice(decimal.Zero)
		if patch.Price != nil && patch.Price.Currency != "" {
			free.Currency = patch.Price.Currency
		}
		patch.Price = &free
	}
	if err := s.repo.Update(ctx, id, patch); err != nil {
		return writeErr("update product", err)
	}
	return nil
}

// Delete removes a product. Missing products are treated as already deleted.
func (s *ProductServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: empty id", errs.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return writeErr("delete product", err)
	}
	return nil
}

func writeErr(op string, err error) error {
	if errors.Is(err, errs.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, errs.ErrWrite, err)
}

func validateRequest(req model.ProductRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: empty name", errs.ErrValidation)
	}
	if !req.WasteRisk.Valid() {
		return fmt.Errorf("%w: bad waste risk %q", errs.ErrValidation, req.WasteRisk)
	}
	if req.ExpiryDate.IsZero() {
		return fmt.Errorf("%w: empty expiry date", errs.ErrValidation)
	}
	if req.Price.Amount.IsNegative() {
		return fmt.Errorf("%w: negative price", errs.ErrValidation)
	}
	return nil
}

func validatePatch(p *model.ProductPatch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("%w: empty name", errs.ErrValidation)
		}
		p.Name = &name
	}
	if p.WasteRisk != nil && !p.WasteRisk.Valid() {
		return fmt.Errorf("%w: bad waste risk %q", errs.ErrValidation, *p.WasteRisk)
	}
	if p.ExpiryDate != nil && p.ExpiryDate.IsZero() {
		return fmt.Errorf("%w: empty expiry date", errs.ErrValidation)
	}
	if p.Price != nil && p.Price.Amount.IsNegative() {
		return fmt.Errorf("%w: negative price", errs.ErrValidation)
	}
	return nil
}
