package repository

import (
	"context"

	"github.com/and161185/ecoeat/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ProductRepository provides access to the products collection.
type ProductRepository interface {
	// Create stores a new product owned by ownerID and returns the stored record.
	Create(ctx context.Context, ownerID string, req model.ProductRequest) (model.Product, error)

	// FetchAll returns every product.
	FetchAll(ctx context.Context) ([]model.Product, error)

	// FetchDonations returns the owner's donated products, newest first.
	FetchDonations(ctx context.Context, ownerID string) ([]model.Product, error)

	// Get returns a single product by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Product, error)

	// Update merges the patch into the stored product in one write.
	Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) error

	// Delete removes a product.
	Delete(ctx context.Context, id uuid.UUID) error
}
