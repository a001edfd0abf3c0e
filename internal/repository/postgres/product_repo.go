package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const productCols = `id, name, price, currency, expiry_date, waste_risk, is_donation, owner_id, created_at, updated_at`

// ProductRepo implements ProductRepository using PostgreSQL.
type ProductRepo struct{ db *DB }

// NewProductRepo constructs a product repository.
func NewProductRepo(db *DB) *ProductRepo { return &ProductRepo{db: db} }

// Create inserts a product with a fresh ID. Donations are stored with a zero price.
// The returned price is the stored one, rounded to the column's scale.
func (r *ProductRepo) Create(ctx context.Context, ownerID string, req model.ProductRequest) (model.Product, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return model.Product{}, err
	}
	amount := req.Price.Amount
	if req.IsDonation {
		amount = decimal.Zero
	}
	cur := req.Price.Currency
	if cur == "" {
		cur = model.DefaultCurrency
	}

	const q = `
INSERT INTO products (id, name, price, currency, expiry_date, waste_risk, is_donation, owner_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING price, created_at, updated_at`
	p := model.Product{
		ID:         id,
		Name:       req.Name,
		Price:      model.Price{Currency: cur},
		ExpiryDate: model.DateOf(req.ExpiryDate),
		WasteRisk:  req.WasteRisk,
		IsDonation: req.IsDonation,
		OwnerID:    ownerID,
	}
	err = r.db.Pool.QueryRow(ctx, q,
		p.ID, p.Name, amount, cur, p.ExpiryDate, string(p.WasteRisk), p.IsDonation, ownerID,
	).Scan(&p.Price.Amount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return model.Product{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		return model.Product{}, err
	}
	return p, nil
}

// FetchAll returns every product in insertion order.
func (r *ProductRepo) FetchAll(ctx context.Context) ([]model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products ORDER BY created_at ASC, id ASC`
	return r.list(ctx, q)
}

// FetchDonations returns donated products of one owner, newest first.
func (r *ProductRepo) FetchDonations(ctx context.Context, ownerID string) ([]model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE owner_id=$1 AND is_donation=true ORDER BY created_at DESC, id ASC`
	return r.list(ctx, q, ownerID)
}

// Get returns one product by id.
func (r *ProductRepo) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE id=$1`
	p, err := scanProduct(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update applies the patch in a single statement. The price is reset to zero
// whenever the resulting row is a donation, so the write never breaks the invariant.
func (r *ProductRepo) Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) error {
	q, args := buildUpdate(id, patch)
	tag, err := r.db.Pool.Exec(ctx, q, args...)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a product. A missing row is reported as ErrNotFound.
func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM products WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func buildUpdate(id uuid.UUID, patch model.ProductPatch) (string, []any) {
	args := []any{id}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var sets []string
	if patch.Name != nil {
		sets = append(sets, "name="+next(*patch.Name))
	}
	if patch.ExpiryDate != nil {
		sets = append(sets, "expiry_date="+next(model.DateOf(*patch.ExpiryDate)))
	}
	if patch.WasteRisk != nil {
		sets = append(sets, "waste_risk="+next(string(*patch.WasteRisk)))
	}

	donation := "is_donation"
	if patch.IsDonation != nil {
		donation = next(*patch.IsDonation) + "::boolean"
		sets = append(sets, "is_donation="+donation)
	}
	amount := "price"
	if patch.Price != nil {
		amount = next(patch.Price.Amount) + "::numeric"
		if patch.Price.Currency != "" {
			sets = append(sets, "currency="+next(patch.Price.Currency))
		}
	}
	sets = append(sets,
		fmt.Sprintf("price=CASE WHEN %s THEN 0 ELSE %s END", donation, amount),
		"updated_at=now()",
	)
	return `UPDATE products SET ` + strings.Join(sets, ", ") + ` WHERE id=$1`, args
}

func (r *ProductRepo) list(ctx context.Context, q string, args ...any) ([]model.Product, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (model.Product, error) {
	var (
		p      model.Product
		amount decimal.Decimal
		risk   string
		expiry time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &amount, &p.Price.Currency, &expiry, &risk,
		&p.IsDonation, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Product{}, err
	}
	p.Price.Amount = amount
	p.ExpiryDate = model.DateOf(expiry)
	p.WasteRisk = model.WasteRisk(risk)
	return p, nil
}
