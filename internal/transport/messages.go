package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/price"
)

// Product is a product on the wire. Price is the display string ("2.50€"),
// ExpiryDate is YYYY-MM-DD.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      json.RawMessage `json:"price"`
	ExpiryDate string          `json:"expiry_date"`
	WasteRisk  string          `json:"waste_risk"`
	IsDonation bool            `json:"is_donation"`
	OwnerID    string          `json:"owner_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// FromProduct converts a stored product for the wire.
func FromProduct(p model.Product) Product {
	display, _ := json.Marshal(p.Price.String())
	return Product{
		ID:         p.ID.String(),
		Name:       p.Name,
		Price:      display,
		ExpiryDate: model.FormatDate(p.ExpiryDate),
		WasteRisk:  string(p.WasteRisk),
		IsDonation: p.IsDonation,
		OwnerID:    p.OwnerID,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// FromProducts converts a list for the wire.
func FromProducts(ps []model.Product) []Product {
	out := make([]Product, 0, len(ps))
	for _, p := range ps {
		out = append(out, FromProduct(p))
	}
	return out
}

// Model converts a wire product back. Decoding is lenient: an unreadable price
// becomes zero and an unreadable date the zero time.
func (p Product) Model() model.Product {
	exp, _ := model.ParseDate(p.ExpiryDate)
	return model.Product{
		ID:         uuid.FromStringOrNil(p.ID),
		Name:       p.Name,
		Price:      price.Lenient(rawValue(p.Price)),
		ExpiryDate: exp,
		WasteRisk:  model.WasteRisk(p.WasteRisk),
		IsDonation: p.IsDonation,
		OwnerID:    p.OwnerID,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ToModels converts a wire list back.
func ToModels(ps []Product) []model.Product {
	out := make([]model.Product, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Model())
	}
	return out
}

// ProductInput carries the client-supplied fields of a new product. Price may be
// a JSON number or a string.
type ProductInput struct {
	Name       string          `json:"name"`
	Price      json.RawMessage `json:"price,omitempty"`
	ExpiryDate string          `json:"expiry_date"`
	WasteRisk  string          `json:"waste_risk"`
	IsDonation bool            `json:"is_donation"`
}

// NewProductInput encodes a creation request.
func NewProductInput(req model.ProductRequest) ProductInput {
	return ProductInput{
		Name:       req.Name,
		Price:      EncodePrice(req.Price),
		ExpiryDate: model.FormatDate(req.ExpiryDate),
		WasteRisk:  string(req.WasteRisk),
		IsDonation: req.IsDonation,
	}
}

// Request decodes the input strictly. Failures wrap errs.ErrValidation.
// A missing price is zero.
func (in ProductInput) Request() (model.ProductRequest, error) {
	req := model.ProductRequest{
		Name:       in.Name,
		WasteRisk:  model.WasteRisk(in.WasteRisk),
		IsDonation: in.IsDonation,
	}
	p, err := DecodePrice(in.Price)
	if err != nil {
		return model.ProductRequest{}, err
	}
	if p == nil {
		zero := model.NewPrice(decimal.Zero)
		p = &zero
	}
	req.Price = *p
	if req.ExpiryDate, err = model.ParseDate(in.ExpiryDate); err != nil {
		return model.ProductRequest{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return req, nil
}

// ProductPatch is a partial update on the wire; absent fields stay untouched.
type ProductPatch struct {
	Name       *string         `json:"name,omitempty"`
	Price      json.RawMessage `json:"price,omitempty"`
	ExpiryDate *string         `json:"expiry_date,omitempty"`
	WasteRisk  *string         `json:"waste_risk,omitempty"`
	IsDonation *bool           `json:"is_donation,omitempty"`
}

// NewProductPatch encodes a patch.
func NewProductPatch(p model.ProductPatch) ProductPatch {
	out := ProductPatch{Name: p.Name, IsDonation: p.IsDonation}
	if p.Price != nil {
		out.Price = EncodePrice(*p.Price)
	}
	if p.ExpiryDate != nil {
		s := model.FormatDate(*p.ExpiryDate)
		out.ExpiryDate = &s
	}
	if p.WasteRisk != nil {
		s := string(*p.WasteRisk)
		out.WasteRisk = &s
	}
	return out
}

// Model decodes the patch strictly. Failures wrap errs.ErrValidation.
func (p ProductPatch) Model() (model.ProductPatch, error) {
	out := model.ProductPatch{Name: p.Name, IsDonation: p.IsDonation}
	pr, err := DecodePrice(p.Price)
	if err != nil {
		return model.ProductPatch{}, err
	}
	out.Price = pr
	if p.ExpiryDate != nil {
		d, err := model.ParseDate(*p.ExpiryDate)
		if err != nil {
			return model.ProductPatch{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		out.ExpiryDate = &d
	}
	if p.WasteRisk != nil {
		r := model.WasteRisk(*p.WasteRisk)
		out.WasteRisk = &r
	}
	return out, nil
}

// EncodePrice writes a price as a JSON string holding the exact amount and currency ("2.5€").
func EncodePrice(p model.Price) json.RawMessage {
	cur := p.Currency
	if cur == "" {
		cur = model.DefaultCurrency
	}
	b, _ := json.Marshal(p.Amount.String() + cur)
	return b
}

// DecodePrice reads a JSON number or string. Absent or null yields nil.
func DecodePrice(raw json.RawMessage) (*model.Price, error) {
	v := rawValue(raw)
	if v == nil {
		return nil, nil
	}
	p, err := price.Parse(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return &p, nil
}

func rawValue(raw json.RawMessage) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Principal model.Principal `json:"principal"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Principal   model.Principal `json:"principal"`
}

type MeRequest struct{}

type MeResponse struct {
	Principal model.Principal `json:"principal"`
}

type ListProductsRequest struct{}

type ListProductsResponse struct {
	Products []Product `json:"products"`
}

type ListDonationsRequest struct {
	OwnerID string `json:"owner_id"`
}

type ListDonationsResponse struct {
	Products []Product `json:"products"`
}

type GetProductRequest struct {
	ID string `json:"id"`
}

type GetProductResponse struct {
	Product Product `json:"product"`
}

type CreateProductRequest struct {
	Product ProductInput `json:"product"`
}

type CreateProductResponse struct {
	Product Product `json:"product"`
}

type UpdateProductRequest struct {
	ID    string       `json:"id"`
	Patch ProductPatch `json:"patch"`
}

type UpdateProductResponse struct{}

type DeleteProductRequest struct {
	ID string `json:"id"`
}

type DeleteProductResponse struct{}
