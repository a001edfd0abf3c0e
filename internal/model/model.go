// Package model defines domain entities used by services, repositories and the client core.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// GuestOwnerID owns records created without a signed-in principal.
const GuestOwnerID = "guest"

// DefaultCurrency is the marker appended to displayed prices.
const DefaultCurrency = "€"

// WasteRisk is the spoilage urgency of a product.
type WasteRisk string

// Known waste risk levels.
const (
	RiskLow    WasteRisk = "low"
	RiskMedium WasteRisk = "medium"
	RiskHigh   WasteRisk = "high"
)

// ParseWasteRisk accepts low/medium/high in any case.
func ParseWasteRisk(s string) (WasteRisk, error) {
	r := WasteRisk(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown waste risk %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known levels.
func (r WasteRisk) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Urgency ranks risks so that the most urgent sorts first: high(0) < medium(1) < low(2).
func (r WasteRisk) Urgency() int {
	switch r {
	case RiskHigh:
		return 0
	case RiskMedium:
		return 1
	case RiskLow:
		return 2
	}
	return 3
}

// Price is a decimal amount paired with a currency marker.
type Price struct {
	Amount   decimal.Decimal
	Currency string
}

// NewPrice builds a price in the default currency.
func NewPrice(amount decimal.Decimal) Price {
	return Price{Amount: amount, Currency: DefaultCurrency}
}

// IsZero reports whether the amount is zero.
func (p Price) IsZero() bool { return p.Amount.IsZero() }

// String renders the display form: "2.50€", or "0€" for whole amounts.
func (p Price) String() string {
	cur := p.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	if p.Amount.Equal(p.Amount.Truncate(0)) {
		return p.Amount.StringFixed(0) + cur
	}
	return p.Amount.StringFixed(2) + cur
}

// Product is a catalog entry.
type Product struct {
	ID         uuid.UUID // assigned by the store
	Name       string
	Price      Price
	ExpiryDate time.Time // calendar date, UTC midnight
	WasteRisk  WasteRisk
	IsDonation bool
	OwnerID    string // principal id or GuestOwnerID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProductRequest carries client-supplied fields for creation.
type ProductRequest struct {
	Name       string
	Price      Price
	ExpiryDate time.Time
	WasteRisk  WasteRisk
	IsDonation bool
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name       *string
	Price      *Price
	ExpiryDate *time.Time
	WasteRisk  *WasteRisk
	IsDonation *bool
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.ExpiryDate == nil && p.WasteRisk == nil && p.IsDonation == nil
}

// Principal is the authenticated identity as seen by consumers.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// User represents an account stored on the server. Passwords are never stored in plaintext.
type User struct {
	ID        uuid.UUID
	Email     string // unique
	PwdHash   []byte // Argon2id(password, Salt)
	Salt      []byte
	CreatedAt time.Time
}

// Principal returns the public identity of u.
func (u User) Principal() Principal {
	return Principal{ID: u.ID.String(), Email: u.Email}
}
