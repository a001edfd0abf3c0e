// Package price converts the accepted price representations into one canonical decimal.
//
// Prices reach the system either as plain numbers (2.5) or as display strings carrying a
// currency marker and using '.' or ',' as decimal separator ("2.50€", "2,5 €", "€3").
// Everything is normalized here, at the boundary, so the rest of the code only sees decimals.
package price

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/and161185/ecoeat/internal/model"
)

// ErrBadPrice is returned for values that carry no parseable amount.
var ErrBadPrice = errors.New("bad price")

// Parse converts v into a model.Price. The currency marker found in a string is kept;
// numbers get the default currency.
func Parse(v any) (model.Price, error) {
	switch x := v.(type) {
	case model.Price:
		return x, nil
	case *model.Price:
		if x == nil {
			return model.Price{}, ErrBadPrice
		}
		return *x, nil
	case decimal.Decimal:
		return model.NewPrice(x), nil
	case string:
		return parseString(x)
	case json.Number:
		return parseNumber(x.String())
	case nil:
		return model.Price{}, ErrBadPrice
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return model.Price{}, fmt.Errorf("%w: %v", ErrBadPrice, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Price{}, fmt.Errorf("%w: %v", ErrBadPrice, f)
	}
	return model.NewPrice(decimal.NewFromFloat(f)), nil
}

// Amount is Parse without the currency.
func Amount(v any) (decimal.Decimal, error) {
	p, err := Parse(v)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Amount, nil
}

// Lenient parses v and maps anything unparseable to a zero price.
func Lenient(v any) model.Price {
	p, err := Parse(v)
	if err != nil {
		return model.NewPrice(decimal.Zero)
	}
	return p
}

// displayForm is an optional currency marker on one side of a number that uses at most
// one '.' or ',' as decimal separator.
var displayForm = regexp.MustCompile(`^([^\d+\-.,]*?)\s*([+-]?\d+(?:[.,]\d+)?)\s*([^\d+\-.,]*)$`)

func parseNumber(s string) (model.Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return model.Price{}, fmt.Errorf("%w: %q", ErrBadPrice, s)
	}
	return model.NewPrice(d), nil
}

func parseString(s string) (model.Price, error) {
	s = strings.TrimSpace(s)
	if d, err := decimal.NewFromString(s); err == nil {
		return model.NewPrice(d), nil
	}
	m := displayForm.FindStringSubmatch(s)
	if m == nil {
		return model.Price{}, fmt.Errorf("%w: %q", ErrBadPrice, s)
	}
	lead, trail := strings.TrimSpace(m[1]), strings.TrimSpace(m[3])
	if lead != "" && trail != "" {
		return model.Price{}, fmt.Errorf("%w: %q", ErrBadPrice, s)
	}
	d, err := decimal.NewFromString(strings.Replace(m[2], ",", ".", 1))
	if err != nil {
		return model.Price{}, fmt.Errorf("%w: %q", ErrBadPrice, s)
	}
	c := lead + trail
	if c == "" {
		c = model.DefaultCurrency
	}
	return model.Price{Amount: d, Currency: c}, nil
}
