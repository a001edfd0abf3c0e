// Package search derives the display list from the catalog: text filter, risk
// filter, then an optional stable sort. Nothing here mutates its input.
package search

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/and161185/ecoeat/internal/model"
)

// SortKey selects the ordering of the result.
type SortKey string

const (
	SortNone   SortKey = ""
	SortName   SortKey = "name"
	SortPrice  SortKey = "price"
	SortExpiry SortKey = "expiryDate"
	SortRisk   SortKey = "risk"
)

// ParseSortKey accepts the sort key names, case-insensitively. "none" and "" mean no sort.
func ParseSortKey(s string) (SortKey, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SortNone, true
	case "name":
		return SortName, true
	case "price":
		return SortPrice, true
	case "expirydate", "expiry":
		return SortExpiry, true
	case "risk":
		return SortRisk, true
	}
	return SortNone, false
}

// Query is the search state of a listing view.
type Query struct {
	Text string
	Risk *model.WasteRisk // nil means any
	Sort SortKey
	Lang language.Tag // collation for SortName; language.Und when zero
}

// Apply runs the pipeline. With an empty query it returns products as is.
func Apply(products []model.Product, q Query) []model.Product {
	out := products
	if text := strings.TrimSpace(q.Text); text != "" {
		out = filter(out, func(p model.Product) bool { return containsFold(p.Name, text) })
	}
	if q.Risk != nil {
		r := *q.Risk
		out = filter(out, func(p model.Product) bool { return p.WasteRisk == r })
	}
	if cmp := comparator(q); cmp != nil {
		out = slices.Clone(out)
		slices.SortStableFunc(out, cmp)
	}
	return out
}

func filter(ps []model.Product, keep func(model.Product) bool) []model.Product {
	out := make([]model.Product, 0, len(ps))
	for _, p := range ps {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func comparator(q Query) func(a, b model.Product) int {
	switch q.Sort {
	case SortName:
		col := collate.New(q.Lang, collate.IgnoreCase)
		return func(a, b model.Product) int { return col.CompareString(a.Name, b.Name) }
	case SortPrice:
		return func(a, b model.Product) int { return a.Price.Amount.Cmp(b.Price.Amount) }
	case SortExpiry:
		return func(a, b model.Product) int { return a.ExpiryDate.Compare(b.ExpiryDate) }
	case SortRisk:
		return func(a, b model.Product) int { return a.WasteRisk.Urgency() - b.WasteRisk.Urgency() }
	}
	return nil
}
