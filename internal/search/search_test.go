package search

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/price"
)

func product(name, pr string, risk model.WasteRisk, expiry string) model.Product {
	d, err := model.ParseDate(expiry)
	if err != nil {
		panic(err)
	}
	return model.Product{Name: name, Price: price.Lenient(pr), WasteRisk: risk, ExpiryDate: d}
}

func names(ps []model.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func sample() []model.Product {
	return []model.Product{
		product("Lait", "2€", model.RiskHigh, "2025-12-10"),
		product("Pain", "1€", model.RiskLow, "2025-12-20"),
	}
}

func riskPtr(r model.WasteRisk) *model.WasteRisk { return &r }

func TestApply_Scenario(t *testing.T) {
	ps := sample()

	require.Equal(t, []string{"Lait", "Pain"}, names(Apply(ps, Query{Sort: SortExpiry})))
	require.Equal(t, []string{"Lait", "Pain"}, names(Apply(ps, Query{Sort: SortRisk})))
	require.Equal(t, []string{"Pain"}, names(Apply(ps, Query{Text: "pai"})))
	require.Equal(t, []string{"Pain", "Lait"}, names(Apply(ps, Query{Sort: SortPrice})))
}

func TestApply_EmptyQueryReturnsInput(t *testing.T) {
	ps := sample()
	out := Apply(ps, Query{Text: "   "})
	require.Equal(t, ps, out)
}

func TestApply_TextFilterCaseInsensitive(t *testing.T) {
	ps := []model.Product{
		product("Yaourt nature", "1", model.RiskMedium, "2025-01-01"),
		product("YAOURT fraise", "1", model.RiskLow, "2025-01-02"),
		product("Beurre", "1", model.RiskLow, "2025-01-03"),
	}
	require.Equal(t, []string{"Yaourt nature", "YAOURT fraise"}, names(Apply(ps, Query{Text: " yaOURT "})))
	require.Empty(t, Apply(ps, Query{Text: "fromage"}))
}

func TestApply_RiskFilter(t *testing.T) {
	ps := append(sample(), product("Oeufs", "3€", model.RiskHigh, "2025-12-01"))
	require.Equal(t, []string{"Lait", "Oeufs"}, names(Apply(ps, Query{Risk: riskPtr(model.RiskHigh)})))
	require.Equal(t, ps, Apply(ps, Query{Risk: nil}))
	require.Empty(t, Apply(ps, Query{Risk: riskPtr(model.RiskMedium)}))
}

func TestApply_TextThenRiskThenSort(t *testing.T) {
	ps := []model.Product{
		product("Pomme golden", "2,50€", model.RiskHigh, "2025-05-03"),
		product("Pomme gala", "1.20€", model.RiskHigh, "2025-05-01"),
		product("Pomme de terre", "0.80", model.RiskLow, "2025-05-02"),
		product("Poire", "1€", model.RiskHigh, "2025-04-01"),
	}
	got := Apply(ps, Query{Text: "pomme", Risk: riskPtr(model.RiskHigh), Sort: SortPrice})
	require.Equal(t, []string{"Pomme gala", "Pomme golden"}, names(got))
}

func TestApply_PriceUnparseableIsZero(t *testing.T) {
	ps := []model.Product{
		product("A", "3€", model.RiskLow, "2025-01-01"),
		product("B", "n/a", model.RiskLow, "2025-01-01"),
		product("C", "2,5 €", model.RiskLow, "2025-01-01"),
	}
	require.Equal(t, []string{"B", "C", "A"}, names(Apply(ps, Query{Sort: SortPrice})))
}

func TestApply_StableAndIdempotent(t *testing.T) {
	ps := []model.Product{
		product("b1", "1", model.RiskLow, "2025-01-01"),
		product("a1", "1", model.RiskHigh, "2025-01-01"),
		product("b2", "1", model.RiskLow, "2025-01-01"),
		product("a2", "1", model.RiskHigh, "2025-01-01"),
		product("m", "1", model.RiskMedium, "2025-01-01"),
	}
	once := Apply(ps, Query{Sort: SortRisk})
	require.Equal(t, []string{"a1", "a2", "m", "b1", "b2"}, names(once))

	twice := Apply(once, Query{Sort: SortRisk})
	require.Equal(t, names(once), names(twice))

	byPrice := Apply(ps, Query{Sort: SortPrice})
	require.Equal(t, names(ps), names(byPrice))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	ps := []model.Product{
		product("c", "3", model.RiskLow, "2025-03-01"),
		product("a", "1", model.RiskHigh, "2025-01-01"),
		product("b", "2", model.RiskMedium, "2025-02-01"),
	}
	before := names(ps)
	for _, k := range []SortKey{SortName, SortPrice, SortExpiry, SortRisk} {
		_ = Apply(ps, Query{Sort: k})
	}
	require.Equal(t, before, names(ps))
}

func TestApply_NameCollation(t *testing.T) {
	ps := []model.Product{
		product("éclair", "1", model.RiskLow, "2025-01-01"),
		product("Zeste", "1", model.RiskLow, "2025-01-01"),
		product("abricot", "1", model.RiskLow, "2025-01-01"),
		product("Banane", "1", model.RiskLow, "2025-01-01"),
	}
	got := Apply(ps, Query{Sort: SortName, Lang: language.French})
	require.Equal(t, []string{"abricot", "Banane", "éclair", "Zeste"}, names(got))
}

func TestParseSortKey(t *testing.T) {
	cases := map[string]SortKey{"": SortNone, "none": SortNone, "Name": SortName, "price": SortPrice, "expiryDate": SortExpiry, "RISK": SortRisk}
	for in, want := range cases {
		got, ok := ParseSortKey(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}
	_, ok := ParseSortKey("popularity")
	require.False(t, ok)
}

func TestState_Filtered(t *testing.T) {
	src := sample()
	s := NewState(func() []model.Product { return src })

	require.Equal(t, []string{"Lait", "Pain"}, names(s.Filtered()))

	s.SetQuery("ai")
	s.SetSortKey(SortPrice)
	require.Equal(t, []string{"Pain", "Lait"}, names(s.Filtered()))

	r := model.RiskLow
	s.SetRiskFilter(&r)
	r = model.RiskHigh
	require.Equal(t, []string{"Pain"}, names(s.Filtered()))

	s.SetRiskFilter(nil)
	src = append(src, product("Aile de poulet", "4€", model.RiskHigh, "2025-11-01"))
	require.Equal(t, []string{"Pain", "Lait", "Aile de poulet"}, names(s.Filtered()))
	require.Equal(t, SortPrice, s.Query().Sort)
}

func TestState_SetLang(t *testing.T) {
	s := NewState(func() []model.Product { return nil })
	s.SetLang(language.German)
	require.Equal(t, language.German, s.Query().Lang)
	require.Empty(t, s.Filtered())
}
