package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"material-service/internal/matching/model"
)

func TestTokenSetRatio(t *testing.T) {
	r, shared := tokenSetRatio("PARAFUSO M8", "M8 PARAFUSO")
	assert.Equal(t, 100.0, r)
	assert.Equal(t, 2, shared)

	r, shared = tokenSetRatio("PARAFUSO", "PARAFUSO SEXTAVADO")
	assert.Equal(t, 100.0, r)
	assert.Equal(t, 1, shared)

	r, shared = tokenSetRatio("PARAFUSO M8 ZINCADO", "PARAFUSO M10 ZINCADO")
	assert.InDelta(t, (1-3.0/39)*100, r, 1e-9)
	assert.Equal(t, 2, shared)

	r, shared = tokenSetRatio("ABC", "XYZ")
	assert.Equal(t, 0.0, r)
	assert.Zero(t, shared)

	r, _ = tokenSetRatio("", "ABC")
	assert.Equal(t, 0.0, r)
}

func TestTokenSetRatioIgnoresRepeats(t *testing.T) {
	a, _ := tokenSetRatio("TUBO TUBO PVC", "PVC TUBO")
	assert.Equal(t, 100.0, a)
}

func TestIndelRatio(t *testing.T) {
	assert.Equal(t, 100.0, indelRatio("", ""))
	assert.Equal(t, 100.0, indelRatio("ABC", "ABC"))
	assert.InDelta(t, 50.0, indelRatio("AB", "AC"), 1e-9)
}

func TestSearchLexicalFamilyBonus(t *testing.T) {
	catalog := []model.CatalogRecord{
		{Code: "2", Description: "PARAFUSO", Unit: "PC", Family: "20"},
		{Code: "1", Description: "PARAFUSO", Unit: "PC", Family: "10"},
	}
	res := SearchLexical(model.Query{Description: "PARAFUSO", Family: "10"}, catalog, model.SearchOptions{})
	require.Len(t, res, 2)
	assert.Equal(t, "1", res[0].Code)
	assert.Equal(t, FamilyBonus, res[0].Score-res[1].Score)
}

func TestSearchLexicalEmptyCatalog(t *testing.T) {
	res := SearchLexical(model.Query{Description: "PARAFUSO"}, nil, model.SearchOptions{})
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestSearchLexicalExactRowFirst(t *testing.T) {
	catalog := []model.CatalogRecord{
		{Code: "1", Description: "PARAFUSO SEXTAVADO M8", Unit: "KG", Family: "10"},
		{Code: "2", Description: "Arruela lisa M8", Unit: "PC", Family: "11"},
		{Code: "3", Description: "PARAFUSO M8", Unit: "PC", Family: "10"},
	}
	q := model.Query{Description: "parafuso m8", Unit: "PC", Family: "10"}
	res := SearchLexical(q, catalog, model.SearchOptions{TopN: 3})
	require.Len(t, res, 3)
	assert.Equal(t, "3", res[0].Code)
	// 100 + 2 общих токена + семейство + UM
	assert.Equal(t, 100+2*SharedTokenBonus+FamilyBonus+UnitBonus, res[0].Score)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func TestSearchLexicalTopNAndTies(t *testing.T) {
	catalog := make([]model.CatalogRecord, 8)
	for i := range catalog {
		catalog[i] = model.CatalogRecord{Code: fmt.Sprint(i + 1), Description: "LUVA PVC"}
	}
	res := SearchLexical(model.Query{Description: "LUVA PVC"}, catalog, model.SearchOptions{})
	require.Len(t, res, DefaultTopN)
	for i, r := range res {
		assert.Equal(t, fmt.Sprint(i+1), r.Code)
	}

	res = SearchLexical(model.Query{Description: "LUVA PVC"}, catalog, model.SearchOptions{TopN: 2})
	assert.Len(t, res, 2)
}

func TestSearchLexicalAbsentFieldsNoBonus(t *testing.T) {
	catalog := []model.CatalogRecord{{Code: "1", Description: "CABO"}}
	res := SearchLexical(model.Query{Description: "CABO"}, catalog, model.SearchOptions{})
	require.Len(t, res, 1)
	assert.Equal(t, 100+SharedTokenBonus, res[0].Score)
}

func TestSearchLexicalMinScore(t *testing.T) {
	catalog := []model.CatalogRecord{
		{Code: "1", Description: "CABO FLEXIVEL"},
		{Code: "2", Description: "DISJUNTOR"},
	}
	res := SearchLexical(model.Query{Description: "CABO"}, catalog, model.SearchOptions{MinScore: 50})
	require.Len(t, res, 1)
	assert.Equal(t, "1", res[0].Code)
}

func TestSearchLexicalEmptyQuery(t *testing.T) {
	catalog := []model.CatalogRecord{{Code: "1", Description: "CABO"}}
	res := SearchLexical(model.Query{}, catalog, model.SearchOptions{})
	require.Len(t, res, 1)
	assert.Equal(t, 0.0, res[0].Score)
}
