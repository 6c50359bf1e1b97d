package catalog

import (
	"errors"
	"testing"

	"hype-classifier/internal/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	t := dataset.NewTable([]string{
		dataset.ColProductName, dataset.ColBrandName, dataset.ColPrimaryCategory,
		dataset.ColPrice, dataset.ColExclusive, dataset.ColNew,
	})
	t.Records = []dataset.Record{
		{"product_name": "Lip Oil", "brand_name": "Dior", "primary_category": "Makeup", "price_usd": "40", "sephora_exclusive": "0", "new": "1"},
		{"product_name": "Serum", "brand_name": "Ordinary", "primary_category": "Skincare", "price_usd": "9.5", "sephora_exclusive": "1", "new": "0"},
		{"product_name": "Lip Oil", "brand_name": "Dior", "primary_category": "Makeup", "price_usd": "38", "sephora_exclusive": "0", "new": "0"},
		{"product_name": "", "brand_name": "Anonymous", "primary_category": "Fragrance", "price_usd": "nan"},
		{"product_name": "Cleanser", "brand_name": "", "primary_category": "Skincare", "price_usd": "15"},
	}
	return New(t)
}

func TestBrandsAndCategories(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"Anonymous", "Dior", "Ordinary"}, c.Brands())
	assert.Equal(t, []string{"Fragrance", "Makeup", "Skincare"}, c.Categories())

	// Callers cannot mutate the index.
	b := c.Brands()
	b[0] = "Mutated"
	assert.Equal(t, "Anonymous", c.Brands()[0])
}

func TestFilter(t *testing.T) {
	c := testCatalog()

	assert.Len(t, c.Filter(Filter{}), 5)
	assert.Len(t, c.Filter(Filter{Brand: All, Category: All}), 5)
	assert.Len(t, c.Filter(Filter{Brand: "Dior"}), 2)
	assert.Len(t, c.Filter(Filter{Category: "Skincare"}), 2)
	assert.Len(t, c.Filter(Filter{Brand: "Ordinary", Category: "Skincare"}), 1)
	assert.Empty(t, c.Filter(Filter{Brand: "Dior", Category: "Skincare"}))
}

func TestNames(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, []string{"Lip Oil", "Serum", UnknownName, "Cleanser"}, c.Names(Filter{}))
	assert.Equal(t, []string{"Lip Oil"}, c.Names(Filter{Brand: "Dior"}))
}

func TestSelect_FirstMatchWins(t *testing.T) {
	c := testCatalog()

	r, err := c.Select(Filter{}, "Lip Oil")
	require.NoError(t, err)
	assert.Equal(t, "40", r[dataset.ColPrice])

	r, err = c.Select(Filter{Category: "Skincare"}, "")
	require.NoError(t, err)
	assert.Equal(t, "Serum", r[dataset.ColProductName])

	r, err = c.Select(Filter{}, UnknownName)
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", r[dataset.ColBrandName])
}

func TestSelect_Errors(t *testing.T) {
	c := testCatalog()

	_, err := c.Select(Filter{Brand: "Dior", Category: "Skincare"}, "")
	assert.True(t, errors.Is(err, ErrNoCandidates))

	_, err = c.Select(Filter{Brand: "Dior"}, "Serum")
	assert.True(t, errors.Is(err, ErrProductNotFound))

	_, err = New(dataset.NewTable(nil)).Select(Filter{}, "")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestCard(t *testing.T) {
	c := testCatalog()
	fields := Card(c.Filter(Filter{})[1])

	assert.Equal(t, []Field{
		{Name: "product_name", Value: "Serum"},
		{Name: "brand_name", Value: "Ordinary"},
		{Name: "primary_category", Value: "Skincare"},
		{Name: "price_usd", Value: "9.5"},
		{Name: "sephora_exclusive", Value: "Yes"},
		{Name: "new", Value: "No"},
	}, fields)

	// Missing values are skipped.
	fields = Card(c.Filter(Filter{})[3])
	for _, f := range fields {
		assert.NotEqual(t, "price_usd", f.Name)
		assert.NotEqual(t, "product_name", f.Name)
	}
}

func TestTexts(t *testing.T) {
	c := testCatalog()
	rows := c.Filter(Filter{})

	assert.Equal(t, "$9.50", PriceText(rows[1]))
	assert.Equal(t, "N/A", PriceText(rows[3]))
	assert.Equal(t, "Skincare", CategoryText(rows[1]))
	assert.Equal(t, "N/A", CategoryText(dataset.Record{}))

	assert.Equal(t, "87%", ConfidenceText(0.879))
	assert.Equal(t, "100%", ConfidenceText(1))
	assert.Equal(t, "0%", ConfidenceText(0.004))
}
