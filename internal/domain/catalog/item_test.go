package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	cur, err := ParseCurrency("usd")
	require.NoError(t, err)
	assert.Equal(t, USD, cur)

	cur, err = ParseCurrency("eur")
	require.NoError(t, err)
	assert.Equal(t, EUR, cur)

	_, err = ParseCurrency("gbp")
	assert.Error(t, err)

	_, err = ParseCurrency("")
	assert.Error(t, err)
}

func TestItemValidate(t *testing.T) {
	valid := Item{
		ID:       "a",
		Name:     "Widget",
		Price:    decimal.NewFromFloat(19.99),
		Currency: USD,
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Item)
	}{
		{"empty name", func(i *Item) { i.Name = "" }},
		{"price below minimum", func(i *Item) { i.Price = decimal.NewFromFloat(0.99) }},
		{"negative price", func(i *Item) { i.Price = decimal.NewFromInt(-1) }},
		{"unknown currency", func(i *Item) { i.Currency = "gbp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := valid
			tt.mutate(&item)
			assert.Error(t, item.Validate())
		})
	}
}

func TestDisplayPrice(t *testing.T) {
	item := Item{Price: decimal.NewFromFloat(19.9)}
	assert.Equal(t, "19.90", item.DisplayPrice())

	item.Price = decimal.NewFromInt(5)
	assert.Equal(t, "5.00", item.DisplayPrice())
}
