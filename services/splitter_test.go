package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace/models"
)

func TestGroupByShopKeepsFirstSeenOrder(t *testing.T) {
	lines := []models.OrderLineSpec{
		{ShopID: 3, VariantID: 1},
		{ShopID: 1, VariantID: 2},
		{ShopID: 3, VariantID: 3},
		{ShopID: 2, VariantID: 4},
		{ShopID: 1, VariantID: 5},
	}

	groups := GroupByShop(lines)
	assert.Len(t, groups, 3)
	assert.Equal(t, int64(3), groups[0].ShopID)
	assert.Equal(t, int64(1), groups[1].ShopID)
	assert.Equal(t, int64(2), groups[2].ShopID)
	assert.Len(t, groups[0].Lines, 2)
	assert.Len(t, groups[1].Lines, 2)
	assert.Len(t, groups[2].Lines, 1)
	assert.Equal(t, int64(1), groups[0].Lines[0].VariantID)
	assert.Equal(t, int64(3), groups[0].Lines[1].VariantID)
}

func TestGroupByShopDeterministic(t *testing.T) {
	lines := []models.OrderLineSpec{
		{ShopID: 5, VariantID: 1},
		{ShopID: 4, VariantID: 2},
	}
	first := GroupByShop(lines)
	second := GroupByShop(lines)
	assert.Equal(t, first, second)
}

func TestGroupByShopEmpty(t *testing.T) {
	assert.Empty(t, GroupByShop(nil))
}
