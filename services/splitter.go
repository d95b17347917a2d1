package services

import "marketplace/models"

// ShopGroup holds the lines of one checkout that belong to a single shop.
type ShopGroup struct {
	ShopID int64
	Lines  []models.OrderLineSpec
}

// GroupByShop partitions lines by shop id. Groups come back in the order
// each shop first appears in the input, so the same cart always yields the
// same partitioning.
func GroupByShop(lines []models.OrderLineSpec) []ShopGroup {
	index := make(map[int64]int, len(lines))
	groups := make([]ShopGroup, 0, len(lines))
	for _, line := range lines {
		i, seen := index[line.ShopID]
		if !seen {
			i = len(groups)
			index[line.ShopID] = i
			groups = append(groups, ShopGroup{ShopID: line.ShopID})
		}
		groups[i].Lines = append(groups[i].Lines, line)
	}
	return groups
}
