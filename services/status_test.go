package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusConfirmed, models.StatusShipped, true},
		{models.StatusShipped, models.StatusDelivered, true},
		{models.StatusShipped, models.StatusCancelled, true},
		{models.StatusPending, models.StatusShipped, false},
		{models.StatusPending, models.StatusDelivered, false},
		{models.StatusDelivered, models.StatusPending, false},
		{models.StatusDelivered, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusPending, false},
		{models.StatusCancelled, models.StatusConfirmed, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}
