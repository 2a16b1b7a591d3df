package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advantage-shop/shop-service/internal/app/domain/cart"
)

func TestExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := Record{ID: "s1", ExpiresAt: now.Add(time.Minute)}
	assert.False(t, rec.Expired(now))
	assert.True(t, rec.Expired(now.Add(2*time.Minute)))
	assert.False(t, rec.Expired(rec.ExpiresAt), "a record is still live exactly at its deadline")
}

func TestExpiredZeroDeadline(t *testing.T) {
	rec := Record{ID: "s1"}
	assert.False(t, rec.Expired(time.Now()), "records without a deadline never expire")
}

func TestRecordRoundTripFields(t *testing.T) {
	rec := Record{
		ID: "s1",
		Steps: map[string][]string{
			"type":     {"physical"},
			"quantity": {"3"},
		},
		Items: []cart.LineItem{{ProductID: "uai-standard-physical", Quantity: "3"}},
	}

	require.Len(t, rec.Items, 1)
	assert.Equal(t, "3", rec.Items[0].Quantity)
	assert.Equal(t, []string{"physical"}, rec.Steps["type"])
}
