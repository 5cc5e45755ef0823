package cart

import (
	"context"
	"testing"
	"time"

	"go-storefront/internal/database"
	"go-storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStoreRoundTrip(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	store := NewGormStore(db)
	ctx := context.Background()

	empty, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	state := State{}.AddItem(onSale(item(1, 100, 5), 75), 2)
	require.NoError(t, store.Save(ctx, "s1", state))
	state = state.AddItem(item(2, 10, 5), 1)
	require.NoError(t, store.Save(ctx, "s1", state), "second save upserts")

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)
	assert.True(t, loaded.Subtotal().Equal(decimal.NewFromInt(160)))
	assert.True(t, loaded.Items[0].SalePrice.Valid)

	var rows int64
	require.NoError(t, db.Model(&models.CartSession{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, store.Delete(ctx, "s1"))
	loaded, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestGormStorePurgeBefore(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	store := NewGormStore(db)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "fresh", State{}))
	require.NoError(t, db.Create(&models.CartSession{ID: "stale", Items: "[]", UpdatedAt: time.Now().AddDate(0, -2, 0)}).Error)

	n, err := store.PurgeBefore(ctx, time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var ids []string
	require.NoError(t, db.Model(&models.CartSession{}).Pluck("id", &ids).Error)
	assert.Equal(t, []string{"fresh"}, ids)
}
