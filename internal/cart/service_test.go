package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T) (Service, catalog.Service) {
	t.Helper()
	products, err := catalog.NewService(catalog.NewMemoryRepository(catalog.SeedProducts()))
	require.NoError(t, err)
	svc, err := NewService(NewMemoryStore(), products, pricing.DefaultShipping)
	require.NoError(t, err)
	return svc, products
}

func TestEmptyCartHasNoShipping(t *testing.T) {
	svc, _ := newTestService(t)
	summary, err := svc.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Shipping.IsZero())
	assert.True(t, summary.Total.IsZero())
	assert.Equal(t, 0, summary.TotalItems)
}

func TestAddItemPricesLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedClassicTeeID, 2)
	require.NoError(t, err)
	summary, err := svc.AddItem(ctx, user, catalog.SeedSlimJeansID, 1)
	require.NoError(t, err)

	require.Len(t, summary.Items, 2)
	assert.True(t, summary.Items[0].EffectivePrice.Equal(dec("26.99")), summary.Items[0].EffectivePrice.String())
	assert.True(t, summary.Items[0].LineTotal.Equal(dec("53.98")), summary.Items[0].LineTotal.String())
	assert.True(t, summary.Subtotal.Equal(dec("113.97")), summary.Subtotal.String())
	assert.True(t, summary.Shipping.Equal(dec("5.99")))
	assert.True(t, summary.Total.Equal(dec("119.96")), summary.Total.String())
	assert.Equal(t, 3, summary.TotalItems)
}

func TestAddExistingItemIncrements(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedWoolBeanieID, 1)
	require.NoError(t, err)
	summary, err := svc.AddItem(ctx, user, catalog.SeedWoolBeanieID, 1)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 2, summary.Items[0].Quantity)

	_, err = svc.AddItem(ctx, user, catalog.SeedWoolBeanieID, MaxLineQuantity)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddItemKeepsPriceSnapshot(t *testing.T) {
	svc, products := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedWoolBeanieID, 1)
	require.NoError(t, err)

	newPrice := dec("99.00")
	_, err = products.Update(ctx, catalog.SeedWoolBeanieID, catalog.UpdateProductInput{Price: &newPrice})
	require.NoError(t, err)

	summary, err := svc.Get(ctx, user)
	require.NoError(t, err)
	assert.True(t, summary.Items[0].Price.Equal(dec("19.99")), summary.Items[0].Price.String())
}

func TestAddItemValidation(t *testing.T) {
	svc, products := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedWoolBeanieID, 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.AddItem(ctx, user, uuid.New(), 1)
	assert.True(t, pricing.IsProductNotFound(err))

	zero := 0
	_, err = products.Update(ctx, catalog.SeedRunningShoesID, catalog.UpdateProductInput{Stock: &zero})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, catalog.SeedRunningShoesID, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestSetQuantityAndRemove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedFloralDressID, 1)
	require.NoError(t, err)

	summary, err := svc.SetQuantity(ctx, user, catalog.SeedFloralDressID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalItems)

	summary, err = svc.SetQuantity(ctx, user, catalog.SeedFloralDressID, 0)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Total.IsZero())

	_, err = svc.SetQuantity(ctx, user, catalog.SeedFloralDressID, 2)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDecrementStopsAtOne(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedKidsOverallsID, 2)
	require.NoError(t, err)

	summary, err := svc.Decrement(ctx, user, catalog.SeedKidsOverallsID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Items[0].Quantity)

	summary, err = svc.Decrement(ctx, user, catalog.SeedKidsOverallsID)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 1, summary.Items[0].Quantity)
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedLeatherHandbagID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, catalog.SeedWoolBeanieID, 1)
	require.NoError(t, err)

	summary, err := svc.RemoveItem(ctx, user, catalog.SeedLeatherHandbagID)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)

	summary, err = svc.RemoveItem(ctx, user, uuid.New())
	require.NoError(t, err)
	assert.Len(t, summary.Items, 1)

	require.NoError(t, svc.Clear(ctx, user))
	items, err := svc.Items(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := svc.AddItem(ctx, alice, catalog.SeedWoolBeanieID, 1)
	require.NoError(t, err)

	summary, err := svc.Get(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

type slowStore struct {
	*MemoryStore
}

// Update sleeps before applying fn so overlapping writers would clobber each
// other if the store did not serialise them.
func (s slowStore) Update(ctx context.Context, userID uuid.UUID, fn func(c *Cart) error) (*Cart, error) {
	return s.MemoryStore.Update(ctx, userID, func(c *Cart) error {
		time.Sleep(time.Millisecond)
		return fn(c)
	})
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	products, err := catalog.NewService(catalog.NewMemoryRepository(catalog.SeedProducts()))
	require.NoError(t, err)
	svc, err := NewService(slowStore{NewMemoryStore()}, products, pricing.DefaultShipping)
	require.NoError(t, err)

	ctx := context.Background()
	user := uuid.New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, user, catalog.SeedClassicTeeID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := svc.Items(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
}

func TestRemoveOrderedKeepsLaterAdditions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := svc.AddItem(ctx, user, catalog.SeedClassicTeeID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, catalog.SeedSlimJeansID, 1)
	require.NoError(t, err)
	// Added after the checkout snapshot was taken.
	_, err = svc.AddItem(ctx, user, catalog.SeedClassicTeeID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, catalog.SeedWoolBeanieID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveOrdered(ctx, user, map[uuid.UUID]int{
		catalog.SeedClassicTeeID: 2,
		catalog.SeedSlimJeansID:  1,
	}))

	items, err := svc.Items(ctx, user)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, catalog.SeedClassicTeeID, items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, catalog.SeedWoolBeanieID, items[1].ProductID)
}
