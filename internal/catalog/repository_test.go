package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func seedRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	for _, p := range SeedProducts() {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}
}

// exerciseRepository runs the behaviour every backend must share.
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	seedRepository(t, repo)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 8)
	assert.Equal(t, SeedClassicTeeID, list[0].ID)
	assert.Equal(t, SeedWoolBeanieID, list[7].ID)
	assert.True(t, list[0].Price.Equal(decimal.RequireFromString("29.99")))

	got, err := repo.Get(ctx, SeedLeatherJacketID)
	require.NoError(t, err)
	assert.Equal(t, "Leather Jacket", got.Name)
	assert.Equal(t, enums.CategoryOuterwear, got.Category)
	assert.True(t, got.Discount.Equal(decimal.NewFromInt(15)))

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := repo.Create(ctx, Product{
		Name:     "Canvas Tote",
		Price:    decimal.RequireFromString("19.50"),
		Discount: decimal.Zero,
		Category: enums.CategoryAccessories,
		Rating:   decimal.RequireFromString("4.0"),
		Stock:    3,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, 9, created.Position)

	created.Stock = 0
	created.Discount = decimal.NewFromInt(10)
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.True(t, updated.Discount.Equal(decimal.NewFromInt(10)))

	_, err = repo.Update(ctx, Product{ID: uuid.New(), Name: "ghost", Category: enums.CategoryMen})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, created.ID))
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)

	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 8)
}

func TestGormRepository(t *testing.T) {
	exerciseRepository(t, NewGormRepository(dbtest.Open(t)))
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository(nil))
}

func TestMemoryRepositoryListReturnsCopy(t *testing.T) {
	repo := NewMemoryRepository(SeedProducts())
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	list[0].Name = "mutated"

	again, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Classic Cotton T-Shirt", again[0].Name)
}

func TestMongoRepository(t *testing.T) {
	uri := os.Getenv("STOREFRONT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("STOREFRONT_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	coll := client.Database("storefront_test").Collection("products_" + uuid.NewString())
	t.Cleanup(func() { _ = coll.Drop(context.Background()) })

	exerciseRepository(t, NewMongoRepository(coll))
}

func TestDecimal128RoundTrip(t *testing.T) {
	for _, raw := range []string{"0", "29.99", "110.4915", "4.5", "-3.25", "1000000"} {
		in := decimal.RequireFromString(raw)
		d128, err := toDecimal128(in)
		require.NoError(t, err)
		out, err := fromDecimal128(d128)
		require.NoError(t, err)
		assert.True(t, in.Equal(out), "round trip %s -> %s", in, out)
	}
}
