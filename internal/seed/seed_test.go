package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestRunSeedsCatalogAndAccounts(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	result, err := Run(ctx, conn, Options{Password: "demo-pass", PasswordConfig: fastArgon}, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Products)
	assert.Equal(t, 3, result.Users)

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	assert.Equal(t, int64(8), count)

	repo := users.NewRepository(conn)
	admin, err := repo.FindByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=admin", admin.Avatar)
	ok, err := security.VerifyPassword("demo-pass", admin.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	john, err := repo.FindByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.False(t, john.IsAdmin)
	assert.Equal(t, "John Doe", john.Name)
}

func TestRunIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	opts := Options{Password: "demo-pass", PasswordConfig: fastArgon}

	_, err := Run(ctx, conn, opts, nil)
	require.NoError(t, err)
	second, err := Run(ctx, conn, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Products)
	assert.Equal(t, 0, second.Users)

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRunRejectsWeakPassword(t *testing.T) {
	_, err := Run(context.Background(), dbtest.Open(t), Options{Password: "123"}, nil)
	require.Error(t, err)
}

func TestRunUsesCustomAccounts(t *testing.T) {
	conn := dbtest.Open(t)
	result, err := Run(context.Background(), conn, Options{
		Password:       "demo-pass",
		PasswordConfig: fastArgon,
		Accounts: []Account{
			{Email: "ops@example.com", Name: "Ops", IsAdmin: true},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Users)

	_, err = users.NewRepository(conn).FindByEmail(context.Background(), "john@example.com")
	assert.Error(t, err)
}

func TestRunReturnsAccountErrors(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Migrator().DropTable(&models.User{}))

	result, err := Run(context.Background(), conn, Options{Password: "demo-pass", PasswordConfig: fastArgon}, nil)
	require.Error(t, err)
	assert.Equal(t, 8, result.Products)
	assert.Equal(t, 0, result.Users)
	assert.Contains(t, err.Error(), "john@example.com")
	assert.Contains(t, err.Error(), "admin@example.com")
}
