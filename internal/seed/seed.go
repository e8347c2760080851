// Package seed loads the reference catalog and demo accounts into a fresh
// database. Every step is idempotent.
package seed

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

// Account describes a demo user created by the seed.
type Account struct {
	Email   string
	Name    string
	IsAdmin bool
}

// DefaultAccounts are the two shoppers and the administrator of the demo store.
var DefaultAccounts = []Account{
	{Email: "john@example.com", Name: "John Doe"},
	{Email: "jane@example.com", Name: "Jane Smith"},
	{Email: "admin@example.com", Name: "Admin User", IsAdmin: true},
}

// Result counts the rows the seed inserted.
type Result struct {
	Products int
	Users    int
}

// Options configures a seed run.
type Options struct {
	// Password is shared by every demo account.
	Password       string
	PasswordConfig config.PasswordConfig
	Accounts       []Account
}

// Run inserts the reference products and demo accounts that are missing.
// Failures on individual accounts do not stop the remaining ones; they are
// returned together.
func Run(ctx context.Context, conn *gorm.DB, opts Options, logg *logger.Logger) (Result, error) {
	var result Result
	if conn == nil {
		return result, errors.New("database connection is required")
	}
	if err := security.ValidatePassword(opts.Password); err != nil {
		return result, fmt.Errorf("seed password: %w", err)
	}
	accounts := opts.Accounts
	if accounts == nil {
		accounts = DefaultAccounts
	}

	products := catalog.SeedModels()
	insert := conn.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&products)
	if insert.Error != nil {
		return result, fmt.Errorf("seed products: %w", insert.Error)
	}
	result.Products = int(insert.RowsAffected)

	repo := users.NewRepository(conn)
	var errs error
	for _, account := range accounts {
		created, err := seedAccount(ctx, repo, account, opts)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seed user %s: %w", account.Email, err))
			continue
		}
		if created {
			result.Users++
		}
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"products_inserted": result.Products,
			"users_inserted":    result.Users,
		}), "seed completed")
	}
	return result, errs
}

func seedAccount(ctx context.Context, repo *users.Repository, account Account, opts Options) (bool, error) {
	if _, err := repo.FindByEmail(ctx, account.Email); err == nil {
		return false, nil
	} else if !db.IsNotFound(err) {
		return false, err
	}

	hash, err := security.HashPassword(opts.Password, opts.PasswordConfig)
	if err != nil {
		return false, err
	}
	_, err = repo.Create(ctx, users.CreateUserDTO{
		Email:        account.Email,
		PasswordHash: hash,
		Name:         account.Name,
		Avatar:       users.DefaultAvatar(account.Email),
		IsAdmin:      account.IsAdmin,
	})
	return err == nil, err
}
