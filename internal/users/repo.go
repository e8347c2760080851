package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository is the gorm-backed store for accounts. Lookups return
// gorm.ErrRecordNotFound when nothing matches.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) find(ctx context.Context, column string, value any) (*models.User, error) {
	var user models.User
	if err := r.users(ctx).Where(column+" = ?", value).Take(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail expects the normalized (lowercase) address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(ctx, "email", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.find(ctx, "id", id)
}

// UpdateLastLogin stamps a successful sign-in without touching updated_at.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

// UpdateProfile applies updates, keyed by column, to one user.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.users(ctx).Where("id = ?", id).Updates(updates)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return gorm.ErrRecordNotFound
	}
	return nil
}
