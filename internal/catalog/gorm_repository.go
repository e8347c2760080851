package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var updatableColumns = []string{
	"name", "price", "discount", "category", "rating", "is_new",
	"image", "description", "stock", "position", "updated_at",
}

// GormRepository stores products in the relational database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(conn *gorm.DB) *GormRepository {
	return &GormRepository{db: conn}
}

func (r *GormRepository) List(ctx context.Context) ([]Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Order("position ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

func (r *GormRepository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if db.IsNotFound(err) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return fromModel(row), nil
}

// Create appends the product to the end of the catalog unless a position is given.
func (r *GormRepository) Create(ctx context.Context, product Product) (Product, error) {
	conn := r.db.WithContext(ctx)
	if product.Position == 0 {
		var maxPosition int
		if err := conn.Model(&models.Product{}).Select("COALESCE(MAX(position), 0)").Scan(&maxPosition).Error; err != nil {
			return Product{}, err
		}
		product.Position = maxPosition + 1
	}
	row := toModel(product)
	if err := conn.Create(&row).Error; err != nil {
		return Product{}, err
	}
	return fromModel(row), nil
}

func (r *GormRepository) Update(ctx context.Context, product Product) (Product, error) {
	row := toModel(product)
	row.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Product{ID: product.ID}).
		Select(updatableColumns).
		Updates(&row)
	if res.Error != nil {
		return Product{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Product{}, ErrNotFound
	}
	return r.Get(ctx, product.ID)
}

func (r *GormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
