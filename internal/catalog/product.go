package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// Product is the catalog read model shared by every repository backend.
type Product struct {
	ID          uuid.UUID
	Name        string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Category    enums.Category
	Rating      decimal.Decimal
	IsNew       bool
	Image       string
	Description string
	Stock       int
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectivePrice is the discounted unit price.
func (p Product) EffectivePrice() (decimal.Decimal, error) {
	return pricing.EffectivePrice(p.Price, p.Discount)
}

func fromModel(m models.Product) Product {
	return Product{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price,
		Discount:    m.Discount,
		Category:    m.Category,
		Rating:      m.Rating,
		IsNew:       m.IsNew,
		Image:       m.Image,
		Description: m.Description,
		Stock:       m.Stock,
		Position:    m.Position,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toModel(p Product) models.Product {
	return models.Product{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Discount:    p.Discount,
		Category:    p.Category,
		Rating:      p.Rating,
		IsNew:       p.IsNew,
		Image:       p.Image,
		Description: p.Description,
		Stock:       p.Stock,
		Position:    p.Position,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
