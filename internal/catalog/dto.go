package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	EffectivePrice decimal.Decimal `json:"effective_price"`
	Discount       decimal.Decimal `json:"discount"`
	Category       enums.Category  `json:"category"`
	Rating         decimal.Decimal `json:"rating"`
	IsNew          bool            `json:"is_new"`
	Image          string          `json:"image"`
	Description    string          `json:"description"`
	Stock          int             `json:"stock"`
	InStock        bool            `json:"in_stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ProductListResult is one page of a filtered, sorted catalog listing.
type ProductListResult struct {
	Items []ProductDTO        `json:"items"`
	Page  pagination.PageInfo `json:"page"`
}

// CategoryCountDTO reports how many products fall in a category.
type CategoryCountDTO struct {
	Category enums.Category `json:"category"`
	Count    int            `json:"count"`
}

// HomeDTO feeds the storefront landing page.
type HomeDTO struct {
	Featured    []ProductDTO `json:"featured"`
	NewArrivals []ProductDTO `json:"new_arrivals"`
}

// NewProductDTO renders p with its effective price rounded for display.
func NewProductDTO(p Product) (ProductDTO, error) {
	effective, err := p.EffectivePrice()
	if err != nil {
		return ProductDTO{}, err
	}
	return ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		EffectivePrice: pricing.Round2(effective),
		Discount:       p.Discount,
		Category:       p.Category,
		Rating:         p.Rating,
		IsNew:          p.IsNew,
		Image:          p.Image,
		Description:    p.Description,
		Stock:          p.Stock,
		InStock:        p.Stock > 0,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}, nil
}

func newProductDTOs(products []Product) ([]ProductDTO, error) {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dto, err := NewProductDTO(p)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}
