package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is a catalog listing. Price is the undiscounted base price.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;type:varchar(100);not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Discount    decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	Category    enums.Category  `gorm:"column:category;type:varchar(32);not null;index"`
	Rating      decimal.Decimal `gorm:"column:rating;type:numeric(2,1);not null;default:0"`
	IsNew       bool            `gorm:"column:is_new;not null;default:false"`
	Image       string          `gorm:"column:image;not null;default:''"`
	Description string          `gorm:"column:description;not null;default:''"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Position    int             `gorm:"column:position;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
