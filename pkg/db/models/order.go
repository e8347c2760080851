package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ShippingAddress is embedded on the order row with a shipping_ prefix.
type ShippingAddress struct {
	Street  string `gorm:"column:street;not null"`
	City    string `gorm:"column:city;not null"`
	State   string `gorm:"column:state;not null"`
	ZipCode string `gorm:"column:zip_code;not null"`
	Country string `gorm:"column:country;not null"`
}

// Order is immutable after creation except for Status.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus   `gorm:"column:status;type:varchar(16);not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:varchar(16);not null"`
	ShippingAddress ShippingAddress     `gorm:"embedded;embeddedPrefix:shipping_"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,4);not null"`
	ShippingCost    decimal.Decimal     `gorm:"column:shipping_cost;type:numeric(12,4);not null"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,4);not null"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem freezes the product name and prices at order time.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	UnitBasePrice   decimal.Decimal `gorm:"column:unit_base_price;type:numeric(10,2);not null"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,4);not null"`
	LineTotal       decimal.Decimal `gorm:"column:line_total;type:numeric(12,4);not null"`
	Position        int             `gorm:"column:position;not null;default:0"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
