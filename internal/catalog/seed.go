package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Reference product ids. The seed migration inserts the same rows.
var (
	SeedClassicTeeID     = uuid.MustParse("6c1e0d1a-0001-4a5e-9c11-000000000001")
	SeedSlimJeansID      = uuid.MustParse("6c1e0d1a-0002-4a5e-9c11-000000000002")
	SeedFloralDressID    = uuid.MustParse("6c1e0d1a-0003-4a5e-9c11-000000000003")
	SeedLeatherJacketID  = uuid.MustParse("6c1e0d1a-0004-4a5e-9c11-000000000004")
	SeedRunningShoesID   = uuid.MustParse("6c1e0d1a-0005-4a5e-9c11-000000000005")
	SeedKidsOverallsID   = uuid.MustParse("6c1e0d1a-0006-4a5e-9c11-000000000006")
	SeedLeatherHandbagID = uuid.MustParse("6c1e0d1a-0007-4a5e-9c11-000000000007")
	SeedWoolBeanieID     = uuid.MustParse("6c1e0d1a-0008-4a5e-9c11-000000000008")
)

// SeedProducts returns a fresh copy of the reference catalog in display order.
func SeedProducts() []Product {
	dec := decimal.RequireFromString
	return []Product{
		{
			ID: SeedClassicTeeID, Name: "Classic Cotton T-Shirt", Price: dec("29.99"), Discount: dec("10"),
			Category: enums.CategoryMen, Rating: dec("4.5"), IsNew: true, Stock: 100, Position: 1,
			Image:       "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=400&q=80",
			Description: "A comfortable classic cotton t-shirt perfect for everyday wear.",
		},
		{
			ID: SeedSlimJeansID, Name: "Slim Fit Jeans", Price: dec("59.99"), Discount: decimal.Zero,
			Category: enums.CategoryMen, Rating: dec("4.2"), Stock: 75, Position: 2,
			Image:       "https://images.unsplash.com/photo-1542272604-787c3835535d?w=400&q=80",
			Description: "Modern slim fit jeans with a comfortable stretch fabric.",
		},
		{
			ID: SeedFloralDressID, Name: "Summer Floral Dress", Price: dec("49.99"), Discount: decimal.Zero,
			Category: enums.CategoryWomen, Rating: dec("4.7"), IsNew: true, Stock: 50, Position: 3,
			Image:       "https://images.unsplash.com/photo-1612336307429-8a898d10e223?w=400&q=80",
			Description: "A beautiful floral dress perfect for summer occasions.",
		},
		{
			ID: SeedLeatherJacketID, Name: "Leather Jacket", Price: dec("129.99"), Discount: dec("15"),
			Category: enums.CategoryOuterwear, Rating: dec("4.8"), Stock: 30, Position: 4,
			Image:       "https://images.unsplash.com/photo-1551028719-00167b16eac5?w=400&q=80",
			Description: "Classic leather jacket with a modern fit and durable construction.",
		},
		{
			ID: SeedRunningShoesID, Name: "Running Shoes", Price: dec("89.99"), Discount: decimal.Zero,
			Category: enums.CategoryFootwear, Rating: dec("4.4"), Stock: 60, Position: 5,
			Image:       "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=400&q=80",
			Description: "Lightweight running shoes with responsive cushioning for maximum comfort.",
		},
		{
			ID: SeedKidsOverallsID, Name: "Kids Denim Overalls", Price: dec("39.99"), Discount: dec("5"),
			Category: enums.CategoryKids, Rating: dec("4.3"), Stock: 45, Position: 6,
			Image:       "https://images.unsplash.com/photo-1519238263530-99bdd11df2ea?w=400&q=80",
			Description: "Cute and durable denim overalls for active kids.",
		},
		{
			ID: SeedLeatherHandbagID, Name: "Leather Handbag", Price: dec("79.99"), Discount: decimal.Zero,
			Category: enums.CategoryAccessories, Rating: dec("4.6"), Stock: 25, Position: 7,
			Image:       "https://images.unsplash.com/photo-1584917865442-de89df76afd3?w=400&q=80",
			Description: "Elegant leather handbag with multiple compartments and adjustable strap.",
		},
		{
			ID: SeedWoolBeanieID, Name: "Wool Beanie", Price: dec("19.99"), Discount: decimal.Zero,
			Category: enums.CategoryAccessories, Rating: dec("4.1"), Stock: 80, Position: 8,
			Image:       "https://images.unsplash.com/photo-1576871337622-98d48d1cf531?w=400&q=80",
			Description: "Warm and stylish wool beanie for cold weather.",
		},
	}
}

// SeedModels returns the reference catalog as persistence rows.
func SeedModels() []models.Product {
	seed := SeedProducts()
	out := make([]models.Product, 0, len(seed))
	for _, p := range seed {
		out = append(out, toModel(p))
	}
	return out
}
