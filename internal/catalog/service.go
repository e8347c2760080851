package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

const (
	maxNameLength = 100
	homeSliceSize = 4
)

var (
	hundred   = decimal.NewFromInt(100)
	maxRating = decimal.NewFromInt(5)
)

// Service exposes catalog browsing and admin product management.
type Service interface {
	List(ctx context.Context, opts Options, sortKey enums.SortKey, page pagination.Page) (*ProductListResult, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Lookup(ctx context.Context, id uuid.UUID) (Product, error)
	Categories(ctx context.Context) ([]CategoryCountDTO, error)
	Home(ctx context.Context) (*HomeDTO, error)
	Create(ctx context.Context, input ProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProductInput holds the payload for a new product.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Category    enums.Category
	Rating      decimal.Decimal
	IsNew       bool
	Image       string
	Description string
	Stock       int
}

// UpdateProductInput holds optional product mutations; nil fields are left as is.
type UpdateProductInput struct {
	Name        *string
	Price       *decimal.Decimal
	Discount    *decimal.Decimal
	Category    *enums.Category
	Rating      *decimal.Decimal
	IsNew       *bool
	Image       *string
	Description *string
	Stock       *int
}

type service struct {
	repo Repository
}

// NewService constructs a catalog service over repo.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, opts Options, sortKey enums.SortKey, page pagination.Page) (*ProductListResult, error) {
	products, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	window, info := pagination.Window(Query(products, opts, sortKey), page)
	items, err := newProductDTOs(window)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Items: items, Page: info}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	dto, err := NewProductDTO(p)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Lookup returns the current stored product. A missing id yields the pricing
// engine's product-not-found error.
func (s *service) Lookup(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, pricing.ProductNotFound(id.String())
		}
		return Product{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return p, nil
}

// Categories counts products per category, led by the All sentinel with the total.
func (s *service) Categories(ctx context.Context) ([]CategoryCountDTO, error) {
	products, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.Category]int, len(products))
	for _, p := range products {
		counts[p.Category]++
	}
	out := make([]CategoryCountDTO, 0, len(enums.Categories())+1)
	out = append(out, CategoryCountDTO{Category: enums.CategoryAll, Count: len(products)})
	for _, c := range enums.Categories() {
		out = append(out, CategoryCountDTO{Category: c, Count: counts[c]})
	}
	return out, nil
}

func (s *service) Home(ctx context.Context) (*HomeDTO, error) {
	products, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	featured := products
	if len(featured) > homeSliceSize {
		featured = featured[:homeSliceSize]
	}
	arrivals := make([]Product, 0, homeSliceSize)
	for _, p := range products {
		if len(arrivals) == homeSliceSize {
			break
		}
		if p.IsNew {
			arrivals = append(arrivals, p)
		}
	}

	featuredDTOs, err := newProductDTOs(featured)
	if err != nil {
		return nil, err
	}
	arrivalDTOs, err := newProductDTOs(arrivals)
	if err != nil {
		return nil, err
	}
	return &HomeDTO{Featured: featuredDTOs, NewArrivals: arrivalDTOs}, nil
}

func (s *service) Create(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	p := Product{
		Name:        strings.TrimSpace(input.Name),
		Price:       input.Price,
		Discount:    input.Discount,
		Category:    input.Category,
		Rating:      input.Rating,
		IsNew:       input.IsNew,
		Image:       strings.TrimSpace(input.Image),
		Description: strings.TrimSpace(input.Description),
		Stock:       input.Stock,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto, err := NewProductDTO(created)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	current, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	next := input.apply(current)
	if err := validateProduct(next); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pricing.ProductNotFound(id.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	dto, err := NewProductDTO(updated)
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return pricing.ProductNotFound(id.String())
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) snapshot(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (in UpdateProductInput) apply(p Product) Product {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Discount != nil {
		p.Discount = *in.Discount
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.IsNew != nil {
		p.IsNew = *in.IsNew
	}
	if in.Image != nil {
		p.Image = strings.TrimSpace(*in.Image)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	return p
}

func validateProduct(p Product) error {
	if n := utf8.RuneCountInString(p.Name); n == 0 || n > maxNameLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "name must be between 1 and %d characters", maxNameLength)
	}
	if p.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be >= 0")
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
	}
	if p.Rating.IsNegative() || p.Rating.GreaterThan(maxRating) {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 0 and 5")
	}
	if p.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must be >= 0")
	}
	if !p.Category.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid category %q", p.Category)
	}
	return nil
}
