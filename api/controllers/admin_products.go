package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AdminCreateProduct adds a product to the catalog.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a partial product update.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct removes a product. Existing orders keep their frozen lines.
func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, productIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteNoContent(w)
	}
}

type createProductRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	Category    string           `json:"category" validate:"required"`
	Rating      *decimal.Decimal `json:"rating,omitempty"`
	IsNew       bool             `json:"is_new"`
	Image       string           `json:"image" validate:"omitempty,url"`
	Description string           `json:"description" validate:"max=2000"`
	Stock       int              `json:"stock" validate:"gte=0"`
}

type updateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Rating      *decimal.Decimal `json:"rating,omitempty"`
	IsNew       *bool            `json:"is_new,omitempty"`
	Image       *string          `json:"image,omitempty" validate:"omitempty,url"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

func (r createProductRequest) toInput() (catalog.ProductInput, error) {
	category, err := parseProductCategory(r.Category)
	if err != nil {
		return catalog.ProductInput{}, err
	}
	return catalog.ProductInput{
		Name:        r.Name,
		Price:       r.Price,
		Discount:    valueOrZero(r.Discount),
		Category:    category,
		Rating:      valueOrZero(r.Rating),
		IsNew:       r.IsNew,
		Image:       r.Image,
		Description: r.Description,
		Stock:       r.Stock,
	}, nil
}

func (r updateProductRequest) toInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:        r.Name,
		Price:       r.Price,
		Discount:    r.Discount,
		Rating:      r.Rating,
		IsNew:       r.IsNew,
		Image:       r.Image,
		Description: r.Description,
		Stock:       r.Stock,
	}
	if r.Category != nil {
		category, err := parseProductCategory(*r.Category)
		if err != nil {
			return catalog.UpdateProductInput{}, err
		}
		input.Category = &category
	}
	return input, nil
}

func parseProductCategory(raw string) (enums.Category, error) {
	category, err := enums.ParseCategory(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
			WithDetails(map[string]any{"field": "category"})
	}
	return category, nil
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
