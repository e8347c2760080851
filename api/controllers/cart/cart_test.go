package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
)

func newCartService(t *testing.T) cartsvc.Service {
	t.Helper()
	products, err := catalog.NewService(catalog.NewMemoryRepository(catalog.SeedProducts()))
	require.NoError(t, err)
	svc, err := cartsvc.NewService(cartsvc.NewMemoryStore(), products, decimal.RequireFromString("5.99"))
	require.NoError(t, err)
	return svc
}

func cartRequest(method, target, body string, userID uuid.UUID, productID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID.String())
	}
	if productID != "" {
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add(productIDParam, productID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func decodeSummary(t *testing.T, rec *httptest.ResponseRecorder) cartsvc.SummaryDTO {
	t.Helper()
	var envelope struct {
		Data cartsvc.SummaryDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Data
}

func TestCartFetchRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	CartFetch(newCartService(t), nil).ServeHTTP(rec, cartRequest(http.MethodGet, "/api/v1/cart", "", uuid.Nil, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartFetchEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	CartFetch(newCartService(t), nil).ServeHTTP(rec, cartRequest(http.MethodGet, "/api/v1/cart", "", uuid.New(), ""))
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeSummary(t, rec)
	assert.Empty(t, summary.Items)
	assert.True(t, summary.Shipping.IsZero())
	assert.True(t, summary.Total.IsZero())
}

func TestCartAddItemPricesSnapshot(t *testing.T) {
	svc := newCartService(t)
	userID := uuid.New()
	body := `{"product_id":"` + catalog.SeedClassicTeeID.String() + `","quantity":2}`

	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, cartRequest(http.MethodPost, "/api/v1/cart/items", body, userID, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	summary := decodeSummary(t, rec)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 2, summary.TotalItems)
	assert.Equal(t, "26.99", summary.Items[0].EffectivePrice.String())
	assert.Equal(t, "53.98", summary.Subtotal.String())
	assert.Equal(t, "5.99", summary.Shipping.String())
	assert.Equal(t, "59.97", summary.Total.String())
}

func TestCartAddItemDefaultsToOneUnit(t *testing.T) {
	svc := newCartService(t)
	userID := uuid.New()
	body := `{"product_id":"` + catalog.SeedWoolBeanieID.String() + `"}`

	rec := httptest.NewRecorder()
	CartAddItem(svc, nil).ServeHTTP(rec, cartRequest(http.MethodPost, "/api/v1/cart/items", body, userID, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeSummary(t, rec).TotalItems)
}

func TestCartAddItemRejectsBadPayload(t *testing.T) {
	cases := map[string]string{
		"missing product": `{"quantity":1}`,
		"zero quantity":   `{"product_id":"` + catalog.SeedWoolBeanieID.String() + `","quantity":0}`,
		"unknown field":   `{"product_id":"` + catalog.SeedWoolBeanieID.String() + `","color":"red"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CartAddItem(newCartService(t), nil).ServeHTTP(rec, cartRequest(http.MethodPost, "/api/v1/cart/items", body, uuid.New(), ""))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCartAddItemUnknownProduct(t *testing.T) {
	body := `{"product_id":"` + uuid.NewString() + `"}`
	rec := httptest.NewRecorder()
	CartAddItem(newCartService(t), nil).ServeHTTP(rec, cartRequest(http.MethodPost, "/api/v1/cart/items", body, uuid.New(), ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartLineOperations(t *testing.T) {
	svc := newCartService(t)
	userID := uuid.New()
	productID := catalog.SeedSlimJeansID
	_, err := svc.AddItem(context.Background(), userID, productID, 1)
	require.NoError(t, err)

	target := "/api/v1/cart/items/" + productID.String()

	rec := httptest.NewRecorder()
	CartSetQuantity(svc, nil).ServeHTTP(rec, cartRequest(http.MethodPut, target, `{"quantity":3}`, userID, productID.String()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, decodeSummary(t, rec).TotalItems)

	rec = httptest.NewRecorder()
	CartDecrement(svc, nil).ServeHTTP(rec, cartRequest(http.MethodPost, target+"/decrement", "", userID, productID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeSummary(t, rec).TotalItems)

	rec = httptest.NewRecorder()
	CartRemoveItem(svc, nil).ServeHTTP(rec, cartRequest(http.MethodDelete, target, "", userID, productID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeSummary(t, rec).Items)
}

func TestCartSetQuantityRequiresQuantity(t *testing.T) {
	productID := catalog.SeedSlimJeansID.String()
	rec := httptest.NewRecorder()
	CartSetQuantity(newCartService(t), nil).ServeHTTP(rec, cartRequest(http.MethodPut, "/api/v1/cart/items/"+productID, `{}`, uuid.New(), productID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartLineRejectsInvalidProductID(t *testing.T) {
	rec := httptest.NewRecorder()
	CartRemoveItem(newCartService(t), nil).ServeHTTP(rec, cartRequest(http.MethodDelete, "/api/v1/cart/items/nope", "", uuid.New(), "nope"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartClear(t *testing.T) {
	svc := newCartService(t)
	userID := uuid.New()
	_, err := svc.AddItem(context.Background(), userID, catalog.SeedWoolBeanieID, 2)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	CartClear(svc, nil).ServeHTTP(rec, cartRequest(http.MethodDelete, "/api/v1/cart", "", userID, ""))
	require.Equal(t, http.StatusNoContent, rec.Code)

	summary, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}
