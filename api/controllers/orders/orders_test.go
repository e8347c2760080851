package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubOrdersService struct {
	order *internalorders.OrderDTO
	list  *internalorders.OrderList
	err   error

	lastActor    internalorders.Actor
	lastCreate   internalorders.CreateInput
	lastCheckout internalorders.CheckoutInput
	lastParams   pagination.Params
	lastStatus   enums.OrderStatus
	lastOrderID  uuid.UUID
}

func (s *stubOrdersService) Create(_ context.Context, actor internalorders.Actor, input internalorders.CreateInput) (*internalorders.OrderDTO, error) {
	s.lastActor = actor
	s.lastCreate = input
	return s.order, s.err
}

func (s *stubOrdersService) FromCart(_ context.Context, actor internalorders.Actor, input internalorders.CheckoutInput) (*internalorders.OrderDTO, error) {
	s.lastActor = actor
	s.lastCheckout = input
	return s.order, s.err
}

func (s *stubOrdersService) ListForUser(_ context.Context, userID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.lastActor = internalorders.Actor{UserID: userID}
	s.lastParams = params
	return s.list, s.err
}

func (s *stubOrdersService) Get(_ context.Context, actor internalorders.Actor, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	s.lastActor = actor
	s.lastOrderID = orderID
	return s.order, s.err
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, actor internalorders.Actor, orderID uuid.UUID, next enums.OrderStatus) (*internalorders.OrderDTO, error) {
	s.lastActor = actor
	s.lastOrderID = orderID
	s.lastStatus = next
	return s.order, s.err
}

const validAddress = `{"street":"1 Main St","city":"Springfield","state":"IL","zip_code":"62701","country":"US"}`

func authedRequest(method, target, body string, userID uuid.UUID, role enums.Role, params map[string]string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID.String())
		ctx = middleware.WithRole(ctx, role)
	}
	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for k, v := range params {
			routeCtx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestCreateOrder(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{order: &internalorders.OrderDTO{ID: orderID, UserID: userID, Status: enums.OrderStatusPending}}

	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":2}],"shipping_address":` + validAddress + `,"payment_method":"paypal"}`
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders", body, userID, enums.RoleCustomer, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastActor.UserID != userID || svc.lastActor.Role != enums.RoleCustomer {
		t.Fatalf("unexpected actor %+v", svc.lastActor)
	}
	if len(svc.lastCreate.Items) != 1 || svc.lastCreate.Items[0].ProductID != productID || svc.lastCreate.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", svc.lastCreate.Items)
	}
	if svc.lastCreate.PaymentMethod != enums.PaymentMethodPayPal {
		t.Fatalf("expected paypal, got %q", svc.lastCreate.PaymentMethod)
	}
	if svc.lastCreate.ShippingAddress.City != "Springfield" {
		t.Fatalf("unexpected address %+v", svc.lastCreate.ShippingAddress)
	}

	var envelope struct {
		Data internalorders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != orderID {
		t.Fatalf("expected order %s got %s", orderID, envelope.Data.ID)
	}
}

func TestCreateOrderRejectsInvalidPayloads(t *testing.T) {
	productID := uuid.New().String()
	cases := map[string]string{
		"no items":           `{"items":[],"shipping_address":` + validAddress + `,"payment_method":"paypal"}`,
		"zero quantity":      `{"items":[{"product_id":"` + productID + `","quantity":0}],"shipping_address":` + validAddress + `,"payment_method":"paypal"}`,
		"unknown payment":    `{"items":[{"product_id":"` + productID + `","quantity":1}],"shipping_address":` + validAddress + `,"payment_method":"cash"}`,
		"incomplete address": `{"items":[{"product_id":"` + productID + `","quantity":1}],"shipping_address":{"street":"1 Main St"},"payment_method":"paypal"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubOrdersService{}
			rec := httptest.NewRecorder()
			Create(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders", body, uuid.New(), enums.RoleCustomer, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", rec.Code, rec.Body.String())
			}
			if svc.lastActor.UserID != uuid.Nil {
				t.Fatalf("service must not be called")
			}
		})
	}
}

func TestCreateOrderRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders", `{}`, uuid.Nil, "", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCreateOrderProductNotFound(t *testing.T) {
	productID := uuid.New()
	svc := &stubOrdersService{err: pkgerrors.Newf(pkgerrors.CodeNotFound, "product with id %s not found", productID)}
	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":1}],"shipping_address":` + validAddress + `,"payment_method":"credit_card"}`

	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders", body, uuid.New(), enums.RoleCustomer, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND got %s", code)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")}
	body := `{"shipping_address":` + validAddress + `,"payment_method":"apple_pay"}`

	rec := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/orders/checkout", body, uuid.New(), enums.RoleCustomer, nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
	if svc.lastCheckout.PaymentMethod != enums.PaymentMethodApplePay {
		t.Fatalf("expected apple_pay, got %q", svc.lastCheckout.PaymentMethod)
	}
}

func TestListOrdersPassesPagination(t *testing.T) {
	userID := uuid.New()
	svc := &stubOrdersService{list: &internalorders.OrderList{Orders: []internalorders.OrderDTO{}}}

	rec := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", "", userID, enums.RoleCustomer, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastActor.UserID != userID || svc.lastParams.Limit != 5 || svc.lastParams.Cursor != "abc" {
		t.Fatalf("unexpected call: actor=%+v params=%+v", svc.lastActor, svc.lastParams)
	}
}

func TestListOrdersRejectsBadLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders?limit=500", "", uuid.New(), enums.RoleCustomer, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDetail(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{order: &internalorders.OrderDTO{ID: orderID}}

	rec := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", uuid.New(), enums.RoleCustomer, map[string]string{orderIDParam: orderID.String()}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastOrderID != orderID {
		t.Fatalf("expected order id %s got %s", orderID, svc.lastOrderID)
	}

	rec = httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/orders/bad", "", uuid.New(), enums.RoleCustomer, map[string]string{orderIDParam: "bad"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id got %d", rec.Code)
	}
}

func TestAdminUpdateStatus(t *testing.T) {
	adminID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{order: &internalorders.OrderDTO{ID: orderID, Status: enums.OrderStatusShipped}}
	params := map[string]string{orderIDParam: orderID.String()}

	rec := httptest.NewRecorder()
	AdminUpdateStatus(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPut, "/api/v1/admin/orders/"+orderID.String()+"/status", `{"status":"shipped"}`, adminID, enums.RoleAdmin, params))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastStatus != enums.OrderStatusShipped || svc.lastActor.Role != enums.RoleAdmin {
		t.Fatalf("unexpected call: status=%q actor=%+v", svc.lastStatus, svc.lastActor)
	}

	rec = httptest.NewRecorder()
	AdminUpdateStatus(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPut, "/api/v1/admin/orders/"+orderID.String()+"/status", `{"status":"lost"}`, adminID, enums.RoleAdmin, params))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", rec.Code)
	}
}

func TestAdminUpdateStatusIllegalTransition(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from delivered to pending")}

	rec := httptest.NewRecorder()
	AdminUpdateStatus(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPut, "/", `{"status":"pending"}`, uuid.New(), enums.RoleAdmin, map[string]string{orderIDParam: orderID.String()}))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}
