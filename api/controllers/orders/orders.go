package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const orderIDParam = "orderId"

// call runs one order operation on behalf of the authenticated actor and
// returns the payload to render.
type call func(r *http.Request, svc internalorders.Service, actor internalorders.Actor) (any, error)

// endpoint resolves the actor, runs fn and renders its result with status.
// Every failure goes through the error envelope.
func endpoint(svc internalorders.Service, logg *logger.Logger, status int, fn call) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := serve(r, svc, fn)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order, ok := out.(*internalorders.OrderDTO); ok && status == http.StatusCreated {
			logPlaced(r, logg, order)
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

func serve(r *http.Request, svc internalorders.Service, fn call) (any, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable")
	}
	userID, err := middleware.RequireUserID(r.Context())
	if err != nil {
		return nil, err
	}
	return fn(r, svc, internalorders.Actor{UserID: userID, Role: middleware.RoleFromContext(r.Context())})
}

// List returns the caller's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, logg, http.StatusOK, func(r *http.Request, svc internalorders.Service, actor internalorders.Actor) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		page := pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
		return svc.ListForUser(r.Context(), actor.UserID, page)
	})
}

// Detail returns one order to its owner or to an admin.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, logg, http.StatusOK, func(r *http.Request, svc internalorders.Service, actor internalorders.Actor) (any, error) {
		orderID, err := validators.ParseUUIDParam(r, orderIDParam)
		if err != nil {
			return nil, err
		}
		return svc.Get(r.Context(), actor, orderID)
	})
}

// Create places an order for an explicit item list.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, logg, http.StatusCreated, func(r *http.Request, svc internalorders.Service, actor internalorders.Actor) (any, error) {
		var body placeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		if len(body.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "items are required")
		}
		checkout, err := body.checkout()
		if err != nil {
			return nil, err
		}
		input := internalorders.CreateInput{CheckoutInput: checkout}
		for _, line := range body.Items {
			input.Items = append(input.Items, internalorders.ItemInput{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		return svc.Create(r.Context(), actor, input)
	})
}

// Checkout places an order from the caller's cart and empties it.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, logg, http.StatusCreated, func(r *http.Request, svc internalorders.Service, actor internalorders.Actor) (any, error) {
		var body placeBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		checkout, err := body.checkout()
		if err != nil {
			return nil, err
		}
		return svc.FromCart(r.Context(), actor, checkout)
	})
}

// AdminUpdateStatus moves an order along the status machine.
func AdminUpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return endpoint(svc, logg, http.StatusOK, func(r *http.Request, svc internalorders.Service, actor internalorders.Actor) (any, error) {
		orderID, err := validators.ParseUUIDParam(r, orderIDParam)
		if err != nil {
			return nil, err
		}
		var body struct {
			Status string `json:"status" validate:"required"`
		}
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		next, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		return svc.UpdateStatus(r.Context(), actor, orderID, next)
	})
}

// placeBody is shared by direct orders and cart checkout; Items is only
// read by Create.
type placeBody struct {
	Items []struct {
		ProductID uuid.UUID `json:"product_id" validate:"required"`
		Quantity  int       `json:"quantity" validate:"required,gte=1,lte=99"`
	} `json:"items" validate:"omitempty,dive"`
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method" validate:"required"`
}

func (b placeBody) checkout() (internalorders.CheckoutInput, error) {
	method, err := enums.ParsePaymentMethod(b.PaymentMethod)
	if err != nil {
		return internalorders.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return internalorders.CheckoutInput{ShippingAddress: b.ShippingAddress, PaymentMethod: method}, nil
}

func logPlaced(r *http.Request, logg *logger.Logger, order *internalorders.OrderDTO) {
	if logg == nil || order == nil {
		return
	}
	ctx := logg.WithOrderID(r.Context(), order.ID.String())
	ctx = logg.WithFields(ctx, map[string]any{
		"total":          order.Total.String(),
		"payment_method": order.PaymentMethod.String(),
	})
	logg.Info(ctx, "order.placed")
}
