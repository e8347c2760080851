package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

type cartSource interface {
	Items(ctx context.Context, userID uuid.UUID) ([]cart.Item, error)
	RemoveOrdered(ctx context.Context, userID uuid.UUID, ordered map[uuid.UUID]int) error
}

type orderMetrics interface {
	IncCreated(paymentMethod string)
	IncTransition(from, to string)
}

// Actor is the authenticated caller of an order operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) isAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// ItemInput requests quantity units of a product.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1,lte=99"`
}

// CheckoutInput carries the delivery and payment choices of an order.
type CheckoutInput struct {
	ShippingAddress types.ShippingAddress `json:"shipping_address"`
	PaymentMethod   enums.PaymentMethod   `json:"payment_method"`
}

// CreateInput is an explicit order with its own item list.
type CreateInput struct {
	Items []ItemInput `json:"items"`
	CheckoutInput
}

// Service places and tracks orders.
type Service interface {
	Create(ctx context.Context, actor Actor, input CreateInput) (*OrderDTO, error)
	FromCart(ctx context.Context, actor Actor, input CheckoutInput) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
}

// ServiceParams wires the order service dependencies. Metrics and Logger are optional.
type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Products   productLookup
	Cart       cartSource
	Shipping   decimal.Decimal
	Metrics    orderMetrics
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	products productLookup
	cart     cartSource
	shipping decimal.Decimal
	metrics  orderMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if params.Shipping.IsNegative() {
		return nil, fmt.Errorf("shipping must be non-negative")
	}
	return &service{
		repo:     params.Repository,
		tx:       params.Tx,
		outbox:   params.Outbox,
		products: params.Products,
		cart:     params.Cart,
		shipping: params.Shipping,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, input CreateInput) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	lines, err := mergeItems(input.Items)
	if err != nil {
		return nil, err
	}
	return s.place(ctx, actor, lines, input.CheckoutInput)
}

// FromCart places an order for everything in the caller's cart. Once the order
// is committed the ordered quantities come off the cart; anything added while
// the order was being placed stays.
func (s *service) FromCart(ctx context.Context, actor Actor, input CheckoutInput) (*OrderDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.cart.Items(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	lines := make([]ItemInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	lines, err = mergeItems(lines)
	if err != nil {
		return nil, err
	}

	dto, err := s.place(ctx, actor, lines, input)
	if err != nil {
		return nil, err
	}
	ordered := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		ordered[line.ProductID] = line.Quantity
	}
	if err := s.cart.RemoveOrdered(ctx, actor.UserID, ordered); err != nil && s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, actor.UserID.String()), dto.ID.String())
		s.logg.Error(logCtx, "remove ordered items from cart", err)
	}
	return dto, nil
}

func (s *service) place(ctx context.Context, actor Actor, lines []ItemInput, input CheckoutInput) (*OrderDTO, error) {
	address, err := validateCheckout(input)
	if err != nil {
		return nil, err
	}
	order, err := s.buildOrder(ctx, actor.UserID, lines, address, input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data:          orderCreatedPayload(order),
			OccurredAt:    order.CreatedAt,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	if s.metrics != nil {
		s.metrics.IncCreated(order.PaymentMethod.String())
	}
	dto := newOrderDTO(*order)
	return &dto, nil
}

// buildOrder prices every line from a fresh catalog read.
func (s *service) buildOrder(ctx context.Context, userID uuid.UUID, lines []ItemInput, address types.ShippingAddress, method enums.PaymentMethod) (*models.Order, error) {
	priced := make([]pricing.LineItem, 0, len(lines))
	items := make([]models.OrderItem, 0, len(lines))
	for i, line := range lines {
		product, err := s.products.Lookup(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Stock < line.Quantity {
			return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "insufficient stock for %s", product.Name).
				WithDetails(map[string]any{"product_id": product.ID, "available": product.Stock})
		}
		li := pricing.LineItem{UnitBasePrice: product.Price, DiscountPercent: product.Discount, Quantity: line.Quantity}
		unit, err := li.EffectivePrice()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price line")
		}
		total, err := li.LineTotal()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "price line")
		}
		priced = append(priced, li)
		items = append(items, models.OrderItem{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			UnitBasePrice:   product.Price,
			DiscountPercent: product.Discount,
			UnitPrice:       unit,
			LineTotal:       total,
			Position:        i,
		})
	}

	totals, err := pricing.AggregateOrderTotal(priced, s.shipping)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregate order total")
	}

	now := s.now().UTC()
	return &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Status:        enums.OrderStatusPending,
		PaymentMethod: method,
		ShippingAddress: models.ShippingAddress{
			Street:  address.Street,
			City:    address.City,
			State:   address.State,
			ZipCode: address.ZipCode,
			Country: address.Country,
		},
		Subtotal:     totals.Subtotal,
		ShippingCost: totals.Shipping,
		TotalAmount:  totals.Total,
		Items:        items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		if errors.Is(err, ErrInvalidCursor) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &OrderList{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Orders = append(out.Orders, newOrderDTO(row))
	}
	return out, nil
}

// Get returns the order to its owner or to an admin. Anyone else sees NOT_FOUND.
func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.UserID && !actor.isAdmin() {
		return nil, orderNotFound()
	}
	dto := newOrderDTO(*order)
	return &dto, nil
}

// UpdateStatus applies an admin status change. Setting the current status again
// is a no-op.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !actor.isAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", next)
	}

	var (
		order   *models.Order
		from    enums.OrderStatus
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.load(ctx, repo, orderID)
		if err != nil {
			return err
		}
		order = current
		from = current.Status
		if from == next {
			return nil
		}
		if !from.CanTransitionTo(next) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move order from %s to %s", from, next).
				WithDetails(map[string]any{"from": from, "to": next})
		}
		if err := repo.UpdateStatus(ctx, orderID, from, next); err != nil {
			if errors.Is(err, ErrStatusMismatch) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = next
		order.UpdatedAt = s.now().UTC()
		changed = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    order.ID,
				UserID:     order.UserID,
				FromStatus: from,
				ToStatus:   next,
				Total:      order.TotalAmount,
				ItemCount:  itemCount(order.Items),
			},
			OccurredAt: order.UpdatedAt,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	if changed && s.metrics != nil {
		s.metrics.IncTransition(from.String(), next.String())
	}
	dto := newOrderDTO(*order)
	return &dto, nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, orderNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func orderNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

// mergeItems validates quantities and folds repeated products into one line,
// keeping first-seen order.
func mergeItems(items []ItemInput) ([]ItemInput, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	index := make(map[uuid.UUID]int, len(items))
	out := make([]ItemInput, 0, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
		} else {
			index[item.ProductID] = len(out)
			out = append(out, item)
		}
	}
	for _, item := range out {
		if item.Quantity > cart.MaxLineQuantity {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at most %d", cart.MaxLineQuantity)
		}
	}
	return out, nil
}

func validateCheckout(input CheckoutInput) (types.ShippingAddress, error) {
	if missing := input.ShippingAddress.MissingFields(); len(missing) > 0 {
		return types.ShippingAddress{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if !input.PaymentMethod.IsValid() {
		return types.ShippingAddress{}, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment method %q", input.PaymentMethod)
	}
	return input.ShippingAddress.Normalize(), nil
}

func orderCreatedPayload(order *models.Order) payloads.OrderCreatedEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	return payloads.OrderCreatedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		Subtotal:      order.Subtotal,
		Shipping:      order.ShippingCost,
		Total:         order.TotalAmount,
		ItemCount:     itemCount(order.Items),
		Lines:         lines,
	}
}

func itemCount(items []models.OrderItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
