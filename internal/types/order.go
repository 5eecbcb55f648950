package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

type OrderSide string

type OrderType string

type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal reports whether the status is final. Terminal orders are immutable.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	case OrderStatusPending, OrderStatusPartiallyFilled:
		return false
	default:
		return false
	}
}

// OrderRequest is the single construction path for new orders. Every order
// entering the system is built and validated from a request first; book and
// engine operations only ever receive an already-validated Order value.
type OrderRequest struct {
	Symbol    string    `yaml:"symbol" json:"symbol" validate:"required"`
	Side      OrderSide `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity  float64   `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	OrderType OrderType `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET LIMIT"`
	// Price is required for LIMIT orders and must be absent for MARKET orders.
	Price optional.Option[float64] `yaml:"price" json:"price"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()

	if err := validate.Struct(r); err != nil {
		if r.Quantity <= 0 {
			return errors.Wrap(errors.ErrCodeInvalidQuantity, "order quantity must be greater than 0", err)
		}

		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if r.OrderType == OrderTypeLimit {
		if r.Price.IsNone() {
			return errors.New(errors.ErrCodeMissingLimitPrice, "price must be specified for limit orders")
		}

		if r.Price.Unwrap() <= 0 {
			return errors.New(errors.ErrCodeMissingLimitPrice, "limit price must be greater than 0")
		}
	}

	return nil
}

// Order represents a trading order in the system.
type Order struct {
	OrderID   string    `yaml:"order_id" json:"order_id"`
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Side      OrderSide `yaml:"side" json:"side"`
	Quantity  float64   `yaml:"quantity" json:"quantity"`
	OrderType OrderType `yaml:"order_type" json:"order_type"`
	// Price is set iff the order is a LIMIT order.
	Price optional.Option[float64] `yaml:"price" json:"price"`
	// FilledQuantity is monotonically non-decreasing and never exceeds Quantity.
	FilledQuantity float64     `yaml:"filled_quantity" json:"filled_quantity"`
	Status         OrderStatus `yaml:"status" json:"status"`
	CreatedAt      time.Time   `yaml:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `yaml:"updated_at" json:"updated_at"`
}

// RemainingQuantity returns the open (unfilled) quantity.
func (o *Order) RemainingQuantity() float64 {
	return o.Quantity - o.FilledQuantity
}

// IsActive reports whether the order is still working (non-terminal).
func (o *Order) IsActive() bool {
	return !o.Status.IsTerminal()
}

// LimitPrice returns the limit price, or 0 for market orders.
func (o *Order) LimitPrice() float64 {
	return o.Price.TakeOr(0)
}
