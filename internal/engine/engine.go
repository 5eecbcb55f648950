// Package engine owns the canonical order registry and enforces the order
// lifecycle state machine:
//
//	PENDING -> PARTIALLY_FILLED -> FILLED
//	PENDING -> FILLED | CANCELLED | REJECTED
//	PARTIALLY_FILLED -> FILLED | CANCELLED
//
// FILLED, CANCELLED and REJECTED are terminal and immutable. Orders are never
// physically deleted; terminal orders remain queryable.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/metrics"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/internal/utils"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// TradingEngine is the canonical order registry. It is safe for concurrent
// use; a single lock guards the registry.
type TradingEngine struct {
	mu     sync.RWMutex
	orders map[string]*types.Order
	log    *logger.Logger
}

// NewTradingEngine creates an empty trading engine.
func NewTradingEngine(log *logger.Logger) *TradingEngine {
	return &TradingEngine{
		orders: make(map[string]*types.Order),
		log:    log,
	}
}

// quantityPrecision is the lot precision of accepted orders, matching the
// epsilon used for quantity comparisons.
const quantityPrecision = 6

// CreateOrder validates the request, assigns a unique id and stores the order
// with status PENDING. The quantity is floored to the lot precision; a
// quantity that floors to zero is rejected. Validation failures are returned
// as coded errors and nothing is stored.
func (e *TradingEngine) CreateOrder(req types.OrderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	quantity := utils.RoundToDecimalPrecision(req.Quantity, quantityPrecision)
	if utils.IsFlat(quantity) {
		return "", errors.Newf(errors.ErrCodeInvalidQuantity, "quantity %v is below the lot precision", req.Quantity)
	}

	now := time.Now()
	order := &types.Order{
		OrderID:        uuid.New().String(),
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       quantity,
		OrderType:      req.OrderType,
		Price:          req.Price,
		FilledQuantity: 0,
		Status:         types.OrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	e.mu.Lock()
	e.orders[order.OrderID] = order
	e.mu.Unlock()

	metrics.OrdersTotal.WithLabelValues("created", order.Symbol).Inc()
	e.log.Info("Order created",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.Quantity),
		zap.String("order_type", string(order.OrderType)),
	)

	return order.OrderID, nil
}

// GetOrder returns a copy of the order, or false if the id is unknown.
func (e *TradingEngine) GetOrder(orderID string) (types.Order, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	order, ok := e.orders[orderID]
	if !ok {
		return types.Order{}, false
	}

	return *order, true
}

// GetActiveOrders returns copies of all non-terminal orders. Pass an empty
// symbol to list every symbol.
func (e *TradingEngine) GetActiveOrders(symbol string) []types.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	active := make([]types.Order, 0)

	for _, order := range e.orders {
		if !order.IsActive() {
			continue
		}

		if symbol != "" && order.Symbol != symbol {
			continue
		}

		active = append(active, *order)
	}

	return active
}

// OrderFilter narrows GetOrders results. Zero-valued fields match everything.
type OrderFilter struct {
	Symbol string
	Status types.OrderStatus
	Side   types.OrderSide
}

// GetOrders returns copies of all orders matching the filter.
func (e *TradingEngine) GetOrders(filter OrderFilter) []types.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]types.Order, 0)

	for _, order := range e.orders {
		if filter.Symbol != "" && order.Symbol != filter.Symbol {
			continue
		}

		if filter.Status != "" && order.Status != filter.Status {
			continue
		}

		if filter.Side != "" && order.Side != filter.Side {
			continue
		}

		result = append(result, *order)
	}

	return result
}

// ExecuteOrder applies a fill to the order. It returns false when the id is
// unknown, the order is terminal, or the quantity is non-positive or exceeds
// the remaining open quantity. Fill state never regresses.
func (e *TradingEngine) ExecuteOrder(orderID string, executionPrice, executionQuantity float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		e.log.Warn("Execution for unknown order", zap.String("order_id", orderID))

		return false
	}

	if order.Status.IsTerminal() {
		e.log.Warn("Execution for terminal order",
			zap.String("order_id", orderID),
			zap.String("status", string(order.Status)),
		)

		return false
	}

	if executionQuantity <= 0 || executionQuantity > order.RemainingQuantity() {
		e.log.Error("Invalid execution quantity",
			zap.String("order_id", orderID),
			zap.Float64("execution_quantity", executionQuantity),
			zap.Float64("remaining", order.RemainingQuantity()),
		)

		return false
	}

	order.FilledQuantity += executionQuantity
	order.UpdatedAt = time.Now()

	if order.FilledQuantity >= order.Quantity {
		order.FilledQuantity = order.Quantity
		order.Status = types.OrderStatusFilled

		metrics.OrdersTotal.WithLabelValues("filled", order.Symbol).Inc()
	} else {
		order.Status = types.OrderStatusPartiallyFilled
	}

	e.log.Info("Order executed",
		zap.String("order_id", orderID),
		zap.Float64("quantity", executionQuantity),
		zap.Float64("price", executionPrice),
		zap.String("status", string(order.Status)),
	)

	return true
}

// CancelOrder transitions the order to CANCELLED. It returns false for
// unknown or terminal orders. Cancelling a resting LIMIT order does not
// remove it from its order book; that is the caller's responsibility.
func (e *TradingEngine) CancelOrder(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		e.log.Warn("Cancel for unknown order", zap.String("order_id", orderID))

		return false
	}

	if order.Status.IsTerminal() {
		e.log.Warn("Cancel for terminal order",
			zap.String("order_id", orderID),
			zap.String("status", string(order.Status)),
		)

		return false
	}

	order.Status = types.OrderStatusCancelled
	order.UpdatedAt = time.Now()

	metrics.OrdersTotal.WithLabelValues("cancelled", order.Symbol).Inc()
	e.log.Info("Order cancelled", zap.String("order_id", orderID))

	return true
}

// RejectOrder transitions a PENDING order to REJECTED. Orders that have
// already started filling cannot be rejected.
func (e *TradingEngine) RejectOrder(orderID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return false
	}

	if order.Status != types.OrderStatusPending {
		return false
	}

	order.Status = types.OrderStatusRejected
	order.UpdatedAt = time.Now()

	metrics.OrdersTotal.WithLabelValues("rejected", order.Symbol).Inc()
	e.log.Info("Order rejected", zap.String("order_id", orderID))

	return true
}
