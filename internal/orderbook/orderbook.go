// Package orderbook implements a price-time priority limit order book.
//
// Each book handles exactly one symbol and keeps its own copies of resting
// orders. Fills reported by matching must be applied back to the canonical
// order registry by the caller; the book never mutates engine state.
package orderbook

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/metrics"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/internal/utils"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// level is one price level: a FIFO queue of resting orders at the same price.
type level struct {
	price  float64
	orders []*types.Order
}

func (l *level) size() float64 {
	total := 0.0
	for _, o := range l.orders {
		total += o.RemainingQuantity()
	}

	return total
}

// OrderBook is a single-symbol limit order book. It is safe for concurrent
// use; all operations take the book lock. Bids are kept sorted by price
// descending, asks ascending, and within a level orders keep arrival order.
type OrderBook struct {
	mu     sync.Mutex
	symbol string

	bids []*level // descending price
	asks []*level // ascending price

	// index maps a resting order id to its level for O(1) cancel lookup.
	index map[string]*level

	lastTradePrice optional.Option[float64]
	lastTradeSize  optional.Option[float64]

	log *logger.Logger
}

// NewOrderBook creates an empty book for the symbol.
func NewOrderBook(symbol string, log *logger.Logger) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   make([]*level, 0),
		asks:   make([]*level, 0),
		index:  make(map[string]*level),
		log:    log,
	}
}

// Symbol returns the symbol this book trades.
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// AddOrder rests a copy of the order in the book. Only active LIMIT orders
// for the book's symbol with open quantity are accepted.
func (b *OrderBook) AddOrder(order types.Order) error {
	if order.OrderType != types.OrderTypeLimit {
		return errors.Newf(errors.ErrCodeNotLimitOrder, "order %s is not a limit order", order.OrderID)
	}

	if order.Symbol != b.symbol {
		return errors.Newf(errors.ErrCodeSymbolMismatch, "order symbol %s does not match book symbol %s", order.Symbol, b.symbol)
	}

	if !order.IsActive() || order.RemainingQuantity() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order %s has no open quantity", order.OrderID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.index[order.OrderID]; exists {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order %s already resting in book", order.OrderID)
	}

	b.rest(&order)
	b.updateDepthMetrics()

	return nil
}

// rest inserts the order at the back of its price level, creating the level
// if needed. Caller holds the lock.
func (b *OrderBook) rest(order *types.Order) {
	price := order.LimitPrice()

	side := &b.asks
	cmp := func(i int) bool { return b.asks[i].price >= price }

	if order.Side == types.OrderSideBuy {
		side = &b.bids
		cmp = func(i int) bool { return b.bids[i].price <= price }
	}

	i := sort.Search(len(*side), cmp)

	if i < len(*side) && (*side)[i].price == price {
		(*side)[i].orders = append((*side)[i].orders, order)
		b.index[order.OrderID] = (*side)[i]

		return
	}

	lvl := &level{price: price, orders: []*types.Order{order}}
	*side = append(*side, nil)
	copy((*side)[i+1:], (*side)[i:])
	(*side)[i] = lvl
	b.index[order.OrderID] = lvl
}

// CancelOrder removes a resting order from the book. It returns false when
// the order is not resting.
func (b *OrderBook) CancelOrder(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.remove(orderID)
}

// remove deletes the order from its level, dropping the level when it
// empties. Caller holds the lock.
func (b *OrderBook) remove(orderID string) bool {
	lvl, ok := b.index[orderID]
	if !ok {
		return false
	}

	delete(b.index, orderID)

	for i, o := range lvl.orders {
		if o.OrderID == orderID {
			lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)

			break
		}
	}

	if len(lvl.orders) == 0 {
		b.dropLevel(lvl)
	}

	b.updateDepthMetrics()

	return true
}

func (b *OrderBook) dropLevel(lvl *level) {
	for i, l := range b.bids {
		if l == lvl {
			b.bids = append(b.bids[:i], b.bids[i+1:]...)

			return
		}
	}

	for i, l := range b.asks {
		if l == lvl {
			b.asks = append(b.asks[:i], b.asks[i+1:]...)

			return
		}
	}
}

// UpdateOrder amends a resting order's open quantity and optionally its
// price. A price change loses time priority: the order is re-queued at the
// back of the new level. It returns false when the order is not resting or
// the new quantity is non-positive.
func (b *OrderBook) UpdateOrder(orderID string, quantity float64, price optional.Option[float64]) bool {
	if quantity <= 0 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	lvl, ok := b.index[orderID]
	if !ok {
		return false
	}

	var target *types.Order

	for _, o := range lvl.orders {
		if o.OrderID == orderID {
			target = o

			break
		}
	}

	if target == nil {
		return false
	}

	newPrice := price.TakeOr(target.LimitPrice())

	target.Quantity = target.FilledQuantity + quantity
	target.UpdatedAt = time.Now()

	if newPrice != target.LimitPrice() {
		target.Price = optional.Some(newPrice)
		b.remove(target.OrderID)
		b.rest(target)
	}

	b.updateDepthMetrics()

	return true
}

// MatchOrders repeatedly crosses the book while the best bid price is at or
// above the best ask price. Each iteration matches the front orders of the
// two best levels for the smaller open quantity at the resting ask price.
// Filled orders leave the book; the returned trades carry both order ids so
// the caller can sync fills to the registry.
func (b *OrderBook) MatchOrders() []types.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	trades := make([]types.Trade, 0)

	for len(b.bids) > 0 && len(b.asks) > 0 && b.bids[0].price >= b.asks[0].price {
		bid := b.bids[0].orders[0]
		ask := b.asks[0].orders[0]

		quantity := utils.Min(bid.RemainingQuantity(), ask.RemainingQuantity())
		price := b.asks[0].price

		bid.FilledQuantity += quantity
		ask.FilledQuantity += quantity

		trades = append(trades, b.recordTrade(bid.OrderID, ask.OrderID, price, quantity))

		if bid.RemainingQuantity() <= 0 {
			b.remove(bid.OrderID)
		}

		if ask.RemainingQuantity() <= 0 {
			b.remove(ask.OrderID)
		}
	}

	if len(trades) > 0 {
		b.updateDepthMetrics()
	}

	return trades
}

// SubmitOrder matches an incoming order against the opposite side of the
// book. Fills execute at the resting level's price, best price first, FIFO
// within a level. A LIMIT remainder rests in the book; a MARKET remainder is
// discarded. The returned executions are from the incoming order's point of
// view and must be applied to the registry by the caller, for both sides.
func (b *OrderBook) SubmitOrder(incoming types.Order) ([]types.Execution, error) {
	if incoming.Symbol != b.symbol {
		return nil, errors.Newf(errors.ErrCodeSymbolMismatch, "order symbol %s does not match book symbol %s", incoming.Symbol, b.symbol)
	}

	if !incoming.IsActive() || incoming.RemainingQuantity() <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidOrder, "order %s has no open quantity", incoming.OrderID)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	executions := make([]types.Execution, 0)

	opposite := &b.asks
	if incoming.Side == types.OrderSideSell {
		opposite = &b.bids
	}

	for incoming.RemainingQuantity() > 0 && len(*opposite) > 0 {
		best := (*opposite)[0]

		if !crosses(&incoming, best.price) {
			break
		}

		resting := best.orders[0]
		quantity := utils.Min(incoming.RemainingQuantity(), resting.RemainingQuantity())

		incoming.FilledQuantity += quantity
		resting.FilledQuantity += quantity

		b.recordTrade(buyOf(&incoming, resting), sellOf(&incoming, resting), best.price, quantity)

		executions = append(executions, types.Execution{
			OrderID:        incoming.OrderID,
			CounterPartyID: resting.OrderID,
			Symbol:         b.symbol,
			ExecutedQty:    quantity,
			ExecutedPrice:  best.price,
			ExecutedAt:     time.Now(),
		})

		if resting.RemainingQuantity() <= 0 {
			b.remove(resting.OrderID)
		}
	}

	if incoming.RemainingQuantity() > 0 && incoming.OrderType == types.OrderTypeLimit {
		if len(executions) > 0 {
			incoming.Status = types.OrderStatusPartiallyFilled
		}

		b.rest(&incoming)
	}

	b.updateDepthMetrics()

	return executions, nil
}

// crosses reports whether the incoming order is willing to trade at the
// resting price. Market orders take any price.
func crosses(incoming *types.Order, restingPrice float64) bool {
	if incoming.OrderType == types.OrderTypeMarket {
		return true
	}

	if incoming.Side == types.OrderSideBuy {
		return incoming.LimitPrice() >= restingPrice
	}

	return incoming.LimitPrice() <= restingPrice
}

func buyOf(a, b *types.Order) string {
	if a.Side == types.OrderSideBuy {
		return a.OrderID
	}

	return b.OrderID
}

func sellOf(a, b *types.Order) string {
	if a.Side == types.OrderSideSell {
		return a.OrderID
	}

	return b.OrderID
}

// recordTrade builds a trade, updates last-trade state and metrics.
// Caller holds the lock.
func (b *OrderBook) recordTrade(buyOrderID, sellOrderID string, price, quantity float64) types.Trade {
	trade := types.Trade{
		TradeID:     uuid.New().String(),
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Symbol:      b.symbol,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   time.Now(),
	}

	b.lastTradePrice = optional.Some(price)
	b.lastTradeSize = optional.Some(quantity)

	metrics.TradesTotal.WithLabelValues(b.symbol).Inc()
	b.log.Debug("Trade",
		zap.String("symbol", b.symbol),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
	)

	return trade
}

// GetBestBidAsk returns the best bid and ask prices. Either is None when
// that side of the book is empty.
func (b *OrderBook) GetBestBidAsk() (optional.Option[float64], optional.Option[float64]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.bestBid(), b.bestAsk()
}

func (b *OrderBook) bestBid() optional.Option[float64] {
	if len(b.bids) == 0 {
		return optional.None[float64]()
	}

	return optional.Some(b.bids[0].price)
}

func (b *OrderBook) bestAsk() optional.Option[float64] {
	if len(b.asks) == 0 {
		return optional.None[float64]()
	}

	return optional.Some(b.asks[0].price)
}

// GetMidPrice returns the bid/ask midpoint, or None unless both sides have
// resting orders.
func (b *OrderBook) GetMidPrice() optional.Option[float64] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.bids) == 0 || len(b.asks) == 0 {
		return optional.None[float64]()
	}

	return optional.Some((b.bids[0].price + b.asks[0].price) / 2)
}

// GetSpread returns ask minus bid, or None unless both sides have resting
// orders. A crossed book yields a negative spread.
func (b *OrderBook) GetSpread() optional.Option[float64] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.bids) == 0 || len(b.asks) == 0 {
		return optional.None[float64]()
	}

	return optional.Some(b.asks[0].price - b.bids[0].price)
}

// GetQuote returns the full top-of-book view.
func (b *OrderBook) GetQuote() types.Quote {
	b.mu.Lock()
	defer b.mu.Unlock()

	quote := types.Quote{
		Symbol:  b.symbol,
		BestBid: b.bestBid(),
		BestAsk: b.bestAsk(),
		Mid:     optional.None[float64](),
		Spread:  optional.None[float64](),
	}

	if len(b.bids) > 0 && len(b.asks) > 0 {
		quote.Mid = optional.Some((b.bids[0].price + b.asks[0].price) / 2)
		quote.Spread = optional.Some(b.asks[0].price - b.bids[0].price)
	}

	return quote
}

// GetSnapshot returns the top depth price levels of each side, aggregated by
// price. Bids come highest first, asks lowest first. Depth must be positive.
func (b *OrderBook) GetSnapshot(depth int) (types.OrderBookSnapshot, error) {
	if depth <= 0 {
		return types.OrderBookSnapshot{}, errors.Newf(errors.ErrCodeInvalidDepth, "snapshot depth must be positive, got %d", depth)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := types.OrderBookSnapshot{
		Symbol:         b.symbol,
		Bids:           aggregate(b.bids, depth),
		Asks:           aggregate(b.asks, depth),
		LastTradePrice: b.lastTradePrice,
		LastTradeSize:  b.lastTradeSize,
		Timestamp:      time.Now(),
	}

	return snapshot, nil
}

func aggregate(side []*level, depth int) []types.PriceLevel {
	if depth > len(side) {
		depth = len(side)
	}

	out := make([]types.PriceLevel, 0, depth)

	for _, lvl := range side[:depth] {
		out = append(out, types.PriceLevel{
			Price:      lvl.price,
			Size:       lvl.size(),
			OrderCount: len(lvl.orders),
		})
	}

	return out
}

// OrderCount returns the number of resting orders.
func (b *OrderBook) OrderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.index)
}

// updateDepthMetrics refreshes the level-depth gauges. Caller holds the lock.
func (b *OrderBook) updateDepthMetrics() {
	metrics.OrderBookDepth.WithLabelValues(b.symbol, "bid").Set(float64(len(b.bids)))
	metrics.OrderBookDepth.WithLabelValues(b.symbol, "ask").Set(float64(len(b.asks)))
}
