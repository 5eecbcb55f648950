// Package position tracks per-symbol positions, cash and P&L for one
// portfolio. All monetary arithmetic runs on shopspring decimals and is
// converted to float64 only at the read boundary.
package position

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/internal/utils"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// position is the mutable per-symbol state. Quantity is signed: positive for
// long, negative for short. AveragePrice is the weighted average entry price
// of the current exposure.
type position struct {
	symbol       string
	quantity     decimal.Decimal
	averagePrice decimal.Decimal
	realizedPnL  decimal.Decimal
	lastPrice    decimal.Decimal
}

func (p *position) unrealizedPnL() decimal.Decimal {
	if p.lastPrice.IsZero() {
		return decimal.Zero
	}

	return p.lastPrice.Sub(p.averagePrice).Mul(p.quantity)
}

func (p *position) snapshot() types.PositionSnapshot {
	unrealized := p.unrealizedPnL()

	return types.PositionSnapshot{
		Symbol:        p.symbol,
		Quantity:      p.quantity.InexactFloat64(),
		AveragePrice:  p.averagePrice.InexactFloat64(),
		LastPrice:     p.lastPrice.InexactFloat64(),
		MarketValue:   p.lastPrice.Mul(p.quantity).InexactFloat64(),
		UnrealizedPnL: unrealized.InexactFloat64(),
		RealizedPnL:   p.realizedPnL.InexactFloat64(),
		TotalPnL:      p.realizedPnL.Add(unrealized).InexactFloat64(),
	}
}

// Manager tracks positions and cash for a single portfolio. It is safe for
// concurrent use.
type Manager struct {
	mu             sync.RWMutex
	positions      map[string]*position
	cash           decimal.Decimal
	initialCapital decimal.Decimal
	commissionRate decimal.Decimal
	trades         []types.TradeRecord
	log            *logger.Logger
}

// NewManager creates a portfolio with the given starting cash. The
// commission rate is charged on each trade's notional value; pass 0 for
// commission-free trading.
func NewManager(initialCapital, commissionRate float64, log *logger.Logger) *Manager {
	capital := decimal.NewFromFloat(initialCapital)

	return &Manager{
		positions:      make(map[string]*position),
		cash:           capital,
		initialCapital: capital,
		commissionRate: decimal.NewFromFloat(commissionRate),
		trades:         make([]types.TradeRecord, 0),
		log:            log,
	}
}

// AddTrade applies a fill to the portfolio. Quantity is signed: positive for
// buys, negative for sells. Reducing trades realize P&L against the average
// entry price for the overlapping quantity; a trade that flips the position
// through zero opens the new exposure at the trade price. Cash moves by the
// trade notional plus commission.
func (m *Manager) AddTrade(symbol string, quantity, price float64, orderID string) error {
	if utils.IsFlat(quantity) {
		return errors.New(errors.ErrCodeInvalidQuantity, "trade quantity must be non-zero")
	}

	if price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "trade price must be positive, got %f", price)
	}

	qty := decimal.NewFromFloat(quantity)
	px := decimal.NewFromFloat(price)
	commission := qty.Abs().Mul(px).Mul(m.commissionRate)

	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[symbol]
	if !ok {
		pos = &position{symbol: symbol}
		m.positions[symbol] = pos
	}

	sameSign := pos.quantity.Sign() == 0 || pos.quantity.Sign() == qty.Sign()

	switch {
	case sameSign:
		// Opening or extending: weighted average entry price.
		newQty := pos.quantity.Add(qty)
		if !newQty.IsZero() {
			cost := pos.averagePrice.Mul(pos.quantity).Add(px.Mul(qty))
			pos.averagePrice = cost.Div(newQty)
		}

		pos.quantity = newQty

	default:
		// Reducing or flipping: realize against the average entry price
		// for the closed quantity.
		closed := decimal.Min(qty.Abs(), pos.quantity.Abs())
		direction := decimal.NewFromInt(int64(pos.quantity.Sign()))
		pos.realizedPnL = pos.realizedPnL.Add(px.Sub(pos.averagePrice).Mul(closed).Mul(direction))

		pos.quantity = pos.quantity.Add(qty)

		if pos.quantity.Sign() != 0 && pos.quantity.Sign() != direction.Sign() {
			// Flipped through zero: the surplus opens at the trade price.
			pos.averagePrice = px
		}
	}

	if pos.quantity.Abs().LessThan(decimal.NewFromFloat(utils.QuantityEpsilon)) {
		pos.quantity = decimal.Zero
		pos.averagePrice = decimal.Zero
	}

	pos.lastPrice = px
	m.cash = m.cash.Sub(qty.Mul(px)).Sub(commission)

	record := types.TradeRecord{
		TradeID:    uuid.New().String(),
		OrderID:    orderID,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      price,
		Commission: commission.InexactFloat64(),
		Timestamp:  time.Now(),
	}
	m.trades = append(m.trades, record)

	m.log.Info("Trade applied",
		zap.String("symbol", symbol),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.String("position", pos.quantity.String()),
	)

	return nil
}

// UpdatePrice refreshes the mark price used for unrealized P&L. Symbols
// without a position are ignored.
func (m *Manager) UpdatePrice(symbol string, price float64) {
	if price <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if pos, ok := m.positions[symbol]; ok {
		pos.lastPrice = decimal.NewFromFloat(price)
	}
}

// GetPosition returns the position snapshot for the symbol. A symbol that
// has never traded yields the zero position for that symbol and false, so
// callers always get a usable view.
func (m *Manager) GetPosition(symbol string) (types.PositionSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, ok := m.positions[symbol]
	if !ok {
		return types.PositionSnapshot{Symbol: symbol}, false
	}

	return pos.snapshot(), true
}

// GetPositions returns snapshots of all non-flat positions, sorted by symbol.
func (m *Manager) GetPositions() []types.PositionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.openPositions()
}

func (m *Manager) openPositions() []types.PositionSnapshot {
	out := make([]types.PositionSnapshot, 0, len(m.positions))

	for _, pos := range m.positions {
		if pos.quantity.IsZero() {
			continue
		}

		out = append(out, pos.snapshot())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	return out
}

// GetCash returns the current cash balance.
func (m *Manager) GetCash() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.cash.InexactFloat64()
}

// GetTotalValue returns cash plus the market value of all open positions.
func (m *Manager) GetTotalValue() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.cash

	for _, pos := range m.positions {
		total = total.Add(pos.lastPrice.Mul(pos.quantity))
	}

	return total.InexactFloat64()
}

// GetTotalPnL returns the sum of realized and unrealized P&L across all
// positions, including flat positions that realized earlier.
func (m *Manager) GetTotalPnL() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := decimal.Zero

	for _, pos := range m.positions {
		total = total.Add(pos.realizedPnL).Add(pos.unrealizedPnL())
	}

	return total.InexactFloat64()
}

// GetTradeHistory returns the trade records in application order, newest
// last. Limit <= 0 returns everything.
func (m *Manager) GetTradeHistory(limit int) []types.TradeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(m.trades) {
		start = len(m.trades) - limit
	}

	out := make([]types.TradeRecord, len(m.trades)-start)
	copy(out, m.trades[start:])

	return out
}

// GetPortfolioSummary returns a consistent view of cash, value, P&L and open
// positions under one lock acquisition.
func (m *Manager) GetPortfolioSummary() types.PortfolioSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totalValue := m.cash
	totalPnL := decimal.Zero

	for _, pos := range m.positions {
		totalValue = totalValue.Add(pos.lastPrice.Mul(pos.quantity))
		totalPnL = totalPnL.Add(pos.realizedPnL).Add(pos.unrealizedPnL())
	}

	return types.PortfolioSummary{
		Cash:           m.cash.InexactFloat64(),
		InitialCapital: m.initialCapital.InexactFloat64(),
		TotalValue:     totalValue.InexactFloat64(),
		TotalPnL:       totalPnL.InexactFloat64(),
		Positions:      m.openPositions(),
		TradeCount:     len(m.trades),
	}
}
