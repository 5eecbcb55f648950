package orderbook

import (
	"fmt"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

func limitOrder(id, symbol string, side types.OrderSide, qty, price float64) types.Order {
	now := time.Now()

	return types.Order{
		OrderID:   id,
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		OrderType: types.OrderTypeLimit,
		Price:     optional.Some(price),
		Status:    types.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func marketOrder(id, symbol string, side types.OrderSide, qty float64) types.Order {
	now := time.Now()

	return types.Order{
		OrderID:   id,
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		OrderType: types.OrderTypeMarket,
		Status:    types.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

type OrderBookTestSuite struct {
	suite.Suite
	book *OrderBook
}

func (suite *OrderBookTestSuite) SetupTest() {
	suite.book = NewOrderBook("AAPL", logger.NewNopLogger())
}

func (suite *OrderBookTestSuite) TestAddOrderRejectsMarket() {
	err := suite.book.AddOrder(marketOrder("m1", "AAPL", types.OrderSideBuy, 10))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNotLimitOrder))
}

func (suite *OrderBookTestSuite) TestAddOrderRejectsSymbolMismatch() {
	err := suite.book.AddOrder(limitOrder("b1", "GOOGL", types.OrderSideBuy, 10, 100))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSymbolMismatch))
}

func (suite *OrderBookTestSuite) TestAddOrderRejectsDuplicate() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 100)))

	err := suite.book.AddOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 100))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func (suite *OrderBookTestSuite) TestBestBidAsk() {
	bid, ask := suite.book.GetBestBidAsk()
	suite.True(bid.IsNone())
	suite.True(ask.IsNone())

	suite.Require().NoError(suite.book.AddOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 99)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b2", "AAPL", types.OrderSideBuy, 10, 100)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("a1", "AAPL", types.OrderSideSell, 10, 102)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("a2", "AAPL", types.OrderSideSell, 10, 101)))

	bid, ask = suite.book.GetBestBidAsk()
	suite.Equal(100.0, bid.Unwrap())
	suite.Equal(101.0, ask.Unwrap())

	suite.Equal(100.5, suite.book.GetMidPrice().Unwrap())
	suite.InDelta(1.0, suite.book.GetSpread().Unwrap(), 1e-9)
}

// A crossing bid and ask produce one trade at the resting ask price; the bid
// remainder keeps resting and the emptied ask level disappears.
func (suite *OrderBookTestSuite) TestMatchOrdersCrossingPair() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("bid", "AAPL", types.OrderSideBuy, 100, 101)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("ask", "AAPL", types.OrderSideSell, 60, 100)))

	trades := suite.book.MatchOrders()
	suite.Require().Len(trades, 1)
	suite.Equal(100.0, trades[0].Price)
	suite.Equal(60.0, trades[0].Quantity)
	suite.Equal("bid", trades[0].BuyOrderID)
	suite.Equal("ask", trades[0].SellOrderID)

	snapshot, err := suite.book.GetSnapshot(10)
	suite.Require().NoError(err)
	suite.Require().Len(snapshot.Bids, 1)
	suite.Equal(101.0, snapshot.Bids[0].Price)
	suite.Equal(40.0, snapshot.Bids[0].Size)
	suite.Empty(snapshot.Asks)

	suite.Equal(100.0, snapshot.LastTradePrice.Unwrap())
	suite.Equal(60.0, snapshot.LastTradeSize.Unwrap())
}

func (suite *OrderBookTestSuite) TestMatchOrdersNoCross() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("bid", "AAPL", types.OrderSideBuy, 10, 99)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("ask", "AAPL", types.OrderSideSell, 10, 101)))

	suite.Empty(suite.book.MatchOrders())
	suite.Equal(2, suite.book.OrderCount())
}

// Orders at the same price fill in arrival order.
func (suite *OrderBookTestSuite) TestTimePriorityWithinLevel() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("first", "AAPL", types.OrderSideSell, 30, 100)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("second", "AAPL", types.OrderSideSell, 30, 100)))

	execs, err := suite.book.SubmitOrder(marketOrder("taker", "AAPL", types.OrderSideBuy, 40))
	suite.Require().NoError(err)
	suite.Require().Len(execs, 2)
	suite.Equal("first", execs[0].CounterPartyID)
	suite.Equal(30.0, execs[0].ExecutedQty)
	suite.Equal("second", execs[1].CounterPartyID)
	suite.Equal(10.0, execs[1].ExecutedQty)
}

func (suite *OrderBookTestSuite) TestSubmitOrderWalksLevels() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("a1", "AAPL", types.OrderSideSell, 20, 100)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("a2", "AAPL", types.OrderSideSell, 20, 101)))

	execs, err := suite.book.SubmitOrder(limitOrder("taker", "AAPL", types.OrderSideBuy, 30, 101))
	suite.Require().NoError(err)
	suite.Require().Len(execs, 2)
	suite.Equal(100.0, execs[0].ExecutedPrice)
	suite.Equal(20.0, execs[0].ExecutedQty)
	suite.Equal(101.0, execs[1].ExecutedPrice)
	suite.Equal(10.0, execs[1].ExecutedQty)
}

// A LIMIT remainder rests; a MARKET remainder is discarded.
func (suite *OrderBookTestSuite) TestSubmitOrderRemainder() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("a1", "AAPL", types.OrderSideSell, 10, 100)))

	execs, err := suite.book.SubmitOrder(limitOrder("taker", "AAPL", types.OrderSideBuy, 25, 100))
	suite.Require().NoError(err)
	suite.Require().Len(execs, 1)

	bid, _ := suite.book.GetBestBidAsk()
	suite.Equal(100.0, bid.Unwrap())

	snapshot, err := suite.book.GetSnapshot(1)
	suite.Require().NoError(err)
	suite.Equal(15.0, snapshot.Bids[0].Size)

	suite.Require().NoError(suite.book.AddOrder(limitOrder("a2", "AAPL", types.OrderSideSell, 5, 101)))

	execs, err = suite.book.SubmitOrder(marketOrder("mkt", "AAPL", types.OrderSideSell, 50))
	suite.Require().NoError(err)
	suite.Require().Len(execs, 1)
	suite.Equal(15.0, execs[0].ExecutedQty)

	// The unfilled market remainder must not rest.
	bid, _ = suite.book.GetBestBidAsk()
	suite.True(bid.IsNone())
}

func (suite *OrderBookTestSuite) TestSubmitOrderLimitNoCrossRests() {
	execs, err := suite.book.SubmitOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 95))
	suite.Require().NoError(err)
	suite.Empty(execs)
	suite.Equal(1, suite.book.OrderCount())
}

func (suite *OrderBookTestSuite) TestCancelOrder() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 100)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b2", "AAPL", types.OrderSideBuy, 10, 100)))

	suite.True(suite.book.CancelOrder("b1"))
	suite.False(suite.book.CancelOrder("b1"))
	suite.False(suite.book.CancelOrder("unknown"))

	snapshot, err := suite.book.GetSnapshot(5)
	suite.Require().NoError(err)
	suite.Require().Len(snapshot.Bids, 1)
	suite.Equal(10.0, snapshot.Bids[0].Size)
	suite.Equal(1, snapshot.Bids[0].OrderCount)
}

func (suite *OrderBookTestSuite) TestCancelLastOrderRemovesLevel() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 100)))

	suite.True(suite.book.CancelOrder("b1"))

	bid, _ := suite.book.GetBestBidAsk()
	suite.True(bid.IsNone())
	suite.Equal(0, suite.book.OrderCount())
}

func (suite *OrderBookTestSuite) TestUpdateOrderQuantity() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 100)))

	suite.True(suite.book.UpdateOrder("b1", 25, optional.None[float64]()))

	snapshot, err := suite.book.GetSnapshot(1)
	suite.Require().NoError(err)
	suite.Equal(25.0, snapshot.Bids[0].Size)

	suite.False(suite.book.UpdateOrder("b1", 0, optional.None[float64]()))
	suite.False(suite.book.UpdateOrder("unknown", 5, optional.None[float64]()))
}

// Changing price re-queues the order behind existing orders at the new level.
func (suite *OrderBookTestSuite) TestUpdateOrderPriceLosesPriority() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b1", "AAPL", types.OrderSideBuy, 10, 100)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("b2", "AAPL", types.OrderSideBuy, 10, 99)))

	suite.True(suite.book.UpdateOrder("b1", 10, optional.Some(99.0)))

	execs, err := suite.book.SubmitOrder(marketOrder("taker", "AAPL", types.OrderSideSell, 10))
	suite.Require().NoError(err)
	suite.Require().Len(execs, 1)
	suite.Equal("b2", execs[0].CounterPartyID)
}

func (suite *OrderBookTestSuite) TestSnapshotDepthLimit() {
	for i := 0; i < 5; i++ {
		price := 100.0 - float64(i)
		suite.Require().NoError(suite.book.AddOrder(limitOrder(fmt.Sprintf("b%d", i), "AAPL", types.OrderSideBuy, 10, price)))
	}

	snapshot, err := suite.book.GetSnapshot(1)
	suite.Require().NoError(err)
	suite.Require().Len(snapshot.Bids, 1)
	suite.Equal(100.0, snapshot.Bids[0].Price)

	snapshot, err = suite.book.GetSnapshot(3)
	suite.Require().NoError(err)
	suite.Len(snapshot.Bids, 3)
	suite.Equal([]float64{100, 99, 98}, []float64{snapshot.Bids[0].Price, snapshot.Bids[1].Price, snapshot.Bids[2].Price})
}

func (suite *OrderBookTestSuite) TestSnapshotInvalidDepth() {
	_, err := suite.book.GetSnapshot(0)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidDepth))

	_, err = suite.book.GetSnapshot(-3)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidDepth))
}

func (suite *OrderBookTestSuite) TestSnapshotAggregatesLevel() {
	suite.Require().NoError(suite.book.AddOrder(limitOrder("a1", "AAPL", types.OrderSideSell, 10, 100)))
	suite.Require().NoError(suite.book.AddOrder(limitOrder("a2", "AAPL", types.OrderSideSell, 15, 100)))

	snapshot, err := suite.book.GetSnapshot(5)
	suite.Require().NoError(err)
	suite.Require().Len(snapshot.Asks, 1)
	suite.Equal(25.0, snapshot.Asks[0].Size)
	suite.Equal(2, snapshot.Asks[0].OrderCount)
}

func TestOrderBookTestSuite(t *testing.T) {
	suite.Run(t, new(OrderBookTestSuite))
}

func TestRegistryGetOrCreate(t *testing.T) {
	registry := NewRegistry(logger.NewNopLogger())

	book := registry.GetOrCreate("AAPL")
	assert.Same(t, book, registry.GetOrCreate("AAPL"))

	got, err := registry.Get("AAPL")
	assert.NoError(t, err)
	assert.Same(t, book, got)

	_, err = registry.Get("GOOGL")
	assert.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeBookNotFound))

	registry.GetOrCreate("GOOGL")
	assert.ElementsMatch(t, []string{"AAPL", "GOOGL"}, registry.Symbols())
	assert.Len(t, registry.Quotes(), 2)
}
