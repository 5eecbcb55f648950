package engine

import (
	"fmt"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

type TradingEngineTestSuite struct {
	suite.Suite
	engine *TradingEngine
}

func (suite *TradingEngineTestSuite) SetupTest() {
	suite.engine = NewTradingEngine(logger.NewNopLogger())
}

func (suite *TradingEngineTestSuite) limitBuy(symbol string, qty, price float64) string {
	orderID, err := suite.engine.CreateOrder(types.OrderRequest{
		Symbol:    symbol,
		Side:      types.OrderSideBuy,
		Quantity:  qty,
		OrderType: types.OrderTypeLimit,
		Price:     optional.Some(price),
	})
	suite.Require().NoError(err)

	return orderID
}

func (suite *TradingEngineTestSuite) TestCreateOrder() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)
	suite.NotEmpty(orderID)

	order, ok := suite.engine.GetOrder(orderID)
	suite.Require().True(ok)
	suite.Equal("AAPL", order.Symbol)
	suite.Equal(types.OrderSideBuy, order.Side)
	suite.Equal(types.OrderStatusPending, order.Status)
	suite.Equal(0.0, order.FilledQuantity)
	suite.Equal(150.0, order.LimitPrice())
}

func (suite *TradingEngineTestSuite) TestCreateOrderUniqueIDs() {
	seen := make(map[string]bool)

	for i := 0; i < 50; i++ {
		orderID := suite.limitBuy("AAPL", 10, 100.0)
		suite.False(seen[orderID])
		seen[orderID] = true
	}
}

func (suite *TradingEngineTestSuite) TestCreateOrderLimitRequiresPrice() {
	for _, symbol := range []string{"AAPL", "GOOGL", "X"} {
		for _, qty := range []float64{1, 100, 0.5} {
			_, err := suite.engine.CreateOrder(types.OrderRequest{
				Symbol:    symbol,
				Side:      types.OrderSideSell,
				Quantity:  qty,
				OrderType: types.OrderTypeLimit,
			})
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeMissingLimitPrice))
		}
	}
}

func (suite *TradingEngineTestSuite) TestCreateOrderInvalidQuantity() {
	for _, qty := range []float64{0, -1, -0.001} {
		_, err := suite.engine.CreateOrder(types.OrderRequest{
			Symbol:    "AAPL",
			Side:      types.OrderSideBuy,
			Quantity:  qty,
			OrderType: types.OrderTypeMarket,
		})
		suite.Require().Error(err)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidQuantity))
	}
}

func (suite *TradingEngineTestSuite) TestCreateOrderFloorsToLotPrecision() {
	orderID, err := suite.engine.CreateOrder(types.OrderRequest{
		Symbol:    "AAPL",
		Side:      types.OrderSideBuy,
		Quantity:  1.23456789,
		OrderType: types.OrderTypeMarket,
	})
	suite.Require().NoError(err)

	order, ok := suite.engine.GetOrder(orderID)
	suite.Require().True(ok)
	suite.Equal(1.234567, order.Quantity)
}

func (suite *TradingEngineTestSuite) TestCreateOrderBelowLotPrecision() {
	_, err := suite.engine.CreateOrder(types.OrderRequest{
		Symbol:    "AAPL",
		Side:      types.OrderSideBuy,
		Quantity:  1e-8,
		OrderType: types.OrderTypeMarket,
	})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidQuantity))
}

func (suite *TradingEngineTestSuite) TestExecuteOrderPartialThenFull() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)

	suite.True(suite.engine.ExecuteOrder(orderID, 149.5, 40))

	order, _ := suite.engine.GetOrder(orderID)
	suite.Equal(types.OrderStatusPartiallyFilled, order.Status)
	suite.Equal(40.0, order.FilledQuantity)
	suite.Equal(60.0, order.RemainingQuantity())

	suite.True(suite.engine.ExecuteOrder(orderID, 149.0, 60))

	order, _ = suite.engine.GetOrder(orderID)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal(100.0, order.FilledQuantity)
}

func (suite *TradingEngineTestSuite) TestExecuteOrderOverfillRejected() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)

	suite.False(suite.engine.ExecuteOrder(orderID, 150.0, 101))
	suite.False(suite.engine.ExecuteOrder(orderID, 150.0, 0))
	suite.False(suite.engine.ExecuteOrder(orderID, 150.0, -5))

	order, _ := suite.engine.GetOrder(orderID)
	suite.Equal(0.0, order.FilledQuantity)
	suite.Equal(types.OrderStatusPending, order.Status)
}

// Fills applied in any order never push FilledQuantity above Quantity, and it
// never decreases.
func (suite *TradingEngineTestSuite) TestExecuteOrderMonotoneFill() {
	orderID := suite.limitBuy("AAPL", 10, 50.0)

	attempts := []float64{3, -1, 4, 9, 2, 0, 1, 5}
	prev := 0.0

	for _, qty := range attempts {
		suite.engine.ExecuteOrder(orderID, 50.0, qty)

		order, _ := suite.engine.GetOrder(orderID)
		suite.GreaterOrEqual(order.FilledQuantity, prev)
		suite.LessOrEqual(order.FilledQuantity, order.Quantity)
		prev = order.FilledQuantity
	}

	order, _ := suite.engine.GetOrder(orderID)
	suite.Equal(10.0, order.FilledQuantity)
	suite.Equal(types.OrderStatusFilled, order.Status)

	// Terminal orders reject further fills.
	suite.False(suite.engine.ExecuteOrder(orderID, 50.0, 1))
}

func (suite *TradingEngineTestSuite) TestCancelOrder() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)

	suite.True(suite.engine.CancelOrder(orderID))

	order, _ := suite.engine.GetOrder(orderID)
	suite.Equal(types.OrderStatusCancelled, order.Status)

	// Second cancel must report failure.
	suite.False(suite.engine.CancelOrder(orderID))
}

func (suite *TradingEngineTestSuite) TestCancelPartiallyFilledKeepsFill() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)
	suite.True(suite.engine.ExecuteOrder(orderID, 150.0, 30))

	suite.True(suite.engine.CancelOrder(orderID))

	order, _ := suite.engine.GetOrder(orderID)
	suite.Equal(types.OrderStatusCancelled, order.Status)
	suite.Equal(30.0, order.FilledQuantity)
}

func (suite *TradingEngineTestSuite) TestCancelFilledOrderFails() {
	orderID := suite.limitBuy("AAPL", 10, 150.0)
	suite.True(suite.engine.ExecuteOrder(orderID, 150.0, 10))

	suite.False(suite.engine.CancelOrder(orderID))
}

func (suite *TradingEngineTestSuite) TestRejectOrder() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)

	suite.True(suite.engine.RejectOrder(orderID))

	order, _ := suite.engine.GetOrder(orderID)
	suite.Equal(types.OrderStatusRejected, order.Status)
}

func (suite *TradingEngineTestSuite) TestRejectPartiallyFilledFails() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)
	suite.True(suite.engine.ExecuteOrder(orderID, 150.0, 10))

	suite.False(suite.engine.RejectOrder(orderID))
}

func (suite *TradingEngineTestSuite) TestUnknownOrderOperations() {
	suite.False(suite.engine.ExecuteOrder("nope", 100.0, 1))
	suite.False(suite.engine.CancelOrder("nope"))
	suite.False(suite.engine.RejectOrder("nope"))

	_, ok := suite.engine.GetOrder("nope")
	suite.False(ok)
}

func (suite *TradingEngineTestSuite) TestGetActiveOrders() {
	a := suite.limitBuy("AAPL", 100, 150.0)
	b := suite.limitBuy("AAPL", 50, 151.0)
	c := suite.limitBuy("GOOGL", 10, 2800.0)

	suite.engine.CancelOrder(b)

	all := suite.engine.GetActiveOrders("")
	suite.Len(all, 2)

	aapl := suite.engine.GetActiveOrders("AAPL")
	suite.Require().Len(aapl, 1)
	suite.Equal(a, aapl[0].OrderID)

	googl := suite.engine.GetActiveOrders("GOOGL")
	suite.Require().Len(googl, 1)
	suite.Equal(c, googl[0].OrderID)
}

func (suite *TradingEngineTestSuite) TestGetOrdersFilter() {
	suite.limitBuy("AAPL", 100, 150.0)
	sellID, err := suite.engine.CreateOrder(types.OrderRequest{
		Symbol:    "AAPL",
		Side:      types.OrderSideSell,
		Quantity:  20,
		OrderType: types.OrderTypeMarket,
	})
	suite.Require().NoError(err)
	suite.engine.CancelOrder(sellID)

	cancelled := suite.engine.GetOrders(OrderFilter{Status: types.OrderStatusCancelled})
	suite.Require().Len(cancelled, 1)
	suite.Equal(sellID, cancelled[0].OrderID)

	buys := suite.engine.GetOrders(OrderFilter{Symbol: "AAPL", Side: types.OrderSideBuy})
	suite.Len(buys, 1)
}

// GetOrder returns a copy; mutating it must not affect the registry.
func (suite *TradingEngineTestSuite) TestGetOrderReturnsCopy() {
	orderID := suite.limitBuy("AAPL", 100, 150.0)

	order, _ := suite.engine.GetOrder(orderID)
	order.FilledQuantity = 99
	order.Status = types.OrderStatusFilled

	fresh, _ := suite.engine.GetOrder(orderID)
	suite.Equal(0.0, fresh.FilledQuantity)
	suite.Equal(types.OrderStatusPending, fresh.Status)
}

func (suite *TradingEngineTestSuite) TestConcurrentExecution() {
	orderID := suite.limitBuy("AAPL", 1000, 150.0)

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				suite.engine.ExecuteOrder(orderID, 150.0, 1)
			}

			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	order, _ := suite.engine.GetOrder(orderID)
	suite.Equal(1000.0, order.FilledQuantity)
	suite.Equal(types.OrderStatusFilled, order.Status)
}

func TestTradingEngineTestSuite(t *testing.T) {
	suite.Run(t, new(TradingEngineTestSuite))
}

func TestOrderFilterZeroValueMatchesAll(t *testing.T) {
	engine := NewTradingEngine(logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		_, err := engine.CreateOrder(types.OrderRequest{
			Symbol:    fmt.Sprintf("SYM%d", i),
			Side:      types.OrderSideBuy,
			Quantity:  1,
			OrderType: types.OrderTypeMarket,
		})
		assert.NoError(t, err)
	}

	assert.Len(t, engine.GetOrders(OrderFilter{}), 3)
}
