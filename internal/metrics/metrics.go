// Package metrics exposes prometheus collectors for the trading core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersTotal counts order lifecycle transitions by action.
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_orders_total",
			Help: "Total number of orders by action",
		},
		[]string{"action", "symbol"},
	)

	// TradesTotal counts trades produced by book matching.
	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_trades_total",
			Help: "Total number of matched trades by symbol",
		},
		[]string{"symbol"},
	)

	// OrderBookDepth tracks the number of price levels per book side.
	OrderBookDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "exchange_orderbook_depth",
			Help: "Current order book depth in price levels",
		},
		[]string{"symbol", "side"},
	)

	// FeedCyclesTotal counts feed update cycles by data source mode.
	FeedCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_feed_cycles_total",
			Help: "Total number of market data update cycles by mode",
		},
		[]string{"mode"},
	)

	// FeedErrorsTotal counts failed live fetch attempts.
	FeedErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_feed_errors_total",
			Help: "Total number of failed live market data fetches",
		},
	)

	// FeedFallbacksTotal counts cycles served by synthetic fallback while in live mode.
	FeedFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_feed_fallbacks_total",
			Help: "Total number of live cycles that fell back to synthetic data",
		},
	)

	// CallbackErrorsTotal counts subscriber callbacks that panicked or returned an error.
	CallbackErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_callback_errors_total",
			Help: "Total number of failed market data callbacks",
		},
	)
)
