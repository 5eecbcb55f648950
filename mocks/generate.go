package mocks

//go:generate mockgen -destination=./mock_quote_provider.go -package=mocks github.com/rxtech-lab/argo-exchange/internal/marketdata/provider QuoteProvider
