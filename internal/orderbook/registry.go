package orderbook

import (
	"sync"

	"github.com/rxtech-lab/argo-exchange/internal/logger"
	"github.com/rxtech-lab/argo-exchange/internal/types"
	"github.com/rxtech-lab/argo-exchange/pkg/errors"
)

// Registry holds one book per symbol, created lazily.
type Registry struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
	log   *logger.Logger
}

// NewRegistry creates an empty book registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		books: make(map[string]*OrderBook),
		log:   log,
	}
}

// GetOrCreate returns the book for the symbol, creating it on first use.
func (r *Registry) GetOrCreate(symbol string) *OrderBook {
	r.mu.RLock()
	book, ok := r.books[symbol]
	r.mu.RUnlock()

	if ok {
		return book
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if book, ok = r.books[symbol]; ok {
		return book
	}

	book = NewOrderBook(symbol, r.log)
	r.books[symbol] = book

	return book
}

// Get returns the book for the symbol, or an error if none exists yet.
func (r *Registry) Get(symbol string) (*OrderBook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	book, ok := r.books[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeBookNotFound, "no order book for symbol %s", symbol)
	}

	return book, nil
}

// Symbols returns the symbols with an existing book.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]string, 0, len(r.books))
	for symbol := range r.books {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// Quotes returns the top-of-book quote for every existing book.
func (r *Registry) Quotes() []types.Quote {
	r.mu.RLock()
	books := make([]*OrderBook, 0, len(r.books))

	for _, book := range r.books {
		books = append(books, book)
	}
	r.mu.RUnlock()

	quotes := make([]types.Quote, 0, len(books))
	for _, book := range books {
		quotes = append(quotes, book.GetQuote())
	}

	return quotes
}
