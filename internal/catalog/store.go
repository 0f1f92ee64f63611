package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"tit-pharmacy/internal/domain"
	"tit-pharmacy/internal/metrics"

	"go.uber.org/zap"
)

var (
	// ErrFetch marks a data source that was unreachable or returned an unparsable document
	ErrFetch = errors.New("catalog fetch failed")
)

// Snapshot is a read-only copy of the catalog state
type Snapshot struct {
	Products   []domain.Product
	Categories []string
}

// Store owns the in-memory product and category lists.
//
// Products only ever grow: the list is replaced by Load and extended by
// Append/Insert. Nothing is persisted.
type Store struct {
	mu         sync.RWMutex
	products   []domain.Product
	categories []string

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Option configures a Store
type Option func(*Store)

// WithMetrics reports catalog size and fetch failures to m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		products:   []domain.Product{},
		categories: []string{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the catalog with the document fetched from src. A failed fetch
// is logged and leaves the current state untouched; the returned error wraps
// ErrFetch and is safe to ignore.
func (s *Store) Load(ctx context.Context, src Source) error {
	doc, err := src.Fetch(ctx)
	if err != nil {
		s.logger.Error("Error fetching the products",
			zap.String("source", src.Name()),
			zap.Error(err),
		)
		s.metrics.RecordFetchError(src.Name())
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}

	doc = doc.Normalize()

	s.mu.Lock()
	s.products = slices.Clone(doc.Products)
	s.categories = slices.Clone(doc.Categories)
	n := len(s.products)
	s.mu.Unlock()

	s.metrics.SetCatalogSize(n)
	s.logger.Info("Catalog loaded",
		zap.String("source", src.Name()),
		zap.Int("products", n),
		zap.Int("categories", len(doc.Categories)),
	)
	return nil
}

// Append adds p at the end of the list. Codes are not checked for uniqueness.
func (s *Store) Append(p domain.Product) {
	s.mu.Lock()
	s.products = append(s.products, p)
	n := len(s.products)
	s.mu.Unlock()

	s.metrics.SetCatalogSize(n)
}

// Insert builds a product from the id that follows the current length and
// appends it. Reading the length and appending happen under one lock, so the
// id always reflects the catalog as of the commit.
func (s *Store) Insert(build func(nextID int) domain.Product) domain.Product {
	s.mu.Lock()
	p := build(len(s.products) + 1)
	s.products = append(s.products, p)
	n := len(s.products)
	s.mu.Unlock()

	s.metrics.SetCatalogSize(n)
	return p
}

// Snapshot returns copies of the product and category lists
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Products:   slices.Clone(s.products),
		Categories: slices.Clone(s.categories),
	}
}

// Len returns the number of products
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
