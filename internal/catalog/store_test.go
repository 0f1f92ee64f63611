package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"tit-pharmacy/internal/domain"
	"tit-pharmacy/internal/metrics"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// stubSource returns a fixed document or error
type stubSource struct {
	doc   domain.Document
	err   error
	calls int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) (domain.Document, error) {
	s.calls++
	if s.err != nil {
		return domain.Document{}, s.err
	}
	return s.doc, nil
}

func sampleProduct(id int, name, category string) domain.Product {
	return domain.Product{
		ID:       id,
		Code:     fmt.Sprintf("PROD-%04d", id),
		Name:     name,
		Category: category,
		Price:    decimal.NewFromInt(int64(1000 * id)),
		Quantity: id,
	}
}

func TestStore_LoadReplacesState(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.Append(sampleProduct(1, "Old", "X"))

	src := &stubSource{doc: domain.Document{
		Products:   []domain.Product{sampleProduct(1, "Paracetamol", "Giảm đau"), sampleProduct(2, "Vitamin C", "Vitamin")},
		Categories: []string{"Giảm đau", "Vitamin"},
	}}

	require.NoError(t, store.Load(context.Background(), src))

	snap := store.Snapshot()
	assert.Len(t, snap.Products, 2)
	assert.Equal(t, "Paracetamol", snap.Products[0].Name)
	assert.Equal(t, []string{"Giảm đau", "Vitamin"}, snap.Categories)
}

func TestStore_LoadAbsentFieldsYieldsEmpty(t *testing.T) {
	store := NewStore(zap.NewNop())

	require.NoError(t, store.Load(context.Background(), &stubSource{doc: domain.Document{}}))

	snap := store.Snapshot()
	assert.NotNil(t, snap.Products)
	assert.NotNil(t, snap.Categories)
	assert.Empty(t, snap.Products)
	assert.Empty(t, snap.Categories)
}

func TestStore_FailedLoadIsLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	m := metrics.New("test")
	store := NewStore(zap.New(core), WithMetrics(m))

	err := store.Load(context.Background(), &stubSource{err: errors.New("connection refused")})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "Error fetching the products", logs.All()[0].Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogFetchErrors.WithLabelValues("stub")))
}

// Feature: pharmacy-inventory, Property 2: A failed load leaves the catalog unchanged
func TestProperty_FailedLoadLeavesStateUnchanged(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("products and categories are identical before and after a failed load", prop.ForAll(
		func(names []string, categories []string) bool {
			products := make([]domain.Product, 0, len(names))
			for i, name := range names {
				products = append(products, sampleProduct(i+1, name, "Vitamin"))
			}

			store := NewStore(zap.NewNop())
			if err := store.Load(context.Background(), &stubSource{doc: domain.Document{Products: products, Categories: categories}}); err != nil {
				return false
			}
			before := store.Snapshot()

			err := store.Load(context.Background(), &stubSource{err: errors.New("unexpected end of JSON input")})
			if !errors.Is(err, ErrFetch) {
				return false
			}

			after := store.Snapshot()
			return assert.ObjectsAreEqual(before, after)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestStore_AppendAllowsDuplicateCodes(t *testing.T) {
	store := NewStore(zap.NewNop())

	p := sampleProduct(1, "Paracetamol", "Giảm đau")
	store.Append(p)
	store.Append(p)

	assert.Equal(t, 2, store.Len())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	store := NewStore(zap.NewNop())
	require.NoError(t, store.Load(context.Background(), &stubSource{doc: domain.Document{
		Products:   []domain.Product{sampleProduct(1, "Paracetamol", "Giảm đau")},
		Categories: []string{"Giảm đau"},
	}}))

	snap := store.Snapshot()
	snap.Products[0].Name = "mutated"
	snap.Categories[0] = "mutated"
	snap.Products = append(snap.Products, sampleProduct(2, "extra", "X"))

	again := store.Snapshot()
	assert.Equal(t, "Paracetamol", again.Products[0].Name)
	assert.Equal(t, "Giảm đau", again.Categories[0])
	assert.Len(t, again.Products, 1)
}

func TestStore_LoadDoesNotAliasSourceSlices(t *testing.T) {
	doc := domain.Document{
		Products:   []domain.Product{sampleProduct(1, "Paracetamol", "Giảm đau")},
		Categories: []string{"Giảm đau"},
	}
	store := NewStore(zap.NewNop())
	require.NoError(t, store.Load(context.Background(), &stubSource{doc: doc}))

	doc.Products[0].Name = "mutated"
	assert.Equal(t, "Paracetamol", store.Snapshot().Products[0].Name)
}

func TestStore_InsertAssignsSequentialIDsUnderConcurrency(t *testing.T) {
	store := NewStore(zap.NewNop())
	store.Append(sampleProduct(1, "Seed", "X"))

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Insert(func(nextID int) domain.Product {
				return sampleProduct(nextID, "Concurrent", "X")
			})
		}()
	}
	wg.Wait()

	snap := store.Snapshot()
	require.Len(t, snap.Products, writers+1)
	for i, p := range snap.Products {
		assert.Equal(t, i+1, p.ID)
	}
}

func TestStore_MetricsTrackSize(t *testing.T) {
	m := metrics.New("test")
	store := NewStore(zap.NewNop(), WithMetrics(m))

	store.Append(sampleProduct(1, "A", "X"))
	store.Insert(func(nextID int) domain.Product { return sampleProduct(nextID, "B", "X") })

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogProducts))
}
