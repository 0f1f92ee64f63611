package submission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tit-pharmacy/internal/domain"
	"tit-pharmacy/internal/metrics"

	"go.uber.org/zap"
)

var (
	// ErrValidation marks a draft rejected by the schema
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries the per-field messages of a rejected draft
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed for %s", strings.Join(fields, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Catalog is the part of the catalog store the pipeline writes to
type Catalog interface {
	Insert(build func(nextID int) domain.Product) domain.Product
}

// Pipeline validates drafts and commits them to the catalog
type Pipeline struct {
	catalog Catalog
	schema  *Schema
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithSchema replaces the default product schema
func WithSchema(s *Schema) PipelineOption {
	return func(p *Pipeline) {
		p.schema = s
	}
}

func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// NewPipeline creates a pipeline writing to catalog
func NewPipeline(catalog Catalog, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		catalog: catalog,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.schema == nil {
		p.schema = DefaultSchema()
	}
	return p
}

// Submit validates d and, if every field passes, appends a product whose id
// is the catalog length plus one. A rejected draft leaves the catalog as is
// and returns a *ValidationError.
func (p *Pipeline) Submit(ctx context.Context, d Draft) (domain.Product, error) {
	if errs := p.schema.Validate(ctx, d); len(errs) > 0 {
		p.metrics.RecordSubmission("rejected")
		p.logger.Debug("Product draft rejected", zap.Any("fields", errs))
		return domain.Product{}, &ValidationError{Fields: errs}
	}

	product, err := Parse(d)
	if err != nil {
		// The schema accepted what Parse cannot read; treat it as a rejection
		p.metrics.RecordSubmission("rejected")
		return domain.Product{}, &ValidationError{Fields: FieldErrors{"draft": err.Error()}}
	}

	committed := p.catalog.Insert(func(nextID int) domain.Product {
		product.ID = nextID
		return product
	})

	p.metrics.RecordSubmission("committed")
	p.logger.Info("Product added",
		zap.Int("id", committed.ID),
		zap.String("code", committed.Code),
		zap.String("category", committed.Category),
	)
	return committed, nil
}
