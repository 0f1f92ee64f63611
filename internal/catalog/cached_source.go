package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tit-pharmacy/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const documentCacheKey = "catalog:document"

// CachedSource keeps the fetched document in Redis for ttl. Cache errors are
// logged and fall through to the wrapped source.
type CachedSource struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource wraps next with a Redis document cache
func NewCachedSource(next Source, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *CachedSource) Name() string { return s.next.Name() }

// Fetch returns the cached document if present, otherwise fetches and caches it
func (s *CachedSource) Fetch(ctx context.Context) (domain.Document, error) {
	data, err := s.client.Get(ctx, documentCacheKey).Bytes()
	if err == nil {
		var doc domain.Document
		if err := json.Unmarshal(data, &doc); err == nil {
			s.logger.Debug("Catalog cache hit", zap.String("source", s.next.Name()))
			return doc.Normalize(), nil
		}
		s.logger.Warn("Discarding unreadable cached catalog", zap.Error(err))
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("Catalog cache unavailable", zap.Error(err))
	}

	doc, err := s.next.Fetch(ctx)
	if err != nil {
		return domain.Document{}, err
	}

	if err := s.store(ctx, doc); err != nil {
		s.logger.Warn("Failed to cache catalog", zap.Error(err))
	}
	return doc, nil
}

func (s *CachedSource) store(ctx context.Context, doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return s.client.Set(ctx, documentCacheKey, data, s.ttl).Err()
}
