package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"tit-pharmacy/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Source kinds accepted in CATALOG_SOURCE
const (
	SourceFile     = "file"
	SourceHTTP     = "http"
	SourcePostgres = "postgres"
)

var (
	ErrUnknownSource = errors.New("unknown catalog source")
)

// NewSource builds the source named by cfg. db is required for the postgres
// source. When client is set and cfg.CacheTTL is positive the source is
// wrapped in a Redis document cache.
func NewSource(cfg config.CatalogConfig, db *sql.DB, client *redis.Client, logger *zap.Logger) (Source, error) {
	var src Source

	switch cfg.Source {
	case SourceFile, "":
		src = NewFileSource(cfg.Path)
	case SourceHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("http catalog source needs CATALOG_URL")
		}
		src = NewHTTPSource(cfg.URL, cfg.FetchTimeout)
	case SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres catalog source needs a database connection")
		}
		src = NewPostgresSource(db)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}

	if client != nil && cfg.CacheTTL > 0 {
		src = NewCachedSource(src, client, cfg.CacheTTL, logger)
	}
	return src, nil
}
