package transport

import (
	"errors"
	"net/http"

	"tit-pharmacy/internal/catalog"
	"tit-pharmacy/internal/domain"
	"tit-pharmacy/internal/middleware"
	"tit-pharmacy/internal/query"
	"tit-pharmacy/internal/submission"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListingQuery holds the listing filters taken from the query string. The
// length bounds apply to the JSON API only.
type ListingQuery struct {
	Search   string `query:"q" validate:"max=200"`
	Category string `query:"category" validate:"max=100"`
}

func listingQueryFrom(r *http.Request) ListingQuery {
	q := r.URL.Query()
	return ListingQuery{
		Search:   q.Get("q"),
		Category: q.Get("category"),
	}
}

// ProductListResponse represents the derived product view
type ProductListResponse struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
}

// CategoryListResponse represents the category options
type CategoryListResponse struct {
	Categories []string `json:"categories"`
}

// CatalogHandler serves the catalog as JSON
type CatalogHandler struct {
	store    *catalog.Store
	engine   *query.Engine
	pipeline *submission.Pipeline
	logger   *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(store *catalog.Store, engine *query.Engine, pipeline *submission.Pipeline, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		store:    store,
		engine:   engine,
		pipeline: pipeline,
		logger:   logger,
	}
}

// RegisterRoutes registers the JSON API. limit wraps the write routes.
func (h *CatalogHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/categories", h.ListCategories)
		r.With(limit).Post("/products", h.CreateProduct)
	})
}

// ListProducts returns the products matching q and category, sorted by name
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := listingQueryFrom(r)
	if err := middleware.ValidateRequest(params); err != nil {
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return
	}

	snap := h.store.Snapshot()
	products := h.engine.Derive(snap.Products, query.Filter{
		Search:   params.Search,
		Category: params.Category,
	})

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Total:    len(products),
	})
}

// ListCategories returns the category options
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, CategoryListResponse{
		Categories: h.store.Snapshot().Categories,
	})
}

// CreateProduct validates a draft and appends it to the catalog
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var draft submission.Draft
	if err := middleware.DecodeJSON(r, &draft); err != nil {
		h.logger.Debug("Create product decode failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.pipeline.Submit(r.Context(), draft)
	if err != nil {
		var verr *submission.ValidationError
		if errors.As(err, &verr) {
			middleware.RespondWithFieldErrors(w, verr.Fields)
			return
		}

		h.logger.Error("Create product failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, product)
}
