// Package query derives the listing view of the catalog: a filtered copy of
// the products ordered by name under the collation rules of a locale.
package query

import (
	"slices"
	"strings"

	"tit-pharmacy/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLocale is the collation locale of the catalog
var DefaultLocale = language.Vietnamese

// Filter holds the listing inputs chosen by the user
type Filter struct {
	Search   string
	Category string // empty matches every category
}

// Engine derives listing views for one locale
type Engine struct {
	Locale language.Tag
}

// NewEngine parses the BCP 47 locale, falling back to DefaultLocale
func NewEngine(locale string) *Engine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = DefaultLocale
	}
	return &Engine{Locale: tag}
}

// Derive applies f to products
func (e *Engine) Derive(products []domain.Product, f Filter) []domain.Product {
	return Derive(products, f.Search, f.Category, e.Locale)
}

// Derive keeps the products whose name contains search case-insensitively and
// whose category equals category exactly (when category is non-empty), sorted
// by name. The result is a new slice; products is not modified.
func Derive(products []domain.Product, search, category string, locale language.Tag) []domain.Product {
	needle := strings.ToLower(search)

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, p)
	}

	// A Collator keeps internal buffers, so each call gets its own.
	c := collate.New(locale)
	slices.SortStableFunc(out, func(a, b domain.Product) int {
		return c.CompareString(a.Name, b.Name)
	})
	return out
}

// Compare orders two names the way Derive does
func Compare(locale language.Tag, a, b string) int {
	return collate.New(locale).CompareString(a, b)
}
