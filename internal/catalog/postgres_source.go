package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"tit-pharmacy/internal/domain"
)

// PostgresSource reads the seed catalog from the catalog_products and
// catalog_categories tables. It never writes; submitted products live only in
// the Store.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a source over an open database handle
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string { return "postgres" }

// Fetch reads both tables
func (s *PostgresSource) Fetch(ctx context.Context) (domain.Document, error) {
	products, err := s.products(ctx)
	if err != nil {
		return domain.Document{}, err
	}

	categories, err := s.categories(ctx)
	if err != nil {
		return domain.Document{}, err
	}

	return domain.Document{Products: products, Categories: categories}, nil
}

func (s *PostgresSource) products(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, code, name, COALESCE(description, ''), category, price, quantity, date_added
		FROM catalog_products
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seed products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		err := rows.Scan(
			&p.ID,
			&p.Code,
			&p.Name,
			&p.Description,
			&p.Category,
			&p.Price,
			&p.Quantity,
			&p.DateAdded.Time,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seed product: %w", err)
		}
		p.DateAdded = domain.NewDate(p.DateAdded.Time)
		products = append(products, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seed products: %w", err)
	}

	return products, nil
}

func (s *PostgresSource) categories(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM catalog_categories
		ORDER BY position ASC, name ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seed categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan seed category: %w", err)
		}
		categories = append(categories, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seed categories: %w", err)
	}

	return categories, nil
}
