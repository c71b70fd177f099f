package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
// Остаток товара через репозиторий не изменяется: stock мутирует только
// workflowStore в своих транзакциях.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.UpdatedAt = product.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, price_minor, stock, category, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		product.ID, product.SKU, product.Name, product.PriceMinor, product.Stock,
		product.Category, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Product{}, domain.ErrDuplicateSKU
		}
		return domain.Product{}, domain.NewDataAccessError("insert product", err)
	}

	return product, nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, sku, name, price_minor, stock, category, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id))
}

func (r *productRepository) GetBySKU(sku string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, sku, name, price_minor, stock, category, created_at, updated_at
		FROM products
		WHERE sku = $1
	`, sku))
}

func (r *productRepository) Update(id string, fields domain.ProductUpdate) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if fields.Name != nil {
		args = append(args, *fields.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if fields.PriceMinor != nil {
		args = append(args, *fields.PriceMinor)
		set = append(set, fmt.Sprintf("price_minor = $%d", len(args)))
	}
	if fields.Category != nil {
		args = append(args, *fields.Category)
		set = append(set, fmt.Sprintf("category = $%d", len(args)))
	}
	if len(set) == 0 {
		return domain.Product{}, domain.ErrNoFieldsToUpdate
	}

	args = append(args, time.Now().UTC())
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE products
		SET %s
		WHERE id = $%d
		RETURNING id, sku, name, price_minor, stock, category, created_at, updated_at
	`, strings.Join(set, ", "), len(args))

	return r.scanOne(r.db.QueryRowContext(ctx, query, args...))
}

func (r *productRepository) List(limit int) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, sku, name, price_minor, stock, category, created_at, updated_at
		FROM products
		ORDER BY created_at ASC, id ASC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $1", limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, domain.NewDataAccessError("list products", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.SKU, &product.Name, &product.PriceMinor, &product.Stock,
			&product.Category, &product.CreatedAt, &product.UpdatedAt,
		); err != nil {
			return nil, domain.NewDataAccessError("scan product row", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDataAccessError("iterate product rows", err)
	}

	return products, nil
}

func (r *productRepository) scanOne(row *sql.Row) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.SKU, &product.Name, &product.PriceMinor, &product.Stock,
		&product.Category, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, domain.NewDataAccessError("select product", err)
	}
	return product, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
