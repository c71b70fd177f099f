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

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Create(customer domain.Customer) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	customer.UpdatedAt = customer.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, city, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		customer.ID, customer.Name, customer.Email, customer.Phone, customer.City,
		customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
		return domain.Customer{}, domain.NewDataAccessError("insert customer", err)
	}

	return customer, nil
}

func (r *customerRepository) Get(id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, city, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id))
}

func (r *customerRepository) GetByEmail(email string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, city, created_at, updated_at
		FROM customers
		WHERE email = $1
	`, email))
}

func (r *customerRepository) Update(id string, fields domain.CustomerUpdate) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	set := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if fields.Phone != nil {
		args = append(args, *fields.Phone)
		set = append(set, fmt.Sprintf("phone = $%d", len(args)))
	}
	if fields.City != nil {
		args = append(args, *fields.City)
		set = append(set, fmt.Sprintf("city = $%d", len(args)))
	}
	if len(set) == 0 {
		return domain.Customer{}, domain.ErrNoFieldsToUpdate
	}

	args = append(args, time.Now().UTC())
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE customers
		SET %s
		WHERE id = $%d
		RETURNING id, name, email, phone, city, created_at, updated_at
	`, strings.Join(set, ", "), len(args))

	return r.scanOne(r.db.QueryRowContext(ctx, query, args...))
}

func (r *customerRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return domain.NewDataAccessError("delete customer", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.NewDataAccessError("delete customer rows affected", err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}

func (r *customerRepository) List(limit int) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, name, email, phone, city, created_at, updated_at
		FROM customers
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
		return nil, domain.NewDataAccessError("list customers", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *customerRepository) FindByCity(city string) ([]domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, city, created_at, updated_at
		FROM customers
		WHERE city = $1
		ORDER BY created_at ASC, id ASC
	`, city)
	if err != nil {
		return nil, domain.NewDataAccessError("find customers by city", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

func (r *customerRepository) scanOne(row *sql.Row) (domain.Customer, error) {
	var customer domain.Customer
	err := row.Scan(
		&customer.ID, &customer.Name, &customer.Email, &customer.Phone, &customer.City,
		&customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, domain.NewDataAccessError("select customer", err)
	}
	return customer, nil
}

func (r *customerRepository) scanAll(rows *sql.Rows) ([]domain.Customer, error) {
	customers := make([]domain.Customer, 0)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID, &customer.Name, &customer.Email, &customer.Phone, &customer.City,
			&customer.CreatedAt, &customer.UpdatedAt,
		); err != nil {
			return nil, domain.NewDataAccessError("scan customer row", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewDataAccessError("iterate customer rows", err)
	}

	return customers, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
