package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/insider-one/order-confirmation-service/internal/domain"
)

// OrderRepository implements domain.OrderRepository using PostgreSQL
type OrderRepository struct {
	db *DB
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	o.id, o.order_number, o.customer_id, o.total_amount, o.status,
	o.paid_at, o.transaction_ref, o.created_at, o.updated_at,
	c.id, c.name, c.email, c.phone,
	cur.id, cur.code, cur.symbol
`

// FindByID loads an order with its customer, currency, items, billing
// profile and linked account. All reads run inside one read-only
// transaction so the caller sees a single consistent snapshot.
func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		LEFT JOIN currencies cur ON cur.id = o.currency_id
		WHERE o.id = $1
	`, orderColumns)

	return r.loadOrder(ctx, query, id)
}

// FindLatestPaid returns the most recently paid order, fully loaded
func (r *OrderRepository) FindLatestPaid(ctx context.Context) (*domain.Order, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		LEFT JOIN currencies cur ON cur.id = o.currency_id
		WHERE o.status = 'paid'
		ORDER BY o.paid_at DESC NULLS LAST
		LIMIT 1
	`, orderColumns)

	return r.loadOrder(ctx, query)
}

func (r *OrderRepository) loadOrder(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	if order.Items, err = r.loadItems(ctx, tx, order.ID); err != nil {
		return nil, err
	}
	if order.BillingProfile, err = r.loadBillingProfile(ctx, tx, order.ID); err != nil {
		return nil, err
	}
	if order.LinkedAccount, err = r.loadLinkedAccount(ctx, tx, order.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}

	return order, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	o := &domain.Order{Customer: &domain.Customer{}}

	var (
		curID     *int64
		curCode   *string
		curSymbol *string
	)

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.TotalAmount, &o.Status,
		&o.PaidAt, &o.TransactionRef, &o.CreatedAt, &o.UpdatedAt,
		&o.Customer.ID, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&curID, &curCode, &curSymbol,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if curID != nil {
		o.Currency = &domain.Currency{ID: *curID, Code: *curCode}
		if curSymbol != nil {
			o.Currency.Symbol = *curSymbol
		}
	}

	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]domain.OrderItem, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, order_id, product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func (r *OrderRepository) loadBillingProfile(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.BillingProfile, error) {
	bp := &domain.BillingProfile{}
	err := tx.QueryRow(ctx, `
		SELECT id, order_id, tax_id, organization
		FROM billing_profiles
		WHERE order_id = $1
	`, orderID).Scan(&bp.ID, &bp.OrderID, &bp.TaxID, &bp.Organization)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan billing profile: %w", err)
	}
	return bp, nil
}

func (r *OrderRepository) loadLinkedAccount(ctx context.Context, tx pgx.Tx, orderID int64) (*domain.LinkedAccount, error) {
	la := &domain.LinkedAccount{}
	err := tx.QueryRow(ctx, `
		SELECT id, order_id, domain
		FROM linked_accounts
		WHERE order_id = $1
	`, orderID).Scan(&la.ID, &la.OrderID, &la.Domain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan linked account: %w", err)
	}
	return la, nil
}
