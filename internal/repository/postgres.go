package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/samantaanjo/go_storefront/internal/domain"
	"github.com/samantaanjo/go_storefront/internal/pricing"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// --- cart ---

func (r *Repository) Items(ctx context.Context, owner string) ([]domain.CartItem, error) {
	query := `SELECT owner, product_id, quantity, unit_price, added_at
	          FROM cart_items WHERE owner = $1 ORDER BY added_at, product_id`

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	return scanCartItems(rows)
}

func (r *Repository) AddItem(ctx context.Context, item domain.CartItem) error {
	// Quantity accumulates on a second add of the same product; the unit
	// price recorded at first add sticks.
	query := `INSERT INTO cart_items (owner, product_id, quantity, unit_price, added_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (owner, product_id)
	          DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	_, err := r.db.ExecContext(ctx, query,
		item.Owner,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.AddedAt)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (r *Repository) RemoveItem(ctx context.Context, owner string, productID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE owner = $1 AND product_id = $2`,
		owner, productID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart item rows affected: %w", err)
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) DeleteCart(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func (r *Repository) MergeCarts(ctx context.Context, anonOwner, authOwner string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback()

	// Lock both carts so a concurrent add for either owner serializes
	// behind the merge.
	rows, err := tx.QueryContext(ctx,
		`SELECT owner, product_id, quantity, unit_price, added_at
		 FROM cart_items WHERE owner = ANY($1) ORDER BY product_id FOR UPDATE`,
		pq.Array([]string{anonOwner, authOwner}))
	if err != nil {
		return fmt.Errorf("lock carts for merge: %w", err)
	}
	all, err := scanCartItems(rows)
	rows.Close()
	if err != nil {
		return err
	}

	var anonItems, authItems []domain.CartItem
	for _, it := range all {
		if it.Owner == anonOwner {
			anonItems = append(anonItems, it)
		} else {
			authItems = append(authItems, it)
		}
	}
	if len(anonItems) == 0 {
		// Nothing to merge; calling again after a merge is a no-op.
		return tx.Commit()
	}

	merged := domain.MergeCarts(anonItems, authItems, authOwner)

	// Delete only the rows the FOR UPDATE select saw. An owner-wide delete
	// would also remove a row a concurrent add committed after our
	// statement snapshot, losing it without it ever entering the merge.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE owner = $1 AND product_id = ANY($2)`,
		anonOwner, pq.Array(productIDs(anonItems))); err != nil {
		return fmt.Errorf("clear anonymous cart for merge: %w", err)
	}
	if len(authItems) > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM cart_items WHERE owner = $1 AND product_id = ANY($2)`,
			authOwner, pq.Array(productIDs(authItems))); err != nil {
			return fmt.Errorf("clear authenticated cart for merge: %w", err)
		}
	}
	if err := insertCartItems(ctx, tx, merged); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge tx: %w", err)
	}
	return nil
}

// --- products ---

func (r *Repository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, price FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return &p, nil
}

// --- orders ---

func (r *Repository) CommitOrder(
	ctx context.Context,
	po *domain.PendingOrder,
	capturedTotal decimal.Decimal,
	currency, confirmationID string) (*domain.Order, error) {

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit tx: %w", err)
	}
	defer tx.Rollback()

	// Row locks on the buyer's cart serialize concurrent commits and any
	// concurrent cart mutation for this identity.
	rows, err := tx.QueryContext(ctx,
		`SELECT owner, product_id, quantity, unit_price, added_at
		 FROM cart_items WHERE owner = $1 ORDER BY product_id FOR UPDATE`,
		po.Buyer)
	if err != nil {
		return nil, fmt.Errorf("lock cart for commit: %w", err)
	}
	items, err := scanCartItems(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	// The snapshot total is only the amount authorized for capture; lines
	// come from the live cart. If the cart changed since the total was
	// authorized, abort rather than record an order that doesn't match the
	// charge.
	liveTotal := pricing.Total(items)
	if !liveTotal.Equal(capturedTotal) {
		return nil, ErrTotalDiverged
	}

	order := &domain.Order{
		ID:             uuid.New(),
		PendingOrderID: po.ID,
		Buyer:          po.Buyer,
		Shipping:       po.Shipping,
		Total:          liveTotal,
		Currency:       currency,
		ConfirmationID: confirmationID,
		OrderDate:      time.Now().UTC(),
	}

	insertOrder := `INSERT INTO orders
	    (id, pending_order_id, buyer, first_name, last_name, address, city, province, postal_code, phone,
	     total, currency, confirmation_id, order_date)
	    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := tx.ExecContext(ctx, insertOrder,
		order.ID,
		order.PendingOrderID,
		order.Buyer,
		order.Shipping.FirstName,
		order.Shipping.LastName,
		order.Shipping.Address,
		order.Shipping.City,
		order.Shipping.Province,
		order.Shipping.PostalCode,
		order.Shipping.Phone,
		order.Total,
		order.Currency,
		order.ConfirmationID,
		order.OrderDate); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateCommit
		}
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, it := range items {
		line := domain.OrderLine{
			OrderID:   order.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)`,
			line.OrderID, line.ProductID, line.Quantity, line.UnitPrice); err != nil {
			return nil, fmt.Errorf("insert order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}

	// Delete exactly the rows that became order lines. A row inserted by a
	// concurrent add after our statement snapshot was never priced or
	// charged; it must survive in the cart.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cart_items WHERE owner = $1 AND product_id = ANY($2)`,
		po.Buyer, pq.Array(productIDs(items))); err != nil {
		return nil, fmt.Errorf("clear cart on commit: %w", err)
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload)
		 VALUES ($1, $2, $3)`,
		order.ID.String(), "order-committed", payload); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order tx: %w", err)
	}
	return order, nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, `WHERE id = $1`, id)
}

func (r *Repository) GetOrderByPendingOrderID(ctx context.Context, pendingOrderID uuid.UUID) (*domain.Order, error) {
	return r.getOrder(ctx, `WHERE pending_order_id = $1`, pendingOrderID)
}

func (r *Repository) getOrder(ctx context.Context, where string, arg any) (*domain.Order, error) {
	query := `SELECT id, pending_order_id, buyer, first_name, last_name, address, city, province,
	                 postal_code, phone, total, currency, confirmation_id, order_date
	          FROM orders ` + where

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&order.ID,
		&order.PendingOrderID,
		&order.Buyer,
		&order.Shipping.FirstName,
		&order.Shipping.LastName,
		&order.Shipping.Address,
		&order.Shipping.City,
		&order.Shipping.Province,
		&order.Shipping.PostalCode,
		&order.Shipping.Phone,
		&order.Total,
		&order.Currency,
		&order.ConfirmationID,
		&order.OrderDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, unit_price
		 FROM order_lines WHERE order_id = $1 ORDER BY product_id`,
		order.ID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &order, nil
}

// --- outbox ---

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed = FALSE ORDER BY id LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed = TRUE, processed_at = NOW() WHERE id = $1`,
		id); err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCartItems(rows rowScanner) ([]domain.CartItem, error) {
	var items []domain.CartItem
	for rows.Next() {
		var it domain.CartItem
		if err := rows.Scan(&it.Owner, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func insertCartItems(ctx context.Context, tx *sql.Tx, items []domain.CartItem) error {
	// Upsert: a concurrent add may have created the same (owner, product)
	// row after our locks were taken; its quantity accumulates instead of
	// being lost to a key conflict.
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cart_items (owner, product_id, quantity, unit_price, added_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (owner, product_id)
			 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
			it.Owner, it.ProductID, it.Quantity, it.UnitPrice, it.AddedAt); err != nil {
			return fmt.Errorf("insert merged cart item: %w", err)
		}
	}
	return nil
}

func productIDs(items []domain.CartItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
