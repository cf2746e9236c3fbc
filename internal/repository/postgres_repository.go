package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/models"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

// PostgresStore implements CatalogRepository and OrderRepository on PostgreSQL.
// Numeric columns travel as text so decimals never pass through float64.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPostgresStore connects to databaseURL and verifies the connection
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// RunMigrations applies the SQL migrations found in dir
func (s *PostgresStore) RunMigrations(dir string) error {
	db := stdlib.OpenDBFromPool(s.pool)

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{
		MigrationsTable: "deliverus_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "pgx5", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetRestaurant returns a restaurant by its ID
func (s *PostgresStore) GetRestaurant(ctx context.Context, id int64) (*models.Restaurant, error) {
	var (
		restaurant models.Restaurant
		shipping   string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, shipping_costs::text, user_id
		FROM restaurants
		WHERE id = $1`, id,
	).Scan(&restaurant.ID, &restaurant.Name, &shipping, &restaurant.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query restaurant: %w", err)
	}

	if restaurant.ShippingCosts, err = decimal.NewFromString(shipping); err != nil {
		return nil, fmt.Errorf("parse shipping costs: %w", err)
	}
	return &restaurant, nil
}

// GetProduct returns a product by its ID
func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := scanProduct(s.pool.QueryRow(ctx, `
		SELECT id, restaurant_id, name, price::text, availability
		FROM products
		WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return product, nil
}

// ListProductsByRestaurant returns the products of a restaurant ordered by ID
func (s *PostgresStore) ListProductsByRestaurant(ctx context.Context, restaurantID int64) ([]models.Product, error) {
	if _, err := s.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, restaurant_id, name, price::text, availability
		FROM products
		WHERE restaurant_id = $1
		ORDER BY id`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

// SaveRestaurant inserts or replaces a restaurant
func (s *PostgresStore) SaveRestaurant(ctx context.Context, restaurant models.Restaurant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO restaurants (id, name, shipping_costs, user_id)
		VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, shipping_costs = EXCLUDED.shipping_costs, user_id = EXCLUDED.user_id`,
		restaurant.ID, restaurant.Name, restaurant.ShippingCosts.String(), restaurant.OwnerID)
	if err != nil {
		return fmt.Errorf("upsert restaurant: %w", err)
	}
	return nil
}

// SaveProduct inserts or replaces a product
func (s *PostgresStore) SaveProduct(ctx context.Context, product models.Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, restaurant_id, name, price, availability)
		VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (id) DO UPDATE
		SET restaurant_id = EXCLUDED.restaurant_id, name = EXCLUDED.name,
		    price = EXCLUDED.price, availability = EXCLUDED.availability`,
		product.ID, product.RestaurantID, product.Name, product.Price.String(), product.Availability)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// Create inserts an order with its lines in one transaction and sets its ID
func (s *PostgresStore) Create(ctx context.Context, order *models.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, restaurant_id, address, status, shipping_costs, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $7)
		RETURNING id`,
		order.CustomerID, order.RestaurantID, order.Address, order.Status,
		order.ShippingCosts.String(), order.Price.String(), order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := insertLines(ctx, tx, order.ID, order.Lines); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

// GetByID returns an order with its lines
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, orderColumns+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	lines, err := loadLines(ctx, s.pool, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Lines = lines[order.ID]
	return order, nil
}

// ListByCustomer returns the orders of a customer, newest first
func (s *PostgresStore) ListByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	return s.listOrders(ctx, orderColumns+` WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
}

// ListByRestaurant returns the orders placed at a restaurant, newest first
func (s *PostgresStore) ListByRestaurant(ctx context.Context, restaurantID int64) ([]models.Order, error) {
	return s.listOrders(ctx, orderColumns+` WHERE restaurant_id = $1 ORDER BY created_at DESC, id DESC`, restaurantID)
}

func (s *PostgresStore) listOrders(ctx context.Context, query string, arg int64) ([]models.Order, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	lines, err := loadLines(ctx, s.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

// Update replaces the address, lines and prices of an order still in expected status
func (s *PostgresStore) Update(ctx context.Context, order *models.Order, expected models.OrderStatus) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET address = $1, shipping_costs = $2::numeric, price = $3::numeric, updated_at = $4
		WHERE id = $5 AND status = $6`,
		order.Address, order.ShippingCosts.String(), order.Price.String(), order.UpdatedAt, order.ID, string(expected))
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return missReason(ctx, tx, order.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_products WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	if err := insertLines(ctx, tx, order.ID, order.Lines); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order update: %w", err)
	}

	fresh, err := s.GetByID(ctx, order.ID)
	if err != nil {
		return err
	}
	*order = *fresh
	return nil
}

// UpdateStatus moves an order from expected to next, stamping the matching timestamp
func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, expected, next models.OrderStatus, at time.Time) (*models.Order, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status       = $1::text,
		    updated_at   = $2::timestamptz,
		    started_at   = CASE WHEN $1::text = 'confirmed' THEN $2::timestamptz ELSE started_at END,
		    sent_at      = CASE WHEN $1::text = 'sent' THEN $2::timestamptz ELSE sent_at END,
		    delivered_at = CASE WHEN $1::text = 'delivered' THEN $2::timestamptz ELSE delivered_at END
		WHERE id = $3 AND status = $4`,
		string(next), at, id, string(expected))
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, missReason(ctx, s.pool, id)
	}
	return s.GetByID(ctx, id)
}

// Delete removes an order still in expected status
func (s *PostgresStore) Delete(ctx context.Context, id int64, expected models.OrderStatus) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND status = $2`, id, string(expected))
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return missReason(ctx, s.pool, id)
	}
	return nil
}

const orderColumns = `
	SELECT id, user_id, restaurant_id, address, status, shipping_costs::text, price::text,
	       created_at, updated_at, started_at, sent_at, delivered_at
	FROM orders`

// missReason tells a missing order apart from one whose status moved on.
func missReason(ctx context.Context, q querier, id int64) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check order existence: %w", err)
	}
	if !exists {
		return ErrOrderNotFound
	}
	return ErrStatusMismatch
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var (
		product models.Product
		price   string
	)
	if err := row.Scan(&product.ID, &product.RestaurantID, &product.Name, &price, &product.Availability); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	product.Price = p
	return &product, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		order           models.Order
		shipping, price string
	)
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.RestaurantID,
		&order.Address,
		&order.Status,
		&shipping,
		&price,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.ConfirmedAt,
		&order.SentAt,
		&order.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	if order.ShippingCosts, err = decimal.NewFromString(shipping); err != nil {
		return nil, fmt.Errorf("parse shipping costs: %w", err)
	}
	if order.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	return &order, nil
}

func insertLines(ctx context.Context, q querier, orderID int64, lines []models.OrderLine) error {
	for i, line := range lines {
		_, err := q.Exec(ctx, `
			INSERT INTO order_products (order_id, position, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5::numeric)`,
			orderID, i, line.ProductID, line.Quantity, line.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("insert order line %d: %w", i, err)
		}
	}
	return nil
}

func loadLines(ctx context.Context, q querier, orderIDs []int64) (map[int64][]models.OrderLine, error) {
	lines := make(map[int64][]models.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return lines, nil
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, quantity, unit_price::text
		FROM order_products
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID   int64
			line      models.OrderLine
			unitPrice string
		)
		if err := rows.Scan(&orderID, &line.ProductID, &line.Quantity, &unitPrice); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("parse unit price: %w", err)
		}
		lines[orderID] = append(lines[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}
