package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			original_price DOUBLE PRECISION,
			stock INTEGER NOT NULL DEFAULT 0,
			image TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS promotions (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			discount_type VARCHAR(20) NOT NULL,
			discount_value DOUBLE PRECISION NOT NULL
		);

		CREATE TABLE IF NOT EXISTS product_promotions (
			product_id VARCHAR(50) NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			promotion_id UUID NOT NULL REFERENCES promotions(id) ON DELETE CASCADE,
			position INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (product_id, promotion_id)
		);

		CREATE TABLE IF NOT EXISTS promotion_gifts (
			id UUID PRIMARY KEY,
			promotion_id UUID NOT NULL REFERENCES promotions(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL CHECK (quantity > 0)
		);

		CREATE TABLE IF NOT EXISTS carts (
			id UUID PRIMARY KEY,
			user_id VARCHAR(100) NOT NULL UNIQUE,
			sync_seq BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS cart_items (
			id UUID PRIMARY KEY,
			cart_id UUID NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
			product_id VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			is_selected BOOLEAN NOT NULL DEFAULT TRUE,
			position INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			user_id VARCHAR(100) NOT NULL,
			store_id VARCHAR(100) NOT NULL DEFAULT '',
			recipient_name VARCHAR(255) NOT NULL DEFAULT '',
			recipient_phone VARCHAR(50) NOT NULL DEFAULT '',
			address TEXT NOT NULL,
			note TEXT,
			payment VARCHAR(50) NOT NULL,
			total DOUBLE PRECISION NOT NULL,
			status VARCHAR(20) NOT NULL,
			tracking_code VARCHAR(100),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id VARCHAR(50) NOT NULL,
			product_name VARCHAR(255) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DOUBLE PRECISION NOT NULL,
			subtotal DOUBLE PRECISION NOT NULL,
			discount_type VARCHAR(20),
			discount_value DOUBLE PRECISION
		);

		CREATE TABLE IF NOT EXISTS order_item_gifts (
			id UUID PRIMARY KEY,
			order_item_id UUID NOT NULL REFERENCES order_items(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL CHECK (quantity > 0)
		);

		CREATE INDEX IF NOT EXISTS idx_cart_items_cart_id ON cart_items(cart_id);
		CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
		CREATE INDEX IF NOT EXISTS idx_order_item_gifts_item_id ON order_item_gifts(order_item_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedProducts inserts test catalogue data: five products, one percent
// promotion with a gift on P001 and one fixed promotion on P002.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id    string
		name  string
		price float64
		stock int
	}{
		{"P001", "Test Product 1", 200000, 10},
		{"P002", "Test Product 2", 150000, 5},
		{"P003", "Test Product 3", 80000, 20},
		{"P004", "Test Product 4", 30000, 3},
		{"P005", "Test Product 5", 999000, 1},
	}

	// Newest-first listing order: stagger created_at so P001 lists first.
	base := time.Now()
	for i, p := range products {
		_, err := pool.Exec(ctx,
			"INSERT INTO products (id, name, price, stock, created_at) VALUES ($1, $2, $3, $4, $5)",
			p.id, p.name, p.price, p.stock, base.Add(-time.Duration(i)*time.Minute),
		)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.id, err)
		}
	}

	percentPromo := uuid.New()
	fixedPromo := uuid.New()

	_, err := pool.Exec(ctx,
		"INSERT INTO promotions (id, name, discount_type, discount_value) VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)",
		percentPromo, "10 percent off", "PERCENT", 10.0,
		fixedPromo, "50k off", "FIXED", 50000.0,
	)
	if err != nil {
		t.Fatalf("failed to seed promotions: %v", err)
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO product_promotions (product_id, promotion_id, position) VALUES ($1, $2, 0), ($3, $4, 0)",
		"P001", percentPromo, "P002", fixedPromo,
	)
	if err != nil {
		t.Fatalf("failed to seed promotion links: %v", err)
	}

	_, err = pool.Exec(ctx,
		"INSERT INTO promotion_gifts (id, promotion_id, name, quantity) VALUES ($1, $2, $3, $4)",
		uuid.New(), percentPromo, "Gift Sticker", 1,
	)
	if err != nil {
		t.Fatalf("failed to seed promotion gifts: %v", err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"order_item_gifts", "order_items", "orders",
		"cart_items", "carts",
		"promotion_gifts", "product_promotions", "promotions", "products",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
