package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ravik/pos-store/internal/models"
	"github.com/ravik/pos-store/internal/store"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := runMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func runMigrations(db *sql.DB) error {
	migrationDir := "../../migrations"
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		return fmt.Errorf("read migration directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".up.sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		filePath := filepath.Join(migrationDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
	}

	return nil
}

var refSeq atomic.Int64

// seedRefData inserts one category and one supplier and returns their ids.
// Products need both as foreign keys.
func seedRefData(t *testing.T, db *sql.DB) (categoryID, supplierID int64) {
	t.Helper()

	n := refSeq.Add(1)
	err := db.QueryRow(
		"INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING category_id",
		fmt.Sprintf("Category %s #%d", t.Name(), n), "test category").Scan(&categoryID)
	if err != nil {
		t.Fatalf("Seed category: %v", err)
	}

	err = db.QueryRow(
		"INSERT INTO suppliers (name, address) VALUES ($1, $2) RETURNING supplier_id",
		fmt.Sprintf("Supplier %s #%d", t.Name(), n), "test address").Scan(&supplierID)
	if err != nil {
		t.Fatalf("Seed supplier: %v", err)
	}

	return categoryID, supplierID
}

func seedProduct(t *testing.T, db *sql.DB, name string, price decimal.Decimal, stock int) *models.Product {
	t.Helper()

	categoryID, supplierID := seedRefData(t, db)
	product, err := store.CreateProduct(context.Background(), db, store.CreateProductRequest{
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		CategoryID:    categoryID,
		SupplierID:    supplierID,
	})
	if err != nil {
		t.Fatalf("Seed product: %v", err)
	}
	return product
}

func seedEmployee(t *testing.T, db *sql.DB, username string) *models.Employee {
	t.Helper()

	employee, err := store.CreateEmployee(context.Background(), db, "Test Cashier", models.RoleCashier, username, "secret123")
	if err != nil {
		t.Fatalf("Seed employee: %v", err)
	}
	return employee
}

func seedCustomer(t *testing.T, db *sql.DB, name string) *models.Customer {
	t.Helper()

	customer, err := store.CreateCustomer(context.Background(), db, name, nil, nil)
	if err != nil {
		t.Fatalf("Seed customer: %v", err)
	}
	return customer
}
