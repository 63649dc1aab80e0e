package integration

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ravik/pos-store/internal/database"
	"github.com/ravik/pos-store/internal/store"
)

func TestCreateAndGetProduct(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	categoryID, supplierID := seedRefData(t, db)

	barcode := "8901234567890"
	product, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
		Name:          "Honey 500g",
		Barcode:       &barcode,
		Price:         decimal.RequireFromString("320.00"),
		StockQuantity: 25,
		CategoryID:    categoryID,
		SupplierID:    supplierID,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	if product.ID == 0 {
		t.Error("Product ID should not be 0")
	}
	if product.LowStockThreshold != 10 {
		t.Errorf("Expected default threshold 10, got %d", product.LowStockThreshold)
	}

	fetched, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if fetched.Name != "Honey 500g" || fetched.StockQuantity != 25 {
		t.Errorf("Unexpected product: %+v", fetched)
	}

	byBarcode, err := store.GetProductByBarcode(ctx, db, barcode)
	if err != nil {
		t.Fatalf("Get product by barcode: %v", err)
	}
	if byBarcode.ID != product.ID {
		t.Errorf("Expected product %d, got %d", product.ID, byBarcode.ID)
	}

	_, err = store.GetProduct(ctx, db, 999999)
	if !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestIncrementStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	product := seedProduct(t, db, "Eggs (dozen)", decimal.RequireFromString("84.00"), 3)

	restocked, err := store.IncrementStock(ctx, db, product.ID, 30)
	if err != nil {
		t.Fatalf("Increment stock: %v", err)
	}
	if restocked.StockQuantity != 33 {
		t.Errorf("Expected stock 33, got %d", restocked.StockQuantity)
	}

	// Zero is a valid restock amount.
	same, err := store.IncrementStock(ctx, db, product.ID, 0)
	if err != nil {
		t.Fatalf("Increment stock by zero: %v", err)
	}
	if same.StockQuantity != 33 {
		t.Errorf("Expected stock unchanged at 33, got %d", same.StockQuantity)
	}

	_, err = store.IncrementStock(ctx, db, product.ID, -5)
	if !errors.Is(err, database.ErrInvalidQuantity) {
		t.Errorf("Expected invalid quantity for negative restock, got: %v", err)
	}

	_, err = store.IncrementStock(ctx, db, 999999, 10)
	if !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestRestockIndependentOfSales(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	employee := seedEmployee(t, db, "stocker1")
	product := seedProduct(t, db, "Curd 400g", decimal.RequireFromString("35.00"), 2)

	// Selling out does not block restock, and restock runs none of the
	// sale-side validation.
	_, err := store.ProcessSale(ctx, db, store.ProcessSaleRequest{
		Items:         []store.CartLine{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod: "CASH",
		EmployeeID:    employee.ID,
	})
	if err != nil {
		t.Fatalf("Process sale: %v", err)
	}

	restocked, err := store.IncrementStock(ctx, db, product.ID, 10)
	if err != nil {
		t.Fatalf("Increment stock: %v", err)
	}
	if restocked.StockQuantity != 10 {
		t.Errorf("Expected stock 10, got %d", restocked.StockQuantity)
	}
}

func TestDecrementStockGuard(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	product := seedProduct(t, db, "Bread", decimal.RequireFromString("40.00"), 3)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if err := store.DecrementStock(ctx, tx, product.ID, 2); err != nil {
			t.Fatalf("Decrement within stock: %v", err)
		}
		return store.DecrementStock(ctx, tx, product.ID, 2)
	})
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock from guard, got: %v", err)
	}

	// The failed transaction rolled back the in-range decrement too.
	after, err := store.GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if after.StockQuantity != 3 {
		t.Errorf("Expected stock 3 after rollback, got %d", after.StockQuantity)
	}
}

func TestListLowStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	low := seedProduct(t, db, "Matches", decimal.RequireFromString("5.00"), 2)
	atThreshold := seedProduct(t, db, "Candles", decimal.RequireFromString("15.00"), 10)
	seedProduct(t, db, "Soap", decimal.RequireFromString("30.00"), 50)

	products, err := store.ListLowStock(ctx, db)
	if err != nil {
		t.Fatalf("List low stock: %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("Expected 2 low-stock products, got %d", len(products))
	}
	// Most depleted first.
	if products[0].ID != low.ID {
		t.Errorf("Expected product %d first, got %d", low.ID, products[0].ID)
	}
	if products[1].ID != atThreshold.ID {
		t.Errorf("Stock exactly at threshold counts as low: expected %d, got %d", atThreshold.ID, products[1].ID)
	}
}

func TestListProductsPagination(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	categoryID, supplierID := seedRefData(t, db)

	for i := 0; i < 25; i++ {
		_, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
			Name:          "Item",
			Price:         decimal.RequireFromString("9.99"),
			StockQuantity: 5,
			CategoryID:    categoryID,
			SupplierID:    supplierID,
		})
		if err != nil {
			t.Fatalf("Create product %d: %v", i, err)
		}
	}

	page, err := store.ListProducts(ctx, db, 2, 10)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if page.Total != 25 || page.TotalPages != 3 {
		t.Errorf("Expected total 25 over 3 pages, got %d over %d", page.Total, page.TotalPages)
	}
}
