package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ravik/pos-store/internal/database"
	"github.com/ravik/pos-store/internal/models"
)

const productColumns = `product_id, name, barcode, price, stock_quantity, low_stock_threshold, category_id, supplier_id, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }, p *models.Product) error {
	return row.Scan(
		&p.ID,
		&p.Name,
		&p.Barcode,
		&p.Price,
		&p.StockQuantity,
		&p.LowStockThreshold,
		&p.CategoryID,
		&p.SupplierID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

type CreateProductRequest struct {
	Name              string
	Barcode           *string
	Price             decimal.Decimal
	StockQuantity     int
	LowStockThreshold int
	CategoryID        int64
	SupplierID        int64
}

func CreateProduct(ctx context.Context, db *sql.DB, req CreateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("price must not be negative")
	}
	if req.StockQuantity < 0 {
		return nil, fmt.Errorf("stock quantity must not be negative: %w", database.ErrInvalidQuantity)
	}
	if req.LowStockThreshold <= 0 {
		req.LowStockThreshold = 10
	}

	product := &models.Product{}

	query := `
		INSERT INTO products (name, barcode, price, stock_quantity, low_stock_threshold, category_id, supplier_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query,
		req.Name, req.Barcode, req.Price, req.StockQuantity, req.LowStockThreshold, req.CategoryID, req.SupplierID)
	if err := scanProduct(row, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	row := db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`, id)
	if err := scanProduct(row, product); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func GetProductByBarcode(ctx context.Context, db *sql.DB, barcode string) (*models.Product, error) {
	product := &models.Product{}

	row := db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	if err := scanProduct(row, product); err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}

	return product, nil
}

// IncrementStock restocks a product. Any non-negative amount succeeds; a
// restock never runs sale-side validation.
func IncrementStock(ctx context.Context, db *sql.DB, productID int64, amount int) (*models.Product, error) {
	if amount < 0 {
		return nil, fmt.Errorf("restock amount must not be negative: %w", database.ErrInvalidQuantity)
	}

	product := &models.Product{}

	row := db.QueryRowContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW()
		 WHERE product_id = $2
		 RETURNING `+productColumns,
		amount, productID)
	if err := scanProduct(row, product); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("increment stock: %w", err)
	}

	return product, nil
}

// DecrementStock is the enforcement point for the stock invariant: the
// guarded update refuses to take stock below zero regardless of what the
// caller validated beforehand.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE product_id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// ListLowStock returns every product at or below its low-stock threshold,
// most depleted first. Informational only: a sale that crosses the threshold
// still commits.
func ListLowStock(ctx context.Context, db *sql.DB) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 WHERE stock_quantity <= low_stock_threshold
		 ORDER BY stock_quantity ASC`)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM products
		 ORDER BY product_id
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func ListCategories(ctx context.Context, db *sql.DB) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT category_id, name, COALESCE(description, '') FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func ListSuppliers(ctx context.Context, db *sql.DB) ([]models.Supplier, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT supplier_id, name, phone, email, COALESCE(address, '') FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []models.Supplier
	for rows.Next() {
		var s models.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.Address); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return suppliers, nil
}
