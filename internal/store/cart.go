package store

import (
	"fmt"

	"github.com/ravik/pos-store/internal/database"
)

// CartLine is one client-proposed product/quantity pair. Cart lines are
// transient; nothing about them is persisted until the sale commits.
type CartLine struct {
	ProductID int64
	Quantity  int
}

type ProcessSaleRequest struct {
	Items          []CartLine
	PaymentMethod  string
	CustomerID     *int64
	EmployeeID     int64
	IdempotencyKey string
}

// ProductNotFoundError names the offending cart reference. It unwraps to
// database.ErrProductNotFound.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error {
	return database.ErrProductNotFound
}

// InsufficientStockError carries the requested and available quantities so
// the caller can adjust the cart precisely. It unwraps to
// database.ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, e.ProductName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return database.ErrInsufficientStock
}

// mergeCartLines validates quantities and sums duplicate product references
// into one line each, keeping first-seen order. A client that sends the same
// product twice instead of updating a quantity gets the same result as one
// merged line.
func mergeCartLines(items []CartLine) ([]CartLine, error) {
	if len(items) == 0 {
		return nil, database.ErrEmptyCart
	}

	merged := make([]CartLine, 0, len(items))
	index := make(map[int64]int, len(items))

	for _, line := range items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", line.ProductID, database.ErrInvalidQuantity)
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	return merged, nil
}
