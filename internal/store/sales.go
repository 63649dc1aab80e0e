package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ravik/pos-store/internal/database"
	"github.com/ravik/pos-store/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx so ledger reads can run
// standalone or inside the commit transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func generateReceiptNumber() string {
	return "RCP-" + uuid.NewString()
}

// ProcessSale turns a cart into a committed sale: it validates every line,
// captures unit prices, and applies the ledger append and the stock
// decrements as one serializable transaction. Any validation failure leaves
// all state untouched. Concurrent calls on overlapping products serialize on
// the row locks, so stock can never be oversold.
func ProcessSale(ctx context.Context, db *sql.DB, req ProcessSaleRequest) (*models.Sale, error) {
	lines, err := mergeCartLines(req.Items)
	if err != nil {
		return nil, err
	}

	payment := models.PaymentMethod(req.PaymentMethod)
	if !payment.Valid() {
		return nil, fmt.Errorf("%q: %w", req.PaymentMethod, database.ErrInvalidPaymentMethod)
	}

	var sale *models.Sale

	err = database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		if req.IdempotencyKey != "" {
			var existingID int64
			err := tx.QueryRowContext(ctx,
				"SELECT sale_id FROM sales WHERE idempotency_key = $1",
				req.IdempotencyKey).Scan(&existingID)
			if err == nil {
				sale, err = fetchSale(ctx, tx, existingID)
				return err
			}
			if err != sql.ErrNoRows {
				return fmt.Errorf("check idempotency key: %w", err)
			}
		}

		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM employees WHERE employee_id = $1)",
			req.EmployeeID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check employee exists: %w", err)
		}
		if !exists {
			return database.ErrEmployeeNotFound
		}

		if req.CustomerID != nil {
			err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM customers WHERE customer_id = $1)",
				*req.CustomerID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check customer exists: %w", err)
			}
			if !exists {
				return database.ErrCustomerNotFound
			}
		}

		// Lock rows in ascending product id so two carts sharing products
		// can never deadlock on each other.
		lockOrder := make([]CartLine, len(lines))
		copy(lockOrder, lines)
		sort.Slice(lockOrder, func(i, j int) bool {
			return lockOrder[i].ProductID < lockOrder[j].ProductID
		})

		prices := make(map[int64]decimal.Decimal, len(lines))
		for _, line := range lockOrder {
			var name string
			var price decimal.Decimal
			var stock int

			err := tx.QueryRowContext(ctx,
				`SELECT name, price, stock_quantity
				 FROM products
				 WHERE product_id = $1
				 FOR UPDATE`,
				line.ProductID).Scan(&name, &price, &stock)
			if err != nil {
				if err == sql.ErrNoRows {
					return &ProductNotFoundError{ProductID: line.ProductID}
				}
				return fmt.Errorf("lock product %d: %w", line.ProductID, err)
			}

			if stock < line.Quantity {
				return &InsufficientStockError{
					ProductID:   line.ProductID,
					ProductName: name,
					Requested:   line.Quantity,
					Available:   stock,
				}
			}

			prices[line.ProductID] = price
		}

		// Rounded once at the total; subtotals are exact (2dp price times
		// integer quantity), so the stored total equals their sum.
		var total decimal.Decimal
		for _, line := range lines {
			total = total.Add(prices[line.ProductID].Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		total = total.Round(2)

		created := &models.Sale{
			PaymentMethod: payment,
			CustomerID:    req.CustomerID,
			EmployeeID:    req.EmployeeID,
			TotalAmount:   total,
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO sales (receipt_number, sale_time, total_amount, payment_method, customer_id, employee_id, idempotency_key)
			 VALUES ($1, NOW(), $2, $3, $4, $5, NULLIF($6, ''))
			 RETURNING sale_id, receipt_number, sale_time`,
			generateReceiptNumber(), total, string(payment), req.CustomerID, req.EmployeeID, req.IdempotencyKey).
			Scan(&created.ID, &created.ReceiptNumber, &created.SaleTime)
		if err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		for _, line := range lines {
			unitPrice := prices[line.ProductID]
			subtotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))

			item := models.SaleItem{
				SaleID:    created.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
				Subtotal:  subtotal,
			}
			err = tx.QueryRowContext(ctx,
				`INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING sale_item_id`,
				created.ID, line.ProductID, line.Quantity, unitPrice, subtotal).
				Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("create sale item: %w", err)
			}
			created.Items = append(created.Items, item)
		}

		// Second enforcement point: the guard re-checks stock even though
		// the rows are already locked and validated above.
		for _, line := range lines {
			if err := DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		sale = created
		return nil
	})

	if err != nil {
		// A concurrent commit with the same idempotency key won the race;
		// its sale is the result of this submission.
		if req.IdempotencyKey != "" && database.IsUniqueViolation(err, "sales_idempotency_key_key") {
			return GetSaleByIdempotencyKey(ctx, db, req.IdempotencyKey)
		}
		return nil, err
	}

	return sale, nil
}

func fetchSale(ctx context.Context, q querier, id int64) (*models.Sale, error) {
	sale := &models.Sale{}

	err := q.QueryRowContext(ctx,
		`SELECT sale_id, receipt_number, sale_time, total_amount, payment_method, customer_id, employee_id
		 FROM sales
		 WHERE sale_id = $1`,
		id).Scan(
		&sale.ID,
		&sale.ReceiptNumber,
		&sale.SaleTime,
		&sale.TotalAmount,
		&sale.PaymentMethod,
		&sale.CustomerID,
		&sale.EmployeeID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT sale_item_id, sale_id, product_id, quantity, unit_price, subtotal
		 FROM sale_items
		 WHERE sale_id = $1
		 ORDER BY sale_item_id`,
		id)
	if err != nil {
		return nil, fmt.Errorf("get sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.SaleItem
		err := rows.Scan(
			&item.ID,
			&item.SaleID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.Subtotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		sale.Items = append(sale.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sale, nil
}

func GetSale(ctx context.Context, db *sql.DB, id int64) (*models.Sale, error) {
	return fetchSale(ctx, db, id)
}

func GetSaleByIdempotencyKey(ctx context.Context, db *sql.DB, key string) (*models.Sale, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		"SELECT sale_id FROM sales WHERE idempotency_key = $1",
		key).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrSaleNotFound
		}
		return nil, fmt.Errorf("get sale by idempotency key: %w", err)
	}
	return fetchSale(ctx, db, id)
}

// ListSalesCursor pages through the ledger newest-first with customer and
// employee names resolved.
func ListSalesCursor(ctx context.Context, db *sql.DB, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT s.sale_id, s.receipt_number, s.sale_time, s.total_amount, s.payment_method,
		       c.name AS customer, e.name AS employee
		FROM sales s
		LEFT JOIN customers c ON s.customer_id = c.customer_id
		LEFT JOIN employees e ON s.employee_id = e.employee_id
		WHERE (s.sale_time, s.sale_id) < ($1, $2)
		ORDER BY s.sale_time DESC, s.sale_id DESC
		LIMIT $3`

	rows, err := db.QueryContext(ctx, query, cursorData.SaleTime, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	var sales []models.SaleSummary
	for rows.Next() {
		var s models.SaleSummary
		err := rows.Scan(
			&s.ID,
			&s.ReceiptNumber,
			&s.SaleTime,
			&s.TotalAmount,
			&s.PaymentMethod,
			&s.CustomerName,
			&s.EmployeeName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(sales) > limit
	if hasMore {
		sales = sales[:limit]
	}

	var nextCursor string
	if hasMore && len(sales) > 0 {
		last := sales[len(sales)-1]
		nextCursor = EncodeCursor(SaleCursor{
			SaleTime: last.SaleTime,
			ID:       last.ID,
		})
	}

	return &CursorPage{
		Items:      sales,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// TotalRevenue is the sum over all committed sale totals.
func TotalRevenue(ctx context.Context, db *sql.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total_amount), 0) FROM sales").Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

// SalesToday is today's revenue by the database clock.
func SalesToday(ctx context.Context, db *sql.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE sale_time::date = CURRENT_DATE").Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sales today: %w", err)
	}
	return total, nil
}

// SalesByDate returns per-day sale counts and totals over the trailing
// rangeDays days, newest first.
func SalesByDate(ctx context.Context, db *sql.DB, rangeDays int) ([]models.DailySales, error) {
	query := `
		SELECT to_char(sale_time::date, 'YYYY-MM-DD') AS sale_date,
		       COUNT(*) AS count,
		       SUM(total_amount) AS total
		FROM sales
		WHERE sale_time >= CURRENT_DATE - $1::int
		GROUP BY sale_time::date
		ORDER BY sale_date DESC`

	rows, err := db.QueryContext(ctx, query, rangeDays)
	if err != nil {
		return nil, fmt.Errorf("sales by date: %w", err)
	}
	defer rows.Close()

	var days []models.DailySales
	for rows.Next() {
		var d models.DailySales
		if err := rows.Scan(&d.Date, &d.Count, &d.Total); err != nil {
			return nil, fmt.Errorf("scan daily sales: %w", err)
		}
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return days, nil
}

// GetDashboardStats bundles the headline numbers the dashboard shows. Pure
// derivations over the ledger and inventory, no independent state.
func GetDashboardStats(ctx context.Context, db *sql.DB) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM sales),
			(SELECT COALESCE(SUM(total_amount), 0) FROM sales),
			(SELECT COUNT(*) FROM products WHERE stock_quantity <= low_stock_threshold),
			(SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE sale_time::date = CURRENT_DATE)`).
		Scan(
			&stats.TotalProducts,
			&stats.TotalSales,
			&stats.TotalRevenue,
			&stats.LowStockCount,
			&stats.TodaySales,
		)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	return stats, nil
}
