package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ravik/pos-store/internal/database"
	"github.com/ravik/pos-store/internal/models"
	"github.com/ravik/pos-store/internal/store"
)

func registerRoutes(mux *http.ServeMux, db *sql.DB, logger *zap.Logger) {
	mux.HandleFunc("/", handleRoot())
	mux.HandleFunc("/api/auth/login", handleLogin(db, logger))
	mux.HandleFunc("/api/products", handleProducts(db, logger))
	mux.HandleFunc("/api/products/low-stock", handleLowStock(db, logger))
	mux.HandleFunc("/api/products/", handleProductByID(db, logger))
	mux.HandleFunc("/api/sales", handleSales(db, logger))
	mux.HandleFunc("/api/sales/", handleSaleByID(db, logger))
	mux.HandleFunc("/api/customers", handleCustomers(db, logger))
	mux.HandleFunc("/api/employees", handleEmployees(db, logger))
	mux.HandleFunc("/api/categories", handleCategories(db, logger))
	mux.HandleFunc("/api/suppliers", handleSuppliers(db, logger))
	mux.HandleFunc("/api/dashboard/stats", handleDashboardStats(db, logger))
	mux.HandleFunc("/api/reports/sales-by-date", handleSalesByDate(db, logger))
}

func handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			respondError(w, http.StatusNotFound, "Not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{
			"message": "POS Store API",
			"version": "1.0",
		})
	}
}

// errorStatus maps store errors onto HTTP status codes: reference failures
// are 404, stock conflicts 409, bad input 400, everything else 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrEmployeeNotFound),
		errors.Is(err, database.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, database.ErrInvalidQuantity),
		errors.Is(err, database.ErrInvalidPaymentMethod),
		errors.Is(err, database.ErrInvalidRole):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondStoreError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func handleLogin(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		employee, err := store.Authenticate(r.Context(), db, req.Username, req.Password)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}

		logger.Info("Employee logged in",
			zap.Int64("employee_id", employee.ID),
			zap.String("role", string(employee.Role)))
		respondJSON(w, http.StatusOK, employee)
	}
}

func handleProducts(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name              string  `json:"name"`
				Barcode           *string `json:"barcode"`
				Price             string  `json:"price"`
				StockQuantity     int     `json:"stock_quantity"`
				LowStockThreshold int     `json:"low_stock_threshold"`
				CategoryID        int64   `json:"category_id"`
				SupplierID        int64   `json:"supplier_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			price, err := decimal.NewFromString(req.Price)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid price")
				return
			}

			product, err := store.CreateProduct(ctx, db, store.CreateProductRequest{
				Name:              req.Name,
				Barcode:           req.Barcode,
				Price:             price,
				StockQuantity:     req.StockQuantity,
				LowStockThreshold: req.LowStockThreshold,
				CategoryID:        req.CategoryID,
				SupplierID:        req.SupplierID,
			})
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}

			respondJSON(w, http.StatusCreated, product)

		case http.MethodGet:
			page, pageSize := parsePagination(r)
			result, err := store.ListProducts(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleLowStock(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		products, err := store.ListLowStock(r.Context(), db)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"products": products})
	}
}

// handleProductByID serves /api/products/{id} and /api/products/{id}/stock.
func handleProductByID(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rest := strings.TrimPrefix(r.URL.Path, "/api/products/")
		parts := strings.Split(rest, "/")

		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid product ID")
			return
		}

		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			product, err := store.GetProduct(ctx, db, id)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusOK, product)

		case len(parts) == 2 && parts[1] == "stock" && r.Method == http.MethodPut:
			var req struct {
				Quantity int `json:"quantity"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			product, err := store.IncrementStock(ctx, db, id, req.Quantity)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}

			logger.Info("Product restocked",
				zap.Int64("product_id", id),
				zap.Int("amount", req.Quantity),
				zap.Int("new_stock", product.StockQuantity))
			respondJSON(w, http.StatusOK, product)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleSales(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Items []struct {
					ProductID int64 `json:"product_id"`
					Quantity  int   `json:"quantity"`
				} `json:"items"`
				PaymentMethod  string `json:"payment_method"`
				CustomerID     *int64 `json:"customer_id"`
				EmployeeID     int64  `json:"employee_id"`
				IdempotencyKey string `json:"idempotency_key"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			var items []store.CartLine
			for _, item := range req.Items {
				items = append(items, store.CartLine{
					ProductID: item.ProductID,
					Quantity:  item.Quantity,
				})
			}

			sale, err := store.ProcessSale(ctx, db, store.ProcessSaleRequest{
				Items:          items,
				PaymentMethod:  req.PaymentMethod,
				CustomerID:     req.CustomerID,
				EmployeeID:     req.EmployeeID,
				IdempotencyKey: req.IdempotencyKey,
			})
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}

			logger.Info("Sale committed",
				zap.Int64("sale_id", sale.ID),
				zap.String("total", sale.TotalAmount.String()),
				zap.Int64("employee_id", sale.EmployeeID))
			respondJSON(w, http.StatusCreated, sale)

		case http.MethodGet:
			limit := 50
			if lStr := r.URL.Query().Get("limit"); lStr != "" {
				if l, err := strconv.Atoi(lStr); err == nil && l >= 1 && l <= 200 {
					limit = l
				}
			}

			result, err := store.ListSalesCursor(ctx, db, r.URL.Query().Get("cursor"), limit)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleSaleByID(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/api/sales/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid sale ID")
			return
		}

		sale, err := store.GetSale(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, sale)
	}
}

func handleCustomers(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name  string  `json:"name"`
				Phone *string `json:"phone"`
				Email *string `json:"email"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
			if req.Name == "" {
				respondError(w, http.StatusBadRequest, "Customer name is required")
				return
			}

			customer, err := store.CreateCustomer(ctx, db, req.Name, req.Phone, req.Email)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusCreated, customer)

		case http.MethodGet:
			page, pageSize := parsePagination(r)
			result, err := store.ListCustomers(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleEmployees(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		switch r.Method {
		case http.MethodPost:
			var req struct {
				Name     string `json:"name"`
				Role     string `json:"role"`
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondError(w, http.StatusBadRequest, "Invalid request body")
				return
			}

			employee, err := store.CreateEmployee(ctx, db, req.Name, models.Role(req.Role), req.Username, req.Password)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusCreated, employee)

		case http.MethodGet:
			page, pageSize := parsePagination(r)
			result, err := store.ListEmployees(ctx, db, page, pageSize)
			if err != nil {
				respondStoreError(w, logger, err)
				return
			}
			respondJSON(w, http.StatusOK, result)

		default:
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func handleCategories(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		categories, err := store.ListCategories(r.Context(), db)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
	}
}

func handleSuppliers(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		suppliers, err := store.ListSuppliers(r.Context(), db)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
	}
}

func handleDashboardStats(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		stats, err := store.GetDashboardStats(r.Context(), db)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, stats)
	}
}

func handleSalesByDate(db *sql.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		days := 7
		if dStr := r.URL.Query().Get("days"); dStr != "" {
			if d, err := strconv.Atoi(dStr); err == nil && d >= 1 && d <= 365 {
				days = d
			}
		}

		data, err := store.SalesByDate(r.Context(), db, days)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"sales_by_date": data})
	}
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
