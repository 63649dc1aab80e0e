package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ravik/pos-store/internal/database"
	"github.com/ravik/pos-store/internal/models"
)

// CreateEmployee stores the credential as a bcrypt hash. The plaintext never
// leaves this function.
func CreateEmployee(ctx context.Context, db *sql.DB, name string, role models.Role, username, password string) (*models.Employee, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%q: %w", role, database.ErrInvalidRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	employee := &models.Employee{}

	query := `
		INSERT INTO employees (name, role, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING employee_id, name, role, username, created_at`

	err = db.QueryRowContext(ctx, query, name, string(role), username, string(hash)).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Role,
		&employee.Username,
		&employee.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	return employee, nil
}

func GetEmployee(ctx context.Context, db *sql.DB, id int64) (*models.Employee, error) {
	employee := &models.Employee{}

	query := `
		SELECT employee_id, name, role, username, created_at
		FROM employees
		WHERE employee_id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Role,
		&employee.Username,
		&employee.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}

	return employee, nil
}

// Authenticate checks a username/password pair against the stored hash.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func Authenticate(ctx context.Context, db *sql.DB, username, password string) (*models.Employee, error) {
	employee := &models.Employee{}

	query := `
		SELECT employee_id, name, role, username, password_hash, created_at
		FROM employees
		WHERE username = $1`

	err := db.QueryRowContext(ctx, query, username).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Role,
		&employee.Username,
		&employee.PasswordHash,
		&employee.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get employee by username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(password)); err != nil {
		return nil, database.ErrInvalidCredentials
	}

	employee.PasswordHash = ""
	return employee, nil
}

func ListEmployees(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count employees: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT employee_id, name, role, username, created_at
		FROM employees
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.Role,
			&e.Username,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      employees,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}
