package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hrops/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListEmployees(ctx context.Context, departmentID string, limit, offset int) ([]Employee, int, error) {
	query := `
    SELECT id, COALESCE(user_id::text, ''), employee_number, first_name, last_name, email,
           COALESCE(location, ''), COALESCE(department_id::text, ''), COALESCE(manager_id::text, ''),
           start_date, end_date, status, created_at, updated_at
    FROM employees
  `
	countQuery := "SELECT COUNT(1) FROM employees"
	args := []any{}
	if departmentID != "" {
		query += " WHERE department_id = $1"
		countQuery += " WHERE department_id = $1"
		args = append(args, departmentID)
	}

	var total int
	if err := s.DB.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.UserID, &e.EmployeeNumber, &e.FirstName, &e.LastName, &e.Email,
			&e.Location, &e.DepartmentID, &e.ManagerID, &e.StartDate, &e.EndDate, &e.Status,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	var e Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(user_id::text, ''), employee_number, first_name, last_name, email,
           COALESCE(location, ''), COALESCE(department_id::text, ''), COALESCE(manager_id::text, ''),
           start_date, end_date, status, created_at, updated_at
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&e.ID, &e.UserID, &e.EmployeeNumber, &e.FirstName, &e.LastName, &e.Email,
		&e.Location, &e.DepartmentID, &e.ManagerID, &e.StartDate, &e.EndDate, &e.Status,
		&e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_number, first_name, last_name, email, location, department_id, manager_id, start_date, status)
    VALUES (NULLIF($1,'')::uuid, $2, $3, $4, $5, $6, NULLIF($7,'')::uuid, NULLIF($8,'')::uuid, $9, COALESCE(NULLIF($10,''), 'active'))
    RETURNING id
  `, e.UserID, e.EmployeeNumber, e.FirstName, e.LastName, e.Email, e.Location,
		e.DepartmentID, e.ManagerID, e.StartDate, e.Status).Scan(&id)
	return id, err
}

func (s *Store) UpdateEmployee(ctx context.Context, e Employee) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET first_name = $1, last_name = $2, email = $3, location = $4,
        department_id = NULLIF($5,'')::uuid, manager_id = NULLIF($6,'')::uuid,
        status = $7, end_date = $8, updated_at = now()
    WHERE id = $9
  `, e.FirstName, e.LastName, e.Email, e.Location, e.DepartmentID, e.ManagerID, e.Status, e.EndDate, e.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IsManagerOf reports whether managerEmployeeID manages employeeID, directly
// or as the manager of the employee's department.
func (s *Store) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees e
    LEFT JOIN departments d ON e.department_id = d.id
    WHERE e.id = $1 AND (e.manager_id = $2 OR d.manager_id = $2)
  `, employeeID, managerEmployeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, COALESCE(manager_id::text, ''), created_at
    FROM departments
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name, &d.ManagerID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDepartment(ctx context.Context, name, managerID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, manager_id)
    VALUES ($1, NULLIF($2,'')::uuid)
    RETURNING id
  `, name, managerID).Scan(&id)
	return id, err
}
