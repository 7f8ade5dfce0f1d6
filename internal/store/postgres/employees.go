package postgres

import (
	"context"

	"syncbridge/internal/store"
)

// GetEmployee loads an employee and locks its row.
func (s *Store) GetEmployee(ctx context.Context, tx store.DBTransaction, id int64) (*store.Employee, error) {
	query := `
		SELECT id, employee_id, first_name, middle_name, last_name, gender, email, phone_number,
		       date_of_birth, nationality, job_level, department, location, bank_account_number,
		       company, job_title, cost_center, start_date, employee_status, manager_id, manager_email,
		       last_modified_on, last_modified, created_at, updated_at
		FROM employees WHERE id = $1
		FOR UPDATE
	`

	var e store.Employee
	err := s.getExecutor(tx).QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.EmployeeID, &e.FirstName, &e.MiddleName, &e.LastName, &e.Gender, &e.Email, &e.PhoneNumber,
		&e.DateOfBirth, &e.Nationality, &e.JobLevel, &e.Department, &e.Location, &e.BankAccountNumber,
		&e.Company, &e.JobTitle, &e.CostCenter, &e.StartDate, &e.EmployeeStatus, &e.ManagerID, &e.ManagerEmail,
		&e.LastModifiedOn, &e.LastModified, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}

	return &e, nil
}

// CreateEmployee inserts e and fills in its id and timestamps.
func (s *Store) CreateEmployee(ctx context.Context, tx store.DBTransaction, e *store.Employee) error {
	query := `
		INSERT INTO employees (
			employee_id, first_name, middle_name, last_name, gender, email, phone_number,
			date_of_birth, nationality, job_level, department, location, bank_account_number,
			company, job_title, cost_center, start_date, employee_status, manager_id, manager_email,
			last_modified_on, last_modified, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
		        $21, $22, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := s.getExecutor(tx).QueryRowContext(ctx, query, employeeArgs(e)...).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return translateError(err)
}

// UpdateEmployee writes every column of e.
func (s *Store) UpdateEmployee(ctx context.Context, tx store.DBTransaction, e *store.Employee) error {
	query := `
		UPDATE employees SET
			employee_id = $1, first_name = $2, middle_name = $3, last_name = $4, gender = $5, email = $6,
			phone_number = $7, date_of_birth = $8, nationality = $9, job_level = $10, department = $11,
			location = $12, bank_account_number = $13, company = $14, job_title = $15, cost_center = $16,
			start_date = $17, employee_status = $18, manager_id = $19, manager_email = $20,
			last_modified_on = $21, last_modified = $22, updated_at = NOW()
		WHERE id = $23
		RETURNING updated_at
	`

	args := append(employeeArgs(e), e.ID)
	err := s.getExecutor(tx).QueryRowContext(ctx, query, args...).Scan(&e.UpdatedAt)
	return translateError(err)
}

func employeeArgs(e *store.Employee) []interface{} {
	return []interface{}{
		e.EmployeeID, e.FirstName, e.MiddleName, e.LastName, e.Gender, e.Email, e.PhoneNumber,
		e.DateOfBirth, e.Nationality, e.JobLevel, e.Department, e.Location, e.BankAccountNumber,
		e.Company, e.JobTitle, e.CostCenter, e.StartDate, e.EmployeeStatus, e.ManagerID, e.ManagerEmail,
		e.LastModifiedOn, e.LastModified,
	}
}
