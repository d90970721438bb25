package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unidesk/uniportal-api/internal/models"
)

// DepartmentRepository provides read/update access to departments. There is
// deliberately no Create or Delete: departments are provisioned by migration.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository creates a DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns all departments ordered by code.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM departments ORDER BY code`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindByID returns a department by identifier.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT id, code, name, created_at, updated_at FROM departments WHERE id = $1 LIMIT 1`
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find department by id: %w", err)
	}
	return &dept, nil
}

// Update modifies the department's mutable fields.
func (r *DepartmentRepository) Update(ctx context.Context, dept *models.Department) error {
	dept.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET code = :code, name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}
