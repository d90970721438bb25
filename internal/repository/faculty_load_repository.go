package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unidesk/uniportal-api/internal/models"
)

// FacultyLoadRepository stores instructor teaching loads.
type FacultyLoadRepository struct {
	db *sqlx.DB
}

// NewFacultyLoadRepository creates a FacultyLoadRepository.
func NewFacultyLoadRepository(db *sqlx.DB) *FacultyLoadRepository {
	return &FacultyLoadRepository{db: db}
}

// List returns load rows joined with subject and instructor names.
func (r *FacultyLoadRepository) List(ctx context.Context, filter models.FacultyLoadFilter) ([]models.FacultyLoadDetail, error) {
	baseQuery := `SELECT fl.id, fl.instructor_id, fl.subject_id, fl.academic_year, fl.semester, fl.section, fl.units, fl.created_at,
		s.code AS subject_code, s.name AS subject_name, u.full_name AS instructor_name
		FROM faculty_loads fl
		JOIN subjects s ON s.id = fl.subject_id
		JOIN users u ON u.id = fl.instructor_id
		WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("fl.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("fl.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("fl.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY fl.academic_year DESC, fl.semester, s.code"

	var loads []models.FacultyLoadDetail
	if err := r.db.SelectContext(ctx, &loads, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list faculty loads: %w", err)
	}
	return loads, nil
}

// Create inserts a load row.
func (r *FacultyLoadRepository) Create(ctx context.Context, load *models.FacultyLoad) error {
	if load.ID == "" {
		load.ID = uuid.NewString()
	}
	if load.CreatedAt.IsZero() {
		load.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO faculty_loads (id, instructor_id, subject_id, academic_year, semester, section, units, created_at)
		VALUES (:id, :instructor_id, :subject_id, :academic_year, :semester, :section, :units, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, load); err != nil {
		return fmt.Errorf("create faculty load: %w", err)
	}
	return nil
}

// Delete removes a load row.
func (r *FacultyLoadRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM faculty_loads WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete faculty load: %w", err)
	}
	return nil
}

// TotalUnits sums the units assigned to an instructor for a term.
func (r *FacultyLoadRepository) TotalUnits(ctx context.Context, instructorID, academicYear, semester string) (int, error) {
	const query = `SELECT COALESCE(SUM(units), 0) FROM faculty_loads WHERE instructor_id = $1 AND academic_year = $2 AND semester = $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, instructorID, academicYear, semester); err != nil {
		return 0, fmt.Errorf("total faculty load units: %w", err)
	}
	return total, nil
}
