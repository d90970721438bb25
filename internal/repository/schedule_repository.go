package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unidesk/uniportal-api/internal/models"
)

// ScheduleRepository provides database access for block schedules and their
// timetable items.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, program_id, academic_year, semester, year_level, block, status, creator_id, submitted_at, review_remarks, reviewer_id, reviewed_at, created_at, updated_at`

const scheduleItemColumns = `id, schedule_id, subject_id, instructor_id, room_id, day_of_week, start_time, end_time, section, position, created_at`

// List returns schedules matching the filter with total count. Items are not
// loaded; use FindByID for the full timetable.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	baseQuery := `FROM schedules s WHERE 1=1`
	var conditions []string
	var args []interface{}

	if len(filter.ProgramIDs) > 0 {
		placeholders := make([]string, len(filter.ProgramIDs))
		for i, id := range filter.ProgramIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("s.program_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.program_id IN (SELECT id FROM programs WHERE department_id = $%d)", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("s.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("s.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.CreatorID != "" {
		conditions = append(conditions, fmt.Sprintf("s.creator_id = $%d", len(args)+1))
		args = append(args, filter.CreatorID)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"academic_year": true,
		"semester":      true,
		"status":        true,
		"created_at":    true,
		"updated_at":    true,
		"submitted_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "updated_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY s.%s %s LIMIT %d OFFSET %d", scheduleColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID returns a schedule with its items ordered by position.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1 LIMIT 1`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule by id: %w", err)
	}

	itemsQuery := fmt.Sprintf(`SELECT %s FROM schedule_items WHERE schedule_id = $1 ORDER BY position`, scheduleItemColumns)
	if err := r.db.SelectContext(ctx, &schedule.Items, itemsQuery, id); err != nil {
		return nil, fmt.Errorf("load schedule items: %w", err)
	}

	return &schedule, nil
}

// Create inserts a new schedule together with its items.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO schedules (id, program_id, academic_year, semester, year_level, block, status, creator_id, created_at, updated_at)
		VALUES (:id, :program_id, :academic_year, :semester, :year_level, :block, :status, :creator_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	if err := insertItems(ctx, tx, schedule.ID, schedule.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ReplaceItems swaps the full item set of a schedule in one transaction.
func (r *ScheduleRepository) ReplaceItems(ctx context.Context, scheduleID string, items []models.ScheduleItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_items WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("clear schedule items: %w", err)
	}
	if err := insertItems(ctx, tx, scheduleID, items); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE schedules SET updated_at = $2 WHERE id = $1`, scheduleID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, tx *sqlx.Tx, scheduleID string, items []models.ScheduleItem) error {
	const query = `INSERT INTO schedule_items (id, schedule_id, subject_id, instructor_id, room_id, day_of_week, start_time, end_time, section, position, created_at)
		VALUES (:id, :schedule_id, :subject_id, :instructor_id, :room_id, :day_of_week, :start_time, :end_time, :section, :position, :created_at)`
	now := time.Now().UTC()
	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.ScheduleID = scheduleID
		item.Position = i
		item.CreatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, item); err != nil {
			return fmt.Errorf("insert schedule item: %w", err)
		}
	}
	return nil
}

// Transition re-reads the schedule under a row lock, applies fn to it, and
// persists the lifecycle columns. fn sees the current row, so status guards
// evaluated inside it hold against concurrent transitions; returning an error
// aborts the transaction.
func (r *ScheduleRepository) Transition(ctx context.Context, id string, fn func(*models.Schedule) error) (*models.Schedule, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1 FOR UPDATE`, scheduleColumns)
	var schedule models.Schedule
	if err := tx.GetContext(ctx, &schedule, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock schedule: %w", err)
	}

	if err := fn(&schedule); err != nil {
		return nil, err
	}

	schedule.UpdatedAt = time.Now().UTC()
	const update = `UPDATE schedules SET status = :status, submitted_at = :submitted_at, review_remarks = :review_remarks, reviewer_id = :reviewer_id, reviewed_at = :reviewed_at, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, update, &schedule); err != nil {
		return nil, fmt.Errorf("update schedule status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &schedule, nil
}

// Delete removes a schedule and its items.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_items WHERE schedule_id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
