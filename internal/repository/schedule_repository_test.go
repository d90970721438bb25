package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
)

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "program_id", "academic_year", "semester", "year_level", "block", "status", "creator_id", "submitted_at", "review_remarks", "reviewer_id", "reviewed_at", "created_at", "updated_at"})
}

func TestScheduleRepositoryFindByIDLoadsItems(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1")).
		WithArgs("sched-1").
		WillReturnRows(scheduleRows().
			AddRow("sched-1", "prog-10", "2025-2026", "1", 2, "A", "draft", "user-2",
				sql.NullTime{}, sql.NullString{}, sql.NullString{}, sql.NullTime{}, now, now))

	itemRows := sqlmock.NewRows([]string{"id", "schedule_id", "subject_id", "instructor_id", "room_id", "day_of_week", "start_time", "end_time", "section", "position", "created_at"}).
		AddRow("item-1", "sched-1", "subj-1", sql.NullString{String: "inst-1", Valid: true}, sql.NullString{}, "monday", "08:00", "09:30", "2A", 0, now).
		AddRow("item-2", "sched-1", "subj-2", sql.NullString{}, sql.NullString{}, "tuesday", "10:00", "11:30", "2A", 1, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_items WHERE schedule_id = $1 ORDER BY position")).
		WithArgs("sched-1").
		WillReturnRows(itemRows)

	schedule, err := repo.FindByID(context.Background(), "sched-1")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusDraft, schedule.Status)
	require.Len(t, schedule.Items, 2)
	assert.Equal(t, "subj-1", schedule.Items[0].SubjectID)
	assert.Equal(t, 1, schedule.Items[1].Position)
}

func TestScheduleRepositoryListByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("s.program_id IN (SELECT id FROM programs WHERE department_id = $1)")).
		WithArgs("dept-5").
		WillReturnRows(scheduleRows().
			AddRow("sched-1", "prog-10", "2025-2026", "1", 2, "A", "pending_approval", "user-2",
				sql.NullTime{Time: now, Valid: true}, sql.NullString{}, sql.NullString{}, sql.NullTime{}, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("dept-5").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schedules, total, err := repo.List(context.Background(), models.ScheduleFilter{DepartmentID: "dept-5"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, schedules, 1)
	assert.Equal(t, models.ScheduleStatusPending, schedules[0].Status)
}

func TestScheduleRepositoryCreateInsertsItems(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	schedule := &models.Schedule{
		ProgramID:    "prog-10",
		AcademicYear: "2025-2026",
		Semester:     "1",
		YearLevel:    2,
		Block:        "A",
		Status:       models.ScheduleStatusDraft,
		CreatorID:    "user-2",
		Items: []models.ScheduleItem{
			{SubjectID: "subj-1", DayOfWeek: "monday", StartTime: "08:00", EndTime: "09:30", Section: "2A"},
		},
	}
	require.NoError(t, repo.Create(context.Background(), schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.Equal(t, schedule.ID, schedule.Items[0].ScheduleID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryTransitionCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE id = $1 FOR UPDATE")).
		WithArgs("sched-1").
		WillReturnRows(scheduleRows().
			AddRow("sched-1", "prog-10", "2025-2026", "1", 2, "A", "draft", "user-2",
				sql.NullTime{}, sql.NullString{}, sql.NullString{}, sql.NullTime{}, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET status =")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.Transition(context.Background(), "sched-1", func(s *models.Schedule) error {
		if s.Status != models.ScheduleStatusDraft {
			return appErrors.ErrInvalidTransition
		}
		ts := time.Now().UTC()
		s.Status = models.ScheduleStatusPending
		s.SubmittedAt = &ts
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusPending, updated.Status)
	assert.NotNil(t, updated.SubmittedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryTransitionGuardAborts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("sched-1").
		WillReturnRows(scheduleRows().
			AddRow("sched-1", "prog-10", "2025-2026", "1", 2, "A", "approved", "user-2",
				sql.NullTime{Time: now, Valid: true}, sql.NullString{}, sql.NullString{String: "head-1", Valid: true}, sql.NullTime{Time: now, Valid: true}, now, now))
	mock.ExpectRollback()

	updated, err := repo.Transition(context.Background(), "sched-1", func(s *models.Schedule) error {
		if s.Status != models.ScheduleStatusPending {
			return appErrors.ErrInvalidTransition
		}
		s.Status = models.ScheduleStatusApproved
		return nil
	})
	assert.Nil(t, updated)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryTransitionNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	updated, err := repo.Transition(context.Background(), "missing", func(s *models.Schedule) error {
		return nil
	})
	assert.Nil(t, updated)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleRepositoryDeleteRemovesItemsFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_items WHERE schedule_id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1")).
		WithArgs("sched-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "sched-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
