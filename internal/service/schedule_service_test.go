package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
)

type mockScheduleRepo struct {
	schedules map[string]*models.Schedule
	deleted   []string
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var out []models.Schedule
	for _, s := range m.schedules {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = "sched-new"
	}
	if m.schedules == nil {
		m.schedules = make(map[string]*models.Schedule)
	}
	copied := *schedule
	m.schedules[schedule.ID] = &copied
	return nil
}

func (m *mockScheduleRepo) ReplaceItems(ctx context.Context, scheduleID string, items []models.ScheduleItem) error {
	s, ok := m.schedules[scheduleID]
	if !ok {
		return sql.ErrNoRows
	}
	s.Items = items
	return nil
}

func (m *mockScheduleRepo) Transition(ctx context.Context, id string, fn func(*models.Schedule) error) (*models.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	copied := *s
	return &copied, nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	delete(m.schedules, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockProgramLookup struct {
	programs map[string]*models.Program
}

func (m *mockProgramLookup) FindByID(ctx context.Context, id string) (*models.Program, error) {
	p, ok := m.programs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

type mockUserDirectory struct {
	users map[string]*models.User
}

func (m *mockUserDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserDirectory) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.DepartmentID != "" && (u.DepartmentID == nil || *u.DepartmentID != filter.DepartmentID) {
			continue
		}
		out = append(out, *u)
	}
	return out, len(out), nil
}

type mockSubjectLookup struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectLookup) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	s, ok := m.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type mockRoomLookup struct {
	rooms map[string]*models.Room
}

func (m *mockRoomLookup) FindByID(ctx context.Context, id string) (*models.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return r, nil
}

type mockNotifier struct {
	sent []models.Notification
}

func (m *mockNotifier) Dispatch(n models.Notification) {
	m.sent = append(m.sent, n)
}

func strptr(s string) *string { return &s }

type scheduleFixture struct {
	svc      *ScheduleService
	repo     *mockScheduleRepo
	notifier *mockNotifier
	users    *mockUserDirectory
	programs *mockProgramLookup

	programHead *models.User
	deptHead    *models.User
	otherHead   *models.User
	student     *models.User
}

func newScheduleFixture(t *testing.T, status models.ScheduleStatus) *scheduleFixture {
	t.Helper()

	programHead := &models.User{ID: "ph-1", Role: models.RoleProgramHead, ProgramID: strptr("prog-10"), IsActive: true, Status: models.UserStatusActive}
	deptHead := &models.User{ID: "dh-1", Role: models.RoleDepartmentHead, DepartmentID: strptr("dept-5"), IsActive: true, Status: models.UserStatusActive}
	otherHead := &models.User{ID: "dh-2", Role: models.RoleDepartmentHead, DepartmentID: strptr("dept-9"), IsActive: true, Status: models.UserStatusActive}
	student := &models.User{ID: "st-1", Role: models.RoleStudent, ProgramID: strptr("prog-10"), IsActive: true, Status: models.UserStatusActive}

	repo := &mockScheduleRepo{schedules: map[string]*models.Schedule{
		"sched-1": {
			ID:           "sched-1",
			ProgramID:    "prog-10",
			AcademicYear: "2025-2026",
			Semester:     "1",
			YearLevel:    2,
			Block:        "A",
			Status:       status,
			CreatorID:    programHead.ID,
			Items: []models.ScheduleItem{
				{ID: "item-1", ScheduleID: "sched-1", SubjectID: "subj-1", DayOfWeek: "monday", StartTime: "08:00", EndTime: "09:30", Section: "2A"},
			},
		},
	}}
	programs := &mockProgramLookup{programs: map[string]*models.Program{
		"prog-10": {ID: "prog-10", DepartmentID: "dept-5", Code: "BSCS"},
	}}
	users := &mockUserDirectory{users: map[string]*models.User{
		programHead.ID: programHead,
		deptHead.ID:    deptHead,
		otherHead.ID:   otherHead,
	}}
	subjects := &mockSubjectLookup{subjects: map[string]*models.Subject{
		"subj-1": {ID: "subj-1", Code: "CS101", Name: "Intro to Computing", DepartmentID: "dept-5"},
	}}
	notifier := &mockNotifier{}

	svc := NewScheduleService(repo, programs, users, subjects, &mockRoomLookup{}, nil, notifier,
		validator.New(), zap.NewNop(), ScheduleCacheConfig{})

	return &scheduleFixture{
		svc:         svc,
		repo:        repo,
		notifier:    notifier,
		users:       users,
		programs:    programs,
		programHead: programHead,
		deptHead:    deptHead,
		otherHead:   otherHead,
		student:     student,
	}
}

func TestScheduleServiceSubmitSetsSubmittedAt(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusDraft)

	updated, err := f.svc.Submit(context.Background(), f.programHead, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusPending, updated.Status)
	require.NotNil(t, updated.SubmittedAt)
	assert.WithinDuration(t, time.Now().UTC(), *updated.SubmittedAt, time.Minute)

	// Department head of the owning department is notified.
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, f.deptHead.ID, f.notifier.sent[0].UserID)
}

func TestScheduleServiceResubmitKeepsRemarks(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusRejected)
	remarks := "room conflicts on Tuesday"
	f.repo.schedules["sched-1"].ReviewRemarks = &remarks
	f.repo.schedules["sched-1"].ReviewerID = &f.deptHead.ID

	updated, err := f.svc.Submit(context.Background(), f.programHead, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusPending, updated.Status)
	// The last rejection's remarks stay on the row until the next verdict.
	require.NotNil(t, updated.ReviewRemarks)
	assert.Equal(t, remarks, *updated.ReviewRemarks)
	assert.Nil(t, updated.ReviewerID)
	assert.Nil(t, updated.ReviewedAt)
}

func TestScheduleServiceApproveOverwritesCarriedRemarks(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)
	remarks := "needs fix"
	f.repo.schedules["sched-1"].ReviewRemarks = &remarks

	updated, err := f.svc.Review(context.Background(), f.deptHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusApproved, updated.Status)
	assert.Nil(t, updated.ReviewRemarks)
}

func TestScheduleServiceSubmitApprovedFails(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusApproved)

	_, err := f.svc.Submit(context.Background(), f.programHead, "sched-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestScheduleServiceSubmitByOutsiderForbidden(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusDraft)
	outsider := &models.User{ID: "ph-2", Role: models.RoleProgramHead, ProgramID: strptr("prog-99")}

	_, err := f.svc.Submit(context.Background(), outsider, "sched-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestScheduleServiceApprove(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	updated, err := f.svc.Review(context.Background(), f.deptHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusApproved, updated.Status)
	require.NotNil(t, updated.ReviewerID)
	assert.Equal(t, f.deptHead.ID, *updated.ReviewerID)
	assert.NotNil(t, updated.ReviewedAt)

	// Creator hears about the verdict.
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, f.programHead.ID, f.notifier.sent[0].UserID)
	assert.Equal(t, models.NotificationSeveritySuccess, f.notifier.sent[0].Severity)
}

func TestScheduleServiceRejectRequiresRemarks(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	_, err := f.svc.Review(context.Background(), f.deptHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionReject})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestScheduleServiceRejectStoresRemarks(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	updated, err := f.svc.Review(context.Background(), f.deptHead, "sched-1", models.ReviewScheduleRequest{
		Decision: models.ReviewDecisionReject,
		Remarks:  "overlapping lab sessions",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusRejected, updated.Status)
	require.NotNil(t, updated.ReviewRemarks)
	assert.Equal(t, "overlapping lab sessions", *updated.ReviewRemarks)

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].Message, "overlapping lab sessions")
}

func TestScheduleServiceDoubleReviewConflicts(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	_, err := f.svc.Review(context.Background(), f.deptHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionApprove})
	require.NoError(t, err)

	// Second verdict arrives after the first committed; guard re-runs on the
	// current row and refuses.
	_, err = f.svc.Review(context.Background(), f.deptHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionReject, Remarks: "late"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestScheduleServiceReviewCrossDepartmentForbidden(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	_, err := f.svc.Review(context.Background(), f.otherHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionApprove})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestScheduleServiceReviewSeesReparentedProgram(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	// The program moved to another department before the review ran; the
	// guard resolves the parent inside the transaction and must deny the
	// old department's head.
	f.programs.programs["prog-10"].DepartmentID = "dept-9"

	_, err := f.svc.Review(context.Background(), f.deptHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionApprove})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	updated, err := f.svc.Review(context.Background(), f.otherHead, "sched-1", models.ReviewScheduleRequest{Decision: models.ReviewDecisionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusApproved, updated.Status)
}

func TestScheduleServiceStudentSeesApprovedOnly(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	_, err := f.svc.Get(context.Background(), f.student, "sched-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	f.repo.schedules["sched-1"].Status = models.ScheduleStatusApproved
	schedule, err := f.svc.Get(context.Background(), f.student, "sched-1")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusApproved, schedule.Status)
}

func TestScheduleServiceUpdatePendingBlocked(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)

	_, err := f.svc.Update(context.Background(), f.programHead, "sched-1", models.UpdateScheduleRequest{
		Items: []models.ScheduleItemInput{{SubjectID: "subj-1", DayOfWeek: "monday", StartTime: "08:00", EndTime: "09:30", Section: "2A"}},
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestScheduleServiceDeleteDraftOnly(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusPending)
	err := f.svc.Delete(context.Background(), f.programHead, "sched-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))

	f.repo.schedules["sched-1"].Status = models.ScheduleStatusDraft
	require.NoError(t, f.svc.Delete(context.Background(), f.programHead, "sched-1"))
	assert.Equal(t, []string{"sched-1"}, f.repo.deleted)
}

func TestScheduleServiceCreateOwnProgramOnly(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusDraft)

	_, err := f.svc.Create(context.Background(), f.programHead, models.CreateScheduleRequest{
		ProgramID:    "prog-99",
		AcademicYear: "2025-2026",
		Semester:     "1",
		YearLevel:    1,
		Block:        "A",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	created, err := f.svc.Create(context.Background(), f.programHead, models.CreateScheduleRequest{
		ProgramID:    "prog-10",
		AcademicYear: "2025-2026",
		Semester:     "1",
		YearLevel:    1,
		Block:        "B",
		Items: []models.ScheduleItemInput{
			{SubjectID: "subj-1", DayOfWeek: "Friday", StartTime: "13:00", EndTime: "14:30", Section: "1B"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusDraft, created.Status)
	assert.Equal(t, f.programHead.ID, created.CreatorID)
	require.Len(t, created.Items, 1)
	assert.Equal(t, "friday", created.Items[0].DayOfWeek)
}

func TestScheduleServiceExportCSV(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusApproved)

	payload, contentType, err := f.svc.Export(context.Background(), f.deptHead, "sched-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "CS101")
	assert.Contains(t, string(payload), "Monday")
}

func TestScheduleServiceExportUnknownFormat(t *testing.T) {
	f := newScheduleFixture(t, models.ScheduleStatusApproved)

	_, _, err := f.svc.Export(context.Background(), f.deptHead, "sched-1", "xlsx")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
