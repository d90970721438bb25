package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unidesk/uniportal-api/internal/authz"
	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
	"github.com/unidesk/uniportal-api/pkg/export"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	ReplaceItems(ctx context.Context, scheduleID string, items []models.ScheduleItem) error
	Transition(ctx context.Context, id string, fn func(*models.Schedule) error) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type notifier interface {
	Dispatch(n models.Notification)
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type roomLookup interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// ScheduleCacheConfig controls the approved-timetable cache.
type ScheduleCacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ScheduleService owns the schedule lifecycle: authoring, the approval state
// machine, exports, and the approved-timetable cache. Transition guards run
// on the row re-read under lock, so a schedule that changed hands between
// request and commit is caught at commit time.
type ScheduleService struct {
	repo          scheduleRepository
	programs      programLookup
	users         userDirectory
	subjects      subjectLookup
	rooms         roomLookup
	cache         scheduleCache
	notifications notifier
	policy        authz.SchedulePolicy
	validator     *validator.Validate
	logger        *zap.Logger
	cacheCfg      ScheduleCacheConfig

	pdf *export.PDFExporter
	csv *export.CSVExporter
}

// NewScheduleService constructs a ScheduleService instance.
func NewScheduleService(
	repo scheduleRepository,
	programs programLookup,
	users userDirectory,
	subjects subjectLookup,
	rooms roomLookup,
	cache scheduleCache,
	notifications notifier,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheCfg ScheduleCacheConfig,
) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ScheduleService{
		repo:          repo,
		programs:      programs,
		users:         users,
		subjects:      subjects,
		rooms:         rooms,
		cache:         cache,
		notifications: notifications,
		validator:     validate,
		logger:        logger,
		cacheCfg:      cacheCfg,
		pdf:           export.NewPDFExporter(),
		csv:           export.NewCSVExporter(),
	}
}

// List returns schedules visible to the actor. Instructors and students see
// approved schedules only; program and department heads are pinned to their
// slice of the hierarchy.
func (s *ScheduleService) List(ctx context.Context, actor *models.User, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleProgramHead:
		if actor.ProgramID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
		}
		filter.ProgramIDs = []string{*actor.ProgramID}
	case models.RoleDepartmentHead:
		if actor.DepartmentID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
		}
		filter.DepartmentID = *actor.DepartmentID
	case models.RoleInstructor, models.RoleStudent:
		approved := models.ScheduleStatusApproved
		filter.Status = &approved
		if actor.Role == models.RoleStudent {
			if actor.ProgramID == nil {
				return nil, 0, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
			}
			filter.ProgramIDs = []string{*actor.ProgramID}
		}
	default:
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list schedules")
	}

	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, total, nil
}

// Get returns a schedule with its timetable if the actor may view it.
// Approved schedules are served from cache when possible.
func (s *ScheduleService) Get(ctx context.Context, actor *models.User, id string) (*models.Schedule, error) {
	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	program, err := s.loadProgram(ctx, schedule.ProgramID)
	if err != nil {
		return nil, err
	}
	if !s.policy.View(actor, schedule, program) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this schedule")
	}
	return schedule, nil
}

// Create authors a new draft schedule owned by the acting program head.
func (s *ScheduleService) Create(ctx context.Context, actor *models.User, req models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	if actor.Role != models.RoleProgramHead || actor.ProgramID == nil || *actor.ProgramID != req.ProgramID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "schedules are authored by the owning program head")
	}
	if _, err := s.loadProgram(ctx, req.ProgramID); err != nil {
		return nil, err
	}

	schedule := &models.Schedule{
		ProgramID:    req.ProgramID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		YearLevel:    req.YearLevel,
		Block:        req.Block,
		Status:       models.ScheduleStatusDraft,
		CreatorID:    actor.ID,
		Items:        itemsFromInputs(req.Items),
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	return schedule, nil
}

// Update replaces the timetable of a draft or rejected schedule.
func (s *ScheduleService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Update(actor, schedule) {
		if schedule.Status != models.ScheduleStatusDraft && schedule.Status != models.ScheduleStatusRejected {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "schedule is not editable in its current status")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this schedule")
	}

	if err := s.repo.ReplaceItems(ctx, id, itemsFromInputs(req.Items)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule items")
	}
	return s.loadSchedule(ctx, id)
}

// Submit moves a draft or rejected schedule to pending approval. The guard
// runs again on the locked row, so two concurrent submits cannot both win.
func (s *ScheduleService) Submit(ctx context.Context, actor *models.User, id string) (*models.Schedule, error) {
	updated, err := s.repo.Transition(ctx, id, func(current *models.Schedule) error {
		if !s.policy.Submit(actor, current) {
			if current.Status != models.ScheduleStatusDraft && current.Status != models.ScheduleStatusRejected {
				return appErrors.Clone(appErrors.ErrInvalidTransition, "only draft or rejected schedules can be submitted")
			}
			return appErrors.Clone(appErrors.ErrForbidden, "not allowed to submit this schedule")
		}
		now := time.Now().UTC()
		current.Status = models.ScheduleStatusPending
		current.SubmittedAt = &now
		// Remarks from the last rejection stay visible to the reviewer
		// until the next verdict overwrites them.
		current.ReviewerID = nil
		current.ReviewedAt = nil
		return nil
	})
	if err != nil {
		return nil, s.transitionError(err, "failed to submit schedule")
	}

	s.notifyDepartmentHeads(ctx, updated)
	return updated, nil
}

// Review applies an approve or reject verdict to a pending schedule. The
// review guard is re-evaluated on the locked row: a schedule already decided
// by a concurrent reviewer fails with a conflict instead of being overwritten.
func (s *ScheduleService) Review(ctx context.Context, actor *models.User, id string, req models.ReviewScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if req.Decision == models.ReviewDecisionReject && strings.TrimSpace(req.Remarks) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remarks are required when rejecting")
	}

	if _, err := s.loadSchedule(ctx, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.Transition(ctx, id, func(current *models.Schedule) error {
		// Resolve the program inside the transaction so the reviewer is
		// checked against the schedule's current parent department, not a
		// snapshot taken before the row lock.
		program, err := s.loadProgram(ctx, current.ProgramID)
		if err != nil {
			return err
		}
		if !s.policy.Review(actor, current, program) {
			if current.Status != models.ScheduleStatusPending {
				return appErrors.Clone(appErrors.ErrInvalidTransition, "schedule is not pending approval")
			}
			return appErrors.Clone(appErrors.ErrForbidden, "not allowed to review this schedule")
		}
		now := time.Now().UTC()
		current.ReviewerID = &actor.ID
		current.ReviewedAt = &now
		if req.Decision == models.ReviewDecisionApprove {
			current.Status = models.ScheduleStatusApproved
		} else {
			current.Status = models.ScheduleStatusRejected
		}
		if strings.TrimSpace(req.Remarks) != "" {
			remarks := req.Remarks
			current.ReviewRemarks = &remarks
		} else {
			current.ReviewRemarks = nil
		}
		return nil
	})
	if err != nil {
		return nil, s.transitionError(err, "failed to review schedule")
	}

	s.invalidateCache(ctx, updated.ID)
	s.notifyCreator(updated)
	return updated, nil
}

// Delete removes a draft schedule.
func (s *ScheduleService) Delete(ctx context.Context, actor *models.User, id string) error {
	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.Delete(actor, schedule) {
		if schedule.Status != models.ScheduleStatusDraft {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "only draft schedules can be deleted")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this schedule")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.invalidateCache(ctx, id)
	return nil
}

// Export renders a schedule the actor may view as PDF or CSV.
func (s *ScheduleService) Export(ctx context.Context, actor *models.User, id, format string) ([]byte, string, error) {
	schedule, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	program, err := s.loadProgram(ctx, schedule.ProgramID)
	if err != nil {
		return nil, "", err
	}

	dataset := s.buildDataset(ctx, schedule)
	title := fmt.Sprintf("%s Timetable", program.Code)
	subtitle := fmt.Sprintf("AY %s, Semester %s, Year %d Block %s", schedule.AcademicYear, schedule.Semester, schedule.YearLevel, schedule.Block)

	switch strings.ToLower(format) {
	case "pdf":
		payload, err := s.pdf.Render(dataset, title, subtitle)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func (s *ScheduleService) buildDataset(ctx context.Context, schedule *models.Schedule) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Day", "Time", "Subject", "Section", "Room", "Instructor"},
	}
	for _, item := range schedule.Items {
		row := map[string]string{
			"Day":     titleDay(item.DayOfWeek),
			"Time":    fmt.Sprintf("%s - %s", item.StartTime, item.EndTime),
			"Section": item.Section,
		}
		if subject, err := s.subjects.FindByID(ctx, item.SubjectID); err == nil {
			row["Subject"] = fmt.Sprintf("%s %s", subject.Code, subject.Name)
		} else {
			row["Subject"] = item.SubjectID
		}
		if item.RoomID != nil {
			if room, err := s.rooms.FindByID(ctx, *item.RoomID); err == nil {
				row["Room"] = room.Code
			}
		}
		if item.InstructorID != nil {
			if instructor, err := s.users.FindByID(ctx, *item.InstructorID); err == nil {
				row["Instructor"] = instructor.FullName
			}
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}

func (s *ScheduleService) loadSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	if s.cacheCfg.Enabled && s.cache != nil {
		var cached models.Schedule
		if err := s.cache.Get(ctx, scheduleCacheKey(id), &cached); err == nil {
			return &cached, nil
		}
	}

	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	// Only settled timetables are worth caching; drafts churn.
	if s.cacheCfg.Enabled && s.cache != nil && schedule.Status == models.ScheduleStatusApproved {
		if err := s.cache.Set(ctx, scheduleCacheKey(id), schedule, s.cacheCfg.TTL); err != nil {
			s.logger.Warn("failed to cache schedule", zap.String("schedule_id", id), zap.Error(err))
		}
	}
	return schedule, nil
}

func (s *ScheduleService) loadProgram(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.programs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

func (s *ScheduleService) invalidateCache(ctx context.Context, id string) {
	if !s.cacheCfg.Enabled || s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, scheduleCacheKey(id)); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.String("schedule_id", id), zap.Error(err))
	}
}

func (s *ScheduleService) notifyDepartmentHeads(ctx context.Context, schedule *models.Schedule) {
	if s.notifications == nil {
		return
	}
	program, err := s.loadProgram(ctx, schedule.ProgramID)
	if err != nil {
		s.logger.Warn("failed to resolve program for submit notification", zap.Error(err))
		return
	}

	role := models.RoleDepartmentHead
	heads, _, err := s.users.List(ctx, models.UserFilter{Role: &role, DepartmentID: program.DepartmentID})
	if err != nil {
		s.logger.Warn("failed to resolve department heads for notification", zap.Error(err))
		return
	}
	for _, head := range heads {
		s.notifications.Dispatch(models.Notification{
			UserID:   head.ID,
			Title:    "Schedule submitted for approval",
			Message:  fmt.Sprintf("%s AY %s Sem %s Year %d Block %s is awaiting your review.", program.Code, schedule.AcademicYear, schedule.Semester, schedule.YearLevel, schedule.Block),
			Severity: models.NotificationSeverityInfo,
			Link:     "/schedules/" + schedule.ID,
		})
	}
}

func (s *ScheduleService) notifyCreator(schedule *models.Schedule) {
	if s.notifications == nil {
		return
	}
	n := models.Notification{
		UserID: schedule.CreatorID,
		Link:   "/schedules/" + schedule.ID,
	}
	if schedule.Status == models.ScheduleStatusApproved {
		n.Title = "Schedule approved"
		n.Message = "Your submitted schedule has been approved."
		n.Severity = models.NotificationSeveritySuccess
	} else {
		n.Title = "Schedule rejected"
		n.Severity = models.NotificationSeverityWarning
		n.Message = "Your submitted schedule was rejected."
		if schedule.ReviewRemarks != nil {
			n.Message = fmt.Sprintf("Your submitted schedule was rejected: %s", *schedule.ReviewRemarks)
		}
	}
	s.notifications.Dispatch(n)
}

func (s *ScheduleService) transitionError(err error, fallback string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
}

func itemsFromInputs(inputs []models.ScheduleItemInput) []models.ScheduleItem {
	items := make([]models.ScheduleItem, 0, len(inputs))
	for i, in := range inputs {
		items = append(items, models.ScheduleItem{
			SubjectID:    in.SubjectID,
			InstructorID: in.InstructorID,
			RoomID:       in.RoomID,
			DayOfWeek:    strings.ToLower(in.DayOfWeek),
			StartTime:    in.StartTime,
			EndTime:      in.EndTime,
			Section:      in.Section,
			Position:     i,
		})
	}
	return items
}

func scheduleCacheKey(id string) string {
	return "schedule:approved:" + id
}

func titleDay(day string) string {
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + day[1:]
}
