package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unidesk/uniportal-api/internal/authz"
	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
)

type facultyLoadRepository interface {
	List(ctx context.Context, filter models.FacultyLoadFilter) ([]models.FacultyLoadDetail, error)
	Create(ctx context.Context, load *models.FacultyLoad) error
	Delete(ctx context.Context, id string) error
	TotalUnits(ctx context.Context, instructorID, academicYear, semester string) (int, error)
}

// maxLoadUnits caps per-term teaching load assignments.
const maxLoadUnits = 30

// FacultyLoadService manages instructor teaching loads. Department heads
// assign loads for subjects in their department; instructors view their own.
type FacultyLoadService struct {
	repo      facultyLoadRepository
	subjects  subjectLookup
	users     userDirectory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFacultyLoadService constructs a FacultyLoadService instance.
func NewFacultyLoadService(repo facultyLoadRepository, subjects subjectLookup, users userDirectory, validate *validator.Validate, logger *zap.Logger) *FacultyLoadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FacultyLoadService{repo: repo, subjects: subjects, users: users, validator: validate, logger: logger}
}

// List returns load rows. Instructors are pinned to their own loads;
// department heads and admins may query anyone's.
func (s *FacultyLoadService) List(ctx context.Context, actor *models.User, filter models.FacultyLoadFilter) ([]models.FacultyLoadDetail, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleDepartmentHead:
	case models.RoleInstructor:
		filter.InstructorID = actor.ID
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view faculty loads")
	}

	loads, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty loads")
	}
	return loads, nil
}

// Create assigns a subject section to an instructor. The subject must sit in
// the acting department head's department and the instructor's term load may
// not exceed the cap.
func (s *FacultyLoadService) Create(ctx context.Context, actor *models.User, req models.CreateFacultyLoadRequest) (*models.FacultyLoad, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty load payload")
	}

	if actor.Role != models.RoleAdmin {
		deptID, ok := authz.InferredDepartmentID(actor, nil)
		if !ok || actor.Role != models.RoleDepartmentHead {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to assign faculty loads")
		}
		subject, err := s.subjects.FindByID(ctx, req.SubjectID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
		}
		if subject.DepartmentID != deptID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another department")
		}
	}

	instructor, err := s.users.FindByID(ctx, req.InstructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "instructor does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Role != models.RoleInstructor {
		return nil, appErrors.Clone(appErrors.ErrValidation, "loads can only be assigned to instructors")
	}

	current, err := s.repo.TotalUnits(ctx, req.InstructorID, req.AcademicYear, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute current load")
	}
	if current+req.Units > maxLoadUnits {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment exceeds the instructor's term load cap")
	}

	load := &models.FacultyLoad{
		InstructorID: req.InstructorID,
		SubjectID:    req.SubjectID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Section:      req.Section,
		Units:        req.Units,
	}
	if err := s.repo.Create(ctx, load); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create faculty load")
	}
	return load, nil
}

// Delete removes a load assignment.
func (s *FacultyLoadService) Delete(ctx context.Context, actor *models.User, id string) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleDepartmentHead {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to remove faculty loads")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete faculty load")
	}
	return nil
}
