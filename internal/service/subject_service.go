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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// SubjectService provides subject catalog use cases. Subjects are owned and
// managed by the department head of their department.
type SubjectService struct {
	repo      subjectRepository
	policy    authz.SubjectPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService instance.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects in the actor's department.
func (s *SubjectService) List(ctx context.Context, actor *models.User, filter models.SubjectFilter) ([]models.Subject, int, error) {
	if !s.policy.ViewAny(actor) {
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list subjects")
	}
	deptID, ok := authz.InferredDepartmentID(actor, nil)
	if !ok {
		return nil, 0, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
	}
	filter.DepartmentID = deptID

	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, total, nil
}

// Get returns a subject the actor may view.
func (s *SubjectService) Get(ctx context.Context, actor *models.User, id string) (*models.Subject, error) {
	subject, err := s.findSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.View(actor, subject) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this subject")
	}
	return subject, nil
}

// Create adds a subject to the actor's department. A subject needs contact
// hours: lecture and lab hours may not both be zero.
func (s *SubjectService) Create(ctx context.Context, actor *models.User, req models.CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if !s.policy.Create(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create subjects")
	}
	deptID, ok := authz.InferredDepartmentID(actor, nil)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
	}
	if req.LectureHours <= 0 && req.LabHours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecture and lab hours may not both be zero")
	}

	subject := &models.Subject{
		DepartmentID: deptID,
		Code:         req.Code,
		Name:         req.Name,
		Units:        req.Units,
		LectureHours: req.LectureHours,
		LabHours:     req.LabHours,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update edits a subject in the actor's department.
func (s *SubjectService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject, err := s.findSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Update(actor, subject) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this subject")
	}
	if req.LectureHours <= 0 && req.LabHours <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecture and lab hours may not both be zero")
	}

	subject.Code = req.Code
	subject.Name = req.Name
	subject.Units = req.Units
	subject.LectureHours = req.LectureHours
	subject.LabHours = req.LabHours
	subject.IsActive = req.IsActive
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject from the actor's department.
func (s *SubjectService) Delete(ctx context.Context, actor *models.User, id string) error {
	subject, err := s.findSubject(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.Delete(actor, subject) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this subject")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

func (s *SubjectService) findSubject(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}
