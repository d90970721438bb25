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

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByID(ctx context.Context, id string) (*models.Department, error)
	Update(ctx context.Context, dept *models.Department) error
}

// DepartmentService provides department use cases. Departments cannot be
// created or deleted through the API; the surface is view and update only.
type DepartmentService struct {
	repo      departmentRepository
	programs  programLookup
	policy    authz.DepartmentPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs a DepartmentService instance.
func NewDepartmentService(repo departmentRepository, programs programLookup, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DepartmentService{repo: repo, programs: programs, validator: validate, logger: logger}
}

// List returns departments visible to the actor: only the one the actor
// answers to, resolved through the hierarchical scoper.
func (s *DepartmentService) List(ctx context.Context, actor *models.User, actorProgram *models.Program) ([]models.Department, error) {
	deptID, ok := authz.InferredDepartmentID(actor, actorProgram)
	if !ok {
		return []models.Department{}, nil
	}

	dept, err := s.repo.FindByID(ctx, deptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Department{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return []models.Department{*dept}, nil
}

// Get returns a department the actor may view.
func (s *DepartmentService) Get(ctx context.Context, actor *models.User, actorProgram *models.Program, id string) (*models.Department, error) {
	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}

	if !s.policy.View(actor, actorProgram, dept) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this department")
	}
	return dept, nil
}

// Update edits a department's descriptive fields.
func (s *DepartmentService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateDepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}

	dept, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}

	if !s.policy.Update(actor, dept) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this department")
	}

	dept.Code = req.Code
	dept.Name = req.Name
	if err := s.repo.Update(ctx, dept); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	return dept, nil
}
