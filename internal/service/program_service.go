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

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.Program, int, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	Delete(ctx context.Context, id string) error
}

// ProgramService provides program use cases.
type ProgramService struct {
	repo      programRepository
	policy    authz.ProgramPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgramService constructs a ProgramService instance.
func NewProgramService(repo programRepository, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProgramService{repo: repo, validator: validate, logger: logger}
}

// List returns programs scoped to the actor's reach: a department head sees
// their department's programs, a program head or student their own program,
// an instructor and admin the full list.
func (s *ProgramService) List(ctx context.Context, actor *models.User, actorProgram *models.Program, filter models.ProgramFilter) ([]models.Program, int, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleInstructor:
	case models.RoleDepartmentHead:
		if actor.DepartmentID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
		}
		filter.DepartmentID = *actor.DepartmentID
	case models.RoleProgramHead, models.RoleStudent:
		if actorProgram == nil {
			return []models.Program{}, 0, nil
		}
		return []models.Program{*actorProgram}, 1, nil
	default:
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list programs")
	}

	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}
	return programs, total, nil
}

// Get returns a program the actor may view.
func (s *ProgramService) Get(ctx context.Context, actor *models.User, id string) (*models.Program, error) {
	program, err := s.findProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.View(actor, program) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this program")
	}
	return program, nil
}

// Create adds a program. The new program is pinned to the acting department
// head's department regardless of the payload.
func (s *ProgramService) Create(ctx context.Context, actor *models.User, req models.CreateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	if !s.policy.Create(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create programs")
	}
	if actor.DepartmentID == nil {
		return nil, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
	}

	program := &models.Program{
		DepartmentID: *actor.DepartmentID,
		Code:         req.Code,
		Name:         req.Name,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

// Update edits a program's descriptive fields.
func (s *ProgramService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateProgramRequest) (*models.Program, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}

	program, err := s.findProgram(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Update(actor, program) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this program")
	}

	program.Code = req.Code
	program.Name = req.Name
	if err := s.repo.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}
	return program, nil
}

// Delete removes a program from the actor's department.
func (s *ProgramService) Delete(ctx context.Context, actor *models.User, id string) error {
	program, err := s.findProgram(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.Delete(actor, program) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this program")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete program")
	}
	return nil
}

func (s *ProgramService) findProgram(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}
