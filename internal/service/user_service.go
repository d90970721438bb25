package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unidesk/uniportal-api/internal/authz"
	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deactivate(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type programLookup interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

type forcedLogout interface {
	ForceLogout(ctx context.Context, userID, reason string)
}

// UserService provides account management use cases. Every operation is
// policy-gated against the acting user's current row, not their token claims.
type UserService struct {
	repo      userRepository
	programs  programLookup
	sessions  forcedLogout
	policy    authz.UserPolicy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, programs programLookup, sessions forcedLogout, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, programs: programs, sessions: sessions, validator: validate, logger: logger}
}

// List returns users visible to the actor. Department and program heads are
// pinned to their own slice of the hierarchy regardless of requested filters.
func (s *UserService) List(ctx context.Context, actor *models.User, filter models.UserFilter) ([]models.User, int, error) {
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleDepartmentHead:
		if actor.DepartmentID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
		}
		filter.DepartmentID = *actor.DepartmentID
	case models.RoleProgramHead:
		if actor.ProgramID == nil {
			return nil, 0, appErrors.Clone(appErrors.ErrRoleMisconfigured, "")
		}
		filter.ProgramID = *actor.ProgramID
	default:
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "not allowed to list users")
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Get returns a single user the actor may view.
func (s *UserService) Get(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	target, targetProgram, err := s.loadTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.View(actor, target, targetProgram) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this user")
	}
	return target, nil
}

// Create provisions a new account. Department heads may only create accounts
// inside their own department and never other department heads; the resulting
// assignment must pass the role integrity check before anything is stored.
func (s *UserService) Create(ctx context.Context, actor *models.User, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
		ProgramID:    req.ProgramID,
		IsActive:     true,
		Status:       models.UserStatusActive,
	}

	userProgram, err := s.loadProgramOf(ctx, user)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleDepartmentHead:
		if req.Role == models.RoleDepartmentHead {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create department heads")
		}
		if actor.DepartmentID == nil || !authz.CanAccessDepartment(user, userProgram, *actor.DepartmentID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create users outside your department")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create users")
	}

	if err := authz.ValidateAssignment(user); err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.audit(ctx, actor.ID, models.AuditActionUserCreate, user.ID, map[string]interface{}{"email": user.Email, "role": user.Role})
	return user, nil
}

// Update edits profile fields of a user the actor may manage.
func (s *UserService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateUserRequest) (*models.User, error) {
	target, targetProgram, err := s.loadTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.Update(actor, target, targetProgram) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this user")
	}

	if req.FullName != nil {
		target.FullName = *req.FullName
	}
	if req.Active != nil {
		// Reactivation and deactivation keep both flags in step.
		target.IsActive = *req.Active
		if *req.Active {
			target.Status = models.UserStatusActive
		} else {
			target.Status = models.UserStatusInactive
		}
	}

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if req.Active != nil && !*req.Active && s.sessions != nil {
		s.sessions.ForceLogout(ctx, target.ID, "account deactivated")
	}

	s.audit(ctx, actor.ID, models.AuditActionUserUpdate, target.ID, nil)
	return target, nil
}

// Delete soft-deletes by deactivating the account. Self-deletion is refused
// even for admins.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id string) error {
	target, targetProgram, err := s.loadTarget(ctx, id)
	if err != nil {
		return err
	}
	if !s.policy.Delete(actor, target, targetProgram) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this user")
	}

	if err := s.repo.Deactivate(ctx, target.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}

	if s.sessions != nil {
		s.sessions.ForceLogout(ctx, target.ID, "account deactivated")
	}

	s.audit(ctx, actor.ID, models.AuditActionUserDelete, target.ID, nil)
	return nil
}

// AssignRole changes a user's role. The resulting assignment must still pass
// the role integrity check; a change that would strand organizational fields
// is refused rather than stored broken.
func (s *UserService) AssignRole(ctx context.Context, actor *models.User, id string, req models.AssignRoleRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}

	target, targetProgram, err := s.loadTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.AssignRole(actor, target, targetProgram, req.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to assign this role")
	}

	oldRole := target.Role
	target.Role = req.Role
	if err := authz.ValidateAssignment(target); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}

	s.audit(ctx, actor.ID, models.AuditActionRoleAssign, target.ID, map[string]interface{}{"from": oldRole, "to": req.Role})
	return target, nil
}

// AssignOrganization rebinds a user to a department and/or program. The
// program, when set, must belong to the department when both are given, and
// the resulting assignment must pass the role integrity check.
func (s *UserService) AssignOrganization(ctx context.Context, actor *models.User, id string, req models.AssignOrganizationRequest) (*models.User, error) {
	target, targetProgram, err := s.loadTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.policy.AssignOrganization(actor, target, targetProgram) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to reassign this user")
	}

	target.DepartmentID = req.DepartmentID
	target.ProgramID = req.ProgramID

	if req.ProgramID != nil {
		program, err := s.programs.FindByID(ctx, *req.ProgramID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "program does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
		}
		if req.DepartmentID != nil && program.DepartmentID != *req.DepartmentID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "program does not belong to the department")
		}
	}

	if err := authz.ValidateAssignment(target); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update organization")
	}

	s.audit(ctx, actor.ID, models.AuditActionOrgAssign, target.ID, map[string]interface{}{
		"department_id": req.DepartmentID,
		"program_id":    req.ProgramID,
	})
	return target, nil
}

func (s *UserService) loadTarget(ctx context.Context, id string) (*models.User, *models.Program, error) {
	target, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	targetProgram, err := s.loadProgramOf(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	return target, targetProgram, nil
}

func (s *UserService) loadProgramOf(ctx context.Context, user *models.User) (*models.Program, error) {
	if user.ProgramID == nil || *user.ProgramID == "" {
		return nil, nil
	}
	program, err := s.programs.FindByID(ctx, *user.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

func (s *UserService) audit(ctx context.Context, actorID, action, resourceID string, values map[string]interface{}) {
	var payload []byte
	if values != nil {
		payload, _ = json.Marshal(values)
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "users",
		ResourceID: &resourceID,
		NewValues:  payload,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
