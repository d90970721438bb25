package handler

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/unidesk/uniportal-api/internal/middleware"
	"github.com/unidesk/uniportal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// accountFromContext returns the user row loaded by the account gate.
func accountFromContext(c *gin.Context) *models.User {
	value, exists := c.Get(middleware.ContextAccountKey)
	if !exists {
		return nil
	}
	account, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return account
}

type programResolver interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

// actorProgram resolves the actor's own program when their role carries one.
// A dangling program reference resolves to nil; the policies then deny.
func actorProgram(ctx context.Context, programs programResolver, actor *models.User) (*models.Program, error) {
	if actor == nil || actor.ProgramID == nil || programs == nil {
		return nil, nil
	}
	program, err := programs.FindByID(ctx, *actor.ProgramID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return program, nil
}
