package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/unidesk/uniportal-api/internal/middleware"
	"github.com/unidesk/uniportal-api/internal/models"
	"github.com/unidesk/uniportal-api/internal/service"
	"github.com/unidesk/uniportal-api/pkg/jobs"
)

func jobsTestConfig() jobs.QueueConfig {
	return jobs.QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 1, RetryDelay: time.Millisecond}
}

type notificationRepoStub struct {
	rows []models.Notification
}

func (s *notificationRepoStub) Create(_ context.Context, n *models.Notification) error {
	s.rows = append(s.rows, *n)
	return nil
}

func (s *notificationRepoStub) List(_ context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var out []models.Notification
	for _, n := range s.rows {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (s *notificationRepoStub) CountUnread(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range s.rows {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *notificationRepoStub) MarkRead(_ context.Context, id, userID string, readAt time.Time) error {
	for i := range s.rows {
		if s.rows[i].ID == id && s.rows[i].UserID == userID && s.rows[i].ReadAt == nil {
			s.rows[i].ReadAt = &readAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *notificationRepoStub) MarkAllRead(_ context.Context, userID string, readAt time.Time) error {
	for i := range s.rows {
		if s.rows[i].UserID == userID && s.rows[i].ReadAt == nil {
			s.rows[i].ReadAt = &readAt
		}
	}
	return nil
}

type roomRepoStub struct {
	rooms map[string]models.Room
}

func (s *roomRepoStub) List(_ context.Context, _ models.RoomFilter) ([]models.Room, int, error) {
	var out []models.Room
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (s *roomRepoStub) FindByID(_ context.Context, id string) (*models.Room, error) {
	room, ok := s.rooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &room, nil
}

func (s *roomRepoStub) Create(_ context.Context, room *models.Room) error {
	s.rooms[room.ID] = *room
	return nil
}

func (s *roomRepoStub) Update(_ context.Context, room *models.Room) error {
	s.rooms[room.ID] = *room
	return nil
}

func (s *roomRepoStub) Delete(_ context.Context, id string) error {
	delete(s.rooms, id)
	return nil
}

type userRepoStub struct {
	users map[string]*models.User
}

func (s *userRepoStub) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *userRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (s *userRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) Create(_ context.Context, user *models.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) Update(_ context.Context, user *models.User) error {
	s.users[user.ID] = user
	return nil
}

func (s *userRepoStub) Deactivate(_ context.Context, id string) error {
	if u, ok := s.users[id]; ok {
		u.IsActive = false
		u.Status = models.UserStatusInactive
	}
	return nil
}

func (s *userRepoStub) CreateAuditLog(_ context.Context, _ *models.AuditLog) error {
	return nil
}

type programLookupStub struct {
	programs map[string]*models.Program
}

func (s *programLookupStub) FindByID(_ context.Context, id string) (*models.Program, error) {
	p, ok := s.programs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func buildTestRouter(notifRepo *notificationRepoStub, roomRepo *roomRepoStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Test requests carry the account in headers instead of running the
	// full JWT and activation stack.
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			role := models.UserRole(c.GetHeader("X-Test-Role"))
			c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: role})
			c.Set(middleware.ContextAccountKey, &models.User{
				ID:       id,
				Role:     role,
				IsActive: true,
				Status:   models.UserStatusActive,
			})
		}
		c.Next()
	})

	notifHandler := NewNotificationHandler(service.NewNotificationService(notifRepo, jobsTestConfig(), nil))
	roomHandler := NewRoomHandler(service.NewRoomService(roomRepo, nil, nil))

	router.GET("/notifications", notifHandler.List)
	router.GET("/notifications/unread-count", notifHandler.UnreadCount)
	router.POST("/notifications/:id/read", notifHandler.MarkRead)
	router.GET("/rooms", roomHandler.List)
	router.POST("/rooms", middleware.RequireRoles(models.RoleAdmin), roomHandler.Create)

	return router
}

// buildUserRouter mounts the user routes the way RegisterRoutes does: no
// group-level role filter, the user policy decides per request. The injected
// account carries its organizational binding so scoped access is exercised.
func buildUserRouter(users *userRepoStub, programs *programLookupStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			if account, ok := users.users[id]; ok {
				c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: account.ID, Role: account.Role})
				c.Set(middleware.ContextAccountKey, account)
			}
		}
		c.Next()
	})

	h := NewUserHandler(service.NewUserService(users, programs, nil, nil, nil))
	router.GET("/users/:id", h.Get)
	router.PUT("/users/:id", h.Update)

	return router
}

func doRequest(router *gin.Engine, method, path, userID string, role models.UserRole) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
		req.Header.Set("X-Test-Role", string(role))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNotificationRoutes(t *testing.T) {
	now := time.Now().UTC()
	repo := &notificationRepoStub{rows: []models.Notification{
		{ID: "n-1", UserID: "u-1", Title: "Schedule approved", Severity: models.NotificationSeveritySuccess, CreatedAt: now},
		{ID: "n-2", UserID: "u-1", Title: "Schedule rejected", Severity: models.NotificationSeverityWarning, CreatedAt: now},
		{ID: "n-3", UserID: "u-2", Title: "Other user's", Severity: models.NotificationSeverityInfo, CreatedAt: now},
	}}
	router := buildTestRouter(repo, &roomRepoStub{rooms: map[string]models.Room{}})

	t.Run("list scoped to caller", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/notifications", "u-1", models.RoleProgramHead)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), "Schedule approved")
		require.NotContains(t, resp.Body.String(), "Other user's")
	})

	t.Run("unauthorized without claims", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/notifications", "", "")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("unread count", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/notifications/unread-count", "u-1", models.RoleProgramHead)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"unread":2`)
	})

	t.Run("mark read scoped to owner", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/notifications/n-3/read", "u-1", models.RoleProgramHead)
		require.Equal(t, http.StatusNotFound, resp.Code)

		resp = doRequest(router, http.MethodPost, "/notifications/n-1/read", "u-1", models.RoleProgramHead)
		require.Equal(t, http.StatusNoContent, resp.Code)
	})
}

func doJSONRequest(router *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUserRoutesPolicyScoped(t *testing.T) {
	prog := "prog-10"
	otherProg := "prog-20"
	repo := &userRepoStub{users: map[string]*models.User{
		"ph-1": {ID: "ph-1", Role: models.RoleProgramHead, ProgramID: &prog, IsActive: true, Status: models.UserStatusActive},
		"st-1": {ID: "st-1", Role: models.RoleStudent, ProgramID: &prog, IsActive: true, Status: models.UserStatusActive},
		"st-2": {ID: "st-2", Role: models.RoleStudent, ProgramID: &otherProg, IsActive: true, Status: models.UserStatusActive},
	}}
	programs := &programLookupStub{programs: map[string]*models.Program{
		"prog-10": {ID: "prog-10", DepartmentID: "dept-5"},
		"prog-20": {ID: "prog-20", DepartmentID: "dept-9"},
	}}
	router := buildUserRouter(repo, programs)

	t.Run("any role views itself", func(t *testing.T) {
		resp := doJSONRequest(router, http.MethodGet, "/users/st-1", "st-1", "")
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("any role updates itself", func(t *testing.T) {
		resp := doJSONRequest(router, http.MethodPut, "/users/st-1", "st-1", `{"full_name":"Renamed Student"}`)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, "Renamed Student", repo.users["st-1"].FullName)
	})

	t.Run("program head reaches same-program user", func(t *testing.T) {
		resp := doJSONRequest(router, http.MethodGet, "/users/st-1", "ph-1", "")
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("program head denied across programs", func(t *testing.T) {
		resp := doJSONRequest(router, http.MethodGet, "/users/st-2", "ph-1", "")
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("student denied on other users", func(t *testing.T) {
		resp := doJSONRequest(router, http.MethodGet, "/users/ph-1", "st-1", "")
		require.Equal(t, http.StatusForbidden, resp.Code)
	})
}

func TestRoomRouteRoleFilter(t *testing.T) {
	router := buildTestRouter(&notificationRepoStub{}, &roomRepoStub{rooms: map[string]models.Room{}})

	t.Run("read open to authenticated roles", func(t *testing.T) {
		resp := doRequest(router, http.MethodGet, "/rooms", "u-1", models.RoleStudent)
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("write is admin only", func(t *testing.T) {
		resp := doRequest(router, http.MethodPost, "/rooms", "u-1", models.RoleProgramHead)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})
}
