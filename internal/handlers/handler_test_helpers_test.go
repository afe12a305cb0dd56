package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/cache"
	"github.com/eventpress/eventpress/internal/database/testutil"
	"github.com/eventpress/eventpress/internal/middleware"
	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/internal/permissions"
	"github.com/eventpress/eventpress/internal/services"
	"github.com/eventpress/eventpress/pkg/response"
)

const testUserHeader = "X-Test-User"

type stubNotifier struct {
	mu            sync.Mutex
	invites       []string
	verifications []string
}

func (n *stubNotifier) NotifyInvite(_ context.Context, ticket *models.StaffTicket, _ *models.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, ticket.ID)
	return nil
}

func (n *stubNotifier) NotifyVerification(_ context.Context, ticket *models.StaffTicket, _ *models.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, ticket.ID)
	return nil
}

type handlerEnv struct {
	db       *gorm.DB
	fixture  testutil.Fixture
	staff    *services.StaffService
	notifier *stubNotifier
	router   *gin.Engine
}

// newHandlerEnv wires the handlers against an in-memory database. Authentication is
// replaced by a header carrying the user ID.
func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fixture := testutil.SeedEvent(t, db, "Main Hall", "Side Room")
	notifier := &stubNotifier{}

	staff, err := services.NewStaffService(db, services.WithStaffNotifier(notifier))
	require.NoError(t, err)
	flow, err := services.NewClaimFlow(staff, cache.NewDatabaseStore(db))
	require.NoError(t, err)
	checker, err := permissions.NewChecker(db)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		if userID := c.GetHeader(testUserHeader); userID != "" {
			c.Set(middleware.CtxUserIDKey, userID)
		}
		c.Next()
	})

	staffHandler := NewStaffHandler(staff, checker)
	manageTicket := middleware.RequireTicketManager(checker, "id")
	api.POST("/staff", staffHandler.Create)
	api.GET("/staff/:id", manageTicket, staffHandler.Get)
	api.PATCH("/staff/:id", manageTicket, staffHandler.Update)
	api.DELETE("/staff/:id", manageTicket, staffHandler.Delete)
	api.POST("/staff/:id/booths/:boothID", manageTicket, staffHandler.GrantBooth)
	api.DELETE("/staff/:id/booths/:boothID", manageTicket, staffHandler.RevokeBooth)
	api.POST("/staff/:id/invite-email", manageTicket, staffHandler.SendInvite)
	api.GET("/events/:eventID/staff", middleware.RequireEventManager(checker, "eventID"), staffHandler.ListByEvent)
	api.GET("/users/me/staff", staffHandler.ListMine)

	claimHandler := NewClaimHandler(flow)
	api.GET("/claim", claimHandler.State)
	api.POST("/claim/code", claimHandler.SubmitCode)
	api.POST("/claim/verify", claimHandler.SubmitVerification)
	api.POST("/claim/resend", claimHandler.Resend)
	api.POST("/claim/back", claimHandler.Back)
	api.DELETE("/claim", claimHandler.Cancel)

	api.GET("/booths/:id/access", NewBoothHandler(checker).Access)

	return &handlerEnv{db: db, fixture: fixture, staff: staff, notifier: notifier, router: r}
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

func (env *handlerEnv) do(t *testing.T, method, path, userID string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var payload envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload), w.Body.String())
	return w, payload
}

func decodeData[T any](t *testing.T, payload envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(payload.Data, &out))
	return out
}

func (env *handlerEnv) createTicket(t *testing.T, email string, booths ...string) *services.StaffMember {
	t.Helper()
	req := services.CreateStaffRequest{Event: env.fixture.Event.ID, Booths: booths}
	if email != "" {
		req.VerificationEmail = &email
	}
	member, err := env.staff.CreateStaff(context.Background(), req)
	require.NoError(t, err)
	return member
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, payload envelope, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	require.False(t, payload.Success)
	require.NotNil(t, payload.Error)
	require.Equal(t, code, payload.Error.Code)
}
