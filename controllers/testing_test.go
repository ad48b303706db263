package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kyleolivo/viet-food/models"
	"github.com/kyleolivo/viet-food/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testUserID = "user-1"

type fakeModerator struct {
	rejectText  bool
	rejectImage bool
	reason      string
	textCalls   int
	imageCalls  int
}

func (f *fakeModerator) ModerateText(ctx context.Context, text string) (services.ModerationResult, error) {
	f.textCalls++
	if f.rejectText {
		return services.ModerationResult{Appropriate: false, Reason: f.reason, Confidence: services.ConfidenceHigh}, nil
	}
	return services.ModerationResult{Appropriate: true, Confidence: services.ConfidenceHigh}, nil
}

func (f *fakeModerator) ModerateImage(ctx context.Context, data []byte, contentType string) (services.ModerationResult, error) {
	f.imageCalls++
	if f.rejectImage {
		return services.ModerationResult{Appropriate: false, Reason: f.reason, Confidence: services.ConfidenceHigh}, nil
	}
	return services.ModerationResult{Appropriate: true, Confidence: services.ConfidenceHigh}, nil
}

type fakeVision struct {
	result *services.Identification
	err    error
	calls  int
}

func (f *fakeVision) Identify(ctx context.Context, image []byte, contentType, userContext string) (*services.Identification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &services.Identification{
		Name:        "Pho Bo",
		Description: "Vietnamese beef noodle soup.",
		Ingredients: []string{"rice noodles", "beef"},
	}, nil
}

func fakeUpload(ctx context.Context, data []byte, contentType, filenamePrefix string) (string, error) {
	return "https://cdn.example.com/food-images/test.jpg", nil
}

type testEnv struct {
	router    *gin.Engine
	db        *gorm.DB
	audit     *services.AuditService
	security  *services.SecurityService
	moderator *fakeModerator
	vision    *fakeVision
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.FoodEntry{},
		&models.AuditLog{},
		&models.UserStatus{},
	))

	audit := services.NewAuditService(db)
	alerts := services.NewAlertService(audit)
	security := services.NewSecurityService(db, audit, alerts, services.DefaultRateLimits())
	foods := services.NewFoodService(db)
	moderator := &fakeModerator{}
	vision := &fakeVision{}

	foodCtl := NewFoodController(foods, security, audit, moderator)
	identifyCtl := NewIdentifyController(security, audit, moderator, vision, fakeUpload)
	adminCtl := NewAdminController(security)
	debugCtl := NewDebugController(audit)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		// Stand-in for the JWT middleware.
		c.Set("userID", testUserID)
		c.Set("email", "user@example.com")
		c.Next()
	})
	r.GET("/api/foods", foodCtl.List)
	r.POST("/api/foods", foodCtl.Create)
	r.DELETE("/api/foods/:id", foodCtl.Delete)
	r.POST("/api/identify", identifyCtl.Identify)
	r.GET("/api/debug/logs", debugCtl.Logs)
	r.POST("/api/admin/users/:id/lock", adminCtl.LockUser)
	r.POST("/api/admin/users/:id/unlock", adminCtl.UnlockUser)

	return &testEnv{
		router:    r,
		db:        db,
		audit:     audit,
		security:  security,
		moderator: moderator,
		vision:    vision,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func identifyRequest(t *testing.T, userContext string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fw, err := mw.CreateFormFile("image", "dish.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-image-bytes"))
	require.NoError(t, err)

	if userContext != "" {
		require.NoError(t, mw.WriteField("context", userContext))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/identify", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
