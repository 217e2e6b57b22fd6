package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/auth"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/services"
	"github.com/parks-gardens/fieldops-api/internal/storage"
	"github.com/parks-gardens/fieldops-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *auth.TokenManager
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	repos := repository.New(db)
	tokens := auth.NewTokenManager("handler-test-secret", time.Hour)
	store := storage.NewFileStore(t.TempDir())

	router := gin.New()
	RegisterRoutes(router, Handlers{
		Auth:            NewAuthHandler(services.NewAuthService(repos, tokens)),
		Tasks:           NewTaskHandler(services.NewTaskService(repos, nil, time.UTC, 12*time.Hour)),
		Staff:           NewStaffHandler(services.NewStaffService(repos)),
		Machinery:       NewMachineryHandler(services.NewMachineryService(repos)),
		RiskAssessments: NewDocumentHandler(services.NewRiskAssessmentService(repos, store, 1<<20)),
		SWMS:            NewDocumentHandler(services.NewSWMSService(repos, store, 1<<20)),
		Dashboard:       NewDashboardHandler(services.NewDashboardService(repos, time.UTC)),
	}, tokens)

	return testEnv{db: db, router: router, tokens: tokens}
}

func (e testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.tokens.Issue(user.ID, user.Role)
	require.NoError(t, err)
	return token
}

// do sends a JSON request; token may be empty.
func (e testEnv) do(t *testing.T, method, url, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func assertStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}

