package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bahari-bites/internal/config"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/middleware"
	"bahari-bites/internal/models"
	"bahari-bites/internal/services"
	"bahari-bites/internal/storage"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *storage.InMemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLogger()
	store := storage.NewInMemoryStore()
	accounts := services.NewAccountService(store, config.JWTConfig{Secret: "test-secret", TTL: time.Hour}, log)
	handler := NewAuthHandler(accounts)

	router := gin.New()
	router.POST("/api/v1/auth/register", handler.Register)
	router.POST("/api/v1/auth/login", handler.Login)

	authed := router.Group("", middleware.AuthRequired(accounts, log))
	authed.GET("/api/v1/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"account_id": middleware.AccountID(c)})
	})
	staff := authed.Group("", middleware.StaffOnly(log))
	staff.GET("/api/v1/staff-only", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, store
}

func doJSON(router *gin.Engine, method, url string, payload interface{}, token string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginAndAccessProtectedRoute(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
		Username: "amina",
		Email:    "amina@example.com",
		Password: "hunter22",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Credential: "amina",
		Password:   "hunter22",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Data.Token)

	// Token opens the customer route but not the staff one.
	w = doJSON(router, http.MethodGet, "/api/v1/me", nil, loginResp.Data.Token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/staff-only", nil, loginResp.Data.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := doJSON(router, http.MethodGet, "/api/v1/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/me", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _ := newAuthRouter(t)

	w := doJSON(router, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
		Username: "amina",
		Email:    "amina@example.com",
		Password: "hunter22",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{
		Credential: "amina",
		Password:   "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodPost, "/api/v1/auth/register", models.RegisterRequest{
		Username: "amina",
		Email:    "second@example.com",
		Password: "hunter22",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}
