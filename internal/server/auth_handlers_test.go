package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"atelier/internal/config"
	"atelier/internal/database"
	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestServer wires a Server over an in-memory database with the full
// route table. Redis and the Prometheus middleware stay nil so tests run
// without external services.
func newTestServer(t *testing.T) (*Server, *fiber.App, *gorm.DB) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret: "server-test-secret",
		Port:      "0",
		Env:       "test",
	}

	s := &Server{
		config:       cfg,
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		productRepo:  repository.NewProductRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
		cartRepo:     repository.NewCartRepository(db),
		orderRepo:    repository.NewOrderRepository(db),
		chatRepo:     repository.NewChatRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
		eventRepo:    repository.NewEventRepository(db),
	}
	s.chatService = service.NewChatService(s.chatRepo)
	s.orderService = service.NewOrderService(db, s.cartRepo, s.orderRepo, s.chatService)
	s.catalogService = service.NewCatalogService(s.productRepo, s.categoryRepo)
	s.accountService = service.NewAccountService(s.userRepo, s.accountRepo, s.orderRepo, s.chatRepo)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp, decoded
}

// registerUser creates an account over the API and returns its token and id.
func registerUser(t *testing.T, app *fiber.App, email string) (string, uint) {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Test Shopper",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	return token, uint(user["id"].(float64))
}

func promoteToAdmin(t *testing.T, db *gorm.DB, userID uint) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", userID).Update("role", models.RoleAdmin).Error)
}

func TestRegister(t *testing.T) {
	_, app, _ := newTestServer(t)

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{
				"name": "Maya", "email": "maya@example.com", "password": "password123",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate email",
			body: map[string]string{
				"name": "Maya Again", "email": "maya@example.com", "password": "password123",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Missing fields",
			body: map[string]string{
				"email": "short@example.com",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Weak password",
			body: map[string]string{
				"name": "Shorty", "email": "short@example.com", "password": "abc",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Bad email",
			body: map[string]string{
				"name": "NoAt", "email": "not-an-email", "password": "password123",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", "", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestLogin(t *testing.T) {
	_, app, _ := newTestServer(t)
	registerUser(t, app, "maya@example.com")

	t.Run("Success", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "Maya@Example.com", "password": "password123",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("Wrong password", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "maya@example.com", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Unknown account", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "ghost@example.com", "password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	_, app, _ := newTestServer(t)
	token, userID := registerUser(t, app, "maya@example.com")

	t.Run("Me with valid token", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		user := body["user"].(map[string]any)
		assert.EqualValues(t, userID, user["id"].(float64))
	})

	t.Run("Missing token", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Garbage token", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/auth/me", "not.a.jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAdminRequired(t *testing.T) {
	_, app, db := newTestServer(t)
	customerToken, _ := registerUser(t, app, "maya@example.com")
	adminToken, adminID := registerUser(t, app, "admin@example.com")
	promoteToAdmin(t, db, adminID)

	t.Run("Customer is rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodGet, "/api/admin/metrics", customerToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Admin passes", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/admin/metrics", adminToken, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 30, body["window_days"].(float64))
	})
}
