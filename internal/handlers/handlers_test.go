package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/database"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/models"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	all := append(database.SharedModels(), &models.Meal{}, &models.FoodItem{}, &models.CompletionRecord{})
	if err := database.MigrateModels(db, all); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:        "handler-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
	auth := NewAuthHandler(services.NewAuthService(db, cfg, nil))
	health := NewHealthHandler(db)

	app := fiber.New()
	app.Get("/api/health", health.Check)
	app.Post("/api/auth/register", auth.Register)
	app.Post("/api/auth/login", auth.Login)
	app.Post("/api/auth/google", auth.GoogleSignIn)
	app.Delete("/api/auth/account", middleware.JWTProtected(cfg), auth.DeleteAccount)
	return app, db
}

func send(t *testing.T, app *fiber.App, method, target, token, body string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	app, _ := setupApp(t)
	var health dto.HealthResponse
	if status := send(t, app, "GET", "/api/health", "", "", &health); status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if health.Status != "ok" || health.DB != "ok" {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestRegisterLoginDelete(t *testing.T) {
	app, db := setupApp(t)
	creds := `{"email": "ada@example.com", "password": "correct horse"}`

	var registered dto.AuthResponse
	if status := send(t, app, "POST", "/api/auth/register", "", creds, &registered); status != fiber.StatusCreated {
		t.Fatalf("register status = %d", status)
	}
	if registered.AccessToken == "" || registered.User.Email != "ada@example.com" {
		t.Fatalf("unexpected register response %+v", registered)
	}

	if status := send(t, app, "POST", "/api/auth/register", "", creds, nil); status != fiber.StatusConflict {
		t.Fatalf("duplicate register status = %d", status)
	}

	bad := `{"email": "ada@example.com", "password": "wrong password"}`
	if status := send(t, app, "POST", "/api/auth/login", "", bad, nil); status != fiber.StatusUnauthorized {
		t.Fatalf("bad login status = %d", status)
	}

	var loggedIn dto.AuthResponse
	if status := send(t, app, "POST", "/api/auth/login", "", creds, &loggedIn); status != fiber.StatusOK {
		t.Fatalf("login status = %d", status)
	}

	if status := send(t, app, "DELETE", "/api/auth/account", loggedIn.AccessToken, `{}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("delete without password status = %d", status)
	}
	status := send(t, app, "DELETE", "/api/auth/account", loggedIn.AccessToken, `{"password": "correct horse"}`, nil)
	if status != fiber.StatusOK {
		t.Fatalf("delete status = %d", status)
	}

	var users int64
	db.Model(&models.User{}).Count(&users)
	if users != 0 {
		t.Fatalf("user not removed, count=%d", users)
	}
}

func TestGoogleSignInNotConfigured(t *testing.T) {
	app, _ := setupApp(t)
	if status := send(t, app, "POST", "/api/auth/google", "", `{"id_token": "x"}`, nil); status != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", status)
	}
	if status := send(t, app, "POST", "/api/auth/google", "", `{}`, nil); status != fiber.StatusBadRequest {
		t.Fatalf("missing token status = %d, want 400", status)
	}
}
