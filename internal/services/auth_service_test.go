package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/config"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/database"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/day"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/dto"
	"github.com/ahmetcoskunkizilkaya/diet-tracker/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubVerifier struct {
	claims *GoogleClaims
	err    error
}

func (s stubVerifier) Verify(string) (*GoogleClaims, error) {
	return s.claims, s.err
}

func setupAuth(t *testing.T, google IDTokenVerifier) (*AuthService, *gorm.DB) {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	all := append(database.SharedModels(), &models.Meal{}, &models.FoodItem{}, &models.CompletionRecord{})
	if err := database.MigrateModels(db, all); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:        "secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
	}
	return NewAuthService(db, cfg, google), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setupAuth(t, nil)

	resp, err := svc.Register(&dto.RegisterRequest{Email: " Me@Example.com ", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("missing tokens: %+v", resp)
	}
	if resp.User.Email != "me@example.com" {
		t.Fatalf("email not normalized: %q", resp.User.Email)
	}

	parsed, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if sub, _ := parsed.Claims.(jwt.MapClaims)["sub"].(string); sub != resp.User.ID.String() {
		t.Fatalf("sub = %q", sub)
	}

	if _, err := svc.Register(&dto.RegisterRequest{Email: "me@example.com", Password: "password123"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := svc.Register(&dto.RegisterRequest{Email: "short@example.com", Password: "123"}); !errors.Is(err, ErrWeakCredentials) {
		t.Fatalf("expected ErrWeakCredentials, got %v", err)
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "me@example.com", Password: "password123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "me@example.com", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "password123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := setupAuth(t, nil)
	resp, err := svc.Register(&dto.RegisterRequest{Email: "r@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	next, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == resp.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reusing a rotated token should fail, got %v", err)
	}

	if err := svc.Logout(&dto.LogoutRequest{RefreshToken: next.RefreshToken}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: next.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("logged out token should fail, got %v", err)
	}
}

func TestRefreshExpired(t *testing.T) {
	svc, _ := setupAuth(t, nil)
	resp, err := svc.Register(&dto.RegisterRequest{Email: "e@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: resp.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDeleteAccountRemovesMealData(t *testing.T) {
	svc, db := setupAuth(t, nil)
	resp, err := svc.Register(&dto.RegisterRequest{Email: "d@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	other, err := svc.Register(&dto.RegisterRequest{Email: "other@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register other: %v", err)
	}

	seed := func(owner uuid.UUID) uuid.UUID {
		meal := models.Meal{UserID: owner, Name: "Lunch", Items: []models.FoodItem{{Name: "Rice", Calories: 200}}}
		if err := db.Create(&meal).Error; err != nil {
			t.Fatalf("seed meal: %v", err)
		}
		rec := models.CompletionRecord{FoodItemID: meal.Items[0].ID, Day: day.Key(1)}
		if err := db.Create(&rec).Error; err != nil {
			t.Fatalf("seed completion: %v", err)
		}
		return meal.ID
	}
	seed(resp.User.ID)
	otherMeal := seed(other.User.ID)

	if err := svc.DeleteAccount(resp.User.ID, ""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
	if err := svc.DeleteAccount(resp.User.ID, "bad-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.DeleteAccount(resp.User.ID, "password123"); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	var meals, items, records int64
	db.Model(&models.Meal{}).Count(&meals)
	db.Model(&models.FoodItem{}).Count(&items)
	db.Model(&models.CompletionRecord{}).Count(&records)
	if meals != 1 || items != 1 || records != 1 {
		t.Fatalf("expected only the other user's data to remain: meals=%d items=%d records=%d", meals, items, records)
	}
	var left models.Meal
	if err := db.First(&left).Error; err != nil || left.ID != otherMeal {
		t.Fatalf("wrong meal survived: %v %v", left.ID, err)
	}

	if err := svc.DeleteAccount(resp.User.ID, "password123"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGoogleSignIn(t *testing.T) {
	claims := &GoogleClaims{Email: "g@example.com", EmailVerified: true}
	claims.Subject = "google-sub-1"
	svc, db := setupAuth(t, stubVerifier{claims: claims})

	first, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "token"})
	if err != nil {
		t.Fatalf("google sign in: %v", err)
	}
	if !first.User.IsGoogleUser {
		t.Fatal("expected google user")
	}

	second, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "token"})
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Fatal("second sign-in created a new user")
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("users = %d", count)
	}

	// Google accounts have no password to check.
	if err := svc.DeleteAccount(first.User.ID, ""); err != nil {
		t.Fatalf("delete google account: %v", err)
	}
}

func TestGoogleSignInLinksExistingEmail(t *testing.T) {
	claims := &GoogleClaims{Email: "link@example.com", EmailVerified: true}
	claims.Subject = "sub-link"
	svc, _ := setupAuth(t, stubVerifier{claims: claims})

	reg, err := svc.Register(&dto.RegisterRequest{Email: "link@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	resp, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "token"})
	if err != nil {
		t.Fatalf("google sign in: %v", err)
	}
	if resp.User.ID != reg.User.ID || !resp.User.IsGoogleUser {
		t.Fatalf("account not linked: %+v", resp.User)
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "link@example.com", Password: "password123"}); err != nil {
		t.Fatalf("password login should still work after linking: %v", err)
	}
}

func TestGoogleSignInUnverifiedEmailCannotTakeOverAccount(t *testing.T) {
	claims := &GoogleClaims{Email: "victim@example.com", EmailVerified: false}
	claims.Subject = "other-sub"
	svc, db := setupAuth(t, stubVerifier{claims: claims})

	if _, err := svc.Register(&dto.RegisterRequest{Email: "victim@example.com", Password: "password123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "token"})
	if !errors.Is(err, ErrEmailUnverified) {
		t.Fatalf("expected ErrEmailUnverified, got resp=%+v err=%v", resp, err)
	}

	var victim models.User
	if err := db.First(&victim, "email = ?", "victim@example.com").Error; err != nil {
		t.Fatalf("load victim: %v", err)
	}
	if victim.GoogleSubject != nil {
		t.Fatalf("unverified email linked google subject %q", *victim.GoogleSubject)
	}
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("users = %d, want 1", count)
	}
}

func TestGoogleSignInUnverifiedEmailKnownSubject(t *testing.T) {
	claims := &GoogleClaims{Email: "g2@example.com", EmailVerified: true}
	claims.Subject = "google-sub-2"
	stub := &stubVerifier{claims: claims}
	svc, _ := setupAuth(t, stub)

	first, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "token"})
	if err != nil {
		t.Fatalf("first sign in: %v", err)
	}

	// Same Google account later reporting its email as unverified still
	// signs in through the subject.
	stub.claims = &GoogleClaims{Email: "g2@example.com", EmailVerified: false}
	stub.claims.Subject = "google-sub-2"
	again, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "token"})
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if again.User.ID != first.User.ID {
		t.Fatal("subject match did not find the existing user")
	}
}

func TestDeleteAccountReportsStorageFaults(t *testing.T) {
	svc, db := setupAuth(t, nil)
	if err := database.Close(db); err != nil {
		t.Fatalf("close: %v", err)
	}

	err := svc.DeleteAccount(uuid.New(), "password123")
	if err == nil || errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected a storage error, got %v", err)
	}
}

func TestGoogleSignInErrors(t *testing.T) {
	svc, _ := setupAuth(t, stubVerifier{err: errors.New("bad signature")})
	if _, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{}); err == nil {
		t.Fatal("expected error for empty token")
	}
	if _, err := svc.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "x"}); err == nil {
		t.Fatal("expected verification error")
	}

	unconfigured, _ := setupAuth(t, nil)
	if _, err := unconfigured.GoogleSignIn(&dto.GoogleSignInRequest{IDToken: "x"}); !errors.Is(err, ErrGoogleNotConfigured) {
		t.Fatalf("expected ErrGoogleNotConfigured, got %v", err)
	}
}
