package services

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smarttodo/sync/internal/config"
	"github.com/smarttodo/sync/internal/database"
	"github.com/smarttodo/sync/internal/dto"
	"github.com/smarttodo/sync/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuthTestService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard, TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := &config.Config{
		JWTSecret:        "test-secret-for-auth-tests",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 720 * time.Hour,
	}
	return NewAuthService(db, cfg), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthTestService(t)

	reg, err := svc.Register(&dto.RegisterRequest{
		Email:    "ada@example.com",
		Password: "correct horse",
		Name:     "Ada",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatal("register returned empty token pair")
	}
	if reg.User.Email != "ada@example.com" || reg.User.Name != "Ada" {
		t.Fatalf("user = %+v", reg.User)
	}

	// The access token must be a valid JWT carrying the user id.
	token, err := jwt.Parse(reg.AccessToken, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret-for-auth-tests"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("access token invalid: %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != reg.User.ID.String() {
		t.Fatalf("sub = %v, want %s", claims["sub"], reg.User.ID)
	}

	login, err := svc.Login(&dto.LoginRequest{Email: "ada@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatal("login resolved a different user")
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "ada@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	svc, _ := newAuthTestService(t)

	if _, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "long enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "long enough"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate: err = %v, want ErrEmailTaken", err)
	}
	if _, err := svc.Register(&dto.RegisterRequest{Email: "b@b.c", Password: "short"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak: err = %v, want ErrWeakPassword", err)
	}
}

func TestRegisterDuplicateCaughtByUniqueIndex(t *testing.T) {
	svc, _ := newAuthTestService(t)

	reg, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "long enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// A soft-deleted account is invisible to the pre-insert email check
	// but still holds the unique index, so the insert itself collides,
	// the same path a registration losing a concurrent race takes. It
	// must surface as ErrEmailTaken, not a generic failure.
	if err := svc.DeleteAccount(reg.User.ID, "long enough"); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "long enough"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _ := newAuthTestService(t)

	reg, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "long enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshed, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: reg.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == reg.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	// The old token is single-use.
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: reg.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("reused token: err = %v, want ErrInvalidToken", err)
	}
	// The new one still works.
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: refreshed.RefreshToken}); err != nil {
		t.Fatalf("rotated token rejected: %v", err)
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _ := newAuthTestService(t)

	reg, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "long enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Logout(&dto.LogoutRequest{RefreshToken: reg.RefreshToken}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(&dto.RefreshRequest{RefreshToken: reg.RefreshToken}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("revoked token: err = %v, want ErrInvalidToken", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newAuthTestService(t)

	reg, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "old password"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	err = svc.ChangePassword(reg.User.ID, &dto.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: err = %v", err)
	}

	err = svc.ChangePassword(reg.User.ID, &dto.ChangePasswordRequest{
		CurrentPassword: "old password",
		NewPassword:     "new password",
	})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "a@b.c", Password: "old password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still accepted")
	}
	if _, err := svc.Login(&dto.LoginRequest{Email: "a@b.c", Password: "new password"}); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestDeleteAccountRemovesUserData(t *testing.T) {
	svc, db := newAuthTestService(t)

	reg, err := svc.Register(&dto.RegisterRequest{Email: "a@b.c", Password: "long enough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	syncSvc := NewSyncService(db)
	if _, err := syncSvc.SyncTasks(reg.User.ID, []models.Task{newTask("t1", "doomed", 100)}, "d1"); err != nil {
		t.Fatalf("seed tasks: %v", err)
	}

	if err := svc.DeleteAccount(reg.User.ID, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v", err)
	}
	if err := svc.DeleteAccount(reg.User.ID, "long enough"); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, err := svc.Login(&dto.LoginRequest{Email: "a@b.c", Password: "long enough"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("deleted account can still log in")
	}
	tasks, err := syncSvc.ListTasks(reg.User.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("tasks survived account deletion: %+v", tasks)
	}
}
