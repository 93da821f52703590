package controller_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
)

func TestMe_Success(t *testing.T) {
	fx, cleanup := newControllerFixture(t)
	defer cleanup()

	fx.mock.ExpectQuery(findByEmailQuery).
		WithArgs("alice@example.com").
		WillReturnRows(userRow("hash", "", true))

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	ctx := echo.New().NewContext(req, rec)
	ctx.Set("user_email", "alice@example.com")

	if err := fx.users.Me(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["email"] != "alice@example.com" || body["username"] != "alice" || body["role"] != "user" {
		t.Fatalf("unexpected body: %v", body)
	}
	if _, ok := body["password_hash"]; ok {
		t.Fatalf("password hash must not appear in responses")
	}
}

func TestMe_MissingPrincipal(t *testing.T) {
	fx, cleanup := newControllerFixture(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	ctx := echo.New().NewContext(req, rec)

	if err := fx.users.Me(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestUpdateAvatar_Success(t *testing.T) {
	fx, cleanup := newControllerFixture(t)
	defer cleanup()

	fx.mock.ExpectQuery(findByEmailQuery).
		WithArgs("alice@example.com").
		WillReturnRows(userRow("hash", "", true))
	fx.mock.ExpectExec(updateAvatarQuery).
		WithArgs("https://cdn.example.com/a.png", sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req, rec := newJSONRequest(t, http.MethodPatch, "/users/avatar", map[string]string{
		"avatar_url": "https://cdn.example.com/a.png",
	})
	ctx := echo.New().NewContext(req, rec)
	ctx.Set("user_email", "alice@example.com")

	if err := fx.users.UpdateAvatar(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["avatar"] != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected avatar: %v", body["avatar"])
	}
}

func TestUpdateAvatar_RejectsRelativeURL(t *testing.T) {
	fx, cleanup := newControllerFixture(t)
	defer cleanup()

	req, rec := newJSONRequest(t, http.MethodPatch, "/users/avatar", map[string]string{
		"avatar_url": "/not/absolute.png",
	})
	ctx := echo.New().NewContext(req, rec)
	ctx.Set("user_email", "alice@example.com")

	if err := fx.users.UpdateAvatar(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHealthcheck(t *testing.T) {
	fx, cleanup := newControllerFixture(t)
	defer cleanup()

	fx.mock.ExpectPing()

	req := httptest.NewRequest(http.MethodGet, "/api/healthchecker", nil)
	rec := httptest.NewRecorder()
	ctx := echo.New().NewContext(req, rec)

	if err := fx.users.Healthcheck(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	fx.mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	rec = httptest.NewRecorder()
	ctx = echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/healthchecker", nil), rec)

	if err := fx.users.Healthcheck(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}
