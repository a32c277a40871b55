package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginHandler(t *testing.T) {
	dir := NewMemoryDirectory(testIssuer())
	if _, err := dir.CreateAccount(context.Background(), "staff@clinic.local", "pw123", Metadata{}); err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	NewLoginHandler(dir).RegisterRoutes(e)

	rec := postJSON(e, "/auth/login", `{"email":"staff@clinic.local","password":"pw123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var session Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.AccessToken == "" {
		t.Error("expected access token")
	}

	rec = postJSON(e, "/auth/login", `{"email":"staff@clinic.local","password":"bad"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d", rec.Code)
	}

	rec = postJSON(e, "/auth/login", `{"email":"nobody@clinic.local","password":"pw123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown email status = %d", rec.Code)
	}

	rec = postJSON(e, "/auth/login", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields status = %d", rec.Code)
	}
}
