package patientauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newLoginServer(b *bridge) *echo.Echo {
	e := echo.New()
	NewHandler(b.svc).RegisterRoutes(e)
	return e
}

func postLogin(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/patient-login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLogin_Success(t *testing.T) {
	e := newLoginServer(newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123")))

	rec := postLogin(e, `{"identifier":"123.456.789-01","password":"abc123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Email != testEmail {
		t.Errorf("email = %q", resp.Email)
	}
	if resp.Session == nil || resp.Session.AccessToken == "" {
		t.Error("expected a session token")
	}
}

func TestLogin_MissingInput(t *testing.T) {
	e := newLoginServer(newBridge())

	for _, body := range []string{
		`{}`,
		`{"identifier":"12345678901"}`,
		`{"password":"abc123"}`,
	} {
		rec := postLogin(e, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestLogin_FailuresDoNotLeak(t *testing.T) {
	e := newLoginServer(newBridge(fixedOnlyRecord(testIdentifierDigits, "abc123")))

	// Unknown identifier and wrong password must be indistinguishable.
	bodies := []string{
		`{"identifier":"999.999.999-99","password":"abc123"}`,
		`{"identifier":"123.456.789-01","password":"wrong"}`,
	}
	var responses []string
	for _, body := range bodies {
		rec := postLogin(e, body)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("body %s: status = %d, want 401", body, rec.Code)
		}
		responses = append(responses, rec.Body.String())
	}
	if responses[0] != responses[1] {
		t.Errorf("failure responses differ: %q vs %q", responses[0], responses[1])
	}
}
