package objectstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
)

func TestBuildKey(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	key, err := BuildKey("p-123", "results.pdf", now)
	if err != nil {
		t.Fatalf("BuildKey: %v", err)
	}
	if key != "p-123/1700000000000.pdf" {
		t.Errorf("key = %q", key)
	}

	key, err = BuildKey("p-123", "noextension", now)
	if err != nil {
		t.Fatalf("BuildKey: %v", err)
	}
	if !strings.HasSuffix(key, ".bin") {
		t.Errorf("expected .bin fallback, got %q", key)
	}

	if _, err := BuildKey("", "x.pdf", now); err == nil {
		t.Error("expected error for empty patient ID")
	}
}

func TestValidateKey(t *testing.T) {
	cases := []struct {
		key     string
		wantErr bool
	}{
		{"p-1/170.pdf", false},
		{"", true},
		{"../etc/passwd", true},
		{"/absolute", true},
		{"p-1/../p-2/file.pdf", true},
	}
	for _, tc := range cases {
		err := ValidateKey(tc.key)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateKey(%q) = %v, wantErr=%v", tc.key, err, tc.wantErr)
		}
	}
}

func TestMemoryStore_PutGetDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	info, err := s.Put(ctx, "p-1/1.pdf", "application/pdf", strings.NewReader("exam data"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("exam data")) {
		t.Errorf("size = %d", info.Size)
	}

	rc, got, err := s.Get(ctx, "p-1/1.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "exam data" {
		t.Errorf("content = %q", data)
	}
	if got.ContentType != "application/pdf" {
		t.Errorf("content type = %q", got.ContentType)
	}

	if err := s.Delete(ctx, "p-1/1.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := s.Get(ctx, "p-1/1.pdf"); err != ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStore_Presign(t *testing.T) {
	s := NewMemoryStore()
	s.BaseURL = "http://localhost:8080"
	ctx := context.Background()

	put, err := s.PresignPut(ctx, "p-1/1.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("presign put: %v", err)
	}
	if put.Method != "PUT" || put.URL != "http://localhost:8080/files/p-1/1.pdf" {
		t.Errorf("unexpected presigned put: %+v", put)
	}
	if until := time.Until(put.ExpiresAt); until > PresignPutTTL {
		t.Errorf("put expiry too far out: %v", until)
	}

	if _, err := s.PresignGet(ctx, "p-1/1.pdf"); err != ErrObjectNotFound {
		t.Errorf("presign get of missing object: got %v", err)
	}

	if _, err := s.Put(ctx, "p-1/1.pdf", "application/pdf", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	get, err := s.PresignGet(ctx, "p-1/1.pdf")
	if err != nil {
		t.Fatalf("presign get: %v", err)
	}
	if get.Method != "GET" {
		t.Errorf("method = %q", get.Method)
	}
}

func newFileServer(store ObjectStore) *echo.Echo {
	e := echo.New()
	h := NewHandler(store)
	h.RegisterRoutes(e.Group(""))
	h.RegisterReadRoutes(e.Group(""))
	return e
}

func TestHandler_PresignUpload(t *testing.T) {
	e := newFileServer(NewMemoryStore())

	body := `{"patient_id":"p-1","file_name":"results.pdf","content_type":"application/pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/files/presign-upload", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var url PresignedURL
	if err := json.Unmarshal(rec.Body.Bytes(), &url); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if url.Method != "PUT" {
		t.Errorf("method = %q", url.Method)
	}
	if !strings.HasPrefix(url.Key, "p-1/") || !strings.HasSuffix(url.Key, ".pdf") {
		t.Errorf("key = %q", url.Key)
	}
}

func TestHandler_PresignUpload_MissingFields(t *testing.T) {
	e := newFileServer(NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/files/presign-upload", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHandler_ProxyRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	e := newFileServer(store)

	req := httptest.NewRequest(http.MethodPut, "/files/p-1/1.pdf", strings.NewReader("exam data"))
	req.Header.Set(echo.HeaderContentType, "application/pdf")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("put status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/files/p-1/1.pdf", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if rec.Body.String() != "exam data" {
		t.Errorf("body = %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/files/p-1/1.pdf", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/files/p-1/1.pdf", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestHandler_PresignDownload_NotFound(t *testing.T) {
	e := newFileServer(NewMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/files/presign-download", strings.NewReader(`{"key":"p-1/missing.pdf"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestOwnerOrStaff(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Put(context.Background(), "pat-1/1.pdf", "application/pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("seed object: %v", err)
	}

	e := echo.New()
	h := NewHandler(store)
	h.RegisterReadRoutes(e.Group("", OwnerOrStaff()))

	get := func(key string, roles []string, patientID string) int {
		req := httptest.NewRequest(http.MethodGet, "/files/"+key, nil)
		ctx := req.Context()
		ctx = context.WithValue(ctx, auth.UserRolesKey, roles)
		ctx = context.WithValue(ctx, auth.PatientIDKey, patientID)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}

	if code := get("pat-1/1.pdf", []string{"staff"}, ""); code != http.StatusOK {
		t.Errorf("staff download status = %d", code)
	}
	if code := get("pat-1/1.pdf", []string{"patient"}, "pat-1"); code != http.StatusOK {
		t.Errorf("owning patient download status = %d", code)
	}
	if code := get("pat-1/1.pdf", []string{"patient"}, "pat-2"); code != http.StatusForbidden {
		t.Errorf("other patient download status = %d", code)
	}
	if code := get("pat-1/1.pdf", nil, ""); code != http.StatusForbidden {
		t.Errorf("anonymous download status = %d", code)
	}
}
