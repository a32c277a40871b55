package objectstore

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
)

// Handler provides Echo HTTP handlers for exam file operations. Uploads and
// downloads normally go straight to storage through presigned URLs; the
// proxy routes exist for the memory backend and for clients that cannot
// reach the storage endpoint directly.
type Handler struct {
	store ObjectStore
}

// NewHandler creates a new Handler.
func NewHandler(store ObjectStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the write-side file routes on the supplied group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/files/presign-upload", h.handlePresignUpload)
	g.POST("/files/presign-download", h.handlePresignDownload)
	g.PUT("/files/*", h.handleProxyPut)
	g.DELETE("/files/*", h.handleDelete)
}

// RegisterReadRoutes mounts the proxy download route. It is registered
// separately because downloads are also open to the owning patient, not
// just staff.
func (h *Handler) RegisterReadRoutes(g *echo.Group) {
	g.GET("/files/*", h.handleProxyGet)
}

// OwnerOrStaff lets staff and admins through, and patients only for keys
// under their own patient-id prefix.
func OwnerOrStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			for _, r := range auth.RolesFromContext(ctx) {
				if r == "staff" || r == "admin" {
					return next(c)
				}
			}
			if pid := auth.PatientIDFromContext(ctx); pid != "" &&
				strings.HasPrefix(c.Param("*"), pid+"/") {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}
}

type presignUploadRequest struct {
	PatientID   string `json:"patient_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type presignDownloadRequest struct {
	Key string `json:"key"`
}

func (h *Handler) handlePresignUpload(c echo.Context) error {
	var req presignUploadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.PatientID == "" || req.FileName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "patient_id and file_name are required"})
	}

	key, err := BuildKey(req.PatientID, req.FileName, time.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.store.PresignPut(c.Request().Context(), key, contentType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, url)
}

func (h *Handler) handlePresignDownload(c echo.Context) error {
	var req presignDownloadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	url, err := h.store.PresignGet(c.Request().Context(), req.Key)
	if err != nil {
		switch {
		case errors.Is(err, ErrObjectNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingKey), errors.Is(err, ErrInvalidKey):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, url)
}

func (h *Handler) handleProxyPut(c echo.Context) error {
	key := c.Param("*")

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := h.store.Put(c.Request().Context(), key, contentType, c.Request().Body)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingKey), errors.Is(err, ErrInvalidKey):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	return c.JSON(http.StatusCreated, info)
}

func (h *Handler) handleProxyGet(c echo.Context) error {
	key := c.Param("*")

	rc, info, err := h.store.Get(c.Request().Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, ErrObjectNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingKey), errors.Is(err, ErrInvalidKey):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, info.ContentType, rc)
}

func (h *Handler) handleDelete(c echo.Context) error {
	key := c.Param("*")

	if err := h.store.Delete(c.Request().Context(), key); err != nil {
		switch {
		case errors.Is(err, ErrObjectNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrMissingKey), errors.Is(err, ErrInvalidKey):
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
