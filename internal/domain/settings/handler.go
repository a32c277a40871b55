package settings

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
	"github.com/Iv3rn/exam-access-flow/internal/platform/objectstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/settings", h.Get)
	api.GET("/settings/logo", h.LogoURL)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.PUT("/settings", h.UpdateName)
	adminGroup.PUT("/settings/logo", h.UploadLogo)
}

func actorID(c echo.Context) *uuid.UUID {
	if id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		return &id
	}
	return nil
}

func (h *Handler) Get(c echo.Context) error {
	s, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load settings")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateName(c echo.Context) error {
	var req struct {
		ClinicName string `json:"clinic_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ClinicName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "clinic_name is required")
	}
	s, err := h.svc.UpdateName(c.Request().Context(), req.ClinicName, actorID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update settings")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) UploadLogo(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s, err := h.svc.SetLogo(c.Request().Context(), file.Filename, contentType, src, actorID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store logo")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) LogoURL(c echo.Context) error {
	url, err := h.svc.LogoURL(c.Request().Context())
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no logo configured")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to presign logo")
	}
	return c.JSON(http.StatusOK, url)
}
