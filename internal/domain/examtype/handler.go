package examtype

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the taxonomy API: reads for anyone signed in,
// writes admin-only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/exam-types", h.List)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/exam-types", h.Create)
	adminGroup.PUT("/exam-types/:id", h.Rename)
	adminGroup.PUT("/exam-types/:id/active", h.SetActive)
}

func (h *Handler) Create(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var createdBy *uuid.UUID
	if id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		createdBy = &id
	}

	t, err := h.svc.Create(c.Request().Context(), body.Name, createdBy)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) List(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	items, err := h.svc.List(c.Request().Context(), activeOnly)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*ExamType{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Rename(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Rename(c.Request().Context(), id, body.Name); err != nil {
		switch {
		case errors.Is(err, ErrTypeNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "exam type not found")
		case errors.Is(err, ErrDuplicateName):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetActive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetActive(c.Request().Context(), id, body.Active); err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "exam type not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
