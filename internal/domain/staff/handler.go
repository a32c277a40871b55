package staff

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
	"github.com/Iv3rn/exam-access-flow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the staff/role admin API. Everything here is
// admin-only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin"))
	g.POST("/staff", h.CreateStaffAccount)
	g.GET("/staff", h.ListMembers)
	g.GET("/staff/:accountId/roles", h.RolesForAccount)
	g.POST("/staff/:accountId/roles", h.AssignRole)
	g.PUT("/staff/:accountId/roles/:role", h.SetRoleActive)
	g.DELETE("/staff/:accountId/roles/:role", h.RemoveRole)
	g.GET("/activity", h.ListActivity)
}

func actorID(c echo.Context) *uuid.UUID {
	if id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		return &id
	}
	return nil
}

func (h *Handler) CreateStaffAccount(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.svc.CreateStaffAccount(c.Request().Context(), body.Email, body.Password, body.FullName, actorID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, acct)
}

func (h *Handler) ListMembers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMembers(c.Request().Context(), c.QueryParam("role"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) RolesForAccount(c echo.Context) error {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	roles, err := h.svc.RolesForAccount(c.Request().Context(), accountID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) AssignRole(c echo.Context) error {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.AssignRole(c.Request().Context(), accountID, body.Role, actorID(c)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetRoleActive(c echo.Context) error {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetRoleActive(c.Request().Context(), accountID, c.Param("role"), body.Active, actorID(c)); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "role assignment not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RemoveRole(c echo.Context) error {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid account id")
	}
	if err := h.svc.RemoveRole(c.Request().Context(), accountID, c.Param("role"), actorID(c)); err != nil {
		if errors.Is(err, ErrAssignmentNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "role assignment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListActivity(c echo.Context) error {
	pg := pagination.FromContext(c)
	if entityType := c.QueryParam("entity_type"); entityType != "" {
		entityID, err := uuid.Parse(c.QueryParam("entity_id"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid entity_id")
		}
		items, total, err := h.svc.ListActivityByEntity(c.Request().Context(), entityType, entityID, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	items, total, err := h.svc.ListActivity(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
