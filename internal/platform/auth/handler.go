package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// LoginHandler serves the staff/admin email+password login.
type LoginHandler struct {
	directory Directory
}

func NewLoginHandler(directory Directory) *LoginHandler {
	return &LoginHandler{directory: directory}
}

func (h *LoginHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *LoginHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	session, err := h.directory.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		// Same body for unknown email and wrong password.
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	return c.JSON(http.StatusOK, session)
}
