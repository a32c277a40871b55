package patientauth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Iv3rn/exam-access-flow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient login endpoint. The route is exempt from
// session validation; it is what establishes the session.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/patient-login", h.Login)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Success bool          `json:"success"`
	Email   string        `json:"email,omitempty"`
	Session *auth.Session `json:"session,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Login handles POST /auth/patient-login. Every authentication failure maps
// to the same 401 body so responses do not reveal whether the identifier
// exists.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, loginResponse{Error: "invalid request body"})
	}
	if req.Identifier == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, loginResponse{Error: "identifier and password are required"})
	}

	email, session, err := h.svc.Authenticate(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrMissingIdentifier) {
			return c.JSON(http.StatusBadRequest, loginResponse{Error: "identifier and password are required"})
		}
		return c.JSON(http.StatusUnauthorized, loginResponse{Error: "invalid credentials"})
	}

	return c.JSON(http.StatusOK, loginResponse{Success: true, Email: email, Session: session})
}
