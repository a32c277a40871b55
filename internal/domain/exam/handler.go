package exam

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Uploads and deletes are staff work.
	staffGroup := api.Group("", auth.RequireRole("staff"))
	staffGroup.POST("/patients/:patientId/exams", h.UploadExam)
	staffGroup.POST("/patients/:patientId/reports", h.UploadReport)
	staffGroup.DELETE("/exams/:id", h.DeleteExam)
	staffGroup.DELETE("/reports/:id", h.DeleteReport)

	// Listing and downloads: staff, or the patient the rows belong to.
	selfGroup := api.Group("", auth.RequirePatientSelf("patientId"))
	selfGroup.GET("/patients/:patientId/exams", h.ListExams)
	selfGroup.GET("/patients/:patientId/reports", h.ListReports)
	selfGroup.GET("/patients/:patientId/exams/:id/download", h.DownloadExam)
	selfGroup.GET("/patients/:patientId/reports/:id/download", h.DownloadReport)
}

func actorID(c echo.Context) *uuid.UUID {
	if id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		return &id
	}
	return nil
}

func uploadInputFromRequest(c echo.Context) (UploadInput, func(), error) {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return UploadInput{}, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return UploadInput{}, nil, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return UploadInput{}, nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}

	in := UploadInput{
		PatientID:   patientID,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     src,
		UploadedBy:  actorID(c),
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}
	if desc := c.FormValue("description"); desc != "" {
		in.Description = &desc
	}
	return in, func() { src.Close() }, nil
}

func (h *Handler) UploadExam(c echo.Context) error {
	in, cleanup, err := uploadInputFromRequest(c)
	if err != nil {
		return err
	}
	defer cleanup()
	in.ExamType = c.FormValue("exam_type")

	e, err := h.svc.UploadExam(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListExams(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListExamsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DownloadExam(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	url, err := h.svc.ExamDownloadURL(c.Request().Context(), patientID, id)
	if err != nil {
		if errors.Is(err, ErrExamNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "exam not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, url)
}

func (h *Handler) DeleteExam(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteExam(c.Request().Context(), id, actorID(c)); err != nil {
		if errors.Is(err, ErrExamNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "exam not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UploadReport(c echo.Context) error {
	in, cleanup, err := uploadInputFromRequest(c)
	if err != nil {
		return err
	}
	defer cleanup()
	in.Title = c.FormValue("title")

	rep, err := h.svc.UploadReport(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) ListReports(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListReportsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DownloadReport(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	url, err := h.svc.ReportDownloadURL(c.Request().Context(), patientID, id)
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, url)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteReport(c.Request().Context(), id, actorID(c)); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
