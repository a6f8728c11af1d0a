package dedupe

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chirocore/practice/internal/domain/patient"
	"github.com/chirocore/practice/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the duplicate-detection endpoints. All of them
// require the admin role.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireRole("admin"))
	admin.GET("/patients/duplicates", h.FindDuplicateGroups)
	admin.GET("/patients/compare", h.ComparePatients)
	admin.GET("/patients/:id/duplicates", h.FindDuplicates)
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	return n, nil
}

func (h *Handler) FindDuplicates(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	matches, err := h.svc.FindDuplicates(c.Request().Context(), id, limit)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if matches == nil {
		matches = []*CandidateMatch{}
	}
	return c.JSON(http.StatusOK, matches)
}

func (h *Handler) FindDuplicateGroups(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}
	groups, err := h.svc.FindDuplicateGroups(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if groups == nil {
		groups = []*DuplicateGroup{}
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *Handler) ComparePatients(c echo.Context) error {
	id1, err := uuid.Parse(c.QueryParam("patient1"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient1")
	}
	id2, err := uuid.Parse(c.QueryParam("patient2"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient2")
	}
	cmp, err := h.svc.ComparePatients(c.Request().Context(), id1, id2)
	if err != nil {
		if errors.Is(err, patient.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, cmp)
}
