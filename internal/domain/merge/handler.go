package merge

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chirocore/practice/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the merge endpoints, admin only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/patients/merge", h.MergePatients)
	admin.GET("/patients/:id/merge-history", h.GetMergeHistory)
}

func (h *Handler) MergePatients(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.SourcePatientID == uuid.Nil || req.TargetPatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "source_patient_id and target_patient_id are required")
	}

	actor := auth.UserIDFromContext(c.Request().Context())
	rec, err := h.svc.Merge(c.Request().Context(), &req, actor)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrSourceArchived), errors.Is(err, ErrSelfMerge):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			var ve *ValidationError
			if errors.As(err, &ve) {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusOK, Result{
		Success:               true,
		MergeID:               rec.ID,
		TargetPatientID:       rec.TargetPatientID,
		SourcePatientArchived: true,
	})
}

func (h *Handler) GetMergeHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	records, err := h.svc.History(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []*MergeRecord{}
	}
	return c.JSON(http.StatusOK, records)
}
