package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chirocore/practice/internal/platform/auth"
	"github.com/chirocore/practice/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("admin", "physician", "front_desk"))

	staff.POST("/patients", h.CreatePatient)
	staff.GET("/patients", h.ListPatients)
	staff.GET("/patients/:id", h.GetPatient)
	staff.PUT("/patients/:id/demographics", h.UpdateDemographics)
	staff.POST("/patients/:id/archive", h.ArchivePatient)

	staff.GET("/patients/:id/contacts", h.ListContacts)
	staff.POST("/patients/:id/contacts", h.AddContact)
	staff.PUT("/patients/:id/contacts/:contactId", h.UpdateContact)
	staff.DELETE("/patients/:id/contacts/:contactId", h.DeleteContact)

	staff.GET("/patients/:id/insurances", h.ListInsurances)
	staff.POST("/patients/:id/insurances", h.AddInsurance)
	staff.PUT("/patients/:id/insurances/:insuranceId", h.UpdateInsurance)

	staff.GET("/patients/:id/documents", h.ListDocuments)
	staff.POST("/patients/:id/documents", h.AddDocument)

	staff.POST("/households", h.CreateHousehold)
	staff.GET("/households/:id", h.GetHousehold)
	staff.POST("/households/:id/members", h.AddHouseholdMember)
	staff.DELETE("/households/:id/members/:patientId", h.RemoveHouseholdMember)
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyInHousehold):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func sanitizePatient(p *Patient) *Patient {
	if p == nil {
		return nil
	}
	out := *p
	out.Demographics = p.Demographics.Sanitized()
	return &out
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var d Demographics
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.CreatePatient(c.Request().Context(), &d)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sanitizePatient(p))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sanitizePatient(p))
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	sanitized := make([]*Patient, len(items))
	for i, p := range items {
		sanitized[i] = sanitizePatient(p)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(sanitized, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateDemographics(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var d Demographics
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.PatientID = id
	if err := h.svc.UpdateDemographics(c.Request().Context(), &d); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d.Sanitized())
}

func (h *Handler) ArchivePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.ArchivePatient(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Contacts --

func (h *Handler) ListContacts(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListContacts(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var contact Contact
	if err := c.Bind(&contact); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	contact.PatientID = id
	if err := h.svc.AddContact(c.Request().Context(), &contact); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, contact)
}

func (h *Handler) UpdateContact(c echo.Context) error {
	contactID, err := parseID(c, "contactId")
	if err != nil {
		return err
	}
	var contact Contact
	if err := c.Bind(&contact); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	contact.ID = contactID
	if err := h.svc.UpdateContact(c.Request().Context(), &contact); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *Handler) DeleteContact(c echo.Context) error {
	contactID, err := parseID(c, "contactId")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteContact(c.Request().Context(), contactID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Insurances --

func (h *Handler) ListInsurances(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListInsurances(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddInsurance(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var ins Insurance
	if err := c.Bind(&ins); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ins.PatientID = id
	if err := h.svc.AddInsurance(c.Request().Context(), &ins); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ins)
}

func (h *Handler) UpdateInsurance(c echo.Context) error {
	insID, err := parseID(c, "insuranceId")
	if err != nil {
		return err
	}
	var ins Insurance
	if err := c.Bind(&ins); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ins.ID = insID
	if err := h.svc.UpdateInsurance(c.Request().Context(), &ins); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ins)
}

// -- Documents --

func (h *Handler) ListDocuments(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListDocuments(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddDocument(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var doc Document
	if err := c.Bind(&doc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doc.PatientID = id
	doc.UploadedBy = auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.AddDocument(c.Request().Context(), &doc); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, doc)
}

// -- Households --

func (h *Handler) CreateHousehold(c echo.Context) error {
	var hh Household
	if err := c.Bind(&hh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateHousehold(c.Request().Context(), &hh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, hh)
}

func (h *Handler) GetHousehold(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	hh, err := h.svc.GetHousehold(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, hh)
}

func (h *Handler) AddHouseholdMember(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var m HouseholdMember
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.HouseholdID = id
	if err := h.svc.AddHouseholdMember(c.Request().Context(), &m); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) RemoveHouseholdMember(c echo.Context) error {
	patientID, err := parseID(c, "patientId")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveHouseholdMember(c.Request().Context(), patientID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
