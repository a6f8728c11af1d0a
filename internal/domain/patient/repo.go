package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreatePatient(ctx context.Context, p *Patient, d *Demographics) error
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	UpdateDemographics(ctx context.Context, d *Demographics) error
	SetStatus(ctx context.Context, id uuid.UUID, status PatientStatus) error

	CreateContact(ctx context.Context, c *Contact) error
	GetContact(ctx context.Context, id uuid.UUID) (*Contact, error)
	ListContacts(ctx context.Context, patientID uuid.UUID) ([]*Contact, error)
	UpdateContact(ctx context.Context, c *Contact) error
	DeleteContact(ctx context.Context, id uuid.UUID) error
	ClearPrimaryContacts(ctx context.Context, patientID uuid.UUID) error

	CreateInsurance(ctx context.Context, ins *Insurance) error
	GetInsurance(ctx context.Context, id uuid.UUID) (*Insurance, error)
	ListInsurances(ctx context.Context, patientID uuid.UUID) ([]*Insurance, error)
	UpdateInsurance(ctx context.Context, ins *Insurance) error
	DeactivateActiveOfType(ctx context.Context, patientID uuid.UUID, insType InsuranceType) error

	CreateDocument(ctx context.Context, doc *Document) error
	ListDocuments(ctx context.Context, patientID uuid.UUID) ([]*Document, error)

	CreateHousehold(ctx context.Context, h *Household) error
	GetHousehold(ctx context.Context, id uuid.UUID) (*Household, error)
	AddHouseholdMember(ctx context.Context, m *HouseholdMember) error
	RemoveHouseholdMember(ctx context.Context, patientID uuid.UUID) error
	GetMembershipByPatient(ctx context.Context, patientID uuid.UUID) (*HouseholdMember, error)
	ClearHeadOfHouse(ctx context.Context, householdID uuid.UUID) error
	ClearGuarantor(ctx context.Context, householdID uuid.UUID) error
}
