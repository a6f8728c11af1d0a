package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chirocore/practice/internal/platform/db"
	"github.com/chirocore/practice/pkg/phonetics"
)

var (
	ErrNotFound           = errors.New("patient not found")
	ErrAlreadyInHousehold = errors.New("patient already belongs to a household")
)

type Service struct {
	repo    Repository
	runInTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, runInTx: db.RunInTx}
}

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "unknown": true,
}

var validInsuranceTypes = map[InsuranceType]bool{
	InsurancePrimary: true, InsuranceSecondary: true, InsuranceTertiary: true,
}

// applySoundex recomputes the derived phonetic columns from the current name
// fields. Every write path that can change a name goes through here so the
// stored codes never drift from the names they index.
func applySoundex(d *Demographics) {
	d.FirstNameSoundex = phonetics.Encode(d.FirstName)
	d.LastNameSoundex = phonetics.Encode(d.LastName)
}

func (s *Service) CreatePatient(ctx context.Context, d *Demographics) (*Patient, error) {
	if strings.TrimSpace(d.FirstName) == "" || strings.TrimSpace(d.LastName) == "" {
		return nil, fmt.Errorf("first and last name are required")
	}
	if d.Gender != nil && !validGenders[*d.Gender] {
		return nil, fmt.Errorf("invalid gender: %s", *d.Gender)
	}
	applySoundex(d)
	// The record-number fetch, patient insert and demographics insert are
	// separate statements; one transaction keeps the 1:1 demographics row
	// from ever going missing on a partial failure.
	var p Patient
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		return s.repo.CreatePatient(txCtx, &p, d)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetPatient(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.ListPatients(ctx, limit, offset)
}

func (s *Service) UpdateDemographics(ctx context.Context, d *Demographics) error {
	if strings.TrimSpace(d.FirstName) == "" || strings.TrimSpace(d.LastName) == "" {
		return fmt.Errorf("first and last name are required")
	}
	if d.Gender != nil && !validGenders[*d.Gender] {
		return fmt.Errorf("invalid gender: %s", *d.Gender)
	}
	applySoundex(d)
	err := s.repo.UpdateDemographics(ctx, d)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ArchivePatient soft-deletes: the row stays for referential integrity and
// merge history.
func (s *Service) ArchivePatient(ctx context.Context, id uuid.UUID) error {
	err := s.repo.SetStatus(ctx, id, StatusArchived)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// -- Contacts --

func (s *Service) AddContact(ctx context.Context, c *Contact) error {
	if c.Type == "" {
		c.Type = ContactGeneral
	}
	if c.Type != ContactGeneral && c.Type != ContactEmergency {
		return fmt.Errorf("invalid contact type: %s", c.Type)
	}
	if _, err := s.GetPatient(ctx, c.PatientID); err != nil {
		return err
	}
	if c.IsPrimary {
		if err := s.repo.ClearPrimaryContacts(ctx, c.PatientID); err != nil {
			return err
		}
	}
	return s.repo.CreateContact(ctx, c)
}

func (s *Service) UpdateContact(ctx context.Context, c *Contact) error {
	existing, err := s.repo.GetContact(ctx, c.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	c.PatientID = existing.PatientID
	if c.IsPrimary && !existing.IsPrimary {
		if err := s.repo.ClearPrimaryContacts(ctx, c.PatientID); err != nil {
			return err
		}
	}
	return s.repo.UpdateContact(ctx, c)
}

func (s *Service) ListContacts(ctx context.Context, patientID uuid.UUID) ([]*Contact, error) {
	return s.repo.ListContacts(ctx, patientID)
}

func (s *Service) DeleteContact(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteContact(ctx, id)
}

// -- Insurances --

func (s *Service) AddInsurance(ctx context.Context, ins *Insurance) error {
	if !validInsuranceTypes[ins.Type] {
		return fmt.Errorf("invalid insurance type: %s", ins.Type)
	}
	if _, err := s.GetPatient(ctx, ins.PatientID); err != nil {
		return err
	}
	if ins.Active {
		if err := s.repo.DeactivateActiveOfType(ctx, ins.PatientID, ins.Type); err != nil {
			return err
		}
	}
	return s.repo.CreateInsurance(ctx, ins)
}

func (s *Service) UpdateInsurance(ctx context.Context, ins *Insurance) error {
	existing, err := s.repo.GetInsurance(ctx, ins.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if !validInsuranceTypes[ins.Type] {
		return fmt.Errorf("invalid insurance type: %s", ins.Type)
	}
	ins.PatientID = existing.PatientID
	if ins.Active && (!existing.Active || existing.Type != ins.Type) {
		if err := s.repo.DeactivateActiveOfType(ctx, ins.PatientID, ins.Type); err != nil {
			return err
		}
	}
	return s.repo.UpdateInsurance(ctx, ins)
}

func (s *Service) ListInsurances(ctx context.Context, patientID uuid.UUID) ([]*Insurance, error) {
	return s.repo.ListInsurances(ctx, patientID)
}

// -- Documents --

func (s *Service) AddDocument(ctx context.Context, doc *Document) error {
	if _, err := s.GetPatient(ctx, doc.PatientID); err != nil {
		return err
	}
	return s.repo.CreateDocument(ctx, doc)
}

func (s *Service) ListDocuments(ctx context.Context, patientID uuid.UUID) ([]*Document, error) {
	return s.repo.ListDocuments(ctx, patientID)
}

// -- Households --

func (s *Service) CreateHousehold(ctx context.Context, h *Household) error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("household name is required")
	}
	return s.repo.CreateHousehold(ctx, h)
}

func (s *Service) GetHousehold(ctx context.Context, id uuid.UUID) (*Household, error) {
	h, err := s.repo.GetHousehold(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return h, err
}

// AddHouseholdMember enforces one household per patient and at most one
// head-of-house and guarantor per household.
func (s *Service) AddHouseholdMember(ctx context.Context, m *HouseholdMember) error {
	if _, err := s.GetPatient(ctx, m.PatientID); err != nil {
		return err
	}
	existing, err := s.repo.GetMembershipByPatient(ctx, m.PatientID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if existing != nil && err == nil {
		return ErrAlreadyInHousehold
	}
	if m.IsHeadOfHouse {
		if err := s.repo.ClearHeadOfHouse(ctx, m.HouseholdID); err != nil {
			return err
		}
	}
	if m.IsGuarantor {
		if err := s.repo.ClearGuarantor(ctx, m.HouseholdID); err != nil {
			return err
		}
	}
	return s.repo.AddHouseholdMember(ctx, m)
}

func (s *Service) RemoveHouseholdMember(ctx context.Context, patientID uuid.UUID) error {
	return s.repo.RemoveHouseholdMember(ctx, patientID)
}
