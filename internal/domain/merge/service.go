package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/chirocore/practice/internal/domain/patient"
	"github.com/chirocore/practice/internal/platform/db"
	"github.com/chirocore/practice/pkg/phonetics"
)

var (
	ErrNotFound       = errors.New("patient not found")
	ErrSourceArchived = errors.New("Cannot merge an archived patient")
	ErrSelfMerge      = errors.New("source and target must be different patients")
)

// ValidationError marks request-shape failures that map to 400 before any
// mutating statement runs.
type ValidationError struct{ msg string }

func (e *ValidationError) Error() string { return e.msg }

// mergeableFields is the allow-list of demographic fields a merge may copy
// from source to target. Keys match the JSON field names.
var mergeableFields = map[string]bool{
	"first_name": true, "middle_name": true, "last_name": true,
	"date_of_birth": true, "gender": true, "ssn": true,
	"mobile_phone": true, "home_phone": true, "email": true,
	"address_line": true, "address_city": true, "address_state": true,
	"address_postal_code": true,
}

type Service struct {
	repo    Repository
	log     zerolog.Logger
	runInTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log, runInTx: db.RunInTx}
}

// Merge consolidates the source patient into the target inside one
// transaction. Both rows are locked up front; the archived precondition is
// re-checked under the lock, so a concurrent merge of the same source fails
// cleanly instead of racing. Any error rolls the whole thing back.
func (s *Service) Merge(ctx context.Context, req *Request, actor string) (*MergeRecord, error) {
	if req.SourcePatientID == req.TargetPatientID {
		return nil, ErrSelfMerge
	}
	if strings.TrimSpace(req.Reason) == "" {
		return nil, &ValidationError{"merge reason is required"}
	}
	for _, field := range req.FieldsToKeep.Demographics {
		if !mergeableFields[field] {
			return nil, &ValidationError{fmt.Sprintf("unknown demographic field: %s", field)}
		}
	}

	var rec *MergeRecord
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		var err error
		rec, err = s.mergeTx(txCtx, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("merge_id", rec.ID.String()).
		Str("source_patient_id", req.SourcePatientID.String()).
		Str("target_patient_id", req.TargetPatientID.String()).
		Str("actor", actor).
		Str("org", db.TenantFromContext(ctx)).
		Str("reason", req.Reason).
		Bool("contacts", req.FieldsToKeep.Contacts).
		Bool("emergency_contacts", req.FieldsToKeep.EmergencyContacts).
		Bool("insurances", req.FieldsToKeep.Insurances).
		Bool("documents", req.FieldsToKeep.Documents).
		Msg("patients merged")

	return rec, nil
}

func (s *Service) mergeTx(ctx context.Context, req *Request, actor string) (*MergeRecord, error) {
	locked, err := s.repo.LockPatients(ctx, req.SourcePatientID, req.TargetPatientID)
	if err != nil {
		return nil, fmt.Errorf("lock patients: %w", err)
	}
	source, ok := locked[req.SourcePatientID]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := locked[req.TargetPatientID]; !ok {
		return nil, ErrNotFound
	}
	if source.Status == patient.StatusArchived {
		return nil, ErrSourceArchived
	}

	snapshot, err := s.snapshotSource(ctx, source)
	if err != nil {
		return nil, err
	}
	// Serialize before anything mutates: the snapshot must capture the
	// source exactly as it stood when the merge began.
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	if len(req.FieldsToKeep.Demographics) > 0 && snapshot.Demographics != nil {
		if err := s.copyDemographics(ctx, snapshot.Demographics, req.TargetPatientID, req.FieldsToKeep.Demographics); err != nil {
			return nil, err
		}
	}

	if req.FieldsToKeep.Contacts {
		if err := s.repo.ReassignContacts(ctx, req.SourcePatientID, req.TargetPatientID, patient.ContactGeneral); err != nil {
			return nil, fmt.Errorf("reassign contacts: %w", err)
		}
	}
	if req.FieldsToKeep.EmergencyContacts {
		if err := s.repo.ReassignContacts(ctx, req.SourcePatientID, req.TargetPatientID, patient.ContactEmergency); err != nil {
			return nil, fmt.Errorf("reassign emergency contacts: %w", err)
		}
	}
	if req.FieldsToKeep.Insurances {
		if err := s.repo.ReassignInsurances(ctx, req.SourcePatientID, req.TargetPatientID); err != nil {
			return nil, fmt.Errorf("reassign insurances: %w", err)
		}
	}
	if req.FieldsToKeep.Documents {
		if err := s.repo.ReassignDocuments(ctx, req.SourcePatientID, req.TargetPatientID); err != nil {
			return nil, fmt.Errorf("reassign documents: %w", err)
		}
	}

	// The source never carries its household membership into the merge.
	if err := s.repo.RemoveFromHousehold(ctx, req.SourcePatientID); err != nil {
		return nil, fmt.Errorf("remove household membership: %w", err)
	}

	rec := &MergeRecord{
		SourcePatientID: req.SourcePatientID,
		TargetPatientID: req.TargetPatientID,
		MergedBy:        actor,
		Reason:          req.Reason,
		Snapshot:        raw,
		FieldsKept:      req.FieldsToKeep,
	}
	if err := s.repo.InsertMergeRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("insert merge record: %w", err)
	}

	if err := s.repo.ArchivePatient(ctx, req.SourcePatientID); err != nil {
		return nil, fmt.Errorf("archive source patient: %w", err)
	}
	return rec, nil
}

func (s *Service) snapshotSource(ctx context.Context, source *patient.Patient) (*SourceSnapshot, error) {
	snap := &SourceSnapshot{Patient: source}

	// A missing demographics row is a legal state; any other failure must
	// abort the merge rather than produce a snapshot with a hole in it.
	demo, err := s.repo.GetDemographics(ctx, source.ID)
	switch {
	case err == nil:
		snap.Demographics = demo
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("snapshot demographics: %w", err)
	}

	if snap.Contacts, err = s.repo.ListContactsByType(ctx, source.ID, patient.ContactGeneral); err != nil {
		return nil, fmt.Errorf("snapshot contacts: %w", err)
	}
	if snap.EmergencyContacts, err = s.repo.ListContactsByType(ctx, source.ID, patient.ContactEmergency); err != nil {
		return nil, fmt.Errorf("snapshot emergency contacts: %w", err)
	}
	if snap.Insurances, err = s.repo.ListInsurances(ctx, source.ID); err != nil {
		return nil, fmt.Errorf("snapshot insurances: %w", err)
	}
	if snap.DocumentCount, err = s.repo.CountDocuments(ctx, source.ID); err != nil {
		return nil, fmt.Errorf("snapshot document count: %w", err)
	}
	return snap, nil
}

// copyDemographics applies the allow-listed fields source onto target,
// skipping fields whose source value is empty, and recomputes the target's
// phonetic codes when a name field changed.
func (s *Service) copyDemographics(ctx context.Context, src *patient.Demographics, targetID uuid.UUID, fields []string) error {
	dst, err := s.repo.GetDemographics(ctx, targetID)
	if err != nil {
		return fmt.Errorf("load target demographics: %w", err)
	}

	nameChanged := false
	for _, field := range fields {
		switch field {
		case "first_name":
			if src.FirstName != "" {
				dst.FirstName = src.FirstName
				nameChanged = true
			}
		case "middle_name":
			if src.MiddleName != nil {
				dst.MiddleName = src.MiddleName
			}
		case "last_name":
			if src.LastName != "" {
				dst.LastName = src.LastName
				nameChanged = true
			}
		case "date_of_birth":
			if src.DateOfBirth != nil {
				dst.DateOfBirth = src.DateOfBirth
			}
		case "gender":
			if src.Gender != nil {
				dst.Gender = src.Gender
			}
		case "ssn":
			if src.SSN != nil {
				dst.SSN = src.SSN
			}
		case "mobile_phone":
			if src.MobilePhone != nil {
				dst.MobilePhone = src.MobilePhone
			}
		case "home_phone":
			if src.HomePhone != nil {
				dst.HomePhone = src.HomePhone
			}
		case "email":
			if src.Email != nil {
				dst.Email = src.Email
			}
		case "address_line":
			if src.AddressLine != nil {
				dst.AddressLine = src.AddressLine
			}
		case "address_city":
			if src.AddressCity != nil {
				dst.AddressCity = src.AddressCity
			}
		case "address_state":
			if src.AddressState != nil {
				dst.AddressState = src.AddressState
			}
		case "address_postal_code":
			if src.AddressPostal != nil {
				dst.AddressPostal = src.AddressPostal
			}
		}
	}
	if nameChanged {
		dst.FirstNameSoundex = phonetics.Encode(dst.FirstName)
		dst.LastNameSoundex = phonetics.Encode(dst.LastName)
	}
	if err := s.repo.UpdateDemographics(ctx, dst); err != nil {
		return fmt.Errorf("update target demographics: %w", err)
	}
	return nil
}

// History lists merge records touching the patient as source or target,
// newest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID) ([]*MergeRecord, error) {
	return s.repo.History(ctx, patientID)
}
