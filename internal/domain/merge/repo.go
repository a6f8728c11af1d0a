package merge

import (
	"context"

	"github.com/google/uuid"

	"github.com/chirocore/practice/internal/domain/patient"
)

type Repository interface {
	// LockPatients loads both patient rows under FOR UPDATE, locking in
	// ascending id order so two concurrent merges of the same pair cannot
	// deadlock. Missing patients are simply absent from the result.
	LockPatients(ctx context.Context, id1, id2 uuid.UUID) (map[uuid.UUID]*patient.Patient, error)

	GetDemographics(ctx context.Context, patientID uuid.UUID) (*patient.Demographics, error)
	UpdateDemographics(ctx context.Context, d *patient.Demographics) error

	ListContactsByType(ctx context.Context, patientID uuid.UUID, typ patient.ContactType) ([]*patient.Contact, error)
	ReassignContacts(ctx context.Context, from, to uuid.UUID, typ patient.ContactType) error

	ListInsurances(ctx context.Context, patientID uuid.UUID) ([]*patient.Insurance, error)
	ReassignInsurances(ctx context.Context, from, to uuid.UUID) error

	CountDocuments(ctx context.Context, patientID uuid.UUID) (int, error)
	ReassignDocuments(ctx context.Context, from, to uuid.UUID) error

	RemoveFromHousehold(ctx context.Context, patientID uuid.UUID) error
	ArchivePatient(ctx context.Context, patientID uuid.UUID) error

	InsertMergeRecord(ctx context.Context, rec *MergeRecord) error
	History(ctx context.Context, patientID uuid.UUID) ([]*MergeRecord, error)
}
