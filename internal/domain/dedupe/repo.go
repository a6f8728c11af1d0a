package dedupe

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetSnapshot loads the matching view for one non-archived patient.
	GetSnapshot(ctx context.Context, id uuid.UUID) (*PatientSnapshot, error)
	// FindCandidates runs the disjunctive candidate query around the given
	// snapshot, excluding the patient itself and archived patients.
	FindCandidates(ctx context.Context, snap *PatientSnapshot) ([]*PatientSnapshot, error)
	// ListSnapshots loads the matching view of every non-archived patient.
	ListSnapshots(ctx context.Context) ([]*PatientSnapshot, error)
	// GetDetail loads the full record for the compare endpoint.
	GetDetail(ctx context.Context, id uuid.UUID) (*PatientDetail, error)
}
