package merge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/chirocore/practice/internal/domain/patient"
)

// FieldsToKeep selects what carries over from the source patient. The
// demographics list is an allow-list of field names; the booleans reassign
// whole categories of dependent records.
type FieldsToKeep struct {
	Demographics      []string `json:"demographics"`
	Contacts          bool     `json:"contacts"`
	EmergencyContacts bool     `json:"emergency_contacts"`
	Insurances        bool     `json:"insurances"`
	Documents         bool     `json:"documents"`
}

// MergeRecord is the immutable audit entity written once per merge. It is
// never updated or deleted; it is the sole historical trace of the merge.
type MergeRecord struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	SourcePatientID uuid.UUID       `db:"source_patient_id" json:"source_patient_id"`
	TargetPatientID uuid.UUID       `db:"target_patient_id" json:"target_patient_id"`
	MergedBy        string          `db:"merged_by" json:"merged_by"`
	Reason          string          `db:"reason" json:"reason"`
	Snapshot        json.RawMessage `db:"snapshot" json:"snapshot"`
	FieldsKept      FieldsToKeep    `db:"fields_kept" json:"fields_kept"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// SourceSnapshot is the pre-merge state of the source patient embedded in
// the merge record. Insurance money fields are already strings in the model,
// so the snapshot serializes without precision loss.
type SourceSnapshot struct {
	Patient           *patient.Patient      `json:"patient"`
	Demographics      *patient.Demographics `json:"demographics,omitempty"`
	Contacts          []*patient.Contact    `json:"contacts,omitempty"`
	EmergencyContacts []*patient.Contact    `json:"emergency_contacts,omitempty"`
	Insurances        []*patient.Insurance  `json:"insurances,omitempty"`
	DocumentCount     int                   `json:"document_count"`
}

// Request is the merge endpoint's input.
type Request struct {
	SourcePatientID uuid.UUID    `json:"source_patient_id"`
	TargetPatientID uuid.UUID    `json:"target_patient_id"`
	FieldsToKeep    FieldsToKeep `json:"fields_to_keep"`
	Reason          string       `json:"reason"`
}

// Result is the merge endpoint's output.
type Result struct {
	Success               bool      `json:"success"`
	MergeID               uuid.UUID `json:"merge_id"`
	TargetPatientID       uuid.UUID `json:"target_patient_id"`
	SourcePatientArchived bool      `json:"source_patient_archived"`
}
