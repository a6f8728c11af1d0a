package dedupe

import (
	"time"

	"github.com/google/uuid"

	"github.com/chirocore/practice/internal/domain/patient"
)

// PatientSnapshot is the slim matching view of a patient: the fields the
// candidate finder queries on and the scorer compares. Phone is the primary
// phone, mobile preferred over home.
type PatientSnapshot struct {
	ID               uuid.UUID  `json:"id"`
	RecordNumber     string     `json:"record_number"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	FirstNameSoundex string     `json:"-"`
	LastNameSoundex  string     `json:"-"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
}

// CandidateMatch pairs a candidate with its similarity score and the
// human-readable reasons the score is built from.
type CandidateMatch struct {
	Patient         *PatientSnapshot `json:"patient"`
	SimilarityScore int              `json:"similarity_score"`
	Reasons         []string         `json:"reasons"`
}

// DuplicateGroup is a cluster of patients that a global scan flagged as
// likely duplicates of one another.
type DuplicateGroup struct {
	Patients []*PatientSnapshot `json:"patients"`
	Reason   string             `json:"reason"`
}

// PatientDetail is the full side-by-side view used by the compare endpoint.
// The SSN is always nulled before it leaves the service.
type PatientDetail struct {
	Patient    *patient.Patient         `json:"patient"`
	Contacts   []*patient.Contact       `json:"contacts,omitempty"`
	Insurances []*patient.Insurance     `json:"insurances,omitempty"`
	Documents  []*patient.Document      `json:"documents,omitempty"`
	Household  *patient.HouseholdMember `json:"household,omitempty"`
}

// Comparison holds both sides of a compare request.
type Comparison struct {
	Patient1 *PatientDetail `json:"patient1"`
	Patient2 *PatientDetail `json:"patient2"`
}
