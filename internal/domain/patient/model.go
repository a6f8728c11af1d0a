package patient

import (
	"time"

	"github.com/google/uuid"
)

// PatientStatus enumerates patient lifecycle states. Patients are archived,
// never hard-deleted.
type PatientStatus string

const (
	StatusActive   PatientStatus = "ACTIVE"
	StatusInactive PatientStatus = "INACTIVE"
	StatusArchived PatientStatus = "ARCHIVED"
	StatusDeceased PatientStatus = "DECEASED"
)

// Patient maps to the patient table. The record number is generated on
// creation and unique within the organization (e.g. PT-000123).
type Patient struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	RecordNumber string        `db:"record_number" json:"record_number"`
	Status       PatientStatus `db:"status" json:"status"`
	ArchivedAt   *time.Time    `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`

	Demographics *Demographics `db:"-" json:"demographics,omitempty"`
}

// Demographics is 1:1 with patient. The two soundex columns are derived from
// the name fields and recomputed by the service on every write that touches a
// name; they back the duplicate-detection indexes.
type Demographics struct {
	PatientID        uuid.UUID  `db:"patient_id" json:"patient_id"`
	FirstName        string     `db:"first_name" json:"first_name"`
	MiddleName       *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName         string     `db:"last_name" json:"last_name"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	SSN              *string    `db:"ssn" json:"ssn,omitempty"`
	MobilePhone      *string    `db:"mobile_phone" json:"mobile_phone,omitempty"`
	HomePhone        *string    `db:"home_phone" json:"home_phone,omitempty"`
	Email            *string    `db:"email" json:"email,omitempty"`
	AddressLine      *string    `db:"address_line" json:"address_line,omitempty"`
	AddressCity      *string    `db:"address_city" json:"address_city,omitempty"`
	AddressState     *string    `db:"address_state" json:"address_state,omitempty"`
	AddressPostal    *string    `db:"address_postal_code" json:"address_postal_code,omitempty"`
	FirstNameSoundex string     `db:"first_name_soundex" json:"-"`
	LastNameSoundex  string     `db:"last_name_soundex" json:"-"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Sanitized returns a copy with the SSN masked to its last four digits.
// Full SSNs never leave the API.
func (d *Demographics) Sanitized() *Demographics {
	if d == nil {
		return nil
	}
	out := *d
	if d.SSN != nil {
		masked := maskSSN(*d.SSN)
		out.SSN = &masked
	}
	return &out
}

func maskSSN(ssn string) string {
	digits := make([]byte, 0, len(ssn))
	for i := 0; i < len(ssn); i++ {
		if ssn[i] >= '0' && ssn[i] <= '9' {
			digits = append(digits, ssn[i])
		}
	}
	if len(digits) < 4 {
		return "***-**-****"
	}
	return "***-**-" + string(digits[len(digits)-4:])
}

// ContactType distinguishes general from emergency contacts.
type ContactType string

const (
	ContactGeneral   ContactType = "GENERAL"
	ContactEmergency ContactType = "EMERGENCY"
)

// Contact is a person associated with a patient. At most one contact per
// patient may be flagged primary at any time.
type Contact struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	PatientID    uuid.UUID   `db:"patient_id" json:"patient_id"`
	Type         ContactType `db:"type" json:"type"`
	FirstName    string      `db:"first_name" json:"first_name"`
	LastName     string      `db:"last_name" json:"last_name"`
	Relationship *string     `db:"relationship" json:"relationship,omitempty"`
	Phone        *string     `db:"phone" json:"phone,omitempty"`
	Email        *string     `db:"email" json:"email,omitempty"`
	IsPrimary    bool        `db:"is_primary" json:"is_primary"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// InsuranceType orders coverage: PRIMARY, SECONDARY, TERTIARY.
type InsuranceType string

const (
	InsurancePrimary   InsuranceType = "PRIMARY"
	InsuranceSecondary InsuranceType = "SECONDARY"
	InsuranceTertiary  InsuranceType = "TERTIARY"
)

// Insurance is a coverage record. At most one *active* insurance per type per
// patient; activating a new one deactivates the previous active row of the
// same type. Copay and deductible are decimal amounts carried as strings so
// they survive JSON serialization without precision loss.
type Insurance struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	Type          InsuranceType `db:"type" json:"type"`
	Carrier       string        `db:"carrier" json:"carrier"`
	PolicyNumber  string        `db:"policy_number" json:"policy_number"`
	GroupNumber   *string       `db:"group_number" json:"group_number,omitempty"`
	Copay         *string       `db:"copay" json:"copay,omitempty"`
	Deductible    *string       `db:"deductible" json:"deductible,omitempty"`
	Active        bool          `db:"active" json:"active"`
	EffectiveDate *time.Time    `db:"effective_date" json:"effective_date,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Document is a file attached to a patient. Documents have an independent
// lifecycle and can be reassigned between patients.
type Document struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Name        string    `db:"name" json:"name"`
	ContentType string    `db:"content_type" json:"content_type"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Household groups patients for billing and correspondence.
type Household struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Members []*HouseholdMember `db:"-" json:"members,omitempty"`
}

// HouseholdMember joins a patient to a household. A patient belongs to at
// most one household; a household has at most one head-of-house and at most
// one guarantor.
type HouseholdMember struct {
	ID            uuid.UUID `db:"id" json:"id"`
	HouseholdID   uuid.UUID `db:"household_id" json:"household_id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	Relationship  *string   `db:"relationship" json:"relationship,omitempty"`
	IsHeadOfHouse bool      `db:"is_head_of_house" json:"is_head_of_house"`
	IsGuarantor   bool      `db:"is_guarantor" json:"is_guarantor"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
