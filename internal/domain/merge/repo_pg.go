package merge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chirocore/practice/internal/domain/patient"
	"github.com/chirocore/practice/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// LockPatients takes row locks on both patients in ascending id order.
// ORDER BY inside FOR UPDATE pins the lock acquisition order, so two
// concurrent merges of the same pair serialize instead of deadlocking.
func (r *repoPG) LockPatients(ctx context.Context, id1, id2 uuid.UUID) (map[uuid.UUID]*patient.Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, record_number, status, archived_at, created_at, updated_at
		FROM patient WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, []uuid.UUID{id1, id2})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]*patient.Patient, 2)
	for rows.Next() {
		var p patient.Patient
		if err := rows.Scan(&p.ID, &p.RecordNumber, &p.Status, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = &p
	}
	return out, rows.Err()
}

func (r *repoPG) GetDemographics(ctx context.Context, patientID uuid.UUID) (*patient.Demographics, error) {
	var d patient.Demographics
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT patient_id, first_name, middle_name, last_name, date_of_birth, gender, ssn,
			mobile_phone, home_phone, email, address_line, address_city, address_state, address_postal_code,
			first_name_soundex, last_name_soundex, updated_at
		FROM patient_demographics WHERE patient_id = $1`, patientID).
		Scan(&d.PatientID, &d.FirstName, &d.MiddleName, &d.LastName, &d.DateOfBirth, &d.Gender, &d.SSN,
			&d.MobilePhone, &d.HomePhone, &d.Email, &d.AddressLine, &d.AddressCity, &d.AddressState, &d.AddressPostal,
			&d.FirstNameSoundex, &d.LastNameSoundex, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) UpdateDemographics(ctx context.Context, d *patient.Demographics) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_demographics SET first_name=$2, middle_name=$3, last_name=$4,
			date_of_birth=$5, gender=$6, ssn=$7, mobile_phone=$8, home_phone=$9, email=$10,
			address_line=$11, address_city=$12, address_state=$13, address_postal_code=$14,
			first_name_soundex=$15, last_name_soundex=$16, updated_at=NOW()
		WHERE patient_id = $1`,
		d.PatientID, d.FirstName, d.MiddleName, d.LastName,
		d.DateOfBirth, d.Gender, d.SSN, d.MobilePhone, d.HomePhone, d.Email,
		d.AddressLine, d.AddressCity, d.AddressState, d.AddressPostal,
		d.FirstNameSoundex, d.LastNameSoundex)
	return err
}

func (r *repoPG) ListContactsByType(ctx context.Context, patientID uuid.UUID, typ patient.ContactType) ([]*patient.Contact, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, type, first_name, last_name, relationship, phone, email, is_primary, created_at, updated_at
		FROM patient_contact WHERE patient_id = $1 AND type = $2 ORDER BY created_at`, patientID, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*patient.Contact
	for rows.Next() {
		var c patient.Contact
		if err := rows.Scan(&c.ID, &c.PatientID, &c.Type, &c.FirstName, &c.LastName, &c.Relationship,
			&c.Phone, &c.Email, &c.IsPrimary, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

// ReassignContacts moves the source's contacts of the given type to the
// target with the primary flag cleared, leaving the target's own primary
// contact untouched.
func (r *repoPG) ReassignContacts(ctx context.Context, from, to uuid.UUID, typ patient.ContactType) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_contact SET patient_id = $2, is_primary = FALSE, updated_at = NOW()
		WHERE patient_id = $1 AND type = $3`, from, to, typ)
	return err
}

func (r *repoPG) ListInsurances(ctx context.Context, patientID uuid.UUID) ([]*patient.Insurance, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, type, carrier, policy_number, group_number, copay::text, deductible::text, active, effective_date, created_at, updated_at
		FROM patient_insurance WHERE patient_id = $1 ORDER BY type, created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*patient.Insurance
	for rows.Next() {
		var ins patient.Insurance
		if err := rows.Scan(&ins.ID, &ins.PatientID, &ins.Type, &ins.Carrier, &ins.PolicyNumber, &ins.GroupNumber,
			&ins.Copay, &ins.Deductible, &ins.Active, &ins.EffectiveDate, &ins.CreatedAt, &ins.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &ins)
	}
	return items, rows.Err()
}

// ReassignInsurances moves the source's insurance records to the target and
// deactivates them; they become historical coverage under the target.
func (r *repoPG) ReassignInsurances(ctx context.Context, from, to uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_insurance SET patient_id = $2, active = FALSE, updated_at = NOW()
		WHERE patient_id = $1`, from, to)
	return err
}

func (r *repoPG) CountDocuments(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM document WHERE patient_id = $1`, patientID).Scan(&n)
	return n, err
}

// ReassignDocuments moves documents outright; documents keep their status.
func (r *repoPG) ReassignDocuments(ctx context.Context, from, to uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE document SET patient_id = $2 WHERE patient_id = $1`, from, to)
	return err
}

func (r *repoPG) RemoveFromHousehold(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM household_member WHERE patient_id = $1`, patientID)
	return err
}

func (r *repoPG) ArchivePatient(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET status = 'ARCHIVED', archived_at = NOW(), updated_at = NOW()
		WHERE id = $1`, patientID)
	return err
}

func (r *repoPG) InsertMergeRecord(ctx context.Context, rec *MergeRecord) error {
	rec.ID = uuid.New()
	flags, err := json.Marshal(rec.FieldsKept)
	if err != nil {
		return fmt.Errorf("marshal merge flags: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO merge_record (id, source_patient_id, target_patient_id, merged_by, reason, snapshot, fields_kept)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.SourcePatientID, rec.TargetPatientID, rec.MergedBy, rec.Reason, rec.Snapshot, flags)
	return err
}

func (r *repoPG) History(ctx context.Context, patientID uuid.UUID) ([]*MergeRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, source_patient_id, target_patient_id, merged_by, reason, snapshot, fields_kept, created_at
		FROM merge_record
		WHERE source_patient_id = $1 OR target_patient_id = $1
		ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MergeRecord
	for rows.Next() {
		var rec MergeRecord
		var flags []byte
		if err := rows.Scan(&rec.ID, &rec.SourcePatientID, &rec.TargetPatientID, &rec.MergedBy,
			&rec.Reason, &rec.Snapshot, &flags, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(flags, &rec.FieldsKept); err != nil {
			return nil, fmt.Errorf("unmarshal merge flags: %w", err)
		}
		items = append(items, &rec)
	}
	return items, rows.Err()
}
