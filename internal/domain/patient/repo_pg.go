package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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

const demoCols = `patient_id, first_name, middle_name, last_name, date_of_birth, gender, ssn,
	mobile_phone, home_phone, email, address_line, address_city, address_state, address_postal_code,
	first_name_soundex, last_name_soundex, updated_at`

func scanDemographics(row pgx.Row) (*Demographics, error) {
	var d Demographics
	err := row.Scan(&d.PatientID, &d.FirstName, &d.MiddleName, &d.LastName, &d.DateOfBirth, &d.Gender, &d.SSN,
		&d.MobilePhone, &d.HomePhone, &d.Email, &d.AddressLine, &d.AddressCity, &d.AddressState, &d.AddressPostal,
		&d.FirstNameSoundex, &d.LastNameSoundex, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) CreatePatient(ctx context.Context, p *Patient, d *Demographics) error {
	q := r.conn(ctx)

	p.ID = uuid.New()
	p.Status = StatusActive

	var seq int64
	if err := q.QueryRow(ctx, `SELECT nextval('patient_record_seq')`).Scan(&seq); err != nil {
		return fmt.Errorf("allocate record number: %w", err)
	}
	p.RecordNumber = fmt.Sprintf("PT-%06d", seq)

	if _, err := q.Exec(ctx, `
		INSERT INTO patient (id, record_number, status)
		VALUES ($1, $2, $3)`,
		p.ID, p.RecordNumber, p.Status); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	d.PatientID = p.ID
	if _, err := q.Exec(ctx, `
		INSERT INTO patient_demographics (patient_id, first_name, middle_name, last_name,
			date_of_birth, gender, ssn, mobile_phone, home_phone, email,
			address_line, address_city, address_state, address_postal_code,
			first_name_soundex, last_name_soundex)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		d.PatientID, d.FirstName, d.MiddleName, d.LastName,
		d.DateOfBirth, d.Gender, d.SSN, d.MobilePhone, d.HomePhone, d.Email,
		d.AddressLine, d.AddressCity, d.AddressState, d.AddressPostal,
		d.FirstNameSoundex, d.LastNameSoundex); err != nil {
		return fmt.Errorf("insert demographics: %w", err)
	}

	p.Demographics = d
	return nil
}

func (r *repoPG) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, record_number, status, archived_at, created_at, updated_at
		FROM patient WHERE id = $1`, id).
		Scan(&p.ID, &p.RecordNumber, &p.Status, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d, err := scanDemographics(r.conn(ctx).QueryRow(ctx,
		`SELECT `+demoCols+` FROM patient_demographics WHERE patient_id = $1`, id))
	if err != nil && err != pgx.ErrNoRows {
		return nil, err
	}
	if err == nil {
		p.Demographics = d
	}
	return &p, nil
}

func (r *repoPG) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE status <> 'ARCHIVED'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT p.id, p.record_number, p.status, p.archived_at, p.created_at, p.updated_at,
			d.first_name, d.last_name, d.date_of_birth
		FROM patient p
		LEFT JOIN patient_demographics d ON d.patient_id = p.id
		WHERE p.status <> 'ARCHIVED'
		ORDER BY d.last_name, d.first_name
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		var p Patient
		var first, last *string
		var dob *time.Time
		if err := rows.Scan(&p.ID, &p.RecordNumber, &p.Status, &p.ArchivedAt, &p.CreatedAt, &p.UpdatedAt,
			&first, &last, &dob); err != nil {
			return nil, 0, err
		}
		if first != nil || last != nil {
			p.Demographics = &Demographics{PatientID: p.ID}
			if first != nil {
				p.Demographics.FirstName = *first
			}
			if last != nil {
				p.Demographics.LastName = *last
			}
			p.Demographics.DateOfBirth = dob
		}
		items = append(items, &p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpdateDemographics(ctx context.Context, d *Demographics) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_demographics SET first_name=$2, middle_name=$3, last_name=$4,
			date_of_birth=$5, gender=$6, ssn=$7, mobile_phone=$8, home_phone=$9, email=$10,
			address_line=$11, address_city=$12, address_state=$13, address_postal_code=$14,
			first_name_soundex=$15, last_name_soundex=$16, updated_at=NOW()
		WHERE patient_id = $1`,
		d.PatientID, d.FirstName, d.MiddleName, d.LastName,
		d.DateOfBirth, d.Gender, d.SSN, d.MobilePhone, d.HomePhone, d.Email,
		d.AddressLine, d.AddressCity, d.AddressState, d.AddressPostal,
		d.FirstNameSoundex, d.LastNameSoundex)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status PatientStatus) error {
	archive := ""
	if status == StatusArchived {
		archive = ", archived_at=NOW()"
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET status=$2, updated_at=NOW()`+archive+` WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// -- Contacts --

const contactCols = `id, patient_id, type, first_name, last_name, relationship, phone, email, is_primary, created_at, updated_at`

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.PatientID, &c.Type, &c.FirstName, &c.LastName, &c.Relationship,
		&c.Phone, &c.Email, &c.IsPrimary, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *repoPG) CreateContact(ctx context.Context, c *Contact) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_contact (id, patient_id, type, first_name, last_name, relationship, phone, email, is_primary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.PatientID, c.Type, c.FirstName, c.LastName, c.Relationship, c.Phone, c.Email, c.IsPrimary)
	return err
}

func (r *repoPG) GetContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	return scanContact(r.conn(ctx).QueryRow(ctx,
		`SELECT `+contactCols+` FROM patient_contact WHERE id = $1`, id))
}

func (r *repoPG) ListContacts(ctx context.Context, patientID uuid.UUID) ([]*Contact, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+contactCols+` FROM patient_contact WHERE patient_id = $1 ORDER BY is_primary DESC, created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateContact(ctx context.Context, c *Contact) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_contact SET type=$2, first_name=$3, last_name=$4, relationship=$5,
			phone=$6, email=$7, is_primary=$8, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Type, c.FirstName, c.LastName, c.Relationship, c.Phone, c.Email, c.IsPrimary)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) DeleteContact(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_contact WHERE id = $1`, id)
	return err
}

func (r *repoPG) ClearPrimaryContacts(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_contact SET is_primary = FALSE, updated_at = NOW() WHERE patient_id = $1 AND is_primary`, patientID)
	return err
}

// -- Insurances --

const insuranceCols = `id, patient_id, type, carrier, policy_number, group_number, copay::text, deductible::text, active, effective_date, created_at, updated_at`

func scanInsurance(row pgx.Row) (*Insurance, error) {
	var ins Insurance
	err := row.Scan(&ins.ID, &ins.PatientID, &ins.Type, &ins.Carrier, &ins.PolicyNumber, &ins.GroupNumber,
		&ins.Copay, &ins.Deductible, &ins.Active, &ins.EffectiveDate, &ins.CreatedAt, &ins.UpdatedAt)
	return &ins, err
}

func (r *repoPG) CreateInsurance(ctx context.Context, ins *Insurance) error {
	ins.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_insurance (id, patient_id, type, carrier, policy_number, group_number,
			copay, deductible, active, effective_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8::numeric,$9,$10)`,
		ins.ID, ins.PatientID, ins.Type, ins.Carrier, ins.PolicyNumber, ins.GroupNumber,
		ins.Copay, ins.Deductible, ins.Active, ins.EffectiveDate)
	return err
}

func (r *repoPG) GetInsurance(ctx context.Context, id uuid.UUID) (*Insurance, error) {
	return scanInsurance(r.conn(ctx).QueryRow(ctx,
		`SELECT `+insuranceCols+` FROM patient_insurance WHERE id = $1`, id))
}

func (r *repoPG) ListInsurances(ctx context.Context, patientID uuid.UUID) ([]*Insurance, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+insuranceCols+` FROM patient_insurance WHERE patient_id = $1 ORDER BY type, active DESC, created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Insurance
	for rows.Next() {
		ins, err := scanInsurance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ins)
	}
	return items, rows.Err()
}

func (r *repoPG) UpdateInsurance(ctx context.Context, ins *Insurance) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_insurance SET type=$2, carrier=$3, policy_number=$4, group_number=$5,
			copay=$6::numeric, deductible=$7::numeric, active=$8, effective_date=$9, updated_at=NOW()
		WHERE id = $1`,
		ins.ID, ins.Type, ins.Carrier, ins.PolicyNumber, ins.GroupNumber,
		ins.Copay, ins.Deductible, ins.Active, ins.EffectiveDate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *repoPG) DeactivateActiveOfType(ctx context.Context, patientID uuid.UUID, insType InsuranceType) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient_insurance SET active = FALSE, updated_at = NOW() WHERE patient_id = $1 AND type = $2 AND active`,
		patientID, insType)
	return err
}

// -- Documents --

func (r *repoPG) CreateDocument(ctx context.Context, doc *Document) error {
	doc.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document (id, patient_id, name, content_type, storage_path, size_bytes, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		doc.ID, doc.PatientID, doc.Name, doc.ContentType, doc.StoragePath, doc.SizeBytes, doc.UploadedBy)
	return err
}

func (r *repoPG) ListDocuments(ctx context.Context, patientID uuid.UUID) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, content_type, storage_path, size_bytes, uploaded_by, created_at
		FROM document WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.PatientID, &doc.Name, &doc.ContentType, &doc.StoragePath,
			&doc.SizeBytes, &doc.UploadedBy, &doc.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &doc)
	}
	return items, rows.Err()
}

// -- Households --

func (r *repoPG) CreateHousehold(ctx context.Context, h *Household) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO household (id, name) VALUES ($1, $2)`, h.ID, h.Name)
	return err
}

func (r *repoPG) GetHousehold(ctx context.Context, id uuid.UUID) (*Household, error) {
	var h Household
	err := r.conn(ctx).QueryRow(ctx, `SELECT id, name, created_at FROM household WHERE id = $1`, id).
		Scan(&h.ID, &h.Name, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, household_id, patient_id, relationship, is_head_of_house, is_guarantor, created_at
		FROM household_member WHERE household_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m HouseholdMember
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.PatientID, &m.Relationship,
			&m.IsHeadOfHouse, &m.IsGuarantor, &m.CreatedAt); err != nil {
			return nil, err
		}
		h.Members = append(h.Members, &m)
	}
	return &h, rows.Err()
}

func (r *repoPG) AddHouseholdMember(ctx context.Context, m *HouseholdMember) error {
	m.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO household_member (id, household_id, patient_id, relationship, is_head_of_house, is_guarantor)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		m.ID, m.HouseholdID, m.PatientID, m.Relationship, m.IsHeadOfHouse, m.IsGuarantor)
	return err
}

func (r *repoPG) RemoveHouseholdMember(ctx context.Context, patientID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM household_member WHERE patient_id = $1`, patientID)
	return err
}

func (r *repoPG) GetMembershipByPatient(ctx context.Context, patientID uuid.UUID) (*HouseholdMember, error) {
	var m HouseholdMember
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, household_id, patient_id, relationship, is_head_of_house, is_guarantor, created_at
		FROM household_member WHERE patient_id = $1`, patientID).
		Scan(&m.ID, &m.HouseholdID, &m.PatientID, &m.Relationship, &m.IsHeadOfHouse, &m.IsGuarantor, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repoPG) ClearHeadOfHouse(ctx context.Context, householdID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE household_member SET is_head_of_house = FALSE WHERE household_id = $1 AND is_head_of_house`, householdID)
	return err
}

func (r *repoPG) ClearGuarantor(ctx context.Context, householdID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE household_member SET is_guarantor = FALSE WHERE household_id = $1 AND is_guarantor`, householdID)
	return err
}
