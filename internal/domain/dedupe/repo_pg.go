package dedupe

import (
	"context"

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

type repoPG struct {
	pool     *pgxpool.Pool
	patients patient.Repository
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool, patients: patient.NewRepoPG(pool)}
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

const snapshotCols = `p.id, p.record_number, d.first_name, d.last_name,
	d.first_name_soundex, d.last_name_soundex, d.date_of_birth,
	COALESCE(d.mobile_phone, d.home_phone)`

func scanSnapshot(row pgx.Row) (*PatientSnapshot, error) {
	var s PatientSnapshot
	err := row.Scan(&s.ID, &s.RecordNumber, &s.FirstName, &s.LastName,
		&s.FirstNameSoundex, &s.LastNameSoundex, &s.DateOfBirth, &s.Phone)
	return &s, err
}

func (r *repoPG) GetSnapshot(ctx context.Context, id uuid.UUID) (*PatientSnapshot, error) {
	return scanSnapshot(r.conn(ctx).QueryRow(ctx, `
		SELECT `+snapshotCols+`
		FROM patient p
		JOIN patient_demographics d ON d.patient_id = p.id
		WHERE p.id = $1 AND p.status <> 'ARCHIVED'`, id))
}

// FindCandidates is the single disjunctive query of single-patient mode:
// match on either soundex code, exact DOB, exact full name, or either phone.
// Phones are compared digits-only on both sides so stored formatting
// ("(555) 123-4567" vs "5551234567") cannot hide a candidate.
func (r *repoPG) FindCandidates(ctx context.Context, snap *PatientSnapshot) ([]*PatientSnapshot, error) {
	phone := normalizePhone(snap.Phone)
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+snapshotCols+`
		FROM patient p
		JOIN patient_demographics d ON d.patient_id = p.id
		WHERE p.status <> 'ARCHIVED' AND p.id <> $1
		AND (
			($2 <> '' AND d.first_name_soundex = $2)
			OR ($3 <> '' AND d.last_name_soundex = $3)
			OR (d.date_of_birth IS NOT NULL AND d.date_of_birth = $4)
			OR (LOWER(d.first_name) = LOWER($5) AND LOWER(d.last_name) = LOWER($6))
			OR ($7 <> '' AND (
				regexp_replace(COALESCE(d.mobile_phone, ''), '\D', '', 'g') = $7
				OR regexp_replace(COALESCE(d.home_phone, ''), '\D', '', 'g') = $7))
		)`,
		snap.ID, snap.FirstNameSoundex, snap.LastNameSoundex, snap.DateOfBirth,
		snap.FirstName, snap.LastName, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (r *repoPG) ListSnapshots(ctx context.Context) ([]*PatientSnapshot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+snapshotCols+`
		FROM patient p
		JOIN patient_demographics d ON d.patient_id = p.id
		WHERE p.status <> 'ARCHIVED'
		ORDER BY d.last_name, d.first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func collectSnapshots(rows pgx.Rows) ([]*PatientSnapshot, error) {
	var items []*PatientSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *repoPG) GetDetail(ctx context.Context, id uuid.UUID) (*PatientDetail, error) {
	repo := r.patients

	p, err := repo.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &PatientDetail{Patient: p}

	if detail.Contacts, err = repo.ListContacts(ctx, id); err != nil {
		return nil, err
	}
	if detail.Insurances, err = repo.ListInsurances(ctx, id); err != nil {
		return nil, err
	}
	if detail.Documents, err = repo.ListDocuments(ctx, id); err != nil {
		return nil, err
	}
	member, err := repo.GetMembershipByPatient(ctx, id)
	if err != nil && err != pgx.ErrNoRows {
		return nil, err
	}
	if err == nil {
		detail.Household = member
	}
	return detail, nil
}
