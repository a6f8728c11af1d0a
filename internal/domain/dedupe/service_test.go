package dedupe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chirocore/practice/internal/domain/patient"
)

type mockRepo struct {
	snaps   map[uuid.UUID]*PatientSnapshot
	details map[uuid.UUID]*PatientDetail
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		snaps:   make(map[uuid.UUID]*PatientSnapshot),
		details: make(map[uuid.UUID]*PatientDetail),
	}
}

func (m *mockRepo) add(s *PatientSnapshot) *PatientSnapshot {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.snaps[s.ID] = s
	return s
}

func (m *mockRepo) GetSnapshot(_ context.Context, id uuid.UUID) (*PatientSnapshot, error) {
	s, ok := m.snaps[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

// FindCandidates mirrors the SQL disjunction over the in-memory set.
func (m *mockRepo) FindCandidates(_ context.Context, snap *PatientSnapshot) ([]*PatientSnapshot, error) {
	var out []*PatientSnapshot
	for _, other := range m.snaps {
		if other.ID == snap.ID {
			continue
		}
		if matchesDisjunction(snap, other) {
			out = append(out, other)
		}
	}
	return out, nil
}

func matchesDisjunction(a, b *PatientSnapshot) bool {
	if a.FirstNameSoundex != "" && a.FirstNameSoundex == b.FirstNameSoundex {
		return true
	}
	if a.LastNameSoundex != "" && a.LastNameSoundex == b.LastNameSoundex {
		return true
	}
	if a.DateOfBirth != nil && b.DateOfBirth != nil &&
		a.DateOfBirth.Format("2006-01-02") == b.DateOfBirth.Format("2006-01-02") {
		return true
	}
	if strings.EqualFold(a.FirstName, b.FirstName) && strings.EqualFold(a.LastName, b.LastName) {
		return true
	}
	if pa := normalizePhone(a.Phone); pa != "" && pa == normalizePhone(b.Phone) {
		return true
	}
	return false
}

func (m *mockRepo) ListSnapshots(_ context.Context) ([]*PatientSnapshot, error) {
	var out []*PatientSnapshot
	for _, s := range m.snaps {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockRepo) GetDetail(_ context.Context, id uuid.UUID) (*PatientDetail, error) {
	d, ok := m.details[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return d, nil
}

func TestFindDuplicatesNotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.FindDuplicates(context.Background(), uuid.New(), 0)
	if !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindDuplicatesExactScenario(t *testing.T) {
	repo := newMockRepo()
	a := repo.add(snap("Maria", "Garcia", "1980-05-02", strPtr("555-111-0001")))
	b := repo.add(snap("Maria", "Garcia", "1980-05-02", strPtr("555-222-0002")))

	svc := NewService(repo)
	matches, err := svc.FindDuplicates(context.Background(), a.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Patient.ID != b.ID {
		t.Error("expected the other Maria Garcia as the match")
	}
	if matches[0].SimilarityScore < 95 {
		t.Errorf("expected score >= 95, got %d", matches[0].SimilarityScore)
	}
}

func TestFindDuplicatesFiltersBelowThreshold(t *testing.T) {
	repo := newMockRepo()
	a := repo.add(snap("Catherine", "Smith", "1975-03-14", nil))
	// Shares only a phonetic first-name code (+10), below the threshold.
	repo.add(snap("Cathryn", "Jones", "", nil))

	svc := NewService(repo)
	matches, err := svc.FindDuplicates(context.Background(), a.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, m := range matches {
		if m.SimilarityScore < MatchThreshold {
			t.Errorf("match below threshold leaked: %+v", m)
		}
	}
}

func TestFindDuplicatesSortedDescending(t *testing.T) {
	repo := newMockRepo()
	a := repo.add(snap("Maria", "Garcia", "1980-05-02", strPtr("555-111-0001")))
	repo.add(snap("Maria", "Garcia", "1980-05-02", nil))          // 95
	repo.add(snap("Mario", "Garcia", "1980-05-02", nil))          // 40+10+30 = 80
	repo.add(snap("Maria", "Gracia", "", strPtr("555-111-0001"))) // 25+35(+15?) >= 60

	svc := NewService(repo)
	matches, err := svc.FindDuplicates(context.Background(), a.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) < 2 {
		t.Fatalf("expected multiple matches, got %d", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].SimilarityScore > matches[i-1].SimilarityScore {
			t.Errorf("matches not sorted descending at %d: %d > %d",
				i, matches[i].SimilarityScore, matches[i-1].SimilarityScore)
		}
	}
}

func TestFindDuplicatesPhoneFormattingDifference(t *testing.T) {
	repo := newMockRepo()
	a := repo.add(snap("Ann", "Lee", "", strPtr("(555) 123-4567")))
	b := repo.add(snap("Zoe", "Park", "", strPtr("5551234567")))

	svc := NewService(repo)
	matches, err := svc.FindDuplicates(context.Background(), a.ID, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Patient.ID != b.ID {
		t.Fatalf("expected the differently formatted phone to match, got %d matches", len(matches))
	}
	if !hasReason(matches[0].Reasons, "Same phone number") {
		t.Errorf("expected phone reason, got %v", matches[0].Reasons)
	}
}

func TestFindDuplicatesLimit(t *testing.T) {
	repo := newMockRepo()
	a := repo.add(snap("Maria", "Garcia", "1980-05-02", nil))
	for i := 0; i < 5; i++ {
		repo.add(snap("Maria", "Garcia", "1980-05-02", nil))
	}

	svc := NewService(repo)
	matches, err := svc.FindDuplicates(context.Background(), a.ID, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("expected limit of 2 matches, got %d", len(matches))
	}
}

func TestFindDuplicateGroupsByDOBAndLastName(t *testing.T) {
	repo := newMockRepo()
	repo.add(snap("Maria", "Garcia", "1980-05-02", nil))
	repo.add(snap("M", "Garcia", "1980-05-02", nil))
	repo.add(snap("Bob", "Unrelated", "1980-05-02", nil)) // same DOB, different surname
	repo.add(snap("Zed", "Other", "1999-09-09", nil))

	svc := NewService(repo)
	groups, err := svc.FindDuplicateGroups(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if len(g.Patients) != 2 {
		t.Errorf("expected 2 patients in group, got %d", len(g.Patients))
	}
	want := "Same DOB (1980-05-02) and same/similar last name"
	if g.Reason != want {
		t.Errorf("expected reason %q, got %q", want, g.Reason)
	}
}

func TestFindDuplicateGroupsByPhone(t *testing.T) {
	repo := newMockRepo()
	repo.add(snap("A", "One", "", strPtr("(555) 123-4567")))
	repo.add(snap("B", "Two", "", strPtr("555-123-4567")))
	repo.add(snap("C", "Three", "", strPtr("555-999-9999")))

	svc := NewService(repo)
	groups, err := svc.FindDuplicateGroups(context.Background(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Reason != "Same phone number" {
		t.Errorf("unexpected reason %q", groups[0].Reason)
	}
}

func TestFindDuplicateGroupsLimit(t *testing.T) {
	repo := newMockRepo()
	// Ten distinct phone-pair groups.
	phones := []string{"1110001", "1110002", "1110003", "1110004", "1110005",
		"1110006", "1110007", "1110008", "1110009", "1110010"}
	for _, p := range phones {
		phone := p
		repo.add(snap("A", "X"+p, "", &phone))
		repo.add(snap("B", "Y"+p, "", &phone))
	}

	svc := NewService(repo)
	groups, err := svc.FindDuplicateGroups(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 3 {
		t.Errorf("expected limit of 3 groups, got %d", len(groups))
	}
}

func TestComparePatientsNullsSSN(t *testing.T) {
	repo := newMockRepo()
	ssn := "123-45-6789"
	id1, id2 := uuid.New(), uuid.New()
	repo.details[id1] = &PatientDetail{Patient: &patient.Patient{
		ID: id1, Demographics: &patient.Demographics{FirstName: "A", LastName: "B", SSN: &ssn},
	}}
	repo.details[id2] = &PatientDetail{Patient: &patient.Patient{
		ID: id2, Demographics: &patient.Demographics{FirstName: "C", LastName: "D"},
	}}

	svc := NewService(repo)
	cmp, err := svc.ComparePatients(context.Background(), id1, id2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmp.Patient1.Patient.Demographics.SSN != nil {
		t.Error("SSN must be nulled in compare output")
	}
}

func TestComparePatientsNotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.ComparePatients(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
