package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chirocore/practice/internal/domain/patient"
)

// maxResultLimit caps the results either detection mode returns.
const maxResultLimit = 100

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindDuplicates is single-patient mode: run the disjunctive candidate query
// around the given patient, score each candidate, keep those at or above the
// reporting threshold, sorted by descending score and capped at limit.
func (s *Service) FindDuplicates(ctx context.Context, patientID uuid.UUID, limit int) ([]*CandidateMatch, error) {
	if limit <= 0 || limit > maxResultLimit {
		limit = maxResultLimit
	}

	snap, err := s.repo.GetSnapshot(ctx, patientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load patient snapshot: %w", err)
	}

	candidates, err := s.repo.FindCandidates(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	var matches []*CandidateMatch
	for _, cand := range candidates {
		score, reasons := Score(snap, cand)
		if score < MatchThreshold {
			continue
		}
		matches = append(matches, &CandidateMatch{
			Patient:         cand,
			SimilarityScore: score,
			Reasons:         reasons,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// FindDuplicateGroups is global mode: bucket every non-archived patient by
// DOB and by normalized phone digits, then emit groups. DOB buckets require
// exact or phonetic last-name agreement on top of the shared birth date.
func (s *Service) FindDuplicateGroups(ctx context.Context, limit int) ([]*DuplicateGroup, error) {
	if limit <= 0 || limit > maxResultLimit {
		limit = maxResultLimit
	}

	snaps, err := s.repo.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load patient snapshots: %w", err)
	}

	var groups []*DuplicateGroup

	byDOB := make(map[string][]*PatientSnapshot)
	var dobKeys []string
	for _, snap := range snaps {
		if snap.DateOfBirth == nil {
			continue
		}
		key := snap.DateOfBirth.Format("2006-01-02")
		if _, seen := byDOB[key]; !seen {
			dobKeys = append(dobKeys, key)
		}
		byDOB[key] = append(byDOB[key], snap)
	}
	sort.Strings(dobKeys)
	for _, dob := range dobKeys {
		bucket := byDOB[dob]
		if len(bucket) < 2 {
			continue
		}
		for _, cluster := range clusterByLastName(bucket) {
			if len(cluster) < 2 {
				continue
			}
			groups = append(groups, &DuplicateGroup{
				Patients: cluster,
				Reason:   fmt.Sprintf("Same DOB (%s) and same/similar last name", dob),
			})
		}
	}

	byPhone := make(map[string][]*PatientSnapshot)
	var phoneKeys []string
	for _, snap := range snaps {
		key := normalizePhone(snap.Phone)
		if key == "" {
			continue
		}
		if _, seen := byPhone[key]; !seen {
			phoneKeys = append(phoneKeys, key)
		}
		byPhone[key] = append(byPhone[key], snap)
	}
	sort.Strings(phoneKeys)
	for _, phone := range phoneKeys {
		bucket := byPhone[phone]
		if len(bucket) < 2 {
			continue
		}
		groups = append(groups, &DuplicateGroup{
			Patients: bucket,
			Reason:   "Same phone number",
		})
	}

	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

// clusterByLastName splits a DOB bucket into sub-clusters whose members
// agree on last name, exactly or phonetically. Patients with an empty
// phonetic code cluster by exact lowercase name only.
func clusterByLastName(bucket []*PatientSnapshot) [][]*PatientSnapshot {
	byKey := make(map[string][]*PatientSnapshot)
	var keys []string
	for _, snap := range bucket {
		key := snap.LastNameSoundex
		if key == "" {
			key = "exact:" + strings.ToLower(snap.LastName)
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], snap)
	}
	sort.Strings(keys)
	clusters := make([][]*PatientSnapshot, 0, len(keys))
	for _, key := range keys {
		clusters = append(clusters, byKey[key])
	}
	return clusters
}

// ComparePatients loads both records in full for side-by-side review. SSNs
// are nulled: they never leave this endpoint in any form.
func (s *Service) ComparePatients(ctx context.Context, id1, id2 uuid.UUID) (*Comparison, error) {
	d1, err := s.repo.GetDetail(ctx, id1)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d2, err := s.repo.GetDetail(ctx, id2)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, patient.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	stripSSN(d1)
	stripSSN(d2)
	return &Comparison{Patient1: d1, Patient2: d2}, nil
}

func stripSSN(d *PatientDetail) {
	if d.Patient != nil && d.Patient.Demographics != nil {
		d.Patient.Demographics.SSN = nil
	}
}
