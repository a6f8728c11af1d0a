package dedupe

import "strings"

// Field weights. Additive, capped at 100; the exact and phonetic name
// matches are mutually exclusive with only the stronger one firing.
const (
	weightSameDOB           = 40
	weightSameFirstName     = 25
	weightPhoneticFirstName = 10
	weightSameLastName      = 30
	weightPhoneticLastName  = 15
	weightSamePhone         = 35

	// MatchThreshold is the minimum score a pair needs to be reported.
	MatchThreshold = 25

	maxScore = 100
)

// Score compares two patient snapshots and returns a 0-100 similarity score
// with the human-readable reasons each contributing match adds.
func Score(a, b *PatientSnapshot) (int, []string) {
	score := 0
	var reasons []string

	if a.DateOfBirth != nil && b.DateOfBirth != nil &&
		a.DateOfBirth.Format("2006-01-02") == b.DateOfBirth.Format("2006-01-02") {
		score += weightSameDOB
		reasons = append(reasons, "Same date of birth")
	}

	switch {
	case a.FirstName != "" && strings.EqualFold(a.FirstName, b.FirstName):
		score += weightSameFirstName
		reasons = append(reasons, "Same first name")
	case a.FirstNameSoundex != "" && a.FirstNameSoundex == b.FirstNameSoundex:
		score += weightPhoneticFirstName
		reasons = append(reasons, "Similar sounding first name")
	}

	switch {
	case a.LastName != "" && strings.EqualFold(a.LastName, b.LastName):
		score += weightSameLastName
		reasons = append(reasons, "Same last name")
	case a.LastNameSoundex != "" && a.LastNameSoundex == b.LastNameSoundex:
		score += weightPhoneticLastName
		reasons = append(reasons, "Similar sounding last name")
	}

	if pa, pb := normalizePhone(a.Phone), normalizePhone(b.Phone); pa != "" && pa == pb {
		score += weightSamePhone
		reasons = append(reasons, "Same phone number")
	}

	if score > maxScore {
		score = maxScore
	}
	return score, reasons
}

// normalizePhone strips everything but digits so formatting differences
// ("(555) 123-4567" vs "555-123-4567") do not defeat the comparison.
func normalizePhone(p *string) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for _, r := range *p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
