package dedupe

import (
	"testing"
	"time"

	"github.com/chirocore/practice/pkg/phonetics"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func strPtr(s string) *string { return &s }

func snap(first, last, dob string, phone *string) *PatientSnapshot {
	s := &PatientSnapshot{
		FirstName:        first,
		LastName:         last,
		FirstNameSoundex: phonetics.Encode(first),
		LastNameSoundex:  phonetics.Encode(last),
		Phone:            phone,
	}
	if dob != "" {
		s.DateOfBirth = date(dob)
	}
	return s
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestScoreExactDuplicate(t *testing.T) {
	a := snap("Maria", "Garcia", "1980-05-02", strPtr("555-111-0001"))
	b := snap("Maria", "Garcia", "1980-05-02", strPtr("555-222-0002"))

	score, reasons := Score(a, b)
	if score != 95 {
		t.Errorf("expected score 95 (40 DOB + 25 first + 30 last), got %d", score)
	}
	for _, want := range []string{"Same date of birth", "Same first name", "Same last name"} {
		if !hasReason(reasons, want) {
			t.Errorf("missing reason %q in %v", want, reasons)
		}
	}
	if hasReason(reasons, "Same phone number") {
		t.Error("different phones must not contribute")
	}
}

func TestScorePhoneticMatch(t *testing.T) {
	a := snap("Catherine", "Smith", "1975-03-14", nil)
	b := snap("Kathryn", "Smyth", "1975-03-14", nil)

	score, reasons := Score(a, b)
	if score < MatchThreshold {
		t.Errorf("expected score >= %d, got %d", MatchThreshold, score)
	}
	if len(reasons) == 0 {
		t.Error("expected non-empty reasons")
	}
	// Smith and Smyth share a soundex code but differ as strings.
	if !hasReason(reasons, "Similar sounding last name") {
		t.Errorf("expected phonetic last-name reason, got %v", reasons)
	}
	if hasReason(reasons, "Same last name") {
		t.Error("exact and phonetic last-name matches are mutually exclusive")
	}
}

func TestScoreExactBeatsPhonetic(t *testing.T) {
	a := snap("Robert", "Lee", "", nil)
	b := snap("robert", "Lee", "", nil)

	score, reasons := Score(a, b)
	if !hasReason(reasons, "Same first name") {
		t.Errorf("case-insensitive exact first-name match expected, got %v", reasons)
	}
	if hasReason(reasons, "Similar sounding first name") {
		t.Error("only the stronger first-name match may fire")
	}
	if score != 25+30 {
		t.Errorf("expected 55, got %d", score)
	}
}

func TestScoreMonotonicity(t *testing.T) {
	phone := strPtr("555-867-5309")
	base := snap("Ann", "Barr", "1990-01-01", nil)
	other := snap("Zoe", "Quinn", "1990-01-01", nil)

	dobOnly, _ := Score(base, other)

	other.Phone = phone
	base.Phone = phone
	withPhone, _ := Score(base, other)
	if withPhone < dobOnly {
		t.Errorf("adding a matching field decreased score: %d -> %d", dobOnly, withPhone)
	}
}

func TestScoreClampedTo100(t *testing.T) {
	phone := strPtr("555-000-1111")
	a := snap("Maria", "Garcia", "1980-05-02", phone)
	b := snap("Maria", "Garcia", "1980-05-02", phone)

	score, _ := Score(a, b)
	if score != 100 {
		t.Errorf("expected clamp to 100 (raw 130), got %d", score)
	}
}

func TestScorePhoneNormalization(t *testing.T) {
	a := snap("A", "B", "", strPtr("(555) 123-4567"))
	b := snap("C", "D", "", strPtr("5551234567"))

	_, reasons := Score(a, b)
	if !hasReason(reasons, "Same phone number") {
		t.Errorf("formatting differences must not defeat phone match, got %v", reasons)
	}
}

func TestScoreEmptySoundexNeverMatches(t *testing.T) {
	a := snap("123", "456", "", nil)
	b := snap("789", "012", "", nil)

	score, reasons := Score(a, b)
	if score != 0 || len(reasons) != 0 {
		t.Errorf("non-alphabetic names must not phonetic-match: score=%d reasons=%v", score, reasons)
	}
}
