package phonetics

import "testing"

// Reference codes from the NARA Soundex specification and its standard
// worked examples.
func TestEncode_KnownValues(t *testing.T) {
	cases := map[string]string{
		"Robert":     "R163",
		"Rupert":     "R163",
		"Ashcraft":   "A261",
		"Ashcroft":   "A261",
		"Tymczak":    "T522",
		"Pfister":    "P236",
		"Honeyman":   "H555",
		"Washington": "W252",
		"Jackson":    "J250",
		"Smith":      "S530",
		"Smyth":      "S530",
		"Garcia":     "G620",
		"Lee":        "L000",
		"Gutierrez":  "G362",
	}
	for name, want := range cases {
		if got := Encode(name); got != want {
			t.Errorf("Encode(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestEncode_CaseAndPunctuationInsensitive(t *testing.T) {
	if Encode("o'brien") != Encode("OBrien") {
		t.Errorf("expected o'brien and OBrien to encode identically")
	}
	if Encode("van der Berg") != Encode("VANDERBERG") {
		t.Errorf("expected spacing and case to be ignored")
	}
}

func TestEncode_NonAlphabetic(t *testing.T) {
	if got := Encode(""); got != "" {
		t.Errorf("Encode(\"\") = %q, want empty", got)
	}
	if got := Encode("123"); got != "" {
		t.Errorf("Encode(\"123\") = %q, want empty", got)
	}
	if got := Encode("  !!  "); got != "" {
		t.Errorf("Encode of punctuation = %q, want empty", got)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if Encode("Catherine") != Encode("Catherine") {
			t.Fatal("Encode is not deterministic")
		}
	}
}

func TestEncode_AlwaysFourCharsForLetters(t *testing.T) {
	for _, name := range []string{"A", "Ng", "Wolfeschlegelsteinhausen", "Yu"} {
		if got := Encode(name); len(got) != 4 {
			t.Errorf("Encode(%q) = %q, want 4 characters", name, got)
		}
	}
}
