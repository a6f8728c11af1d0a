// Package phonetics provides phonetic name encoding used for duplicate
// patient detection. Codes are computed on the write path and stored as
// indexed columns alongside the name fields they are derived from.
package phonetics

import "strings"

// soundexClass maps a letter to its Soundex digit class, or 0 for letters
// that carry no digit (vowels, H, W, Y).
func soundexClass(r byte) byte {
	switch r {
	case 'B', 'F', 'P', 'V':
		return '1'
	case 'C', 'G', 'J', 'K', 'Q', 'S', 'X', 'Z':
		return '2'
	case 'D', 'T':
		return '3'
	case 'L':
		return '4'
	case 'M', 'N':
		return '5'
	case 'R':
		return '6'
	}
	return 0
}

// Encode returns the 4-character American Soundex code for name, or the
// empty string when name contains no letters. Callers must treat an empty
// code as "no phonetic match possible" rather than matching empty-to-empty.
//
// The adjacency rule follows the NARA standard: identical-class consonants
// separated only by H or W collapse to a single digit, while an intervening
// vowel (or Y) lets the second consonant be coded again.
func Encode(name string) string {
	cleaned := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c >= 'A' && c <= 'Z' {
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte(cleaned[0])
	prev := soundexClass(cleaned[0])

	for _, c := range cleaned[1:] {
		if b.Len() == 4 {
			break
		}
		d := soundexClass(c)
		switch {
		case d != 0:
			if d != prev {
				b.WriteByte(d)
			}
			prev = d
		case c == 'H' || c == 'W':
			// H and W are transparent: they neither emit a digit nor
			// unblock a repeated consonant class.
		default:
			prev = 0
		}
	}

	code := b.String()
	for len(code) < 4 {
		code += "0"
	}
	return code
}
