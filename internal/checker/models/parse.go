package models

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxDocumentInputLength caps user input before any pattern matching runs.
const MaxDocumentInputLength = 32

// ukrainianUpper is the uppercase Ukrainian alphabet subset used in
// document series.
const ukrainianUpper = `А-ЩЬЮЯҐЄІЇ`

var (
	cardIDPattern         = regexp.MustCompile(`^\d{9}$`)
	legacyPassportPattern = regexp.MustCompile(`^([` + ukrainianUpper + `]{2})(\d{6,7})$`)

	// Birth certificates issued before 2016 use a Roman numeral prefix
	// ("І-БК 803319", "I-ВЛ648009"); newer ones only two letters separated
	// from the number by a space ("ЯИ 376986").
	birthCertRomanPattern   = regexp.MustCompile(`^([IVXІ]{1,4})-([` + ukrainianUpper + `]{2})\s?(\d{6})$`)
	birthCertLettersPattern = regexp.MustCompile(`^([` + ukrainianUpper + `]{2})\s(\d{6})$`)
)

// ParseDocumentID classifies free-form text into a document reference.
//
// Supported formats:
//
//   - `000031886` - ID card.
//   - `НС3456123` - legacy paper passport.
//   - `І-БК 803319`, `ЯИ 376986` - birth certificate.
//
// It returns false when the text cannot be classified; that is not an error.
func ParseDocumentID(text string) (DocumentReference, bool) {
	if utf8.RuneCountInString(text) > MaxDocumentInputLength {
		return DocumentReference{}, false
	}

	text = strings.TrimSpace(text)
	if cardIDPattern.MatchString(text) {
		return NewIDCard(text), true
	}

	if m := legacyPassportPattern.FindStringSubmatch(text); m != nil {
		return NewLegacyPassport(m[1], m[2]), true
	}

	return parseBirthCertificate(text)
}

func parseBirthCertificate(text string) (DocumentReference, bool) {
	if m := birthCertRomanPattern.FindStringSubmatch(text); m != nil {
		return NewBirthCertificate(m[1]+"-"+m[2], m[3]), true
	}
	if m := birthCertLettersPattern.FindStringSubmatch(text); m != nil {
		return NewBirthCertificate(m[1], m[2]), true
	}
	return DocumentReference{}, false
}
