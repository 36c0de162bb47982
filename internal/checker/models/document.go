package models

import (
	"errors"
	"fmt"
)

// DocumentKind identifies which identity document a reference points at.
type DocumentKind string

const (
	KindID                    DocumentKind = "id"
	KindLegacyPassport        DocumentKind = "legacy_passport"
	KindBirthCertificate      DocumentKind = "birth_certificate"
	KindInternationalPassport DocumentKind = "international_passport"
)

// IsValid checks if the kind is one of the supported enum values.
func (k DocumentKind) IsValid() bool {
	switch k {
	case KindID, KindLegacyPassport, KindBirthCertificate, KindInternationalPassport:
		return true
	}
	return false
}

// HasSeries reports whether references of this kind carry a series.
func (k DocumentKind) HasSeries() bool {
	return k == KindLegacyPassport || k == KindBirthCertificate || k == KindInternationalPassport
}

// RequestID is an opaque correlation handle supplied by the caller, e.g. a
// chat identifier or an HTTP request id.
type RequestID string

// DocumentReference identifies a single document. Kind determines which
// fields are populated: Number is always set, Series only for kinds that
// carry one.
type DocumentReference struct {
	Kind   DocumentKind `json:"kind"`
	Series string       `json:"series,omitempty"`
	Number string       `json:"number"`
}

// NewIDCard builds a reference to a plastic ID card.
func NewIDCard(number string) DocumentReference {
	return DocumentReference{Kind: KindID, Number: number}
}

// NewLegacyPassport builds a reference to a paper (booklet) passport.
func NewLegacyPassport(series, number string) DocumentReference {
	return DocumentReference{Kind: KindLegacyPassport, Series: series, Number: number}
}

// NewBirthCertificate builds a reference to a birth certificate.
func NewBirthCertificate(series, number string) DocumentReference {
	return DocumentReference{Kind: KindBirthCertificate, Series: series, Number: number}
}

// Validate enforces the kind/field combination invariant.
func (r DocumentReference) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("invalid document kind %q", r.Kind)
	}
	if r.Number == "" {
		return errors.New("document number is required")
	}
	if r.Kind.HasSeries() && r.Series == "" {
		return fmt.Errorf("document series is required for %s", r.Kind)
	}
	if !r.Kind.HasSeries() && r.Series != "" {
		return fmt.Errorf("document series is not allowed for %s", r.Kind)
	}
	return nil
}

// CanonicalKey returns the cache key for the reference. The kind is always
// encoded so references that differ only in kind never share a key.
// Series and number never contain ':' (the parser only admits letters,
// digits, '-' and whitespace), so the segments cannot bleed into each other.
func (r DocumentReference) CanonicalKey() string {
	return string(r.Kind) + ":" + r.Series + ":" + r.Number
}

// String renders the reference the way it is printed on the document.
func (r DocumentReference) String() string {
	switch r.Kind {
	case KindLegacyPassport, KindInternationalPassport:
		return r.Series + r.Number
	case KindBirthCertificate:
		return r.Series + " " + r.Number
	default:
		return r.Number
	}
}
