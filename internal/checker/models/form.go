package models

import "fmt"

// Remote form values for the status checker.
const (
	serviceTypePassport = "2"

	baseDocLegacyPassport = "1"
	baseDocIDCard         = "2"
)

// FormPayload is the set of form fields posted to the remote checker. The
// page token is appended in-page and is not part of the payload.
type FormPayload map[string]string

// BuildForm maps a reference onto the remote form fields. Only ID cards and
// legacy passports can be submitted; other kinds are an automation failure
// because the form offers no field for them.
func BuildForm(ref DocumentReference) (FormPayload, error) {
	form := FormPayload{
		"doc_service":   serviceTypePassport,
		"doc_1_select":  "",
		"doc_1_series":  "",
		"doc_1_number6": "",
		"doc_1_number9": "",
		"doc_age":       "0",
		"doc_2_select":  "",
		"doc_2_series":  "",
		"doc_2_number6": "",
		"doc_2_number9": "",
		"doc_other":     "",
	}

	switch ref.Kind {
	case KindID:
		form["doc_2_select"] = baseDocIDCard
		form["doc_2_number9"] = ref.Number
	case KindLegacyPassport:
		form["doc_2_select"] = baseDocLegacyPassport
		form["doc_2_series"] = ref.Series
		form["doc_2_number6"] = ref.Number
	default:
		return nil, NewQueryError(ErrorAutomationFailure,
			fmt.Sprintf("document kind %s is not supported by the status form", ref.Kind))
	}
	return form, nil
}
