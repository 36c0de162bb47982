package handler

import (
	"fmt"
	"time"

	"docstatus/internal/checker/models"
)

// UsageExamples lists accepted document formats.
const UsageExamples = "Examples: ID card 123456789; passport booklet НС345612; " +
	"birth certificate І-БК 803319 or ЯИ 376986. Series must be written in Cyrillic."

const disclaimer = "The checker's answer may lag behind the real status of your document."

// StatusLabel names a status code.
func StatusLabel(code models.StatusCode) string {
	switch code {
	case models.StatusShipped:
		return "shipped to the personalization center"
	case models.StatusInTransit:
		return "in transit"
	case models.StatusReady:
		return "ready for pickup"
	default:
		return fmt.Sprintf("status code %d", code)
	}
}

// RelativeDays describes the calendar-day distance from then to now.
func RelativeDays(now, then time.Time) string {
	ny, nm, nd := now.Date()
	ty, tm, td := then.Date()
	days := int(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC).Sub(time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)).Hours() / 24)

	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days > 1:
		return fmt.Sprintf("%d days ago", days)
	case days == -1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", -days)
	}
}

// StatusDate renders the update date, falling back to the raw remote text.
func StatusDate(status models.DocumentStatus) string {
	if !status.UpdatedAt.IsZero() {
		return status.UpdatedAt.Format("2 January 2006")
	}
	if status.RawStatusDate != "" {
		return status.RawStatusDate
	}
	return "unknown"
}

// Summary is the human readable result shown to end users.
func Summary(now time.Time, status models.DocumentStatus) string {
	when := StatusDate(status)
	if !status.UpdatedAt.IsZero() {
		when = fmt.Sprintf("%s (%s)", when, RelativeDays(now, status.UpdatedAt))
	}
	msg := fmt.Sprintf("Document %s: %s.", status.Request, StatusLabel(status.Code))
	if status.Message != "" {
		msg += fmt.Sprintf(" Checker says: %q.", status.Message)
	}
	return fmt.Sprintf("%s Status updated %s. %s", msg, when, disclaimer)
}

// DescribeError explains a failed query. Failures on our side point the
// user at the manual checker page.
func DescribeError(qerr *models.QueryError, manualURL string) string {
	switch qerr.Kind {
	case models.ErrorRemoteRejected:
		return "Nothing was found, please check the document number. " + qerr.Message
	case models.ErrorPoolExhausted:
		return "Too many requests. Please wait a minute while the previous request is processed."
	case models.ErrorTimeout:
		return "The checker is not responding. Please try again later or check manually at " + manualURL
	case models.ErrorTransportFailure:
		return fmt.Sprintf("The checker returned an error (%s). You can check the status manually at %s", qerr.Message, manualURL)
	default:
		return fmt.Sprintf("Internal error (%s). You can check the status manually at %s", qerr.Message, manualURL)
	}
}
