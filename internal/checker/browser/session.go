package browser

import (
	"context"
	"time"

	"docstatus/internal/checker/models"
)

// FailureKind classifies a failure reported by the page.
type FailureKind int

const (
	// FailureScript is a fault inside the in-page submission script.
	FailureScript FailureKind = iota + 1
	// FailureNetwork is a failed request from the page to the checker.
	FailureNetwork
)

func (k FailureKind) String() string {
	switch k {
	case FailureScript:
		return "script"
	case FailureNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ParseFailureKind maps the page's failure label. Unknown labels are
// treated as script faults.
func ParseFailureKind(s string) FailureKind {
	if s == FailureNetwork.String() {
		return FailureNetwork
	}
	return FailureScript
}

// Ticket identifies one submission. A caller may reuse a RequestID once its
// previous query has resolved, so results are matched on Query as well.
type Ticket struct {
	RequestID models.RequestID
	Query     string
}

// Bridge receives results from the page. The provider implements it and
// hands itself to every session it creates.
type Bridge interface {
	ReportSuccess(ticket Ticket, payload []byte)
	ReportFailure(ticket Ticket, kind FailureKind, message string)
}

// Session is a single browser tab parked on the checker page.
type Session interface {
	// Submit starts the in-page submission and returns once it is
	// dispatched. The outcome arrives later through the Bridge, carrying
	// the same ticket.
	Submit(ctx context.Context, ticket Ticket, form models.FormPayload) error

	// Usable reports whether the tab can accept another submission.
	Usable() bool

	Close() error
}

// Launcher owns the browser process and opens sessions on the target page.
type Launcher interface {
	NewSession(ctx context.Context, bridge Bridge) (Session, error)
	Close() error
}

// LaunchFunc starts a browser bound to targetURL.
type LaunchFunc func(ctx context.Context, targetURL string, opts LaunchOptions) (Launcher, error)

// LaunchOptions tune the browser process and session setup.
type LaunchOptions struct {
	Headless      bool
	Args          []string
	UserAgent     string
	ExecPath      string
	MarkerTimeout time.Duration
}
