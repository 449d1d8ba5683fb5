package admission

import "github.com/mcoot/worldgate/internal/model"

// OutcomeKind is what one tick's admission pass decided for a session
type OutcomeKind int

const (
	// OutcomePending means authentication has not resolved yet
	OutcomePending OutcomeKind = iota
	// OutcomeAdmitted means the session joins the roster this tick
	OutcomeAdmitted
	// OutcomeRejected means the attempt ended; the client was told why
	OutcomeRejected
	// OutcomeRetry means the account is still bound to another session; the
	// session is retried next tick without re-authenticating
	OutcomeRetry
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePending:
		return "pending"
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Outcome is the result of admitting one session
type Outcome struct {
	Kind OutcomeKind
	// Identity is set for OutcomeAdmitted and OutcomeRetry
	Identity model.Identity
	// Reason is set for OutcomeRejected
	Reason string
	// Replaced is the session disconnected in favour of this one, if any
	Replaced *model.Uid
}

// TickReport summarizes one admission pass
type TickReport struct {
	Intake      int
	Pending     int
	Admitted    []model.Uid
	Rejected    []model.Uid
	Retried     []model.Uid
	Replaced    []model.Uid
	BanUpgrades int
}
