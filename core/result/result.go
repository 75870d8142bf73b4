package result

import "time"

// Kind classifies the outcome of a dispatched operation or of a single
// charge-detail-record in a settlement batch. The set is closed; collaborators
// must map their own status vocabulary onto it.
type Kind int

const (
	KindError Kind = iota
	KindSuccess
	KindEnqueued
	KindAsyncOperation
	KindNoOperation
	KindPartial
	KindOutOfService
	KindAdminDown
	KindLockTimeout
	KindUnknownLocation
	KindUnknownOperator
	KindUnknownReservationID
	KindInvalidSessionID
	KindUnknownSessionID
	KindAlreadyStopped
	KindAuthorized
	KindBlocked
	KindNotAuthorized
	KindFiltered
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "Success"
	case KindEnqueued:
		return "Enqueued"
	case KindAsyncOperation:
		return "AsyncOperation"
	case KindNoOperation:
		return "NoOperation"
	case KindPartial:
		return "Partial"
	case KindOutOfService:
		return "OutOfService"
	case KindAdminDown:
		return "AdminDown"
	case KindError:
		return "Error"
	case KindLockTimeout:
		return "LockTimeout"
	case KindUnknownLocation:
		return "UnknownLocation"
	case KindUnknownOperator:
		return "UnknownOperator"
	case KindUnknownReservationID:
		return "UnknownReservationId"
	case KindInvalidSessionID:
		return "InvalidSessionId"
	case KindUnknownSessionID:
		return "UnknownSessionId"
	case KindAlreadyStopped:
		return "AlreadyStopped"
	case KindAuthorized:
		return "Authorized"
	case KindBlocked:
		return "Blocked"
	case KindNotAuthorized:
		return "NotAuthorized"
	case KindFiltered:
		return "Filtered"
	default:
		return "unknown"
	}
}

// IsPositive reports whether the kind indicates the operation took effect at a
// collaborator, either immediately or asynchronously.
func (k Kind) IsPositive() bool {
	return k == KindSuccess || k == KindEnqueued || k == KindAsyncOperation || k == KindAuthorized
}

// Result is the immutable outcome of one dispatched operation. Collaborator
// holds the id of the collaborator that produced the outcome, if any.
type Result struct {
	Kind         Kind
	Description  string
	Collaborator string
	Runtime      time.Duration
}

// New builds a Result of the given kind.
func New(kind Kind, description, collaborator string, runtime time.Duration) Result {
	return Result{Kind: kind, Description: description, Collaborator: collaborator, Runtime: runtime}
}

// Success reports a completed operation at the given collaborator.
func Success(collaborator string, runtime time.Duration) Result {
	return Result{Kind: KindSuccess, Collaborator: collaborator, Runtime: runtime}
}

// Enqueued reports an operation accepted for later execution.
func Enqueued(collaborator string, runtime time.Duration) Result {
	return Result{Kind: KindEnqueued, Collaborator: collaborator, Runtime: runtime}
}

// AsyncOperation reports an operation accepted but not yet confirmed.
func AsyncOperation(collaborator string, runtime time.Duration) Result {
	return Result{Kind: KindAsyncOperation, Collaborator: collaborator, Runtime: runtime}
}

// NoOperation reports that nothing had to be done.
func NoOperation(description string) Result {
	return Result{Kind: KindNoOperation, Description: description}
}

// Error converts a delegation failure into an outcome. The error message is
// preserved; errors never escape a dispatcher operation as a Go error.
func Error(description, collaborator string, runtime time.Duration) Result {
	return Result{Kind: KindError, Description: description, Collaborator: collaborator, Runtime: runtime}
}

// OutOfService reports that the dispatcher itself is administratively disabled.
func OutOfService(description string) Result {
	return Result{Kind: KindOutOfService, Description: description}
}

// AdminDown reports that the target collaborator is administratively down.
func AdminDown(collaborator string, runtime time.Duration) Result {
	return Result{Kind: KindAdminDown, Collaborator: collaborator, Runtime: runtime}
}

// LockTimeout reports a bounded registry lock acquisition that did not complete.
func LockTimeout(description string) Result {
	return Result{Kind: KindLockTimeout, Description: description}
}

// UnknownLocation reports that no collaborator recognized the location.
func UnknownLocation(description string) Result {
	return Result{Kind: KindUnknownLocation, Description: description}
}

// UnknownOperator reports that no operator or roaming provider could be resolved.
func UnknownOperator(description string) Result {
	return Result{Kind: KindUnknownOperator, Description: description}
}

// UnknownReservationID reports a reservation id absent from the store.
func UnknownReservationID(id string) Result {
	return Result{Kind: KindUnknownReservationID, Description: "unknown reservation id " + id}
}

// InvalidSessionID reports a session id that is empty or already in use.
func InvalidSessionID(description string) Result {
	return Result{Kind: KindInvalidSessionID, Description: description}
}

// UnknownSessionID reports a session id no collaborator or store recognized.
func UnknownSessionID(id string) Result {
	return Result{Kind: KindUnknownSessionID, Description: "unknown session id " + id}
}

// AlreadyStopped reports a stop attempt on a session bearing a stop timestamp.
func AlreadyStopped(id string) Result {
	return Result{Kind: KindAlreadyStopped, Description: "session " + id + " already stopped"}
}

// Authorized reports an affirmative authorization decision.
func Authorized(collaborator string, runtime time.Duration) Result {
	return Result{Kind: KindAuthorized, Collaborator: collaborator, Runtime: runtime}
}

// Blocked reports a definitive negative authorization decision. Blocked is
// authoritative: it ends the authorization race just like Authorized.
func Blocked(collaborator string, runtime time.Duration) Result {
	return Result{Kind: KindBlocked, Collaborator: collaborator, Runtime: runtime}
}

// NotAuthorized reports the absence of any affirmative decision.
func NotAuthorized(description string, runtime time.Duration) Result {
	return Result{Kind: KindNotAuthorized, Description: description, Runtime: runtime}
}

// Filtered reports a charge detail record vetoed before resolution.
func Filtered(reasons string) Result {
	return Result{Kind: KindFiltered, Description: reasons}
}
