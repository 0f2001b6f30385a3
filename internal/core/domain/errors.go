package domain

import "errors"

// Kind classifies a failure so transports can map it without knowing every
// individual reason.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindCredential    Kind = "credential"
)

// Error is a typed, machine-distinguishable failure returned by the core.
// Two errors match under errors.Is when kind and reason agree, so a sentinel
// reworded with WithMsg still matches the original.
type Error struct {
	Kind   Kind
	Reason string
	Msg    string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Kind == t.Kind && e.Reason == t.Reason
}

// WithMsg returns a copy of e carrying msg.
func (e *Error) WithMsg(msg string) *Error {
	cp := *e
	cp.Msg = msg
	return &cp
}

func newError(kind Kind, reason, msg string) *Error {
	return &Error{Kind: kind, Reason: reason, Msg: msg}
}

// Validation failures.
var (
	ErrInvalidUsername    = newError(KindValidation, "invalid_username", "username is required")
	ErrWeakCredential     = newError(KindValidation, "weak_credential", "password must be at least 8 characters")
	ErrInvalidRole        = newError(KindValidation, "invalid_role", "role must be one of admin, puller, consumer")
	ErrInvalidDestination = newError(KindValidation, "invalid_destination", "destination is required")
	ErrInvalidRating      = newError(KindValidation, "invalid_rating", "rating must be between 1 and 5")
	ErrInvalidReview      = newError(KindValidation, "invalid_review", "review is too long")
	ErrInvalidRequest     = newError(KindValidation, "invalid_request", "request failed validation")
)

// Lookup failures.
var (
	ErrAccountNotFound        = newError(KindNotFound, "account_not_found", "account not found")
	ErrPendingAccountNotFound = newError(KindNotFound, "pending_account_not_found", "no pending puller account with that id")
	ErrRideNotFound           = newError(KindNotFound, "ride_not_found", "ride request not found")
)

// Authorization failures.
var (
	ErrForbidden           = newError(KindAuthorization, "forbidden", "role not permitted for this operation")
	ErrNotApproved         = newError(KindAuthorization, "not_approved", "puller account is not approved")
	ErrNotAssignedPuller   = newError(KindAuthorization, "not_assigned_puller", "ride is assigned to another puller")
	ErrNotAssignedConsumer = newError(KindAuthorization, "not_assigned_consumer", "ride belongs to another consumer")
)

// Conflicts: the stored state no longer matches the caller's precondition.
var (
	ErrDuplicateUsername = newError(KindConflict, "duplicate_username", "username already taken")
	ErrAlreadyClaimed    = newError(KindConflict, "already_claimed", "ride already claimed by another puller")
	ErrAlreadyRated      = newError(KindConflict, "already_rated", "ride already rated")
	ErrInvalidTransition = newError(KindConflict, "invalid_transition", "ride is not in a state that allows this operation")
)

// Credential failures.
var ErrInvalidCredentials = newError(KindCredential, "invalid_credentials", "invalid username or password")

// KindOf returns the kind of the first *Error in err's chain, or "" for
// errors that did not originate in the core.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// ReasonOf returns the machine reason of the first *Error in err's chain.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
