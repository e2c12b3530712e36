package luckydraw

import "errors"

// Kind classifies a rejected operation so transports can map it to a status.
type Kind int

const (
	// KindValidation marks a malformed request, rejected before state is read.
	KindValidation Kind = iota + 1
	// KindConflict marks a failed precondition against the current state.
	KindConflict
	// KindForbidden marks a failed secret check (reset PIN).
	KindForbidden
)

// Error is a rejected draw or reset. State is never mutated when one is returned.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

var (
	ErrInvalidPayload = &Error{KindValidation, "invalid request payload"}
	ErrUnknownMember  = &Error{KindValidation, "member does not exist"}
	ErrCapReached     = &Error{KindConflict, "the draw limit for this session has been reached; reset to start a new session"}
	ErrBoxUnavailable = &Error{KindConflict, "box is invalid or already opened"}
	ErrAlreadyDrawn   = &Error{KindConflict, "member has already drawn"}
	ErrNoRewardLeft   = &Error{KindConflict, "no rewards left for this session"}
	ErrWrongPIN       = &Error{KindForbidden, "incorrect PIN; session was not reset"}
	ErrNotConfirmed   = &Error{KindValidation, `type "RESET" to confirm`}
)

// KindOf reports the kind of a domain error anywhere in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
