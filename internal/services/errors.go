package services

import (
	"errors"
)

// Kind classifies a pairing failure so the boundary can map it to a status.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidOperation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a caller-correctable failure of a single operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches the kind sentinels (no message) against any error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrInvalidOperation = &Error{Kind: KindInvalidOperation}
	ErrConflict         = &Error{Kind: KindConflict}
)

var (
	ErrUserNotFound            = newError(KindNotFound, "user not found")
	ErrInviteCodeNotFound      = newError(KindNotFound, "invalid invite code")
	ErrRequestNotFound         = newError(KindNotFound, "couple request not found")
	ErrCannotPairSelf          = newError(KindInvalidOperation, "cannot send a couple request to yourself")
	ErrSenderAlreadyCoupled    = newError(KindInvalidOperation, "you are already in a couple")
	ErrRecipientAlreadyCoupled = newError(KindInvalidOperation, "target user is already in a couple")
	ErrRequestAlreadyPending   = newError(KindInvalidOperation, "a pending request to this user already exists")
	ErrRequestNotPending       = newError(KindInvalidOperation, "couple request is no longer pending")
	ErrNotInCouple             = newError(KindInvalidOperation, "not in a couple")
	ErrInvalidAnniversary      = newError(KindInvalidOperation, "anniversary date cannot be in the future")
	ErrNotRequestSender        = newError(KindForbidden, "only the sender can cancel this request")
	ErrNotRequestRecipient     = newError(KindForbidden, "only the recipient can respond to this request")
	ErrPairingConflict         = newError(KindConflict, "pairing state changed concurrently, please retry")
	ErrUsernameTaken           = newError(KindConflict, "username already taken")
	ErrInvalidProfile          = newError(KindInvalidOperation, "username and display name must be 1-100 characters")
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
