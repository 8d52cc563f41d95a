package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrAuth indicates a missing, expired, or malformed credential.
var ErrAuth = errors.New("unauthorized")

// ErrForbidden indicates a valid credential without access to the resource.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness or optimistic-concurrency conflict.
var ErrConflict = errors.New("conflict")

// ErrAlreadyAssigned is returned to a claim that lost the race for a delivery.
var ErrAlreadyAssigned = errors.New("delivery already assigned")

// ErrInvalidTransition is returned when the state machine refuses a transition.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrProofRequired is returned when a delivered transition lacks a required proof.
var ErrProofRequired = errors.New("delivery proof required")

// ErrPaymentDeclined indicates the payment gateway refused the operation.
var ErrPaymentDeclined = errors.New("payment declined")

// ErrPaymentPending indicates the gateway outcome is unknown after a timeout;
// the payment must not be treated as failed.
var ErrPaymentPending = errors.New("payment outcome pending")

// ErrDependency indicates an unavailable downstream (gateway, broker, store).
var ErrDependency = errors.New("dependency unavailable")
