package models

import "errors"

// Errors shared across components. Wrap with fmt.Errorf("%w: ...") to add
// context; callers match with errors.Is.
var (
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrForbidden              = errors.New("forbidden")
	ErrNotAMember             = errors.New("not a member of this class")
	ErrMembershipPending      = errors.New("membership pending approval")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation error")
	ErrConflict               = errors.New("conflict")
	ErrUnsupportedFormat      = errors.New("unsupported format")
	ErrEmptyDocument          = errors.New("empty document")
	ErrInvalidInviteCode      = errors.New("invalid invite code")
	ErrAlreadyMember          = errors.New("already a member of this class")
)
