package chat

import "errors"

var (
	ErrMissingTarget = errors.New("message target is required")
	ErrInvalidType   = errors.New("unsupported message type")
	ErrEmptyContent  = errors.New("text message content is empty")
	ErrNotMember     = errors.New("not a member of this group")
)

// IsValidation reports whether err is a client mistake rather than a store failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingTarget) ||
		errors.Is(err, ErrInvalidType) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrNotMember)
}
