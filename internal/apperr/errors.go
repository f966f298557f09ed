// Package apperr defines the error taxonomy surfaced at the API boundary.
// Services wrap these sentinels with context; handlers map them to HTTP
// statuses with errors.Is.
package apperr

import "errors"

// Kind names the taxonomy entry for an error, for machine-readable
// responses. Unrecognized errors report as Internal.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrNotAMember):
		return "NotAMember"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrGroupFull):
		return "GroupFull"
	case errors.Is(err, ErrInvalidInviteCode):
		return "InvalidInviteCode"
	case errors.Is(err, ErrInvalidState):
		return "InvalidState"
	case errors.Is(err, ErrInvalidTarget):
		return "InvalidTarget"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrBadRequest):
		return "BadRequest"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	default:
		return "Internal"
	}
}

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrNotAMember        = errors.New("not a member")
	ErrGroupFull         = errors.New("group is full")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrInvalidState      = errors.New("invalid state")
	ErrInvalidTarget     = errors.New("invalid target")
	ErrBadRequest        = errors.New("bad request")
	ErrInternal          = errors.New("internal error")
	ErrRateLimited       = errors.New("rate limited")
)
