package service

import "errors"

// Error kinds. Every domain error below unwraps to exactly one of these, and
// the HTTP layer maps kinds to status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrUserNotFound     = newError(ErrNotFound, "user not found")
	ErrClubNotFound     = newError(ErrNotFound, "club not found")
	ErrEventNotFound    = newError(ErrNotFound, "event not found")
	ErrRequestNotFound  = newError(ErrNotFound, "join request not found")
	ErrCategoryNotFound = newError(ErrNotFound, "category not found")
	ErrCityNotFound     = newError(ErrNotFound, "city not found")
	ErrReviewNotFound   = newError(ErrNotFound, "review not found")

	ErrClubNameTaken      = newError(ErrConflict, "a club with this name already exists")
	ErrAlreadyClubMember  = newError(ErrConflict, "user is already a member of this club")
	ErrAlreadyRequested   = newError(ErrConflict, "user already has a pending request for this club")
	ErrClubFull           = newError(ErrConflict, "club is full")
	ErrRequestResolved    = newError(ErrConflict, "join request already resolved")
	ErrNotClubMember      = newError(ErrConflict, "user is not a member of this club")
	ErrHostCannotLeave    = newError(ErrConflict, "host cannot leave the club; transfer host first")
	ErrCapacityBelowCount = newError(ErrConflict, "max people is below the current member count")
	ErrHostNotMember      = newError(ErrConflict, "new host must be a current member of the club")

	ErrInvalidTimeRange     = newError(ErrConflict, "start time must be before end time")
	ErrStartInPast          = newError(ErrConflict, "start time is in the past")
	ErrEventStarted         = newError(ErrConflict, "event has already started")
	ErrEventArchived        = newError(ErrConflict, "event is archived")
	ErrEventFull            = newError(ErrConflict, "event is full")
	ErrAlreadyJoined        = newError(ErrConflict, "user already joined this event")
	ErrNotJoined            = newError(ErrConflict, "user has not joined this event")
	ErrEventHostCannotLeave = newError(ErrConflict, "host cannot leave their own event")
	ErrRosterAboveCapacity  = newError(ErrConflict, "max people is below the current participant count")

	ErrEmailTaken       = newError(ErrConflict, "email is already registered")
	ErrUserHostsClubs   = newError(ErrConflict, "user still hosts clubs; transfer or delete them first")
	ErrReviewExists     = newError(ErrConflict, "user already reviewed this event")
	ErrReviewNotAllowed = newError(ErrConflict, "only participants of an ended event may review it")
	ErrHostCannotReview = newError(ErrConflict, "host cannot review their own event")

	ErrNotClubHost     = newError(ErrForbidden, "only the club host may do this")
	ErrNotEventHost    = newError(ErrForbidden, "only the event host may do this")
	ErrClubMembersOnly = newError(ErrForbidden, "only club members may do this")

	ErrNullField     = newError(ErrBadRequest, "field may be omitted but not null")
	ErrInvalidAction = newError(ErrBadRequest, "action must be APPROVE or REJECT")
	ErrInvalidInput  = newError(ErrBadRequest, "invalid input")

	ErrInvalidCredentials  = newError(ErrUnauthorized, "invalid credentials")
	ErrRefreshTokenInvalid = newError(ErrUnauthorized, "refresh token invalid or revoked")
)

// invalid builds a BadRequest error with a field-specific message.
func invalid(msg string) error {
	return newError(ErrBadRequest, msg)
}
