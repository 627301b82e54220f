package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id is missing, expired,
	// or already consumed by a previous submission.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionOwnership is returned when a user submits answers for a
	// session that belongs to someone else.
	ErrSessionOwnership = errors.New("session belongs to a different user")
	// ErrAnswerCount is returned when the number of submitted answers does
	// not match the number of questions in the session.
	ErrAnswerCount = errors.New("answer count does not match question count")
	// ErrInvalidArgument covers bad caller input: non-positive question
	// counts, negative multipliers, malformed claim amounts.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPersistence is returned when the completed-session record could not
	// be written. The session is kept so the client can retry.
	ErrPersistence = errors.New("failed to persist session result")
	// ErrUnauthorized is returned when an operation requires an actor
	// context that was not supplied or lacks the required role.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserNotFound indicates the requested user has no records at all.
	ErrUserNotFound = errors.New("user not found")
	// ErrWordListNotFound indicates the spelling word list could not be loaded.
	ErrWordListNotFound = errors.New("word list not found")
)
