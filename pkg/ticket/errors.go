package ticket

import "errors"

var (
	ErrNameRequired          = errors.New("first name and last name are required")
	ErrUnknownTicketType     = errors.New("unknown ticket type")
	ErrDuplicateRegistration = errors.New("registrant already has a live registration for this ticket type")
	ErrUnknownRegistrant     = errors.New("registrant not found in queue")
	ErrNotFound              = errors.New("no pending entry or confirmed ticket for registrant")

	// ErrEmptyQueue is a benign no-op signal, not a fault: processing
	// was requested on a queue with nothing in it.
	ErrEmptyQueue = errors.New("queue is empty")
)
