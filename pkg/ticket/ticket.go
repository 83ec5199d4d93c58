package ticket

import "time"

// Type is the name of a ticket category. Case-sensitive, unique within
// the server (e.g. "VIP", "Regular").
type Type string

// Registrant identifies one person by first and last name. The struct
// is comparable and used directly as a map key, so two registrations
// with the same names are the same person.
type Registrant struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r Registrant) FullName() string {
	return r.FirstName + " " + r.LastName
}

// QueueEntry is a pending registration waiting for allocation.
type QueueEntry struct {
	Registrant Registrant
	TicketType Type

	// Position in the type's queue at enqueue time, 1-based.
	Position int

	// The time when the entry was admitted into the queue.
	EnqueuedAt time.Time
}

// ConfirmedTicket is the result of a successful allocation. Cancelling
// it returns exactly one unit to the type's inventory.
type ConfirmedTicket struct {
	ID          string
	Registrant  Registrant
	TicketType  Type
	ConfirmedAt time.Time
}

type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusSoldOut   Status = "Sold Out"
	StatusCancelled Status = "Cancelled"
)

// AllocationResult reports the outcome of processing one queue entry.
// Remaining is a snapshot of the type's inventory right after the
// entry was resolved.
type AllocationResult struct {
	Registrant Registrant
	TicketType Type
	Status     Status
	Remaining  int
}

// CancellationResult reports a successful cancel. WasConfirmed is true
// when a confirmed ticket was reclaimed (and inventory replenished),
// false when only a pending queue entry was removed.
type CancellationResult struct {
	Registrant   Registrant
	TicketType   Type
	WasConfirmed bool
	Remaining    int
}
