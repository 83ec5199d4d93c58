package msg

type EventCode uint

const (
	AvailabilityCode EventCode = 2000
	RegisteredCode   EventCode = 2001
	AllocationCode   EventCode = 2002
	CancelledCode    EventCode = 2003
	QueueStatsCode   EventCode = 2004
)

// AvailabilityServerEvent is pushed on connect and whenever inventory
// moves.
type AvailabilityServerEvent struct {
	Availability map[string]int `json:"availability"`
}

type RegisteredServerEvent struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TicketType string `json:"ticket_type"`
	Position   int    `json:"position"`
}

type AllocationServerEvent struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	TicketType string `json:"ticket_type"`
	Status     string `json:"status"`
	Remaining  int    `json:"remaining"`
}

type CancelledServerEvent struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	TicketType   string `json:"ticket_type"`
	WasConfirmed bool   `json:"was_confirmed"`
	Remaining    int    `json:"remaining"`
}

type QueueStatsServerEvent struct {
	TicketType   string `json:"ticket_type"`
	QueueLength  int    `json:"queue_length"`
	HeadPosition int32  `json:"head_position"`
	TailPosition int32  `json:"tail_position"`
	AvgWaitMsec  int64  `json:"avg_wait_msec"`
}
