package engine

// Ledger tracks remaining inventory for one ticket type. It is not
// safe for concurrent use on its own, the owning typeState's lock
// serializes access.
type Ledger struct {
	initial   int
	remaining int
}

func newLedger(capacity int) *Ledger {
	return &Ledger{
		initial:   capacity,
		remaining: capacity,
	}
}

func (l *Ledger) Remaining() int {
	return l.remaining
}

func (l *Ledger) Initial() int {
	return l.initial
}

func (l *Ledger) Sold() int {
	return l.initial - l.remaining
}

// TryTake is the check-and-decrement at the heart of allocation. It
// decrements only when inventory is left, so remaining never goes
// negative.
func (l *Ledger) TryTake() bool {
	if l.remaining <= 0 {
		return false
	}
	l.remaining--
	return true
}

// Restore returns one unit after a confirmed ticket is cancelled. It
// never grows past the initial capacity.
func (l *Ledger) Restore() int {
	if l.remaining < l.initial {
		l.remaining++
	}
	return l.remaining
}
