package engine

import (
	"luma-live/stagepass/ticket-queue-server/pkg/ticket"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Store is the pending queue for one ticket type. It's implemented as
// a linkedhashmap since we want to find an entry frequently through
// its registrant, but at the same time we want to record the insert
// order so we can correctly dequeue. Key value: registrant -> entry.
// Not safe for concurrent use, the owning typeState's lock serializes
// access.
type Store struct {
	entries *linkedhashmap.Map
}

func newStore() *Store {
	return &Store{
		entries: linkedhashmap.New(),
	}
}

func (s *Store) Push(entry *ticket.QueueEntry) {
	s.entries.Put(entry.Registrant, entry)
}

// PopFront removes and returns the oldest entry. Dequeue is
// destructive, an entry can be popped exactly once.
func (s *Store) PopFront() (*ticket.QueueEntry, bool) {
	it := s.entries.Iterator()
	if !it.First() {
		return nil, false
	}

	entry := it.Value().(*ticket.QueueEntry)
	s.entries.Remove(it.Key())
	return entry, true
}

func (s *Store) Get(registrant ticket.Registrant) (*ticket.QueueEntry, bool) {
	value, ok := s.entries.Get(registrant)
	if !ok {
		return nil, false
	}
	return value.(*ticket.QueueEntry), true
}

func (s *Store) Remove(registrant ticket.Registrant) bool {
	if _, ok := s.entries.Get(registrant); !ok {
		return false
	}
	s.entries.Remove(registrant)
	return true
}

func (s *Store) Len() int {
	return s.entries.Size()
}

// Registrants returns everyone still waiting, in queue order.
func (s *Store) Registrants() []ticket.Registrant {
	registrants := make([]ticket.Registrant, 0, s.entries.Size())
	it := s.entries.Iterator()
	for it.Begin(); it.Next(); {
		registrants = append(registrants, it.Key().(ticket.Registrant))
	}
	return registrants
}
