package engine

import (
	"math"
	"time"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
)

// Stats tracks queue movement for one ticket type. HeadPosition and
// TailPosition are monotonic admission counters: a waiting entry with
// position p has p - HeadPosition entries in front of it.
type Stats struct {
	HeadPosition int32
	TailPosition int32

	// Avg wait time for an entry since it was admitted into the
	// queue. Calculated by a fixed size sliding window.
	AvgWaitDuration time.Duration

	// A fixed size sliding window for calculating average wait time.
	waitDurationQueue *linkedlistqueue.Queue
	windowSize        int
}

func newStats(initAvgWait time.Duration, windowSize int) *Stats {
	return &Stats{
		HeadPosition: 0,
		TailPosition: 0,

		AvgWaitDuration:   initAvgWait,
		waitDurationQueue: linkedlistqueue.New(),
		windowSize:        windowSize,
	}
}

func (s *Stats) incrTailPosition() {
	if s.TailPosition < math.MaxInt32 {
		s.TailPosition += 1
	} else {
		s.TailPosition = 1
	}
}

// resetHeadPosition derives the head counter from the tail counter and
// the current queue length, which also absorbs cancelled entries that
// left the queue without being processed.
func (s *Stats) resetHeadPosition(queueLen int) {
	s.HeadPosition = s.TailPosition - int32(queueLen)
}

func (s *Stats) updateAvgWait(waitDurations []time.Duration) {
	if waitDurations == nil {
		return
	}

	for _, value := range waitDurations {
		if s.waitDurationQueue.Size() >= s.windowSize {
			s.waitDurationQueue.Dequeue()
		}
		s.waitDurationQueue.Enqueue(value)
	}

	if s.waitDurationQueue.Size() <= 0 {
		return
	}

	it := s.waitDurationQueue.Iterator()
	var totalWaitDuration time.Duration
	for it.Next() {
		totalWaitDuration += it.Value().(time.Duration)
	}

	s.AvgWaitDuration = totalWaitDuration / time.Duration(s.waitDurationQueue.Size())
}

// StatsSnapshot is a point-in-time copy handed to read views and the
// websocket hub.
type StatsSnapshot struct {
	QueueLength  int           `json:"queue_length"`
	HeadPosition int32         `json:"head_position"`
	TailPosition int32         `json:"tail_position"`
	AvgWait      time.Duration `json:"-"`
	AvgWaitMsec  int64         `json:"avg_wait_msec"`
}

func (s *Stats) snapshot(queueLen int) StatsSnapshot {
	return StatsSnapshot{
		QueueLength:  queueLen,
		HeadPosition: s.HeadPosition,
		TailPosition: s.TailPosition,
		AvgWait:      s.AvgWaitDuration,
		AvgWaitMsec:  s.AvgWaitDuration.Milliseconds(),
	}
}
