package engine

import (
	"sync"
	"testing"
	"time"

	"luma-live/stagepass/ticket-queue-server/pkg/clock"
	"luma-live/stagepass/ticket-queue-server/pkg/config"
	"luma-live/stagepass/ticket-queue-server/pkg/infra"
	"luma-live/stagepass/ticket-queue-server/pkg/ticket"
	"luma-live/stagepass/ticket-queue-server/pkg/txlog"

	"go.uber.org/zap/zapcore"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(policy config.DuplicatePolicy, capacities ...config.Capacity) *Engine {
	infra.LoggerLevel.SetLevel(zapcore.ErrorLevel)
	return NewEngine(capacities, policy, clock.NewFixed(testNow), txlog.Discard{}, infra.ProvideLoggerFactory())
}

func mustRegister(t *testing.T, e *Engine, first, last string, ticketType ticket.Type) *ticket.QueueEntry {
	t.Helper()
	entry, err := e.Register(first, last, ticketType)
	if err != nil {
		t.Fatalf("register %v %v: %v", first, last, err)
	}
	return entry
}

func TestAvailabilityAtStartup(t *testing.T) {
	e := newTestEngine(config.DuplicateReject,
		config.Capacity{Type: "VIP", Capacity: 10},
		config.Capacity{Type: "Regular", Capacity: 50},
	)

	availability := e.Availability()
	if availability["VIP"] != 10 {
		t.Fatalf("expected VIP 10, got %v", availability["VIP"])
	}
	if availability["Regular"] != 50 {
		t.Fatalf("expected Regular 50, got %v", availability["Regular"])
	}
	if len(availability) != 2 {
		t.Fatalf("expected 2 types, got %v", len(availability))
	}
}

func TestRegister(t *testing.T) {
	t.Run("assigns 1-based positions in queue order", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 3})

		a := mustRegister(t, e, "Ada", "Lovelace", "VIP")
		b := mustRegister(t, e, "Grace", "Hopper", "VIP")

		if a.Position != 1 || b.Position != 2 {
			t.Fatalf("expected positions 1 and 2, got %v and %v", a.Position, b.Position)
		}

		snapshot := e.QueueSnapshot()["VIP"]
		if len(snapshot) != 2 {
			t.Fatalf("expected 2 pending, got %v", len(snapshot))
		}
		if snapshot[0].FirstName != "Ada" || snapshot[1].FirstName != "Grace" {
			t.Fatalf("unexpected order %+v", snapshot)
		}
	})

	t.Run("trims names", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		entry := mustRegister(t, e, "  Ada ", " Lovelace  ", "VIP")
		if entry.Registrant.FirstName != "Ada" || entry.Registrant.LastName != "Lovelace" {
			t.Fatalf("expected trimmed names, got %+v", entry.Registrant)
		}
	})

	t.Run("rejects empty names", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		if _, err := e.Register("  ", "Lovelace", "VIP"); err != ticket.ErrNameRequired {
			t.Fatalf("expected ErrNameRequired, got %v", err)
		}
		if _, err := e.Register("Ada", "", "VIP"); err != ticket.ErrNameRequired {
			t.Fatalf("expected ErrNameRequired, got %v", err)
		}
	})

	t.Run("rejects unknown ticket type", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		if _, err := e.Register("Ada", "Lovelace", "Backstage"); err != ticket.ErrUnknownTicketType {
			t.Fatalf("expected ErrUnknownTicketType, got %v", err)
		}
	})

	t.Run("does not touch inventory", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 3})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		if remaining := e.Availability()["VIP"]; remaining != 3 {
			t.Fatalf("expected remaining 3, got %v", remaining)
		}
	})
}

func TestDuplicatePolicy(t *testing.T) {
	t.Run("reject refuses a second live entry", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 3})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		if _, err := e.Register("Ada", "Lovelace", "VIP"); err != ticket.ErrDuplicateRegistration {
			t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
		}
	})

	t.Run("reject refuses while holding a confirmed ticket", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 3})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		if _, err := e.ProcessNext("VIP"); err != nil {
			t.Fatalf("process next: %v", err)
		}

		if _, err := e.Register("Ada", "Lovelace", "VIP"); err != ticket.ErrDuplicateRegistration {
			t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
		}
	})

	t.Run("same registrant may queue for another type", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject,
			config.Capacity{Type: "VIP", Capacity: 1},
			config.Capacity{Type: "Regular", Capacity: 1},
		)

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		mustRegister(t, e, "Ada", "Lovelace", "Regular")
	})

	t.Run("replace re-enqueues at the tail", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReplace, config.Capacity{Type: "VIP", Capacity: 3})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		mustRegister(t, e, "Grace", "Hopper", "VIP")
		entry := mustRegister(t, e, "Ada", "Lovelace", "VIP")

		if entry.Position != 2 {
			t.Fatalf("expected tail position 2, got %v", entry.Position)
		}
		snapshot := e.QueueSnapshot()["VIP"]
		if len(snapshot) != 2 {
			t.Fatalf("expected 2 pending, got %v", len(snapshot))
		}
		if snapshot[0].FirstName != "Grace" || snapshot[1].FirstName != "Ada" {
			t.Fatalf("unexpected order %+v", snapshot)
		}
	})

	t.Run("replace still refuses while holding a confirmed ticket", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReplace, config.Capacity{Type: "VIP", Capacity: 3})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		if _, err := e.ProcessNext("VIP"); err != nil {
			t.Fatalf("process next: %v", err)
		}

		if _, err := e.Register("Ada", "Lovelace", "VIP"); err != ticket.ErrDuplicateRegistration {
			t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
		}
	})
}

func TestProcessRegistrant(t *testing.T) {
	t.Run("resolves everyone ahead of the target in FIFO order", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 2})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		mustRegister(t, e, "Grace", "Hopper", "VIP")
		mustRegister(t, e, "Edsger", "Dijkstra", "VIP")

		results, err := e.ProcessRegistrant("Edsger", "Dijkstra", "VIP")
		if err != nil {
			t.Fatalf("process registrant: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %v", len(results))
		}

		wantFirst := []string{"Ada", "Grace", "Edsger"}
		wantStatus := []ticket.Status{ticket.StatusConfirmed, ticket.StatusConfirmed, ticket.StatusSoldOut}
		wantRemaining := []int{1, 0, 0}
		for i, result := range results {
			if result.Registrant.FirstName != wantFirst[i] {
				t.Fatalf("result %v: expected %v, got %v", i, wantFirst[i], result.Registrant.FirstName)
			}
			if result.Status != wantStatus[i] {
				t.Fatalf("result %v: expected %v, got %v", i, wantStatus[i], result.Status)
			}
			if result.Remaining != wantRemaining[i] {
				t.Fatalf("result %v: expected remaining %v, got %v", i, wantRemaining[i], result.Remaining)
			}
		}

		if pending := e.QueueSnapshot()["VIP"]; len(pending) != 0 {
			t.Fatalf("expected empty queue, got %+v", pending)
		}
	})

	t.Run("leaves entries behind the target untouched", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 5})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		mustRegister(t, e, "Grace", "Hopper", "VIP")
		mustRegister(t, e, "Edsger", "Dijkstra", "VIP")

		results, err := e.ProcessRegistrant("Grace", "Hopper", "VIP")
		if err != nil {
			t.Fatalf("process registrant: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %v", len(results))
		}

		pending := e.QueueSnapshot()["VIP"]
		if len(pending) != 1 || pending[0].FirstName != "Edsger" {
			t.Fatalf("expected only Edsger pending, got %+v", pending)
		}
	})

	t.Run("unknown registrant", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		if _, err := e.ProcessRegistrant("Ada", "Lovelace", "VIP"); err != ticket.ErrUnknownRegistrant {
			t.Fatalf("expected ErrUnknownRegistrant, got %v", err)
		}
	})

	t.Run("already-processed registrant is unknown", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		if _, err := e.ProcessRegistrant("Ada", "Lovelace", "VIP"); err != nil {
			t.Fatalf("process registrant: %v", err)
		}

		if _, err := e.ProcessRegistrant("Ada", "Lovelace", "VIP"); err != ticket.ErrUnknownRegistrant {
			t.Fatalf("expected ErrUnknownRegistrant on second process, got %v", err)
		}
	})
}

func TestProcessNext(t *testing.T) {
	t.Run("empty queue is a benign signal", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		if _, err := e.ProcessNext("VIP"); err != ticket.ErrEmptyQueue {
			t.Fatalf("expected ErrEmptyQueue, got %v", err)
		}
	})

	t.Run("sold out once inventory reaches zero", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		mustRegister(t, e, "Grace", "Hopper", "VIP")

		first, err := e.ProcessNext("VIP")
		if err != nil {
			t.Fatalf("process next: %v", err)
		}
		if first.Status != ticket.StatusConfirmed || first.Remaining != 0 {
			t.Fatalf("expected Confirmed remaining 0, got %+v", first)
		}

		second, err := e.ProcessNext("VIP")
		if err != nil {
			t.Fatalf("process next: %v", err)
		}
		if second.Status != ticket.StatusSoldOut || second.Remaining != 0 {
			t.Fatalf("expected Sold Out remaining 0, got %+v", second)
		}
	})
}

func TestProcessNextAny(t *testing.T) {
	e := newTestEngine(config.DuplicateReject,
		config.Capacity{Type: "VIP", Capacity: 1},
		config.Capacity{Type: "Regular", Capacity: 1},
	)

	mustRegister(t, e, "Rob", "Pike", "Regular")
	mustRegister(t, e, "Ada", "Lovelace", "VIP")

	// VIP is listed first, so it wins even though Regular queued earlier.
	first, err := e.ProcessNextAny()
	if err != nil {
		t.Fatalf("process next any: %v", err)
	}
	if first.TicketType != "VIP" || first.Registrant.FirstName != "Ada" {
		t.Fatalf("expected VIP Ada first, got %+v", first)
	}

	second, err := e.ProcessNextAny()
	if err != nil {
		t.Fatalf("process next any: %v", err)
	}
	if second.TicketType != "Regular" || second.Registrant.FirstName != "Rob" {
		t.Fatalf("expected Regular Rob second, got %+v", second)
	}

	if _, err := e.ProcessNextAny(); err != ticket.ErrEmptyQueue {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	t.Run("pending entry leaves inventory alone", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 3})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")

		result, err := e.Cancel("Ada", "Lovelace", "VIP")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if result.WasConfirmed {
			t.Fatalf("expected pending cancellation, got confirmed")
		}
		if remaining := e.Availability()["VIP"]; remaining != 3 {
			t.Fatalf("expected remaining 3, got %v", remaining)
		}
		if pending := e.QueueSnapshot()["VIP"]; len(pending) != 0 {
			t.Fatalf("expected empty queue, got %+v", pending)
		}
	})

	t.Run("confirmed ticket restores one unit", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		if _, err := e.ProcessNext("VIP"); err != nil {
			t.Fatalf("process next: %v", err)
		}
		if remaining := e.Availability()["VIP"]; remaining != 0 {
			t.Fatalf("expected remaining 0, got %v", remaining)
		}

		result, err := e.Cancel("Ada", "Lovelace", "VIP")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if !result.WasConfirmed || result.Remaining != 1 {
			t.Fatalf("expected confirmed cancellation remaining 1, got %+v", result)
		}
	})

	t.Run("not found", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		if _, err := e.Cancel("Ada", "Lovelace", "VIP"); err != ticket.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("second cancel is not found", func(t *testing.T) {
		e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

		mustRegister(t, e, "Ada", "Lovelace", "VIP")
		if _, err := e.Cancel("Ada", "Lovelace", "VIP"); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, err := e.Cancel("Ada", "Lovelace", "VIP"); err != ticket.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

// The scenario from the service contract: capacity VIP=1, A then B
// register, A confirms, B sells out, cancelling A frees the unit for C.
func TestLastUnitLifecycle(t *testing.T) {
	e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

	mustRegister(t, e, "Alice", "Archer", "VIP")
	mustRegister(t, e, "Bob", "Baker", "VIP")

	resultA, err := e.ProcessRegistrant("Alice", "Archer", "VIP")
	if err != nil {
		t.Fatalf("process A: %v", err)
	}
	if final := resultA[len(resultA)-1]; final.Status != ticket.StatusConfirmed || final.Remaining != 0 {
		t.Fatalf("expected A Confirmed remaining 0, got %+v", final)
	}

	resultB, err := e.ProcessRegistrant("Bob", "Baker", "VIP")
	if err != nil {
		t.Fatalf("process B: %v", err)
	}
	if final := resultB[len(resultB)-1]; final.Status != ticket.StatusSoldOut || final.Remaining != 0 {
		t.Fatalf("expected B Sold Out remaining 0, got %+v", final)
	}

	if _, err := e.Cancel("Alice", "Archer", "VIP"); err != nil {
		t.Fatalf("cancel A: %v", err)
	}
	if remaining := e.Availability()["VIP"]; remaining != 1 {
		t.Fatalf("expected remaining 1 after cancel, got %v", remaining)
	}

	mustRegister(t, e, "Carol", "Clark", "VIP")
	resultC, err := e.ProcessRegistrant("Carol", "Clark", "VIP")
	if err != nil {
		t.Fatalf("process C: %v", err)
	}
	if final := resultC[len(resultC)-1]; final.Status != ticket.StatusConfirmed || final.Remaining != 0 {
		t.Fatalf("expected C Confirmed remaining 0, got %+v", final)
	}
}

func TestConcurrentLastUnit(t *testing.T) {
	const registrants = 32

	e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 1})

	names := make([]string, registrants)
	var wg sync.WaitGroup
	for i := 0; i < registrants; i++ {
		names[i] = string(rune('A' + i))
		wg.Add(1)
		go func(first string) {
			defer wg.Done()
			if _, err := e.Register(first, "Racer", "VIP"); err != nil {
				t.Errorf("register %v: %v", first, err)
			}
		}(names[i])
	}
	wg.Wait()

	results := make(chan *ticket.AllocationResult, registrants)
	for i := 0; i < registrants; i++ {
		wg.Add(1)
		go func(first string) {
			defer wg.Done()
			stepResults, err := e.ProcessRegistrant(first, "Racer", "VIP")
			if err == ticket.ErrUnknownRegistrant {
				// Someone ahead already drained this entry.
				return
			}
			if err != nil {
				t.Errorf("process %v: %v", first, err)
				return
			}
			for _, result := range stepResults {
				results <- result
			}
		}(names[i])
	}
	wg.Wait()
	close(results)

	confirmed := 0
	total := 0
	for result := range results {
		total++
		if result.Status == ticket.StatusConfirmed {
			confirmed++
		}
		if result.Remaining < 0 {
			t.Fatalf("remaining went negative: %+v", result)
		}
	}

	if total != registrants {
		t.Fatalf("expected every entry resolved exactly once, got %v of %v", total, registrants)
	}
	if confirmed != 1 {
		t.Fatalf("expected exactly one Confirmed, got %v", confirmed)
	}
	if remaining := e.Availability()["VIP"]; remaining != 0 {
		t.Fatalf("expected remaining 0, got %v", remaining)
	}
}

func TestFindType(t *testing.T) {
	e := newTestEngine(config.DuplicateReject,
		config.Capacity{Type: "VIP", Capacity: 1},
		config.Capacity{Type: "Regular", Capacity: 1},
	)

	mustRegister(t, e, "Rob", "Pike", "Regular")

	ticketType, ok := e.FindType("Rob", "Pike")
	if !ok || ticketType != "Regular" {
		t.Fatalf("expected Regular, got %v %v", ticketType, ok)
	}

	if _, ok := e.FindType("Ada", "Lovelace"); ok {
		t.Fatalf("expected not found")
	}
}

func TestSalesSummary(t *testing.T) {
	e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 3})

	mustRegister(t, e, "Ada", "Lovelace", "VIP")
	mustRegister(t, e, "Grace", "Hopper", "VIP")
	if _, err := e.ProcessRegistrant("Grace", "Hopper", "VIP"); err != nil {
		t.Fatalf("process: %v", err)
	}

	summary := e.SalesSummary()["VIP"]
	if summary.Sold != 2 || summary.Remaining != 1 || summary.Total != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestStatsTracksQueueMovement(t *testing.T) {
	e := newTestEngine(config.DuplicateReject, config.Capacity{Type: "VIP", Capacity: 5})

	mustRegister(t, e, "Ada", "Lovelace", "VIP")
	mustRegister(t, e, "Grace", "Hopper", "VIP")
	mustRegister(t, e, "Edsger", "Dijkstra", "VIP")

	stats := e.Stats()["VIP"]
	if stats.QueueLength != 3 || stats.TailPosition != 3 || stats.HeadPosition != 0 {
		t.Fatalf("unexpected stats after registers %+v", stats)
	}

	if _, err := e.ProcessNext("VIP"); err != nil {
		t.Fatalf("process next: %v", err)
	}
	// A cancellation in the middle moves the head counter too.
	if _, err := e.Cancel("Grace", "Hopper", "VIP"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	stats = e.Stats()["VIP"]
	if stats.QueueLength != 1 || stats.TailPosition != 3 || stats.HeadPosition != 2 {
		t.Fatalf("unexpected stats after process and cancel %+v", stats)
	}
}
