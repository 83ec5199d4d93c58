package engine

import (
	"strings"
	"sync"
	"time"

	"luma-live/stagepass/ticket-queue-server/pkg/clock"
	"luma-live/stagepass/ticket-queue-server/pkg/config"
	"luma-live/stagepass/ticket-queue-server/pkg/infra"
	"luma-live/stagepass/ticket-queue-server/pkg/ticket"
	"luma-live/stagepass/ticket-queue-server/pkg/txlog"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// typeState is everything owned by one ticket type: its inventory, its
// pending queue, its confirmed tickets and its stats. All of it is
// guarded by mu, so mutations for one type are serialized while types
// stay fully independent of each other.
type typeState struct {
	mu sync.Mutex

	ledger *Ledger
	queue  *Store

	// Confirmed tickets. Key value: registrant -> ticket.
	confirmed *linkedhashmap.Map

	stats *Stats
}

// Engine is the ticket queue and allocation core. The type registry is
// fixed at construction, registrations for unknown types are rejected
// instead of silently creating unbounded inventory categories.
type Engine struct {
	// Notify that an entry was admitted into its queue.
	NotifyEntry chan *ticket.QueueEntry

	// Notify a per-entry allocation outcome (Confirmed or Sold Out).
	NotifyResult chan *ticket.AllocationResult

	// Notify a successful cancellation.
	NotifyCancel chan *ticket.CancellationResult

	// Notify current stats of every queue.
	NotifyStats chan map[ticket.Type]StatsSnapshot

	types map[ticket.Type]*typeState

	// Configured type order, used when processing without an explicit
	// type.
	priority []ticket.Type

	policy config.DuplicatePolicy
	clock  clock.Clock
	txlog  txlog.Writer
	logger *zap.SugaredLogger
}

func ProvideEngine(clk clock.Clock, logWriter txlog.Writer, loggerFactory *infra.LoggerFactory) (*Engine, error) {
	capacities, err := config.ParseCapacities(*config.CFG.TicketCapacities)
	if err != nil {
		return nil, err
	}

	policy, err := config.ParsePolicy(*config.CFG.DuplicatePolicy)
	if err != nil {
		return nil, err
	}

	return NewEngine(capacities, policy, clk, logWriter, loggerFactory), nil
}

func NewEngine(capacities []config.Capacity, policy config.DuplicatePolicy, clk clock.Clock, logWriter txlog.Writer, loggerFactory *infra.LoggerFactory) *Engine {
	engine := &Engine{
		NotifyEntry:  make(chan *ticket.QueueEntry, 1024),
		NotifyResult: make(chan *ticket.AllocationResult, 1024),
		NotifyCancel: make(chan *ticket.CancellationResult, 1024),
		NotifyStats:  make(chan map[ticket.Type]StatsSnapshot, 1024),

		types:  make(map[ticket.Type]*typeState, len(capacities)),
		policy: policy,
		clock:  clk,
		txlog:  logWriter,
		logger: loggerFactory.Create("Engine").Sugar(),
	}

	initAvgWait := time.Duration(*config.CFG.InitAvgWaitSeconds) * time.Second
	for _, capacity := range capacities {
		engine.types[capacity.Type] = &typeState{
			ledger:    newLedger(capacity.Capacity),
			queue:     newStore(),
			confirmed: linkedhashmap.New(),
			stats:     newStats(initAvgWait, *config.CFG.AverageWaitWindowSize),
		}
		engine.priority = append(engine.priority, capacity.Type)
	}

	return engine
}

func (e *Engine) Run() {
	go e.statsWorker()
}

func (e *Engine) statsWorker() {
	ticker := time.NewTicker(time.Duration(*config.CFG.NotifyStatsIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for ; true; <-ticker.C {
		e.emitStats(e.Stats())
	}
}

// Register validates and enqueues a new registrant and reports the
// 1-based position in the type's queue. Inventory is untouched, the
// ledger only moves when the entry is processed.
func (e *Engine) Register(firstName, lastName string, ticketType ticket.Type) (*ticket.QueueEntry, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, ticket.ErrNameRequired
	}

	state, ok := e.types[ticketType]
	if !ok {
		return nil, ticket.ErrUnknownTicketType
	}

	registrant := ticket.Registrant{FirstName: firstName, LastName: lastName}

	state.mu.Lock()
	defer state.mu.Unlock()

	if _, confirmed := state.confirmed.Get(registrant); confirmed {
		return nil, ticket.ErrDuplicateRegistration
	}
	if _, queued := state.queue.Get(registrant); queued {
		if e.policy == config.DuplicateReject {
			return nil, ticket.ErrDuplicateRegistration
		}
		// Replace policy: drop the old entry, the registrant starts
		// over at the tail.
		state.queue.Remove(registrant)
		e.logger.Infof("replaced pending entry registrant[%v] type[%v]", registrant.FullName(), ticketType)
	}

	entry := &ticket.QueueEntry{
		Registrant: registrant,
		TicketType: ticketType,
		EnqueuedAt: e.clock.Now(),
	}
	state.queue.Push(entry)
	entry.Position = state.queue.Len()

	state.stats.incrTailPosition()
	state.stats.resetHeadPosition(state.queue.Len())

	e.logger.Infof("enqueued registrant[%v] type[%v] position[%v]", registrant.FullName(), ticketType, entry.Position)
	e.emitEntry(entry)
	return entry, nil
}

// ProcessRegistrant pops entries in strict FIFO order, resolving each
// against the ledger, until the target registrant's own entry has been
// processed. The full ordered result list is returned, the last
// element is the target's outcome.
func (e *Engine) ProcessRegistrant(firstName, lastName string, ticketType ticket.Type) ([]*ticket.AllocationResult, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, ticket.ErrNameRequired
	}

	state, ok := e.types[ticketType]
	if !ok {
		return nil, ticket.ErrUnknownTicketType
	}

	registrant := ticket.Registrant{FirstName: firstName, LastName: lastName}

	state.mu.Lock()
	defer state.mu.Unlock()

	if _, queued := state.queue.Get(registrant); !queued {
		return nil, ticket.ErrUnknownRegistrant
	}

	var results []*ticket.AllocationResult
	var waitDurations []time.Duration
	for {
		entry, ok := state.queue.PopFront()
		if !ok {
			// Unreachable while the target is still queued.
			break
		}

		result := e.resolveLocked(state, entry)
		results = append(results, result)
		waitDurations = append(waitDurations, e.clock.Now().Sub(entry.EnqueuedAt))

		if entry.Registrant == registrant {
			break
		}
	}

	state.stats.updateAvgWait(waitDurations)
	state.stats.resetHeadPosition(state.queue.Len())
	return results, nil
}

// ProcessNext resolves the single oldest entry of the given type.
// ErrEmptyQueue is a benign no-op signal, not a fault.
func (e *Engine) ProcessNext(ticketType ticket.Type) (*ticket.AllocationResult, error) {
	state, ok := e.types[ticketType]
	if !ok {
		return nil, ticket.ErrUnknownTicketType
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return e.processNextLocked(state)
}

// ProcessNextAny walks the configured types in priority order and
// resolves the oldest entry of the first non-empty queue.
func (e *Engine) ProcessNextAny() (*ticket.AllocationResult, error) {
	for _, ticketType := range e.priority {
		state := e.types[ticketType]

		state.mu.Lock()
		result, err := e.processNextLocked(state)
		state.mu.Unlock()

		if err == ticket.ErrEmptyQueue {
			continue
		}
		return result, err
	}
	return nil, ticket.ErrEmptyQueue
}

func (e *Engine) processNextLocked(state *typeState) (*ticket.AllocationResult, error) {
	entry, ok := state.queue.PopFront()
	if !ok {
		return nil, ticket.ErrEmptyQueue
	}

	result := e.resolveLocked(state, entry)
	state.stats.updateAvgWait([]time.Duration{e.clock.Now().Sub(entry.EnqueuedAt)})
	state.stats.resetHeadPosition(state.queue.Len())
	return result, nil
}

// resolveLocked converts one dequeued entry into a Confirmed or Sold
// Out outcome. Caller holds the type lock, so the check-and-decrement
// is atomic with respect to concurrent calls for the same type.
func (e *Engine) resolveLocked(state *typeState, entry *ticket.QueueEntry) *ticket.AllocationResult {
	now := e.clock.Now()

	status := ticket.StatusSoldOut
	if state.ledger.TryTake() {
		status = ticket.StatusConfirmed
		state.confirmed.Put(entry.Registrant, &ticket.ConfirmedTicket{
			ID:          uuid.NewString(),
			Registrant:  entry.Registrant,
			TicketType:  entry.TicketType,
			ConfirmedAt: now,
		})
	}

	result := &ticket.AllocationResult{
		Registrant: entry.Registrant,
		TicketType: entry.TicketType,
		Status:     status,
		Remaining:  state.ledger.Remaining(),
	}

	if err := e.txlog.Append(entry.Registrant, entry.TicketType, now, status); err != nil {
		e.logger.Errorf("cannot append transaction %v", err)
	}

	e.logger.Infof("processed registrant[%v] type[%v] status[%v] remaining[%v]", entry.Registrant.FullName(), entry.TicketType, status, result.Remaining)
	e.emitResult(result)
	return result
}

// Cancel removes a pending entry (no ledger change) or reclaims a
// confirmed ticket (one unit back to the ledger), in that priority.
func (e *Engine) Cancel(firstName, lastName string, ticketType ticket.Type) (*ticket.CancellationResult, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return nil, ticket.ErrNameRequired
	}

	state, ok := e.types[ticketType]
	if !ok {
		return nil, ticket.ErrUnknownTicketType
	}

	registrant := ticket.Registrant{FirstName: firstName, LastName: lastName}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.queue.Remove(registrant) {
		state.stats.resetHeadPosition(state.queue.Len())
		result := &ticket.CancellationResult{
			Registrant:   registrant,
			TicketType:   ticketType,
			WasConfirmed: false,
			Remaining:    state.ledger.Remaining(),
		}
		e.finishCancelLocked(result)
		return result, nil
	}

	if _, confirmed := state.confirmed.Get(registrant); confirmed {
		state.confirmed.Remove(registrant)
		result := &ticket.CancellationResult{
			Registrant:   registrant,
			TicketType:   ticketType,
			WasConfirmed: true,
			Remaining:    state.ledger.Restore(),
		}
		e.finishCancelLocked(result)
		return result, nil
	}

	return nil, ticket.ErrNotFound
}

func (e *Engine) finishCancelLocked(result *ticket.CancellationResult) {
	if err := e.txlog.Append(result.Registrant, result.TicketType, e.clock.Now(), ticket.StatusCancelled); err != nil {
		e.logger.Errorf("cannot append transaction %v", err)
	}
	e.logger.Infof("cancelled registrant[%v] type[%v] wasConfirmed[%v] remaining[%v]", result.Registrant.FullName(), result.TicketType, result.WasConfirmed, result.Remaining)
	e.emitCancel(result)
}

// FindType locates the type a registrant is currently queued under,
// checking types in priority order.
func (e *Engine) FindType(firstName, lastName string) (ticket.Type, bool) {
	registrant := ticket.Registrant{
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	}

	for _, ticketType := range e.priority {
		state := e.types[ticketType]

		state.mu.Lock()
		_, queued := state.queue.Get(registrant)
		state.mu.Unlock()

		if queued {
			return ticketType, true
		}
	}
	return "", false
}

// Availability is a point-in-time snapshot of remaining inventory.
func (e *Engine) Availability() map[ticket.Type]int {
	availability := make(map[ticket.Type]int, len(e.types))
	for ticketType, state := range e.types {
		state.mu.Lock()
		availability[ticketType] = state.ledger.Remaining()
		state.mu.Unlock()
	}
	return availability
}

// QueueSnapshot lists everyone still pending, per type, in queue order.
func (e *Engine) QueueSnapshot() map[ticket.Type][]ticket.Registrant {
	snapshot := make(map[ticket.Type][]ticket.Registrant, len(e.types))
	for ticketType, state := range e.types {
		state.mu.Lock()
		snapshot[ticketType] = state.queue.Registrants()
		state.mu.Unlock()
	}
	return snapshot
}

// TypeSummary reports sales progress for one type.
type TypeSummary struct {
	Sold      int `json:"sold"`
	Remaining int `json:"remaining"`
	Total     int `json:"total"`
}

func (e *Engine) SalesSummary() map[ticket.Type]TypeSummary {
	summary := make(map[ticket.Type]TypeSummary, len(e.types))
	for ticketType, state := range e.types {
		state.mu.Lock()
		summary[ticketType] = TypeSummary{
			Sold:      state.ledger.Sold(),
			Remaining: state.ledger.Remaining(),
			Total:     state.ledger.Initial(),
		}
		state.mu.Unlock()
	}
	return summary
}

func (e *Engine) Stats() map[ticket.Type]StatsSnapshot {
	stats := make(map[ticket.Type]StatsSnapshot, len(e.types))
	for ticketType, state := range e.types {
		state.mu.Lock()
		stats[ticketType] = state.stats.snapshot(state.queue.Len())
		state.mu.Unlock()
	}
	return stats
}

// Notification sends never block the engine. When nobody is draining a
// channel the event is dropped.
func (e *Engine) emitEntry(entry *ticket.QueueEntry) {
	select {
	case e.NotifyEntry <- entry:
	default:
		e.logger.Debugf("dropped entry notification registrant[%v]", entry.Registrant.FullName())
	}
}

func (e *Engine) emitResult(result *ticket.AllocationResult) {
	select {
	case e.NotifyResult <- result:
	default:
		e.logger.Debugf("dropped result notification registrant[%v]", result.Registrant.FullName())
	}
}

func (e *Engine) emitCancel(result *ticket.CancellationResult) {
	select {
	case e.NotifyCancel <- result:
	default:
		e.logger.Debugf("dropped cancel notification registrant[%v]", result.Registrant.FullName())
	}
}

func (e *Engine) emitStats(stats map[ticket.Type]StatsSnapshot) {
	select {
	case e.NotifyStats <- stats:
	default:
	}
}
