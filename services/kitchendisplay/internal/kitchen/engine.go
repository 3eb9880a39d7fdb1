package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/comandas/pkg/enums/dishstatus"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/cache"
	"github.com/appetiteclub/comandas/services/kitchendisplay/internal/comanda"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"
)

const DefaultPollInterval = 2 * time.Second

// EditResult describes what ApplyDishEdit did to the canonical state.
type EditResult struct {
	Action    comanda.Action
	Delivered bool
	// WriteBackErr holds write-back failures. They are logged and never
	// retried; the optimistic state stays until the next poll.
	WriteBackErr error
}

func (r EditResult) Applied() bool {
	return r.Action != comanda.ActionIgnore
}

// pendingMark keeps a local structural edit in force over incoming
// snapshots. Once the write-back is acknowledged it only covers polls that
// started before the acknowledgement.
type pendingMark struct {
	acked   bool
	ackedAt uint64
}

// Engine owns the canonical ticket state. Polls and edits are applied to it
// as whole steps under mu; network calls happen outside the lock.
type Engine struct {
	source     OrderSource
	store      cache.Store
	publisher  events.Publisher
	logger     aqm.Logger
	interval   time.Duration
	cacheKey   string
	instanceID string

	mu               sync.Mutex
	tickets          []comanda.Ticket
	snapshot         []comanda.Ticket
	polled           bool
	version          uint64
	generation       uint64
	fetches          uint64
	pendingDelivered map[string]*pendingMark
	pendingRemovals  map[string]map[string]*pendingMark
	listeners        []Listener

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	nudge  chan struct{}

	persistMu sync.Mutex
	persisted uint64

	notifyMu sync.Mutex
	notified uint64
}

type EngineOption func(*Engine)

func WithPollInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithCacheKey(key string) EngineOption {
	return func(e *Engine) {
		if key != "" {
			e.cacheKey = key
		}
	}
}

func WithInstanceID(id string) EngineOption {
	return func(e *Engine) {
		if id != "" {
			e.instanceID = id
		}
	}
}

// NewEngine creates an engine. store and publisher are optional.
func NewEngine(source OrderSource, store cache.Store, publisher events.Publisher, logger aqm.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	e := &Engine{
		source:           source,
		store:            store,
		publisher:        publisher,
		logger:           logger,
		interval:         DefaultPollInterval,
		cacheKey:         cache.DefaultKey,
		instanceID:       uuid.NewString(),
		pendingDelivered: make(map[string]*pendingMark),
		pendingRemovals:  make(map[string]map[string]*pendingMark),
		nudge:            make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) InstanceID() string {
	return e.instanceID
}

func (e *Engine) Interval() time.Duration {
	return e.interval
}

// AddListener registers l for canonical state updates.
func (e *Engine) AddListener(l Listener) {
	if l == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Tickets returns a copy of the active tickets.
func (e *Engine) Tickets() []comanda.Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return comanda.CloneAll(e.tickets)
}

// Ticket returns a copy of the active ticket with the given id.
func (e *Engine) Ticket(ticketID string) (comanda.Ticket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := comanda.IndexOf(e.tickets, ticketID)
	if idx < 0 {
		return comanda.Ticket{}, ErrNotFound
	}
	return e.tickets[idx].Clone(), nil
}

// Snapshot returns a copy of the last snapshot fetched from the order source.
func (e *Engine) Snapshot() []comanda.Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return comanda.CloneAll(e.snapshot)
}

// Start runs the poll loop until Stop. The first cycle runs right away.
// Calling Start on a running engine does nothing.
func (e *Engine) Start(ctx context.Context) error {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()

	if e.cancel != nil {
		return nil
	}
	if e.source == nil {
		return ErrNoOrderSource
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})

	e.bumpGeneration()

	go e.run(loopCtx, e.done)

	e.logger.Info("comanda sync started", "interval", e.interval.String(), "instance", e.instanceID)
	return nil
}

// Stop cancels future polls. A fetch still in flight is discarded when it
// returns. Safe to call more than once.
func (e *Engine) Stop(ctx context.Context) error {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()

	if e.cancel == nil {
		e.bumpGeneration()
		return nil
	}
	e.cancel()
	e.cancel = nil
	e.bumpGeneration()

	select {
	case <-e.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.logger.Info("comanda sync stopped")
	return nil
}

func (e *Engine) bumpGeneration() {
	e.mu.Lock()
	e.generation++
	e.mu.Unlock()
}

// Nudge asks the loop for an early poll. Extra nudges are coalesced.
func (e *Engine) Nudge() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.cycle(ctx)
		case <-e.nudge:
			e.cycle(ctx)
		}
	}
}

func (e *Engine) cycle(ctx context.Context) {
	if err := e.Poll(ctx); err != nil && ctx.Err() == nil {
		e.logger.Debug("poll cycle failed", "error", err)
	}
}

// Poll runs one fetch-merge-persist-notify cycle.
func (e *Engine) Poll(ctx context.Context) error {
	if e.source == nil {
		return ErrNoOrderSource
	}

	e.mu.Lock()
	gen := e.generation
	e.fetches++
	seq := e.fetches
	e.mu.Unlock()

	incoming, err := e.source.FetchToday(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("cannot fetch comandas", "error", err)
		}
		return fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding snapshot fetched before stop", "tickets", len(incoming))
		return nil
	}

	e.snapshot = comanda.CloneAll(incoming)
	merged := comanda.Merge(e.tickets, openTickets(incoming))
	merged = e.applyPendingLocked(merged, seq)

	active := make([]comanda.Ticket, 0, len(merged))
	var completed []comanda.Ticket
	for _, t := range merged {
		if t.Status == comanda.TicketDelivered {
			e.pendingDelivered[t.ID] = &pendingMark{}
			completed = append(completed, t)
			continue
		}
		active = append(active, t)
	}
	e.tickets = active
	e.polled = true
	version, payload, view, listeners := e.commitLocked()
	e.mu.Unlock()

	e.persist(ctx, version, payload)
	e.notify(version, listeners, view)

	for _, t := range completed {
		e.logger.Info("comanda completed by snapshot", "ticket_id", t.ID)
		e.escalate(ctx, t)
	}
	return nil
}

// applyPendingLocked hides tickets and dishes whose local removal has not
// reached the order source yet. seq identifies the fetch that produced
// tickets.
func (e *Engine) applyPendingLocked(tickets []comanda.Ticket, seq uint64) []comanda.Ticket {
	out := tickets[:0]
	for _, t := range tickets {
		if mark, ok := e.pendingDelivered[t.ID]; ok && mark.covers(seq) {
			continue
		}
		if dishes, ok := e.pendingRemovals[t.ID]; ok {
			for dishID, mark := range dishes {
				if !mark.covers(seq) {
					continue
				}
				if reduced, removed := comanda.RemoveDish(t, dishID); removed {
					t = reduced
				}
			}
			t.Status = comanda.DeriveTicketStatus(t)
		}
		out = append(out, t)
	}

	for id, mark := range e.pendingDelivered {
		if mark.expired(seq) {
			delete(e.pendingDelivered, id)
		}
	}
	for ticketID, dishes := range e.pendingRemovals {
		for dishID, mark := range dishes {
			if mark.expired(seq) {
				delete(dishes, dishID)
			}
		}
		if len(dishes) == 0 {
			delete(e.pendingRemovals, ticketID)
		}
	}
	return out
}

func (m *pendingMark) covers(seq uint64) bool {
	return !m.acked || seq <= m.ackedAt
}

func (m *pendingMark) expired(seq uint64) bool {
	return m.acked && seq > m.ackedAt
}

// ApplyDishEdit changes the status of one dish. Unknown tickets or dishes
// are ignored. The canonical state is updated before any write-back is
// sent; write-back failures end up in the result, not in the error.
func (e *Engine) ApplyDishEdit(ctx context.Context, ticketID, dishID string, status dishstatus.Status) (EditResult, error) {
	var result EditResult

	e.mu.Lock()
	idx := comanda.IndexOf(e.tickets, ticketID)
	if idx < 0 {
		e.mu.Unlock()
		e.logger.Debug("edit on inactive comanda ignored", "ticket_id", ticketID, "dish_id", dishID)
		return result, nil
	}

	t := e.tickets[idx].Clone()
	di := t.DishIndex(dishID)
	if di < 0 {
		e.mu.Unlock()
		e.logger.Debug("edit on missing dish ignored", "ticket_id", ticketID, "dish_id", dishID)
		return result, nil
	}

	before := t.Dishes[di]
	result.Action = comanda.Transition(&t.Dishes[di], status)
	switch result.Action {
	case comanda.ActionIgnore:
		e.mu.Unlock()
		return result, nil
	case comanda.ActionRemove:
		t, _ = comanda.RemoveDish(t, dishID)
		dishes := e.pendingRemovals[ticketID]
		if dishes == nil {
			dishes = make(map[string]*pendingMark)
			e.pendingRemovals[ticketID] = dishes
		}
		dishes[dishID] = &pendingMark{}
	}

	t.Status = comanda.DeriveTicketStatus(t)
	result.Delivered = t.Status == comanda.TicketDelivered
	if result.Delivered {
		e.tickets = append(e.tickets[:idx:idx], e.tickets[idx+1:]...)
		e.pendingDelivered[ticketID] = &pendingMark{}
	} else {
		e.tickets[idx] = t
	}
	version, payload, view, listeners := e.commitLocked()
	e.mu.Unlock()

	e.persist(ctx, version, payload)
	e.notify(version, listeners, view)

	if e.source == nil {
		e.ackRemoval(ticketID, dishID, ErrNoOrderSource)
		e.ackDelivered(ticketID, ErrNoOrderSource)
		result.WriteBackErr = fmt.Errorf("%w: %w", ErrWriteBackFailure, ErrNoOrderSource)
		return result, nil
	}

	var errs []error
	switch result.Action {
	case comanda.ActionRemove:
		err := e.source.ReplaceDishes(ctx, ticketID, t.Dishes)
		e.ackRemoval(ticketID, dishID, err)
		if err != nil {
			e.logger.Error("cannot write back out of stock removal", "ticket_id", ticketID, "dish_id", dishID, "error", err)
			errs = append(errs, fmt.Errorf("%w: %w", ErrWriteBackFailure, err))
		} else {
			e.publishOutOfStock(ctx, t, before)
		}
	case comanda.ActionUpdate:
		err := e.source.SetDishStatus(ctx, ticketID, dishID, status)
		if err != nil {
			e.logger.Error("cannot write back dish status", "ticket_id", ticketID, "dish_id", dishID, "status", status.Name, "error", err)
			errs = append(errs, fmt.Errorf("%w: %w", ErrWriteBackFailure, err))
		} else {
			e.publishStatusChanged(ctx, t, before, status)
		}
	}

	if result.Delivered {
		if err := e.escalate(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}

	result.WriteBackErr = errors.Join(errs...)
	return result, nil
}

// escalate tells the order source a ticket is delivered. The ticket must
// already be out of the canonical state and marked pending.
func (e *Engine) escalate(ctx context.Context, t comanda.Ticket) error {
	err := e.source.SetTicketStatus(ctx, t.ID, comanda.TicketDelivered)
	e.ackDelivered(t.ID, err)
	if err != nil {
		e.logger.Error("cannot write back delivered comanda", "ticket_id", t.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrWriteBackFailure, err)
	}
	e.logger.Info("comanda delivered", "ticket_id", t.ID, "table", t.Table.Number)
	e.publishDelivered(ctx, t)
	return nil
}

// ackRemoval settles a pending dish removal. A failed write-back drops the
// mark at once so the next poll restores the server view.
func (e *Engine) ackRemoval(ticketID, dishID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dishes := e.pendingRemovals[ticketID]
	mark := dishes[dishID]
	if mark == nil {
		return
	}
	if err != nil {
		delete(dishes, dishID)
		if len(dishes) == 0 {
			delete(e.pendingRemovals, ticketID)
		}
		return
	}
	mark.acked = true
	mark.ackedAt = e.fetches
}

func (e *Engine) ackDelivered(ticketID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mark := e.pendingDelivered[ticketID]
	if mark == nil {
		return
	}
	if err != nil {
		delete(e.pendingDelivered, ticketID)
		return
	}
	mark.acked = true
	mark.ackedAt = e.fetches
}

// commitLocked bumps the state version and captures what has to be
// persisted and broadcast once the lock is released.
func (e *Engine) commitLocked() (uint64, []byte, []comanda.Ticket, []Listener) {
	e.version++

	payload, err := json.Marshal(e.tickets)
	if err != nil {
		e.logger.Error("cannot encode comandas for cache", "error", err)
		payload = nil
	}

	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)

	return e.version, payload, comanda.CloneAll(e.tickets), listeners
}

// persist writes payload unless a newer version has already been stored.
func (e *Engine) persist(ctx context.Context, version uint64, payload []byte) {
	if e.store == nil || payload == nil {
		return
	}

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	if version <= e.persisted {
		return
	}
	if err := e.store.Save(ctx, e.cacheKey, payload); err != nil {
		e.logger.Error("cannot persist comandas cache", "error", err)
		return
	}
	e.persisted = version
}

// notify hands view to listeners unless a newer version was already
// delivered.
func (e *Engine) notify(version uint64, listeners []Listener, tickets []comanda.Ticket) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	if version <= e.notified {
		return
	}
	e.notified = version
	for _, l := range listeners {
		l.OnSnapshotUpdated(comanda.CloneAll(tickets))
	}
}

// LocalCache returns the tickets last persisted to the local cache. A
// missing entry yields an empty list.
func (e *Engine) LocalCache(ctx context.Context) ([]comanda.Ticket, error) {
	if e.store == nil {
		return []comanda.Ticket{}, nil
	}

	payload, err := e.store.Load(ctx, e.cacheKey)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return []comanda.Ticket{}, nil
		}
		return nil, fmt.Errorf("cannot load comandas cache: %w", err)
	}

	var tickets []comanda.Ticket
	if err := json.Unmarshal(payload, &tickets); err != nil {
		return nil, fmt.Errorf("cannot decode comandas cache: %w", err)
	}
	if tickets == nil {
		tickets = []comanda.Ticket{}
	}
	return tickets, nil
}

// Warm seeds the canonical state from the local cache so the display is
// not blank before the first poll. It does nothing once a poll has landed.
func (e *Engine) Warm(ctx context.Context) error {
	tickets, err := e.LocalCache(ctx)
	if err != nil {
		e.logger.Info("cannot warm comandas from cache", "error", err)
		return err
	}

	e.mu.Lock()
	if e.polled {
		e.mu.Unlock()
		return nil
	}
	e.tickets = tickets
	e.version++
	version := e.version
	view := comanda.CloneAll(e.tickets)
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	e.logger.Info("comandas warmed from cache", "count", len(tickets))
	e.notify(version, listeners, view)
	return nil
}

// openTickets drops tickets the order service already reports as delivered.
func openTickets(tickets []comanda.Ticket) []comanda.Ticket {
	out := make([]comanda.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Status == comanda.TicketDelivered {
			continue
		}
		out = append(out, t)
	}
	return out
}
