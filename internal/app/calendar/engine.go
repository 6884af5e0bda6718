// Package calendar runs one staff member's booking board: pointer events go
// through the drag machine, finalized ranges through the resolver and quote
// engine, and changes through the mutation gate.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"campcal/internal/app/commands"
	"campcal/internal/app/dto"
	"campcal/internal/app/gate"
	"campcal/internal/app/handlers/availability"
	"campcal/internal/app/middleware"
	"campcal/internal/app/outbox"
	"campcal/internal/app/policies"
	"campcal/internal/app/queries"
	"campcal/internal/app/quote"
	"campcal/internal/app/resolver"
	domainavailability "campcal/internal/domain/availability"
	"campcal/internal/domain/drag"
	"campcal/internal/domain/grid"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/events"
)

var (
	ErrNoSelection  = errors.New("calendar: no selection to act on")
	ErrStillLoading = errors.New("calendar: selection is still being checked")
	ErrUnknownPill  = errors.New("calendar: reservation is not on the board")
	ErrConfirmPath  = errors.New("calendar: confirm path must be collect or keep_price")
)

const (
	ConfirmCollect   = "collect"
	ConfirmKeepPrice = "keep_price"
)

type Config struct {
	SessionID    string
	CampgroundID string
	Window       grid.Window
	CanMutate    bool
	HoldMinutes  int
	Today        time.Time
}

type Deps struct {
	Inventory  policies.InventoryPort
	Resolver   *resolver.Resolver
	Quotes     *quote.Engine
	Commands   commands.Bus
	Queries    queries.Bus
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Clock      func() time.Time
	NewKey     func() string
	// Invalidate drops shared inventory for a campground after this engine
	// commits a change.
	Invalidate func(campgroundID string)
}

// Pointer is a pointer-down target as reported by the board.
type Pointer struct {
	Kind          drag.TargetKind
	SiteID        reservation.SiteID
	Index         int
	ReservationID reservation.ID
}

// Cell is the grid cell under the pointer.
type Cell struct {
	SiteID reservation.SiteID
	Index  int
}

// Engine is safe for concurrent use. Lookups run without the lock; their
// results are applied only while the interaction token that started them is
// still current.
type Engine struct {
	cfg  Config
	deps Deps
	gate *gate.Gate
	fast *FastSpan
	seq  Sequence

	mu       sync.Mutex
	machine  *drag.Machine
	view     View
	inv      reservation.Inventory
	loaded   bool
	recorder events.EventRecorder
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.HoldMinutes <= 0 {
		cfg.HoldMinutes = 15
	}
	if deps.Resolver == nil {
		deps.Resolver = &resolver.Resolver{Logger: deps.Logger}
	}
	if deps.Quotes == nil {
		deps.Quotes = &quote.Engine{Logger: deps.Logger}
	}
	if deps.Encoder == nil {
		deps.Encoder = outbox.JSONEventEncoder{IDGenerator: deps.NewKey}
	}
	e := &Engine{
		cfg:  cfg,
		deps: deps,
		gate: &gate.Gate{Bus: deps.Commands, Logger: deps.Logger, NewKey: deps.NewKey},
		fast: &FastSpan{},
		view: View{
			SessionID:    cfg.SessionID,
			CampgroundID: cfg.CampgroundID,
			Window:       cfg.Window,
			CanMutate:    cfg.CanMutate,
			Gate:         gate.StateIdle,
		},
	}
	e.machine = drag.NewMachine(cfg.Window, e.fast, publisher{e}).WithTokens(&e.seq)
	return e
}

// publisher copies boundary snapshots into the view. The machine only calls
// it while e.mu is held.
type publisher struct{ e *Engine }

func (p publisher) Publish(snap *drag.Snapshot) {
	p.e.view.Drag = snap
	p.e.view.Version++
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) FastSpan() *FastSpan { return e.fast }

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.clone()
}

// PointerDown starts a drag. While a confirmation is open the board refuses
// new interactions.
func (e *Engine) PointerDown(ctx context.Context, p Pointer) (*drag.Snapshot, error) {
	if e.gate.Open() {
		return nil, gate.ErrPendingOpen
	}
	inv, err := e.inventory(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	target := drag.Target{Kind: p.Kind, SiteID: p.SiteID, Index: p.Index}
	if p.Kind != drag.TargetCell {
		res, ok := inv.Reservation(p.ReservationID)
		if !ok {
			return nil, ErrUnknownPill
		}
		target.Reservation = &res
	}
	snap, err := e.machine.Start(target)
	if err != nil {
		return nil, err
	}
	e.gate.Reset()
	e.view.Selection = nil
	e.view.Focus = ""
	e.view.Blocked = nil
	e.view.Error = nil
	e.view.Intent = nil
	e.view.Warnings = nil
	e.view.Pending = nil
	e.view.Gate = e.gate.State()
	return snap, nil
}

// PointerMove writes the fast path only. A move with no session is ignored.
func (e *Engine) PointerMove(site reservation.SiteID, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.machine.Active() {
		return nil
	}
	return e.machine.Update(site, index)
}

// PointerUp finalizes the drag wherever the pointer was released; at is nil
// when the release happened outside the grid. A release with no session is a
// no-op.
func (e *Engine) PointerUp(ctx context.Context, at *Cell) (View, error) {
	ctx = e.capability(ctx)
	e.mu.Lock()
	if !e.machine.Active() {
		defer e.mu.Unlock()
		return e.view.clone(), nil
	}
	if at != nil {
		if err := e.machine.Update(at.SiteID, at.Index); err != nil {
			e.mu.Unlock()
			return View{}, err
		}
	}
	result, err := e.machine.Finalize()
	if err != nil {
		e.mu.Unlock()
		return View{}, err
	}
	token := result.Token
	inv := e.inv
	e.mu.Unlock()

	if res, ok := drag.ReservationOf(result.Mode); ok {
		e.change(ctx, token, result, res, inv)
	} else {
		e.selection(ctx, token, result, inv)
	}
	e.flush(ctx)
	return e.View(), nil
}

func (e *Engine) selection(ctx context.Context, token uint64, result drag.Result, inv reservation.Inventory) {
	e.mu.Lock()
	if !e.current(token) {
		e.mu.Unlock()
		return
	}
	e.view.Selection = &Selection{Token: token, SiteID: result.SiteID, Range: result.Range, Resolving: true}
	e.view.Version++
	e.recorder.Record(domainavailability.SelectionFinalized{
		SessionID: e.cfg.SessionID,
		SiteID:    result.SiteID,
		Range:     result.Range,
		Mode:      string(result.Mode.Kind()),
		At:        e.now(),
	})
	e.mu.Unlock()

	resolution := e.deps.Resolver.Resolve(ctx, resolver.Request{
		CampgroundID: e.cfg.CampgroundID,
		SiteID:       result.SiteID,
		Range:        result.Range,
	}, inv)

	e.mu.Lock()
	if !e.current(token) {
		e.mu.Unlock()
		e.stale(ctx, token, "resolve")
		return
	}
	sel := e.view.Selection
	sel.Resolution = &resolution
	sel.Warnings = append(sel.Warnings, resolution.Warnings...)
	sel.Blocked = gate.Judge(resolution)
	if sel.Blocked != nil {
		sel.Resolving = false
		e.view.Version++
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	preview, err := e.deps.Quotes.Preview(ctx, e.cfg.CampgroundID, result.SiteID, result.Range)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.current(token) {
		e.stale(ctx, token, "quote")
		return
	}
	sel = e.view.Selection
	sel.Resolving = false
	if err != nil {
		sel.Quote = nil
		sel.Warnings = append(sel.Warnings, resolver.Warning{Code: resolver.WarnQuoteUnavailable, Message: "Pricing is unavailable for this selection."})
	} else {
		sel.Quote = &preview
	}
	e.view.Version++
}

func (e *Engine) change(ctx context.Context, token uint64, result drag.Result, res reservation.Reservation, inv reservation.Inventory) {
	if !result.Dragged || (result.SiteID == res.SiteID && result.Range.Equal(res.Range)) {
		e.mu.Lock()
		if e.current(token) {
			e.view.Focus = res.ID
			e.view.Version++
		}
		e.mu.Unlock()
		return
	}

	if b := gate.Screen(res, result.SiteID); b != nil {
		e.mu.Lock()
		if e.current(token) {
			e.block(res, result, b)
		}
		e.mu.Unlock()
		return
	}

	resolution := e.deps.Resolver.Resolve(ctx, resolver.Request{
		CampgroundID: e.cfg.CampgroundID,
		SiteID:       result.SiteID,
		Range:        result.Range,
		Reservation:  res.ID,
	}, inv)

	e.mu.Lock()
	if !e.current(token) {
		e.mu.Unlock()
		e.stale(ctx, token, "resolve")
		return
	}
	e.view.Warnings = append([]resolver.Warning(nil), resolution.Warnings...)
	if b := gate.Judge(resolution); b != nil {
		e.block(res, result, b)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	change, qerr := e.deps.Quotes.Change(ctx, e.cfg.CampgroundID, res, result.SiteID, result.Range)

	e.mu.Lock()
	if !e.current(token) {
		e.mu.Unlock()
		e.stale(ctx, token, "quote")
		return
	}
	if qerr != nil {
		e.view.Warnings = append(e.view.Warnings, resolver.Warning{Code: resolver.WarnQuoteUnavailable, Message: "Pricing is unavailable; confirm the change manually."})
	}
	e.mu.Unlock()

	outcome, err := e.gate.SubmitLive(ctx, change, func() bool { return e.current(token) })
	if errors.Is(err, gate.ErrSuperseded) {
		e.stale(ctx, token, "submit")
		return
	}

	e.mu.Lock()
	if !e.current(token) {
		if outcome.Pending != nil && e.gate.Withdraw(outcome.Key) {
			e.view.Gate = e.gate.State()
			e.view.Pending = nil
			e.view.Version++
		}
		e.mu.Unlock()
		if outcome.Result != nil {
			e.changed()
		}
		e.stale(ctx, token, "submit")
		return
	}
	e.apply(outcome, err)
	var b *gate.BlockedError
	if errors.As(err, &b) {
		e.recordBlocked(res, result, b)
	}
	e.mu.Unlock()
	if outcome.Result != nil {
		e.changed()
	}
}

// block records a refusal; caller holds e.mu.
func (e *Engine) block(res reservation.Reservation, result drag.Result, b *gate.BlockedError) {
	out := e.gate.Block(b)
	e.view.Gate = out.State
	e.view.Blocked = b
	e.view.Pending = nil
	e.view.Version++
	e.recordBlocked(res, result, b)
}

func (e *Engine) recordBlocked(res reservation.Reservation, result drag.Result, b *gate.BlockedError) {
	e.recorder.Record(domainavailability.MutationBlocked{
		SessionID:     e.cfg.SessionID,
		ReservationID: res.ID,
		SiteID:        result.SiteID,
		Range:         result.Range,
		Reason:        string(b.Reason),
		At:            e.now(),
	})
}

// apply copies a gate outcome into the view; caller holds e.mu.
func (e *Engine) apply(out gate.Outcome, err error) {
	e.view.Gate = e.gate.State()
	e.view.Pending = e.gate.Pending()
	if out.Blocked != nil {
		e.view.Blocked = out.Blocked
	}
	if out.Result != nil {
		e.view.LastMove = out.Result
	}
	if out.Intent != nil {
		e.view.Intent = out.Intent
	}
	var merr *gate.MutationError
	if errors.As(err, &merr) {
		e.view.Error = merr
	} else if err == nil {
		e.view.Error = nil
	}
	e.view.Version++
}

// ConfirmPending resolves an open confirmation along path ("collect" or
// "keep_price"). Extensions only accept collect.
func (e *Engine) ConfirmPending(ctx context.Context, path string) (View, error) {
	ctx = e.capability(ctx)
	var (
		out gate.Outcome
		err error
	)
	switch {
	case path == ConfirmKeepPrice:
		out, err = e.gate.KeepOriginalPrice(ctx)
	case path == ConfirmCollect && e.gate.State() == gate.StateExtendConfirmPending:
		out, err = e.gate.ConfirmExtension(ctx)
	case path == ConfirmCollect:
		out, err = e.gate.ConfirmAndCollect(ctx)
	default:
		return e.View(), ErrConfirmPath
	}
	if errors.Is(err, gate.ErrNothingPending) || errors.Is(err, gate.ErrWrongPath) ||
		errors.Is(err, gate.ErrBusy) || errors.Is(err, gate.ErrNotPermitted) {
		return e.View(), err
	}

	e.mu.Lock()
	e.apply(out, err)
	view := e.view.clone()
	e.mu.Unlock()
	if err != nil {
		return view, err
	}
	if out.Result != nil {
		e.changed()
	}
	e.flush(ctx)
	return view, nil
}

// CancelPending discards an open confirmation without issuing anything.
func (e *Engine) CancelPending() (View, bool) {
	ok := e.gate.Cancel()
	e.mu.Lock()
	defer e.mu.Unlock()
	if ok {
		e.view.Gate = e.gate.State()
		e.view.Pending = nil
		e.view.Version++
	}
	return e.view.clone(), ok
}

// CancelDrag drops an in-flight drag without finalizing it.
func (e *Engine) CancelDrag() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Cancel()
}

// ClearSelection removes the stored selection. Lookups still in flight for it
// are discarded; a drag in progress keeps its token.
func (e *Engine) ClearSelection() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.machine.Active() {
		e.seq.Next()
	}
	if e.view.Selection != nil {
		e.view.Selection = nil
		e.view.Version++
	}
	return e.view.clone()
}

// Hold places a hold on the current selection and clears it on success.
func (e *Engine) Hold(ctx context.Context) (View, error) {
	ctx = e.capability(ctx)
	sel, err := e.resolvedSelection()
	if err != nil {
		return e.View(), err
	}
	res, err := e.gate.Hold(ctx, *sel.Resolution, e.cfg.HoldMinutes)

	e.mu.Lock()
	if err != nil {
		var merr *gate.MutationError
		if errors.As(err, &merr) {
			e.view.Error = merr
			e.view.Version++
		}
		view := e.view.clone()
		e.mu.Unlock()
		return view, err
	}
	if e.current(sel.Token) {
		e.seq.Next()
		e.view.Selection = nil
	}
	e.view.Error = nil
	e.view.LastHold = res
	e.view.Version++
	view := e.view.clone()
	e.mu.Unlock()

	e.changed()
	e.flush(ctx)
	return view, nil
}

// CreateReservation hands the selection to the booking flow as an intent.
func (e *Engine) CreateReservation(ctx context.Context) (View, error) {
	ctx = e.capability(ctx)
	sel, err := e.resolvedSelection()
	if err != nil {
		return e.View(), err
	}
	intent, err := e.gate.CreateIntent(ctx, *sel.Resolution)
	if err != nil {
		return e.View(), err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.Intent = intent
	e.view.Version++
	return e.view.clone(), nil
}

// Split divides a reservation at the night at, moving the tail to target.
func (e *Engine) Split(ctx context.Context, id reservation.ID, at time.Time, target reservation.SiteID) (View, error) {
	ctx = e.capability(ctx)
	inv, err := e.inventory(ctx)
	if err != nil {
		return e.View(), err
	}
	res, ok := inv.Reservation(id)
	if !ok {
		return e.View(), ErrUnknownPill
	}
	segments, err := gate.SplitAt(res, at, target)
	if err != nil {
		return e.View(), err
	}
	out, err := e.gate.Split(ctx, res, segments)

	e.mu.Lock()
	var merr *gate.MutationError
	switch {
	case errors.As(err, &merr):
		e.view.Error = merr
		e.view.Version++
	case err == nil:
		e.view.Error = nil
		e.view.LastSplit = out
		e.view.Version++
	}
	view := e.view.clone()
	e.mu.Unlock()
	if err != nil {
		return view, err
	}
	e.changed()
	e.flush(ctx)
	return view, nil
}

// Grid paints the board with the stored selection and the reactive drag copy.
func (e *Engine) Grid(ctx context.Context) (dto.Grid, error) {
	e.mu.Lock()
	q := availability.GetGridQuery{
		CampgroundID: e.cfg.CampgroundID,
		Window:       e.cfg.Window,
		Today:        e.cfg.Today,
		Selection:    e.view.Selection.renderInput(),
		Drag:         e.view.Drag,
	}
	e.mu.Unlock()
	return queries.Ask[availability.GetGridQuery, dto.Grid](e.capability(ctx), e.deps.Queries, q)
}

// Invalidate drops the loaded board so the next interaction reads fresh data.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.loaded = false
	e.mu.Unlock()
}

// changed drops the loaded board after a committed change, along with the
// shared inventory every session on the campground reads through.
func (e *Engine) changed() {
	e.Invalidate()
	if e.deps.Invalidate != nil {
		e.deps.Invalidate(e.cfg.CampgroundID)
	}
}

func (e *Engine) resolvedSelection() (*Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sel := e.view.Selection
	switch {
	case sel == nil:
		return nil, ErrNoSelection
	case sel.Resolving && sel.Resolution == nil:
		return nil, ErrStillLoading
	case sel.Blocked != nil:
		return nil, sel.Blocked
	}
	s := *sel
	return &s, nil
}

func (e *Engine) inventory(ctx context.Context) (reservation.Inventory, error) {
	e.mu.Lock()
	if e.loaded {
		inv := e.inv
		e.mu.Unlock()
		return inv, nil
	}
	e.mu.Unlock()
	if e.deps.Inventory == nil {
		return reservation.Inventory{}, nil
	}
	inv, err := e.deps.Inventory.Inventory(ctx, e.cfg.CampgroundID, e.cfg.Window.Range())
	if err != nil {
		return reservation.Inventory{}, err
	}
	e.mu.Lock()
	e.inv = inv
	e.loaded = true
	e.mu.Unlock()
	return inv, nil
}

func (e *Engine) flush(ctx context.Context) {
	e.mu.Lock()
	evs := e.recorder.Drain()
	e.mu.Unlock()
	if len(evs) == 0 || e.deps.Outbox == nil {
		return
	}
	err := outbox.RecordDomainEvents(ctx, e.deps.Outbox, e.deps.Encoder, evs)
	if err == nil {
		err = e.deps.Outbox.Flush(ctx)
	}
	if err != nil && e.deps.Logger != nil {
		e.deps.Logger.WarnContext(ctx, "calendar events not recorded", "session_id", e.cfg.SessionID, "error", err)
	}
}

func (e *Engine) current(token uint64) bool { return e.seq.IsCurrent(token) }

func (e *Engine) stale(ctx context.Context, token uint64, step string) {
	if e.deps.Logger == nil {
		return
	}
	e.deps.Logger.DebugContext(ctx, "discarding stale result",
		"session_id", e.cfg.SessionID,
		"token", token,
		"step", step,
	)
}

func (e *Engine) capability(ctx context.Context) context.Context {
	return middleware.WithCapability(ctx, e.cfg.CanMutate)
}

func (e *Engine) now() time.Time {
	if e.deps.Clock != nil {
		return e.deps.Clock().UTC()
	}
	return time.Now().UTC()
}
