// Package gate decides whether a finalized interaction commits at once, waits
// for a price confirmation, or is refused, and issues the resulting change
// requests.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campcal/internal/app/commands"
	"campcal/internal/app/handlers/reservations"
	"campcal/internal/app/middleware"
	"campcal/internal/app/resolver"
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

type State string

const (
	StateIdle                 State = "idle"
	StateBlocked              State = "blocked"
	StateExtendConfirmPending State = "extend_confirm_pending"
	StateMoveConfirmPending   State = "move_confirm_pending"
	StateCommitting           State = "committing"
	StateCommitted            State = "committed"
	StateCancelled            State = "cancelled"
)

type FollowOn string

const (
	FollowOnNone              FollowOn = "none"
	FollowOnCollectPayment    FollowOn = "collect_payment"
	FollowOnCreateReservation FollowOn = "create_reservation"
)

// Intent is the navigation the caller should perform after a commit.
type Intent struct {
	FollowOn      FollowOn
	ReservationID reservation.ID
	SiteID        reservation.SiteID
	Range         daterange.DateRange
	AmountCents   int64
}

type Outcome struct {
	State   State
	Blocked *BlockedError
	Pending *pricing.PendingChange
	// Key identifies the opened confirmation for Withdraw.
	Key    string
	Result *reservations.MoveReservationResult
	Intent *Intent
}

// Gate holds the confirmation state of one calendar session. Its methods are
// safe to call concurrently; the bus is never called with the lock held.
type Gate struct {
	Bus    commands.Bus
	Logger *slog.Logger
	NewKey func() string

	mu         sync.Mutex
	state      State
	pending    *pricing.PendingChange
	pendingKey string
	last       *BlockedError
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == "" {
		return StateIdle
	}
	return g.state
}

func (g *Gate) Pending() *pricing.PendingChange {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	p := *g.pending
	return &p
}

func (g *Gate) LastBlock() *BlockedError {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Open reports whether a confirmation is waiting or a commit is in flight.
func (g *Gate) Open() bool {
	switch g.State() {
	case StateExtendConfirmPending, StateMoveConfirmPending, StateCommitting:
		return true
	default:
		return false
	}
}

// Screen applies the checks that need no lookups. A checked-in stay is
// refused here, before any quote is requested.
func Screen(res reservation.Reservation, target reservation.SiteID) *BlockedError {
	switch res.Status {
	case reservation.StatusCheckedIn:
		return blocked(ReasonCheckedIn, "Guest is already checked in; this stay cannot be moved from the calendar.")
	case reservation.StatusCheckedOut, reservation.StatusCancelled:
		return blocked(ReasonNotMovable, fmt.Sprintf("A %s reservation cannot be changed.", res.Status))
	}
	if res.SiteLocked && target != res.SiteID {
		return blocked(ReasonSiteLocked, "This reservation is locked to its site.")
	}
	return nil
}

// Judge turns a positive resolver finding into a refusal.
func Judge(r resolver.Resolution) *BlockedError {
	switch {
	case r.Conflict:
		return blocked(ReasonConflict, "These dates overlap another reservation on this site.")
	case len(r.Blackouts) > 0:
		msg := "The site is closed for part of these dates."
		if reason := r.Blackouts[0].Reason; reason != "" {
			msg = fmt.Sprintf("The site is closed for part of these dates (%s).", reason)
		}
		return blocked(ReasonBlackout, msg)
	case r.Unavailable:
		return blocked(ReasonUnavailable, "The site is not available for these dates.")
	default:
		return nil
	}
}

// Block records a refusal. Nothing is issued.
func (g *Gate) Block(b *BlockedError) Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateBlocked
	g.pending = nil
	g.last = b
	return Outcome{State: StateBlocked, Blocked: b}
}

// Submit routes a priced change: zero-delta moves commit immediately,
// everything else waits for confirmation.
func (g *Gate) Submit(ctx context.Context, change pricing.PendingChange) (Outcome, error) {
	return g.SubmitLive(ctx, change, nil)
}

// SubmitLive is Submit for a change whose interaction can be superseded.
// live is checked under the gate lock before a confirmation opens or a
// commit starts; once it reports false the change is dropped with
// ErrSuperseded.
func (g *Gate) SubmitLive(ctx context.Context, change pricing.PendingChange, live func() bool) (Outcome, error) {
	if change.Unchanged() {
		g.reset(StateIdle)
		return Outcome{State: StateIdle}, nil
	}
	if b := Screen(change.Reservation, change.TargetSite); b != nil {
		return g.Block(b), b
	}
	decision := change.Decision()
	trace.SpanFromContext(ctx).AddEvent("gate.submit", trace.WithAttributes(
		attribute.String("reservation_id", string(change.Reservation.ID)),
		attribute.String("decision", string(decision)),
		attribute.Int64("delta_cents", change.Delta.Amount),
	))

	g.mu.Lock()
	if g.state == StateCommitting {
		g.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if live != nil && !live() {
		g.mu.Unlock()
		return Outcome{}, ErrSuperseded
	}
	g.last = nil
	if decision == pricing.DecisionCommit {
		g.mu.Unlock()
		return g.commit(ctx, change, g.newKey(), false, FollowOnNone)
	}
	state := StateMoveConfirmPending
	if decision == pricing.DecisionConfirmExtension {
		state = StateExtendConfirmPending
	}
	g.state = state
	g.pending = &change
	g.pendingKey = g.newKey()
	key := g.pendingKey
	g.mu.Unlock()

	p := change
	return Outcome{State: state, Pending: &p, Key: key}, nil
}

// ConfirmExtension commits a pending extension and asks for payment of the delta.
func (g *Gate) ConfirmExtension(ctx context.Context) (Outcome, error) {
	return g.confirm(ctx, StateExtendConfirmPending, false, FollowOnCollectPayment)
}

// ConfirmAndCollect commits a pending move and asks for payment of the delta.
func (g *Gate) ConfirmAndCollect(ctx context.Context) (Outcome, error) {
	return g.confirm(ctx, StateMoveConfirmPending, false, FollowOnCollectPayment)
}

// KeepOriginalPrice commits a pending move with no follow-on.
func (g *Gate) KeepOriginalPrice(ctx context.Context) (Outcome, error) {
	return g.confirm(ctx, StateMoveConfirmPending, true, FollowOnNone)
}

// Cancel discards the pending change without issuing anything.
func (g *Gate) Cancel() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil || g.state == StateCommitting {
		return false
	}
	g.pending = nil
	g.pendingKey = ""
	g.state = StateCancelled
	return true
}

// Withdraw drops the confirmation opened under key and returns to idle. A
// confirmation opened since under another key is left alone.
func (g *Gate) Withdraw(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil || g.state == StateCommitting || g.pendingKey != key {
		return false
	}
	g.pending = nil
	g.pendingKey = ""
	g.state = StateIdle
	return true
}

// Reset clears a finished or refused outcome before the next interaction.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateCommitting || g.pending != nil {
		return
	}
	g.state = StateIdle
	g.last = nil
}

func (g *Gate) confirm(ctx context.Context, want State, keptPrice bool, follow FollowOn) (Outcome, error) {
	g.mu.Lock()
	switch {
	case g.state == StateCommitting:
		g.mu.Unlock()
		return Outcome{}, ErrBusy
	case g.pending == nil:
		g.mu.Unlock()
		return Outcome{}, ErrNothingPending
	case g.state != want:
		g.mu.Unlock()
		return Outcome{}, ErrWrongPath
	}
	change := *g.pending
	key := g.pendingKey
	g.mu.Unlock()
	return g.commit(ctx, change, key, keptPrice, follow)
}

func (g *Gate) commit(ctx context.Context, change pricing.PendingChange, key string, keptPrice bool, follow FollowOn) (Outcome, error) {
	if !middleware.CanMutate(ctx) {
		return Outcome{}, ErrNotPermitted
	}
	if b := Screen(change.Reservation, change.TargetSite); b != nil {
		g.reset(StateIdle)
		return g.Block(b), b
	}

	g.mu.Lock()
	if g.state == StateCommitting {
		g.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	g.state = StateCommitting
	g.mu.Unlock()

	cmd := reservations.MoveReservationCommand{
		ReservationID:   change.Reservation.ID,
		FromSite:        change.Reservation.SiteID,
		FromRange:       change.Reservation.Range,
		SiteID:          change.TargetSite,
		Range:           change.Range,
		DeltaCents:      change.Delta.Amount,
		KeptPrice:       keptPrice,
		IdempotencyKeyV: key,
	}
	res, err := commands.Dispatch[reservations.MoveReservationCommand, *reservations.MoveReservationResult](ctx, g.Bus, cmd)
	if err != nil {
		g.reset(StateIdle)
		g.log(ctx, "reservation change failed", change, err)
		return Outcome{}, &MutationError{Op: "move", Err: err}
	}

	g.reset(StateCommitted)
	trace.SpanFromContext(ctx).AddEvent("gate.committed", trace.WithAttributes(
		attribute.String("reservation_id", string(change.Reservation.ID)),
		attribute.Bool("kept_price", keptPrice),
	))

	out := Outcome{State: StateCommitted, Result: res}
	if follow == FollowOnCollectPayment {
		// A confirmed change always reports its follow-on, even when there is
		// nothing to collect.
		out.Intent = &Intent{
			FollowOn:      FollowOnNone,
			ReservationID: change.Reservation.ID,
			SiteID:        change.TargetSite,
			Range:         change.Range,
		}
		if change.Delta.IsPositive() {
			out.Intent.FollowOn = FollowOnCollectPayment
			out.Intent.AmountCents = change.Delta.Amount
		}
	}
	return out, nil
}

func (g *Gate) reset(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
	g.pending = nil
	g.pendingKey = ""
}

func (g *Gate) newKey() string {
	if g.NewKey != nil {
		return g.NewKey()
	}
	return uuid.NewString()
}

func (g *Gate) log(ctx context.Context, msg string, change pricing.PendingChange, err error) {
	if g.Logger == nil {
		return
	}
	g.Logger.WarnContext(ctx, msg,
		"reservation_id", string(change.Reservation.ID),
		"site_id", string(change.TargetSite),
		"range", change.Range.String(),
		"error", err,
	)
}
