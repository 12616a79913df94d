package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/domain"
)

const (
	// DefaultPollInterval is the cadence of the connectivity poll loop.
	DefaultPollInterval = 5 * time.Second
	// confirmDelay is how long after a toggle the reconciler waits
	// before re-reading device truth on a readable connection.
	confirmDelay = 500 * time.Millisecond
	// demoDisplayDelay simulates the board accepting display text when
	// no real device is attached.
	demoDisplayDelay = 300 * time.Millisecond
)

// Settings is the runtime device configuration the reconciler acts on.
// Address must already be normalized (bare host[:port], no scheme).
type Settings struct {
	Address  string
	DemoMode bool
}

// Snapshot is the read-only view handed to observers.
type Snapshot struct {
	Status domain.ConnectivityStatus             `json:"status"`
	Relays [domain.RelayCount]domain.RelayState `json:"relays"`
}

// Reconciler owns relay state and connectivity status. It is the single
// writer of both: polls, toggles and settings changes all funnel through
// its mutex, so observers only ever see consistent snapshots.
type Reconciler struct {
	prober   Prober
	sender   CommandSender
	notifier Notifier
	logger   *slog.Logger

	pollInterval time.Duration
	pollNow      chan struct{}

	mu           sync.Mutex
	settings     Settings
	status       domain.ConnectivityStatus
	relays       [domain.RelayCount]domain.RelayState
	onChange     func(Snapshot)
	confirmTimer *time.Timer
}

func NewReconciler(prober Prober, sender CommandSender, notifier Notifier, settings Settings, logger *slog.Logger) *Reconciler {
	r := &Reconciler{
		prober:       prober,
		sender:       sender,
		notifier:     notifier,
		logger:       logger,
		pollInterval: DefaultPollInterval,
		pollNow:      make(chan struct{}, 1),
		settings:     settings,
		status:       domain.StatusConnecting,
		relays:       domain.NewRelayStates(),
	}
	if settings.DemoMode {
		r.status = domain.StatusDemo
	}
	return r
}

// SetPollInterval overrides the poll cadence. Call before Run.
func (r *Reconciler) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

// SetOnChange registers the observer called after every state change.
// The callback runs outside the reconciler's lock. Call before Run.
func (r *Reconciler) SetOnChange(fn func(Snapshot)) {
	r.onChange = fn
}

// Snapshot returns the current status and relay states.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{Status: r.status, Relays: r.relays}
}

// Relays returns the current relay states.
func (r *Reconciler) Relays() [domain.RelayCount]domain.RelayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.relays
}

// Run drives the poll loop: one poll immediately, then one per tick or
// explicit trigger. Polling is single-flight by construction — the loop
// never starts a probe before the previous one has returned. Blocks
// until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) error {
	defer r.stopConfirmTimer()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.poll(ctx)
		case <-r.pollNow:
			r.poll(ctx)
		}
	}
}

// TriggerPoll requests an immediate poll without waiting for the next
// tick. Coalesces with an already-pending trigger.
func (r *Reconciler) TriggerPoll() {
	select {
	case r.pollNow <- struct{}{}:
	default:
	}
}

// UpdateSettings swaps the device address or demo mode at runtime and
// forces a fresh poll against the new target.
func (r *Reconciler) UpdateSettings(settings Settings) {
	r.mu.Lock()
	r.settings = settings
	if settings.DemoMode {
		r.status = domain.StatusDemo
		for i := range r.relays {
			r.relays[i].Pending = false
		}
	} else {
		r.status = domain.StatusConnecting
	}
	r.mu.Unlock()

	r.stopConfirmTimer()
	r.emit()
	r.TriggerPoll()
}

func (r *Reconciler) poll(ctx context.Context) {
	r.mu.Lock()
	settings := r.settings
	r.mu.Unlock()

	if settings.DemoMode {
		// Demo is pinned: no network I/O ever happens.
		return
	}

	outcome := r.prober.Probe(ctx, settings.Address)

	r.mu.Lock()
	if r.settings != settings {
		// Settings changed while the probe was in flight; the result
		// belongs to the old target and a fresh poll is already queued.
		r.mu.Unlock()
		return
	}

	prev := r.status
	switch outcome.Kind {
	case domain.OutcomeStatesKnown:
		for i := range r.relays {
			r.relays[i].On = outcome.States[i]
		}
		r.status = domain.StatusConnected
	case domain.OutcomeReachableOpaque:
		// Reachable but unreadable: local relay state is the only
		// signal of truth, so it is left alone.
		r.status = domain.StatusRestricted
	case domain.OutcomeUnreachable:
		r.status = domain.StatusOffline
	}
	status := r.status
	r.mu.Unlock()

	if status != prev {
		r.logger.Info("connectivity changed", "from", prev, "to", status)
		if status == domain.StatusOffline {
			r.logger.Warn("device unreachable", "addr", settings.Address, "cause", outcome.Cause)
			r.notify(ctx, fmt.Sprintf("Device %s is unreachable", settings.Address))
		}
	}

	r.emit()
}

// RequestToggle flips one relay, optimistically and immediately. The
// flip is reverted only if the command could not be dispatched at all.
// Out-of-range ids are a no-op.
func (r *Reconciler) RequestToggle(ctx context.Context, id int) error {
	if !domain.ValidRelayID(id) {
		return nil
	}

	r.mu.Lock()
	settings := r.settings
	r.relays[id].On = !r.relays[id].On

	if settings.DemoMode {
		// Demo toggles are local and final.
		r.mu.Unlock()
		r.emit()
		return nil
	}

	r.relays[id].Pending = true
	label := r.relays[id].Label
	r.mu.Unlock()
	r.emit()

	err := r.sender.Toggle(ctx, settings.Address, id)

	r.mu.Lock()
	r.relays[id].Pending = false
	if err != nil {
		r.relays[id].On = !r.relays[id].On
		r.mu.Unlock()
		r.emit()

		r.logger.Error("toggle command failed", "relay", id, "error", err)
		r.notify(ctx, fmt.Sprintf("Could not switch %s: device did not accept the command", label))
		return fmt.Errorf("toggling relay %d: %w", id, err)
	}
	// The status is re-read after the send: a poll may have landed a
	// readable connection while the command was in flight.
	status := r.status
	r.mu.Unlock()
	r.emit()

	// Only a readable connection can confirm the toggle; in restricted
	// mode the optimistic value stands as ground truth.
	if status == domain.StatusConnected {
		r.scheduleConfirm()
	}
	return nil
}

// SetDisplayText pushes text to the board's LCD. Relay state is never
// affected; failures surface only as a notice.
func (r *Reconciler) SetDisplayText(ctx context.Context, text string) error {
	r.mu.Lock()
	settings := r.settings
	r.mu.Unlock()

	if settings.DemoMode {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(demoDisplayDelay):
		}
		return nil
	}

	if err := r.sender.SetDisplayText(ctx, settings.Address, text); err != nil {
		r.logger.Error("display text command failed", "error", err)
		r.notify(ctx, "Could not update the device display")
		return fmt.Errorf("setting display text: %w", err)
	}
	return nil
}

// scheduleConfirm arms a one-shot confirmation poll, superseding any
// previous one so overlapping confirm timers never stack up.
func (r *Reconciler) scheduleConfirm() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.confirmTimer != nil {
		r.confirmTimer.Stop()
	}
	r.confirmTimer = time.AfterFunc(confirmDelay, r.TriggerPoll)
}

func (r *Reconciler) stopConfirmTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.confirmTimer != nil {
		r.confirmTimer.Stop()
		r.confirmTimer = nil
	}
}

func (r *Reconciler) emit() {
	if r.onChange != nil {
		r.onChange(r.Snapshot())
	}
}

func (r *Reconciler) notify(ctx context.Context, message string) {
	if err := r.notifier.Notify(ctx, message); err != nil {
		r.logger.Error("sending notice", "error", err)
	}
}
