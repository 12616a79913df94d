package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/domain"
)

const (
	// awakeWindow is how long after a wake trigger utterances are
	// treated as implicit commands. Renewable: every trigger re-arms
	// the full window.
	awakeWindow = 10 * time.Second
	// restartDelay paces automatic session restarts so a failing
	// recognizer cannot spin in a tight loop.
	restartDelay = 1 * time.Second
)

type ListenState string

const (
	ListenIdle      ListenState = "idle"
	ListenListening ListenState = "listening"
	// ListenDenied means microphone permission was refused; only an
	// explicit user retry leaves this state.
	ListenDenied ListenState = "denied"
)

// VoiceStatus is the engine's observable state, pushed to the UI.
type VoiceStatus struct {
	State      ListenState `json:"state"`
	AwakeUntil time.Time   `json:"awake_until"`
}

// relayControl is the slice of the reconciler the voice engine drives:
// current relay truth plus the toggle operation.
type relayControl interface {
	Relays() [domain.RelayCount]domain.RelayState
	RequestToggle(ctx context.Context, id int) error
}

// VoiceEngine gates relay commands behind a wake phrase with a
// renewable attention window, on top of a continuous recognition
// session that restarts itself for as long as listening is wanted.
type VoiceEngine struct {
	recognizer Recognizer
	relays     relayControl
	logger     *slog.Logger
	now        func() time.Time

	mu            sync.Mutex
	runCtx        context.Context
	state         ListenState
	wantListening bool
	awakeUntil    time.Time
	restartTimer  *time.Timer
	onStatus      func(VoiceStatus)
}

func NewVoiceEngine(recognizer Recognizer, relays relayControl, logger *slog.Logger) *VoiceEngine {
	return &VoiceEngine{
		recognizer: recognizer,
		relays:     relays,
		logger:     logger,
		now:        time.Now,
		state:      ListenIdle,
	}
}

// SetOnStatus registers the observer for listening-state and awake
// transitions. Call before the engine is started.
func (e *VoiceEngine) SetOnStatus(fn func(VoiceStatus)) {
	e.onStatus = fn
}

// Status returns the current listening state and awake deadline.
func (e *VoiceEngine) Status() VoiceStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return VoiceStatus{State: e.state, AwakeUntil: e.awakeUntil}
}

// ToggleListening starts the recognition session when idle or denied,
// and stops it when listening. A denied engine can only leave that
// state through here.
func (e *VoiceEngine) ToggleListening(ctx context.Context) error {
	e.mu.Lock()
	if e.state == ListenListening {
		e.wantListening = false
		e.state = ListenIdle
		e.awakeUntil = time.Time{}
		e.stopRestartLocked()
		e.mu.Unlock()

		err := e.recognizer.Stop()
		e.emitStatus()
		return err
	}

	e.wantListening = true
	e.runCtx = ctx
	e.mu.Unlock()

	if err := e.recognizer.Start(ctx); err != nil {
		e.mu.Lock()
		e.wantListening = false
		if errors.Is(err, ErrVoicePermissionDenied) {
			e.state = ListenDenied
		} else {
			e.state = ListenIdle
		}
		e.mu.Unlock()
		e.emitStatus()
		return err
	}

	e.mu.Lock()
	e.state = ListenListening
	e.mu.Unlock()
	e.emitStatus()
	return nil
}

// HandleSessionEnd reacts to the recognition session finishing on its
// own. While listening is still wanted the session is restarted after a
// grace delay; otherwise the engine goes idle.
func (e *VoiceEngine) HandleSessionEnd() {
	e.mu.Lock()
	if !e.wantListening {
		if e.state == ListenListening {
			e.state = ListenIdle
		}
		e.mu.Unlock()
		e.emitStatus()
		return
	}

	ctx := e.runCtx
	e.stopRestartLocked()
	e.restartTimer = time.AfterFunc(restartDelay, func() { e.restart(ctx) })
	e.mu.Unlock()

	e.logger.Debug("recognition session ended, restart scheduled")
}

func (e *VoiceEngine) restart(ctx context.Context) {
	e.mu.Lock()
	if !e.wantListening || ctx == nil || ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	err := e.recognizer.Start(ctx)
	if err == nil {
		return
	}

	if errors.Is(err, ErrVoicePermissionDenied) {
		e.HandleRecognitionError(err)
		return
	}

	e.logger.Warn("recognition restart failed, retrying", "error", err)
	e.HandleSessionEnd()
}

// HandleRecognitionError classifies recognition errors. Permission
// denial tears the session down until the user retries; everything else
// (momentary silence, dropped audio) is ignored so continuous listening
// stays uninterrupted.
func (e *VoiceEngine) HandleRecognitionError(err error) {
	if !errors.Is(err, ErrVoicePermissionDenied) {
		e.logger.Debug("transient recognition error ignored", "error", err)
		return
	}

	e.mu.Lock()
	e.wantListening = false
	e.state = ListenDenied
	e.awakeUntil = time.Time{}
	e.stopRestartLocked()
	e.mu.Unlock()

	e.logger.Warn("voice permission denied, listening disabled until retry")
	e.emitStatus()
}

// HandleUtterance classifies one finalized utterance. Wake triggers
// re-arm the awake window and are immediately scanned for a command in
// the same phrase; inside an open window every utterance is an implicit
// command; outside it, non-wake utterances are dropped.
func (e *VoiceEngine) HandleUtterance(text string) {
	e.mu.Lock()
	if e.state != ListenListening {
		e.mu.Unlock()
		return
	}

	normalized := normalizeUtterance(text)
	now := e.now()
	woke := isWakeTrigger(normalized)
	awake := now.Before(e.awakeUntil)

	if woke {
		e.awakeUntil = now.Add(awakeWindow)
	}
	ctx := e.runCtx
	e.mu.Unlock()

	if woke {
		e.logger.Info("wake trigger", "text", normalized)
		e.emitStatus()
	} else if !awake {
		return
	}

	e.runCommand(ctx, normalized)
}

func (e *VoiceEngine) runCommand(ctx context.Context, text string) {
	cmd, ok := ParseCommand(text)
	if !ok {
		return
	}

	wantOn := cmd.Action == domain.ActionOn
	relays := e.relays.Relays()
	if relays[cmd.Relay].On == wantOn {
		// Idempotent intent: the relay is already in the asked-for
		// state, so no toggle is issued.
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	e.logger.Info("voice command", "relay", cmd.Relay, "action", cmd.Action)
	if err := e.relays.RequestToggle(ctx, cmd.Relay); err != nil {
		e.logger.Error("voice toggle failed", "relay", cmd.Relay, "error", err)
	}
}

func (e *VoiceEngine) stopRestartLocked() {
	if e.restartTimer != nil {
		e.restartTimer.Stop()
		e.restartTimer = nil
	}
}

func (e *VoiceEngine) emitStatus() {
	if e.onStatus != nil {
		e.onStatus(e.Status())
	}
}
