package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/domain"
)

type fakeProber struct {
	mu      sync.Mutex
	outcome domain.PollOutcome
	calls   int
}

func (f *fakeProber) Probe(_ context.Context, _ string) domain.PollOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.outcome
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSender struct {
	mu        sync.Mutex
	toggleErr error
	toggles   []int
	texts     []string
	onToggle  func()
}

func (f *fakeSender) Toggle(_ context.Context, _ string, relay int) error {
	f.mu.Lock()
	f.toggles = append(f.toggles, relay)
	err := f.toggleErr
	hook := f.onToggle
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeSender) SetDisplayText(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeNotifier) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestReconciler(prober *fakeProber, sender *fakeSender, notifier *fakeNotifier, demo bool) *Reconciler {
	return NewReconciler(prober, sender, notifier, Settings{
		Address:  "192.168.4.1",
		DemoMode: demo,
	}, discardLogger())
}

func TestPollStatesKnownOverwritesRelays(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: domain.StatesKnown([domain.RelayCount]bool{true, false, true, false})}
	r := newTestReconciler(prober, &fakeSender{}, &fakeNotifier{}, false)

	r.poll(context.Background())

	snap := r.Snapshot()
	require.Equal(t, domain.StatusConnected, snap.Status)
	require.True(t, snap.Relays[0].On)
	require.False(t, snap.Relays[1].On)
	require.True(t, snap.Relays[2].On)
	require.False(t, snap.Relays[3].On)
}

func TestPollRestrictedKeepsLocalStates(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: domain.ReachableOpaque()}
	r := newTestReconciler(prober, &fakeSender{}, &fakeNotifier{}, false)
	r.relays[1].On = true

	r.poll(context.Background())

	snap := r.Snapshot()
	require.Equal(t, domain.StatusRestricted, snap.Status)
	require.True(t, snap.Relays[1].On, "local state is the only signal of truth and must survive")
}

func TestPollOfflineKeepsStatesAndNotifies(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: domain.Unreachable(errors.New("no route to host"))}
	notifier := &fakeNotifier{}
	r := newTestReconciler(prober, &fakeSender{}, notifier, false)
	r.relays[3].On = true

	r.poll(context.Background())

	snap := r.Snapshot()
	require.Equal(t, domain.StatusOffline, snap.Status)
	require.True(t, snap.Relays[3].On)
	require.NotEmpty(t, notifier.all())

	// A second offline poll is not a transition; no repeat notice.
	r.poll(context.Background())
	require.Len(t, notifier.all(), 1)
}

func TestRequestToggleOptimisticFlip(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	r := newTestReconciler(&fakeProber{outcome: domain.ReachableOpaque()}, sender, &fakeNotifier{}, false)

	require.NoError(t, r.RequestToggle(context.Background(), 2))

	snap := r.Snapshot()
	require.True(t, snap.Relays[2].On)
	require.False(t, snap.Relays[2].Pending)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Equal(t, []int{2}, sender.toggles)
}

func TestRequestToggleRollbackOnDispatchFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{toggleErr: errors.New("command dispatch failed")}
	notifier := &fakeNotifier{}
	r := newTestReconciler(&fakeProber{}, sender, notifier, false)

	err := r.RequestToggle(context.Background(), 0)
	require.Error(t, err)

	snap := r.Snapshot()
	require.False(t, snap.Relays[0].On, "optimistic flip must be reverted")
	require.False(t, snap.Relays[0].Pending)
	require.NotEmpty(t, notifier.all(), "dispatch failure surfaces a user notice")
}

func TestRequestToggleConfirmationOnlyWhenConnected(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: domain.StatesKnown([domain.RelayCount]bool{})}
	r := newTestReconciler(prober, &fakeSender{}, &fakeNotifier{}, false)
	r.poll(context.Background()) // status: connected

	require.NoError(t, r.RequestToggle(context.Background(), 1))

	select {
	case <-r.pollNow:
		// Confirmation poll requested.
	case <-time.After(2 * time.Second):
		t.Fatal("expected a confirmation poll after toggling while connected")
	}
}

func TestRequestToggleConfirmationWhenConnectionLandsMidFlight(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: domain.StatesKnown([domain.RelayCount]bool{})}
	sender := &fakeSender{}
	r := newTestReconciler(prober, sender, &fakeNotifier{}, false)
	require.Equal(t, domain.StatusConnecting, r.Snapshot().Status)

	// A poll lands a readable connection while the command is in flight.
	sender.onToggle = func() { r.poll(context.Background()) }

	require.NoError(t, r.RequestToggle(context.Background(), 1))
	require.Equal(t, domain.StatusConnected, r.Snapshot().Status)

	select {
	case <-r.pollNow:
		// Confirmation poll requested against the now-readable device.
	case <-time.After(2 * time.Second):
		t.Fatal("expected a confirmation poll when the connection became readable mid-toggle")
	}
}

func TestRequestToggleNoConfirmationWhenRestricted(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: domain.ReachableOpaque()}
	r := newTestReconciler(prober, &fakeSender{}, &fakeNotifier{}, false)
	r.poll(context.Background()) // status: restricted

	require.NoError(t, r.RequestToggle(context.Background(), 1))

	select {
	case <-r.pollNow:
		t.Fatal("restricted mode accepts the optimistic value; no confirmation poll")
	case <-time.After(confirmDelay * 3):
	}
}

func TestDemoModeNeverTouchesNetwork(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{}
	sender := &fakeSender{}
	r := newTestReconciler(prober, sender, &fakeNotifier{}, true)

	require.Equal(t, domain.StatusDemo, r.Snapshot().Status)

	r.poll(context.Background())
	require.Zero(t, prober.callCount())

	require.NoError(t, r.RequestToggle(context.Background(), 0))
	require.NoError(t, r.SetDisplayText(context.Background(), "hi"))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Empty(t, sender.toggles)
	require.Empty(t, sender.texts)

	// Demo toggles are final.
	require.True(t, r.Snapshot().Relays[0].On)
}

func TestRequestToggleOutOfRangeIsNoop(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	r := newTestReconciler(&fakeProber{}, sender, &fakeNotifier{}, false)

	require.NoError(t, r.RequestToggle(context.Background(), -1))
	require.NoError(t, r.RequestToggle(context.Background(), domain.RelayCount))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Empty(t, sender.toggles)

	for _, relay := range r.Snapshot().Relays {
		require.False(t, relay.On)
	}
}

func TestUpdateSettingsResetsStatusAndTriggersPoll(t *testing.T) {
	t.Parallel()

	r := newTestReconciler(&fakeProber{}, &fakeSender{}, &fakeNotifier{}, true)

	r.UpdateSettings(Settings{Address: "10.0.0.9", DemoMode: false})
	require.Equal(t, domain.StatusConnecting, r.Snapshot().Status)

	select {
	case <-r.pollNow:
	default:
		t.Fatal("expected an immediate poll trigger after a settings change")
	}
}

func TestSetDisplayTextPassesThrough(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	r := newTestReconciler(&fakeProber{}, sender, &fakeNotifier{}, false)

	require.NoError(t, r.SetDisplayText(context.Background(), "Back at 6pm"))

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Equal(t, []string{"Back at 6pm"}, sender.texts)
}

func TestRunPollsOnTrigger(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{outcome: domain.StatesKnown([domain.RelayCount]bool{})}
	r := newTestReconciler(prober, &fakeSender{}, &fakeNotifier{}, false)
	r.SetPollInterval(time.Hour) // only explicit triggers in this test

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	require.Eventually(t, func() bool { return prober.callCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	r.TriggerPoll()
	require.Eventually(t, func() bool { return prober.callCount() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
