package application

import (
	"context"
	"errors"
	"sync"
)

type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// FanoutNotifier delivers every notice to all registered targets. The
// zero value is usable and behaves like NoopNotifier until targets are
// added, which lets the reconciler be constructed before the channels
// that carry its notices exist.
type FanoutNotifier struct {
	mu      sync.Mutex
	targets []Notifier
}

// Add registers another delivery target. Call before the reconciler
// starts running.
func (f *FanoutNotifier) Add(n Notifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, n)
}

// Notify delivers the message to every target; one failing channel does
// not stop the others.
func (f *FanoutNotifier) Notify(ctx context.Context, message string) error {
	f.mu.Lock()
	targets := append([]Notifier(nil), f.targets...)
	f.mu.Unlock()

	var errs []error
	for _, t := range targets {
		if err := t.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
