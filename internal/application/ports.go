package application

import (
	"context"
	"errors"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/domain"
)

// Prober answers the three-way question "can the board be read, only
// reached, or neither". Implementations absorb their own errors into
// the outcome; the reconciler never sees a raw probe failure.
type Prober interface {
	Probe(ctx context.Context, addr string) domain.PollOutcome
}

// CommandSender dispatches fire-and-forget commands to the board.
type CommandSender interface {
	Toggle(ctx context.Context, addr string, relay int) error
	SetDisplayText(ctx context.Context, addr, text string) error
}

// Recognizer manages a continuous speech-recognition session. Events
// (utterances, session end, errors) flow back through the VoiceEngine's
// Handle methods rather than through this interface.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
}

// ErrVoicePermissionDenied is reported by recognizers when the user (or
// their browser) refuses microphone access. It is terminal for the
// session until the user explicitly retries.
var ErrVoicePermissionDenied = errors.New("voice recognition permission denied")
