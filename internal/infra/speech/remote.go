package speech

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/application"
)

// Remote is the recognizer backing browser-side speech recognition.
// The actual session lives in the page; Start and Stop broadcast
// control messages telling connected clients to run or drop their
// recognizer, and the clients report utterances, session ends and
// errors back over the websocket.
type Remote struct {
	send   func(control string)
	logger *slog.Logger
}

// Control messages understood by the browser client.
const (
	ControlStart = "start"
	ControlStop  = "stop"
)

func NewRemote(send func(control string), logger *slog.Logger) *Remote {
	return &Remote{send: send, logger: logger}
}

func (r *Remote) Start(_ context.Context) error {
	r.logger.Debug("requesting browser recognition start")
	r.send(ControlStart)
	return nil
}

func (r *Remote) Stop() error {
	r.logger.Debug("requesting browser recognition stop")
	r.send(ControlStop)
	return nil
}

// MapBrowserError converts a Web Speech API error code reported by the
// client into the engine's error taxonomy.
func MapBrowserError(code string) error {
	switch code {
	case "not-allowed", "service-not-allowed":
		return application.ErrVoicePermissionDenied
	default:
		return fmt.Errorf("recognition error: %s", code)
	}
}
