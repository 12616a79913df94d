//go:build !portaudio
// +build !portaudio

package speech

import (
	"context"
	"fmt"
	"log/slog"
)

// Microphone stub when portaudio is not compiled in.
type Microphone struct{}

func NewMicrophone(_ Transcriber, _ int, _ *slog.Logger) *Microphone {
	return &Microphone{}
}

func (m *Microphone) SetSink(_ Sink) {}

func (m *Microphone) Start(_ context.Context) error {
	return fmt.Errorf("microphone recognizer not available: rebuild with -tags portaudio")
}

func (m *Microphone) Stop() error {
	return nil
}
