//go:build portaudio
// +build portaudio

package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Microphone is a local recognizer: portaudio capture chunked on
// silence, transcribed over HTTP, with the resulting text fed to the
// engine exactly like browser-recognized utterances.
type Microphone struct {
	stt        Transcriber
	sink       Sink
	sampleRate int
	logger     *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	cancel context.CancelFunc
}

const (
	framesPerBuffer  = 1024
	silenceThreshold = 500
)

func NewMicrophone(stt Transcriber, sampleRate int, logger *slog.Logger) *Microphone {
	return &Microphone{
		stt:        stt,
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// SetSink binds the consumer of recognition events. The sink is the
// voice engine, which is constructed after its recognizer, so binding
// happens in a second step. Must be called before Start.
func (m *Microphone) SetSink(sink Sink) {
	m.sink = sink
}

func (m *Microphone) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting input stream: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.stream = stream
	m.cancel = cancel

	go m.captureLoop(runCtx, stream, buffer)

	m.logger.Info("microphone recognizer started", "sampleRate", m.sampleRate)
	return nil
}

func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}

	m.cancel()
	m.stream.Stop()
	m.stream.Close()
	m.stream = nil
	portaudio.Terminate()
	return nil
}

// captureLoop collects samples until a stretch of silence closes the
// utterance, then hands the WAV framing to the transcriber. A stream
// read failure ends the session; the engine decides whether to restart.
func (m *Microphone) captureLoop(ctx context.Context, stream *portaudio.Stream, buffer []int16) {
	samples := make([]int16, 0, m.sampleRate*5)
	silentFrames := 0

	flush := func() {
		if len(samples) < m.sampleRate/2 {
			samples = samples[:0]
			return
		}
		audio := samplesToWAV(samples, m.sampleRate)
		samples = samples[:0]

		text, err := m.stt.Transcribe(ctx, audio)
		if err != nil {
			m.sink.HandleRecognitionError(fmt.Errorf("transcribing: %w", err))
			return
		}
		if text != "" {
			m.sink.HandleUtterance(text)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("microphone read failed, ending session", "error", err)
			m.sink.HandleSessionEnd()
			return
		}

		samples = append(samples, buffer...)

		if isSilent(buffer) {
			silentFrames += len(buffer)
		} else {
			silentFrames = 0
		}

		// A second of silence, or ten seconds of speech, closes the
		// current utterance.
		if silentFrames > m.sampleRate || len(samples) > m.sampleRate*10 {
			flush()
			silentFrames = 0
		}
	}
}

func isSilent(buffer []int16) bool {
	for _, s := range buffer {
		if s > silenceThreshold || s < -silenceThreshold {
			return false
		}
	}
	return true
}

func samplesToWAV(samples []int16, sampleRate int) []byte {
	var buf bytes.Buffer

	dataSize := len(samples) * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, int32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, int32(16))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int16(1))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, int32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, int16(2))
	binary.Write(&buf, binary.LittleEndian, int16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, int32(dataSize))
	for _, sample := range samples {
		binary.Write(&buf, binary.LittleEndian, sample)
	}

	return buf.Bytes()
}
