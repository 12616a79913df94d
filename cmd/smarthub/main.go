package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Coder-MayankSaini/Iot-smarthub/config"
	"github.com/Coder-MayankSaini/Iot-smarthub/internal/application"
	"github.com/Coder-MayankSaini/Iot-smarthub/internal/infra/pushover"
	"github.com/Coder-MayankSaini/Iot-smarthub/internal/infra/relayboard"
	"github.com/Coder-MayankSaini/Iot-smarthub/internal/infra/speech"
	"github.com/Coder-MayankSaini/Iot-smarthub/internal/infra/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	// Notices always reach connected browsers; pushover is an extra
	// channel when configured. The hub joins the fanout further down,
	// once it exists.
	notices := &application.FanoutNotifier{}
	if cfg.Pushover.Enabled {
		notices.Add(pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey))
	}

	reconciler := application.NewReconciler(
		relayboard.NewProber(logger),
		relayboard.NewTransport(logger),
		notices,
		application.Settings{
			Address:  relayboard.NormalizeAddress(cfg.Device.Address),
			DemoMode: cfg.Device.DemoMode,
		},
		logger,
	)
	reconciler.SetPollInterval(cfg.PollIntervalDuration(application.DefaultPollInterval))

	hub := web.NewHub(cfg.Web.Addr, reconciler, logger)
	reconciler.SetOnChange(hub.BroadcastSnapshot)
	notices.Add(hub)

	recognizer, mic := createRecognizer(cfg.Voice, hub, logger)
	engine := application.NewVoiceEngine(recognizer, reconciler, logger)
	engine.SetOnStatus(hub.BroadcastVoiceStatus)
	if mic != nil {
		mic.SetSink(engine)
	}
	hub.SetVoiceEngine(engine)

	if err := hub.Start(ctx); err != nil {
		logger.Error("starting web hub", "error", err)
		os.Exit(1)
	}
	defer hub.Stop()

	logger.Info("starting smarthub",
		"device", cfg.Device.Address,
		"demo", cfg.Device.DemoMode,
		"recognizer", cfg.Voice.Recognizer,
	)

	if err := reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("reconciler error", "error", err)
		os.Exit(1)
	}
}

// createRecognizer picks where speech recognition runs. The microphone
// path needs a speech-to-text key and the portaudio build tag; the
// default lets the browser's recognizer do the work. The second return
// is non-nil for the microphone so its event sink can be bound once the
// engine exists.
func createRecognizer(cfg config.VoiceConfig, hub *web.Hub, logger *slog.Logger) (application.Recognizer, *speech.Microphone) {
	switch cfg.Recognizer {
	case "microphone":
		stt := speech.NewWhisperClient(cfg.OpenAIKey, cfg.Language)
		mic := speech.NewMicrophone(stt, cfg.SampleRate, logger)
		return mic, mic
	case "remote":
		return speech.NewRemote(hub.BroadcastVoiceControl, logger), nil
	default:
		logger.Warn("unknown recognizer, using remote", "recognizer", cfg.Recognizer)
		return speech.NewRemote(hub.BroadcastVoiceControl, logger), nil
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
