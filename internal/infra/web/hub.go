package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/application"
	"github.com/Coder-MayankSaini/Iot-smarthub/internal/infra/relayboard"
	"github.com/Coder-MayankSaini/Iot-smarthub/internal/infra/speech"
)

// Request is one inbound client message. At most one field is set.
type Request struct {
	Toggle      *int             `json:"toggle,omitempty"`
	DisplayText *string          `json:"display_text,omitempty"`
	Settings    *SettingsRequest `json:"settings,omitempty"`
	VoiceToggle bool             `json:"voice_toggle,omitempty"`
	Utterance   *string          `json:"utterance,omitempty"`
	VoiceError  *string          `json:"voice_error,omitempty"`
	VoiceEnded  bool             `json:"voice_ended,omitempty"`
}

// SettingsRequest changes the device target at runtime.
type SettingsRequest struct {
	Address  string `json:"address"`
	DemoMode bool   `json:"demo_mode"`
}

// Message is one outbound frame to every connected client.
type Message struct {
	Device       *application.Snapshot    `json:"device,omitempty"`
	Voice        *application.VoiceStatus `json:"voice,omitempty"`
	VoiceControl string                   `json:"voice_control,omitempty"`
	Notice       string                   `json:"notice,omitempty"`
}

// Hub is the browser-facing surface: a websocket stream pushing device
// and voice state to read-only observers, and the ingress for the
// operations the page may invoke. The page renders; the hub and the
// components behind it decide.
type Hub struct {
	addr       string
	reconciler *application.Reconciler
	logger     *slog.Logger

	voiceMu sync.RWMutex
	voice   *application.VoiceEngine

	runCtx context.Context
	server *http.Server
	mux    *http.ServeMux

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	running bool
}

var upgrader = websocket.Upgrader{
	// The appliance LAN is trusted and the hub does no authentication.
	CheckOrigin: func(*http.Request) bool { return true },
}

func NewHub(addr string, reconciler *application.Reconciler, logger *slog.Logger) *Hub {
	h := &Hub{
		addr:       addr,
		reconciler: reconciler,
		logger:     logger,
		mux:        http.NewServeMux(),
		clients:    make(map[*websocket.Conn]bool),
	}
	h.mux.HandleFunc("GET /ws", h.handleWS)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	return h
}

// SetVoiceEngine wires the voice engine in after construction; the
// engine's recognizer broadcasts through this hub, so the two are
// created in that order.
func (h *Hub) SetVoiceEngine(engine *application.VoiceEngine) {
	h.voiceMu.Lock()
	h.voice = engine
	h.voiceMu.Unlock()
}

func (h *Hub) voiceEngine() *application.VoiceEngine {
	h.voiceMu.RLock()
	defer h.voiceMu.RUnlock()
	return h.voice
}

func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}

	h.runCtx = ctx
	h.server = &http.Server{
		Addr:        h.addr,
		Handler:     h.mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		h.logger.Info("web hub listening", "addr", h.addr)
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("web hub server error", "error", err)
		}
	}()

	h.running = true
	return nil
}

func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = false
	server := h.server
	for c := range h.clients {
		c.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func (h *Hub) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// New observers immediately see the current world.
	snapshot := h.reconciler.Snapshot()
	first := Message{Device: &snapshot}
	if engine := h.voiceEngine(); engine != nil {
		status := engine.Status()
		first.Voice = &status
	}
	h.writeTo(conn, first)

	go h.readLoop(conn)
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			h.logger.Debug("client disconnected", "error", err)
			return
		}
		h.dispatch(req)
	}
}

func (h *Hub) dispatch(req Request) {
	ctx := h.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	engine := h.voiceEngine()

	switch {
	case req.Toggle != nil:
		id := *req.Toggle
		go func() {
			if err := h.reconciler.RequestToggle(ctx, id); err != nil {
				h.logger.Error("toggle request failed", "relay", id, "error", err)
			}
		}()

	case req.DisplayText != nil:
		text := *req.DisplayText
		go func() {
			if err := h.reconciler.SetDisplayText(ctx, text); err != nil {
				h.logger.Error("display text request failed", "error", err)
			}
		}()

	case req.Settings != nil:
		h.reconciler.UpdateSettings(application.Settings{
			Address:  relayboard.NormalizeAddress(req.Settings.Address),
			DemoMode: req.Settings.DemoMode,
		})

	case req.VoiceToggle:
		if engine == nil {
			return
		}
		go func() {
			if err := engine.ToggleListening(ctx); err != nil {
				h.logger.Warn("voice toggle failed", "error", err)
			}
		}()

	case req.Utterance != nil:
		if engine != nil {
			engine.HandleUtterance(*req.Utterance)
		}

	case req.VoiceError != nil:
		if engine != nil {
			engine.HandleRecognitionError(speech.MapBrowserError(*req.VoiceError))
		}

	case req.VoiceEnded:
		if engine != nil {
			engine.HandleSessionEnd()
		}
	}
}

// BroadcastSnapshot pushes a device state change to every client.
// Wired as the reconciler's change observer.
func (h *Hub) BroadcastSnapshot(snapshot application.Snapshot) {
	h.broadcast(Message{Device: &snapshot})
}

// BroadcastVoiceStatus pushes a voice state change to every client.
func (h *Hub) BroadcastVoiceStatus(status application.VoiceStatus) {
	h.broadcast(Message{Voice: &status})
}

// BroadcastVoiceControl tells browser clients to start or stop their
// local recognizer. Wired as the remote recognizer's send function.
func (h *Hub) BroadcastVoiceControl(control string) {
	h.broadcast(Message{VoiceControl: control})
}

// BroadcastNotice shows a transient notice on every client.
func (h *Hub) BroadcastNotice(notice string) {
	h.broadcast(Message{Notice: notice})
}

// Notify implements the reconciler's notice channel: failures the user
// must see land on every connected client.
func (h *Hub) Notify(_ context.Context, message string) error {
	h.BroadcastNotice(message)
	return nil
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("dropping client", "error", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) writeTo(conn *websocket.Conn, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.clients, conn)
}
