package relayboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// ErrDispatch marks a command that could not be put on the wire at all.
// It is the only command-path failure callers are expected to act on.
var ErrDispatch = errors.New("command dispatch failed")

const (
	// commandGrace bounds how long a fire-and-forget command may keep
	// its caller waiting. Once it elapses the command counts as sent.
	commandGrace = 2 * time.Second

	// displayTextLimit is the board's LCD capacity in characters.
	displayTextLimit = 32
)

// Transport sends state-changing requests to the board. The firmware
// answers both commands with a redirect the hub cannot usefully read,
// so delivery is assumed once a request is dispatched: responses are
// drained and discarded, and only dial-level failures are reported.
type Transport struct {
	httpClient *http.Client
	logger     *slog.Logger
	lastToken  atomic.Int64
}

func NewTransport(logger *slog.Logger) *Transport {
	return &Transport{
		httpClient: &http.Client{Timeout: commandGrace},
		logger:     logger,
	}
}

// Toggle flips one relay. The cache-defeating token is strictly
// increasing so no intermediate cache can shortcut a repeated toggle.
func (t *Transport) Toggle(ctx context.Context, addr string, relay int) error {
	target := fmt.Sprintf("%s/toggle?r=%d&t=%d", BaseURL(addr), relay, t.nextToken())
	return t.send(ctx, http.MethodGet, target, "", nil)
}

// SetDisplayText replaces the board's LCD contents. Text beyond the
// display capacity is truncated before sending.
func (t *Transport) SetDisplayText(ctx context.Context, addr, text string) error {
	if runes := []rune(text); len(runes) > displayTextLimit {
		text = string(runes[:displayTextLimit])
	}

	form := url.Values{}
	form.Set("text", text)

	return t.send(ctx, http.MethodPost, BaseURL(addr)+"/lcd",
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

func (t *Transport) send(ctx context.Context, method, target, contentType string, body io.Reader) error {
	reqCtx, cancel := context.WithTimeout(ctx, commandGrace)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The grace period elapsing after dispatch is not a failure:
		// the board often answers with a reply we cannot read in time,
		// and the command has already left the building.
		if errors.Is(err, context.DeadlineExceeded) {
			t.logger.Debug("command response not read within grace period, assuming sent", "url", target)
			return nil
		}
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	defer resp.Body.Close()

	// Status and body are intentionally ignored; the redirect the
	// firmware sends carries no usable signal.
	io.Copy(io.Discard, resp.Body)

	return nil
}

// nextToken returns a strictly increasing cache-busting token, seeded
// from the wall clock.
func (t *Transport) nextToken() int64 {
	for {
		now := time.Now().UnixMilli()
		last := t.lastToken.Load()
		if now <= last {
			now = last + 1
		}
		if t.lastToken.CompareAndSwap(last, now) {
			return now
		}
	}
}
