package relayboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/domain"
)

const (
	// readableTimeout bounds the full GET of the status page.
	readableTimeout = 3 * time.Second
	// opaqueTimeout bounds the fallback reachability dial.
	opaqueTimeout = 1 * time.Second
)

// Prober runs the two-tier connectivity check against the board. The
// board may be readable, reachable only at the socket level, or gone;
// the three cases map onto the three PollOutcome kinds. All errors are
// absorbed here — callers retry via their own polling cadence.
type Prober struct {
	httpClient *http.Client
	dial       func(ctx context.Context, addr string) error
	logger     *slog.Logger
}

func NewProber(logger *slog.Logger) *Prober {
	return &Prober{
		httpClient: &http.Client{Timeout: readableTimeout},
		dial:       dialTCP,
		logger:     logger,
	}
}

func dialTCP(ctx context.Context, addr string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// Probe checks the board at the given address. Tier 1 reads the status
// page and yields known relay states; tier 2 only proves the host
// answers on its socket. When both tiers fail, the tier-1 error is the
// cause carried to the user — it is the more informative of the two.
func (p *Prober) Probe(ctx context.Context, addr string) domain.PollOutcome {
	states, readErr := p.readStatus(ctx, addr)
	if readErr == nil {
		return domain.StatesKnown(states)
	}

	p.logger.Debug("readable probe failed, trying opaque fallback", "addr", addr, "error", readErr)

	dialCtx, cancel := context.WithTimeout(ctx, opaqueTimeout)
	defer cancel()

	if err := p.dial(dialCtx, dialAddr(addr)); err != nil {
		return domain.Unreachable(readErr)
	}
	return domain.ReachableOpaque()
}

func (p *Prober) readStatus(ctx context.Context, addr string) ([domain.RelayCount]bool, error) {
	var none [domain.RelayCount]bool

	reqCtx, cancel := context.WithTimeout(ctx, readableTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, BaseURL(addr)+"/", nil)
	if err != nil {
		return none, fmt.Errorf("creating status request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return none, fmt.Errorf("fetching status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return none, fmt.Errorf("status page returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return none, fmt.Errorf("reading status body: %w", err)
	}

	return ParseStatus(string(body)), nil
}
