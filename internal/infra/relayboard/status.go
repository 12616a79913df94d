package relayboard

import (
	"fmt"
	"strings"

	"github.com/Coder-MayankSaini/Iot-smarthub/internal/domain"
)

// ParseStatus extracts per-relay states from the board's status page.
// The firmware prints one line per relay in the form "Relay N: ON" /
// "Relay N: OFF" with 1-based N; a relay the page does not mention is
// reported as off. Pure and total: any input yields four booleans.
func ParseStatus(body string) [domain.RelayCount]bool {
	lower := strings.ToLower(body)

	var states [domain.RelayCount]bool
	for i := range states {
		states[i] = strings.Contains(lower, fmt.Sprintf("relay %d: on", i+1))
	}
	return states
}
