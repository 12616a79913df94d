package domain

// RelayCount is fixed by the appliance hardware: four binary relays.
const RelayCount = 4

// RelayState is the hub's view of one relay. Mutated only by the
// connection reconciler.
type RelayState struct {
	ID      int    `json:"id"`
	Label   string `json:"label"`
	On      bool   `json:"on"`
	Pending bool   `json:"pending"`
}

// DefaultRelayLabels maps relay ids 0..3 to the rooms they switch.
var DefaultRelayLabels = [RelayCount]string{
	"Living Room",
	"Bedroom",
	"Kitchen",
	"Heater",
}

// NewRelayStates returns the fixed four-relay collection, all off.
func NewRelayStates() [RelayCount]RelayState {
	var relays [RelayCount]RelayState
	for i := range relays {
		relays[i] = RelayState{ID: i, Label: DefaultRelayLabels[i]}
	}
	return relays
}

// ValidRelayID reports whether id addresses one of the four relays.
// Out-of-range ids are treated as no-ops everywhere, never as errors.
func ValidRelayID(id int) bool {
	return id >= 0 && id < RelayCount
}

type ConnectivityStatus string

const (
	StatusConnecting ConnectivityStatus = "connecting"
	StatusConnected  ConnectivityStatus = "connected"
	// StatusRestricted means the device is reachable but its response
	// cannot be read, so local relay state is trusted over remote truth.
	StatusRestricted ConnectivityStatus = "restricted"
	StatusOffline    ConnectivityStatus = "offline"
	StatusDemo       ConnectivityStatus = "demo"
)

type PollOutcomeKind string

const (
	OutcomeStatesKnown     PollOutcomeKind = "states_known"
	OutcomeReachableOpaque PollOutcomeKind = "reachable_opaque"
	OutcomeUnreachable     PollOutcomeKind = "unreachable"
)

// PollOutcome is the three-way result of a connectivity probe. Consumed
// once by the reconciler, never persisted.
type PollOutcome struct {
	Kind   PollOutcomeKind
	States [RelayCount]bool // valid only for OutcomeStatesKnown
	Cause  error            // valid only for OutcomeUnreachable
}

func StatesKnown(states [RelayCount]bool) PollOutcome {
	return PollOutcome{Kind: OutcomeStatesKnown, States: states}
}

func ReachableOpaque() PollOutcome {
	return PollOutcome{Kind: OutcomeReachableOpaque}
}

func Unreachable(cause error) PollOutcome {
	return PollOutcome{Kind: OutcomeUnreachable, Cause: cause}
}
