package domain

type RelayAction string

const (
	ActionOn  RelayAction = "on"
	ActionOff RelayAction = "off"
)

// VoiceCommand is an extracted relay command. The action is an intended
// target state, not a blind flip: callers only toggle when the relay's
// current state differs.
type VoiceCommand struct {
	Relay  int
	Action RelayAction
}
