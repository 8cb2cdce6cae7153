package entity

// ControlAction names a message sent from the control surface to the agent.
type ControlAction string

const (
	ActionToggleBlocking ControlAction = "toggleBlocking"
	ActionToggleMode     ControlAction = "toggleMode"
)

// ControlMessage is delivered fire-and-forget over the control channel.
// toggleBlocking carries IsEnabled and optionally Mode; toggleMode carries Mode.
type ControlMessage struct {
	Action    ControlAction `json:"action"`
	IsEnabled *bool         `json:"isEnabled,omitempty"`
	Mode      Mode          `json:"mode,omitempty"`
}

// ToggleBlocking builds a toggleBlocking message. mode may be empty.
func ToggleBlocking(enabled bool, mode Mode) ControlMessage {
	return ControlMessage{Action: ActionToggleBlocking, IsEnabled: &enabled, Mode: mode}
}

// ToggleMode builds a toggleMode message.
func ToggleMode(mode Mode) ControlMessage {
	return ControlMessage{Action: ActionToggleMode, Mode: mode}
}
