package gateway

// Inbound frame kinds, client to server.
const (
	KindStart  = "start"
	KindText   = "text"
	KindCancel = "cancel"
)

// Outbound frame kinds, server to client.
const (
	KindMessage = "message"
	KindChoices = "choices"
	KindTyping  = "typing"
	KindError   = "error"
)

// InboundFrame is one client event: start a conversation, deliver text
// to it, or cancel it.
type InboundFrame struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// OutboundFrame is one server event. Options is set only for choices
// frames; the client renders those however its UI allows, e.g. as
// quick-reply buttons.
type OutboundFrame struct {
	Kind    string   `json:"kind"`
	Text    string   `json:"text,omitempty"`
	Options []string `json:"options,omitempty"`
}
