package bridge

// Event names the runner emits.
const (
	eventQR            = "qr"
	eventAuthenticated = "authenticated"
	eventReady         = "ready"
	eventAuthFailure   = "auth_failure"
	eventDisconnected  = "disconnected"
	eventResult        = "result"
)

// Command actions the core sends.
const (
	actionSend = "send"
)

// eventFrame is one runner → core line. Payload carries the QR string or
// a failure reason depending on the event; result frames echo the
// command id instead.
type eventFrame struct {
	Event   string       `json:"event"`
	Payload string       `json:"payload,omitempty"`
	Info    *accountInfo `json:"info,omitempty"`
	ID      string       `json:"id,omitempty"`
	OK      bool         `json:"ok,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// accountInfo is the connected-account identity the runner reports on
// the ready event.
type accountInfo struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// commandFrame is one core → runner line.
type commandFrame struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
	Body   string `json:"body,omitempty"`
}
