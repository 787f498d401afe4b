package tunnel

import (
	"encoding/json"
	"fmt"
)

// StateConnected is the handshake state reported on success.
const StateConnected = "connected"

// Handshake is the decoded startup message of the daemon.
type Handshake struct {
	State   string `json:"state"`
	PID     *int   `json:"pid,omitempty"`
	Message *struct {
		Message string `json:"message"`
	} `json:"message,omitempty"`
}

// HandshakeOutput picks the captured stream that carries the handshake:
// stdout, or stderr when stdout is empty.
func HandshakeOutput(stdout, stderr []byte) string {
	if len(stdout) > 0 {
		return string(stdout)
	}
	return string(stderr)
}

// ParseHandshake decodes and validates the daemon handshake and returns the
// reported PID.
func ParseHandshake(stdout, stderr []byte) (int, error) {
	raw := HandshakeOutput(stdout, stderr)
	var hs Handshake
	if err := json.Unmarshal([]byte(raw), &hs); err != nil {
		return 0, &OutputParseError{Raw: raw, Err: err}
	}
	if hs.State != StateConnected {
		msg := ""
		if hs.Message != nil {
			msg = hs.Message.Message
		}
		return 0, &HandshakeError{State: hs.State, Message: msg}
	}
	if hs.PID == nil {
		return 0, &HandshakeError{State: hs.State, Message: "tunnel binary reported connected without a pid"}
	}
	if *hs.PID <= 0 {
		return 0, &HandshakeError{State: hs.State, Message: fmt.Sprintf("tunnel binary reported invalid pid %d", *hs.PID)}
	}
	return *hs.PID, nil
}
