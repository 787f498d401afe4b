package tunnel

import (
	"errors"
	"fmt"
)

var (
	// ErrOutputParse matches any *OutputParseError.
	ErrOutputParse = errors.New("binary output parse error")
	// ErrHandshakeRejected matches any *HandshakeError.
	ErrHandshakeRejected = errors.New("tunnel handshake rejected")
)

// OutputParseError reports handshake output that is not valid JSON.
type OutputParseError struct {
	Raw string
	Err error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("error parsing JSON output from daemon. Raw String = %q", e.Raw)
}

func (e *OutputParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOutputParse}
	}
	return []error{ErrOutputParse, e.Err}
}

// HandshakeError reports a handshake whose state is not "connected", or a
// connected handshake that carried no PID.
type HandshakeError struct {
	State   string
	Message string
}

func (e *HandshakeError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("tunnel binary reported state %q", e.State)
}

func (e *HandshakeError) Unwrap() error {
	return ErrHandshakeRejected
}
