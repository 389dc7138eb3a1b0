package bridge

import (
	"fmt"
	"time"
)

// KeyGenerationError reports a failure to create or load the bridge's SSH
// key pair. It aborts bridge startup but never the surrounding container
// session.
type KeyGenerationError struct {
	Dir string
	Err error
}

func (e *KeyGenerationError) Error() string {
	return fmt.Sprintf("ssh key setup in %s failed: %v", e.Dir, e.Err)
}

func (e *KeyGenerationError) Unwrap() error { return e.Err }

// PortUnavailableError reports that a listener port could not be bound.
// Callers may retry on a fallback port.
type PortUnavailableError struct {
	Port int
	Err  error
}

func (e *PortUnavailableError) Error() string {
	return fmt.Sprintf("port %d unavailable: %v", e.Port, e.Err)
}

func (e *PortUnavailableError) Unwrap() error { return e.Err }

// TunnelEstablishmentError reports that the reverse tunnel did not come up
// within its time budget. LastErr is the most recent observed failure.
type TunnelEstablishmentError struct {
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

func (e *TunnelEstablishmentError) Error() string {
	return fmt.Sprintf("tunnel not established after %d attempts in %s: %v",
		e.Attempts, e.Elapsed.Round(time.Millisecond), e.LastErr)
}

func (e *TunnelEstablishmentError) Unwrap() error { return e.LastErr }

// MalformedRequestError reports an unusable payload on a single bridge
// connection. It is logged and discarded; the listener keeps serving.
type MalformedRequestError struct {
	Bytes  int
	Reason string
}

func (e *MalformedRequestError) Error() string {
	return fmt.Sprintf("malformed bridge request (%d bytes): %s", e.Bytes, e.Reason)
}

// OpenFacilityError reports that handing a URL to the host opener failed.
type OpenFacilityError struct {
	URL string
	Err error
}

func (e *OpenFacilityError) Error() string {
	return fmt.Sprintf("open %q: %v", e.URL, e.Err)
}

func (e *OpenFacilityError) Unwrap() error { return e.Err }
