package okx

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/gorilla/websocket"
)

// ErrorKind decides what the stream client does after its connection ends.
type ErrorKind int

const (
	// KindTransient errors are retried after the reconnect backoff.
	KindTransient ErrorKind = iota
	// KindFatal errors end the client; restarting it is up to the owner.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var ErrStreamFailed = errors.New("okx stream failed")

// SubscribeError is returned when the venue answers the subscription with an error event.
type SubscribeError struct {
	Code string
	Msg  string
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("subscription rejected: code=%s msg=%s", e.Code, e.Msg)
}

// Classify sorts connection errors into the ones worth a reconnect and the ones that are not.
// Closed connections, refused or reset dials, timeouts and sequence gaps are transient.
// Everything else is fatal.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindTransient
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return KindTransient
	}

	switch {
	case errors.Is(err, ErrOutOfSequence),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE):
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}

	return KindFatal
}
