package client

import (
	"context"
	"io"
	"time"
)

// deadliner is implemented by net.Conn and by serialPortWrapper, which
// OpenSerial puts around a go.bug.st/serial port. Streams without a
// SetDeadline method get no deadline and no stale-byte drain.
type deadliner interface {
	SetDeadline(t time.Time) error
}

func deadlineFor(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Time{}
}

func setDeadline(conn io.ReadWriteCloser, t time.Time) {
	if t.IsZero() {
		return
	}
	if d, ok := conn.(deadliner); ok {
		_ = d.SetDeadline(t)
	}
}

// drainStale discards whatever is currently sitting unread on conn,
// per spec.md §4.4: "before sending a new request, the client SHOULD
// clear any stale bytes from the receive buffer". Grounded on
// rtu_transport.go's discard(), adapted from a fixed 500µs physical
// debounce to a short non-blocking drain suited to an in-memory test
// double as well as a real port.
func drainStale(conn io.ReadWriteCloser) {
	d, ok := conn.(deadliner)
	if !ok {
		return
	}
	_ = d.SetDeadline(time.Now().Add(500 * time.Microsecond))
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			break
		}
	}
}
