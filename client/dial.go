package client

import (
	"io"
	"net"
	"time"

	"go.bug.st/serial"

	"github.com/fieldwire/gomodbus/modbus"
)

// Dial opens a Modbus TCP connection and returns a Client multiplexing
// requests over it by transaction id. Grounded on client.go's
// NewClient/Open TCP path, trimmed from URL-scheme dispatch to a direct
// constructor (see DESIGN.md).
func Dial(network, addr string, opts ...Option) (*Client, error) {
	conn, err := net.DialTimeout(network, addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return newClient(conn, false, opts), nil
}

// Attach wraps an already-open duplex stream as an RTU client context.
// It performs no I/O and therefore never fails, matching spec.md §6's
// `attach(transport, unit_id) -> Context` contract.
func Attach(rw io.ReadWriteCloser, unitID modbus.UnitID, opts ...Option) *Client {
	opts = append([]Option{WithUnitID(unitID)}, opts...)
	return newClient(rw, true, opts)
}

// SerialConfig configures the serial port OpenSerial opens before
// attaching an RTU context to it.
type SerialConfig struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   serial.Parity
	StopBits serial.StopBits
}

// DefaultSerialConfig mirrors the teacher's RTU scheme defaults
// (client.go's NewClient, rtu:// branch): 19200 bps, 8 data bits, no
// parity, 2 stop bits (the Modbus-over-serial convention when parity is
// none).
func DefaultSerialConfig(port string) SerialConfig {
	return SerialConfig{
		Port:     port,
		BaudRate: 19200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}
}

// OpenSerial opens a serial port via go.bug.st/serial and attaches an
// RTU client context to it.
func OpenSerial(cfg SerialConfig, unitID modbus.UnitID, opts ...Option) (*Client, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, err
	}
	return Attach(&serialPortWrapper{port: port}, unitID, opts...), nil
}

// serialPortWrapper adapts a go.bug.st/serial.Port (which exposes
// SetReadTimeout, not SetDeadline) to this package's deadliner
// interface. Grounded on serial.go's serialPortWrapper, which solves
// the identical problem for the goburrow/serial port type: it translates
// an absolute deadline into the duration-based timeout the underlying
// driver understands. A Read issued after the deadline has passed
// returns modbus.ErrTimeout without touching the port.
type serialPortWrapper struct {
	port     serial.Port
	deadline time.Time
}

func (w *serialPortWrapper) Read(p []byte) (int, error) {
	if !w.deadline.IsZero() && time.Now().After(w.deadline) {
		return 0, modbus.ErrTimeout
	}
	return w.port.Read(p)
}

func (w *serialPortWrapper) Write(p []byte) (int, error) {
	return w.port.Write(p)
}

func (w *serialPortWrapper) Close() error {
	return w.port.Close()
}

func (w *serialPortWrapper) SetDeadline(deadline time.Time) error {
	w.deadline = deadline
	if deadline.IsZero() {
		return w.port.SetReadTimeout(-1)
	}
	timeout := time.Until(deadline)
	if timeout < 0 {
		timeout = 0
	}
	return w.port.SetReadTimeout(timeout)
}
