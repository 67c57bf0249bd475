// Package client implements the Modbus client transaction engine: an
// asynchronous, non-blocking Client usable over both TCP (MBAP,
// multiplexed by transaction id) and RTU (serial, single in-flight
// request), plus a thin synchronous Blocking wrapper over it.
package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fieldwire/gomodbus/mbap"
	"github.com/fieldwire/gomodbus/modbus"
	"github.com/fieldwire/gomodbus/rtu"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithLogger sets the logger used for warnings (TCP responses for an
// unknown transaction id, MBAP decode errors).
func WithLogger(l modbus.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout sets the default per-call timeout used when the caller's
// context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUnitID sets the initial unit id (overridable later via SetSlave).
func WithUnitID(id modbus.UnitID) Option {
	return func(c *Client) { c.unitID = id }
}

// Client is the asynchronous Modbus client engine (spec.md §4.5). TCP
// connections multiplex up to 65536 concurrent in-flight requests by
// transaction id; RTU connections allow at most one in-flight request.
type Client struct {
	logger  modbus.Logger
	timeout time.Duration

	conn  io.ReadWriteCloser
	isRTU bool

	muUnit sync.Mutex
	unitID modbus.UnitID

	writeMu sync.Mutex
	pool    *transactionPool // TCP only; nil for RTU

	rtuMu sync.Mutex // RTU only: serializes calls, at most one in flight

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

func newClient(conn io.ReadWriteCloser, isRTU bool, opts []Option) *Client {
	c := &Client{
		logger:  modbus.NopLogger,
		timeout: 1 * time.Second,
		conn:    conn,
		isRTU:   isRTU,
		closed:  make(chan struct{}),
	}
	if !isRTU {
		c.pool = newTransactionPool()
	}
	for _, opt := range opts {
		opt(c)
	}
	if !isRTU {
		go c.tcpReadLoop()
	}
	return c
}

// SetSlave changes the unit id subsequent calls are addressed to.
func (c *Client) SetSlave(id modbus.UnitID) {
	c.muUnit.Lock()
	c.unitID = id
	c.muUnit.Unlock()
}

func (c *Client) currentUnit() modbus.UnitID {
	c.muUnit.Lock()
	defer c.muUnit.Unlock()
	return c.unitID
}

// Disconnect runs the Disconnect poison pill: it closes the underlying
// transport and fails every pending TCP transaction with
// ErrConnectionReset. It is idempotent.
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.closeErr = c.conn.Close()
		if c.pool != nil {
			c.pool.failAll(modbus.ErrConnectionReset)
		}
	})
	return c.closeErr
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Call is the generic escape hatch: encode req, submit it to the
// transaction layer, and return the decoded response (or exception, or
// transport error).
func (c *Client) Call(ctx context.Context, req modbus.Request) (*modbus.Response, error) {
	if req.IsDisconnect() {
		return nil, c.Disconnect()
	}
	if c.isClosed() {
		return nil, modbus.ErrConnectionReset
	}

	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	if c.isRTU {
		return c.callRTU(ctx, req)
	}
	return c.callTCP(ctx, req)
}

func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) callTCP(ctx context.Context, req modbus.Request) (*modbus.Response, error) {
	pdu, err := modbus.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	t := newTransaction(req)
	id := c.pool.place(t)
	frame := mbap.Encode(id, c.currentUnit(), pdu)

	c.writeMu.Lock()
	_, err = c.conn.Write(frame)
	c.writeMu.Unlock()
	if err != nil {
		c.pool.release(id)
		return nil, err
	}

	resp, err := t.wait(ctx)
	if err != nil {
		c.pool.release(id)
		return nil, err
	}
	return resp, nil
}

func (c *Client) callRTU(ctx context.Context, req modbus.Request) (*modbus.Response, error) {
	c.rtuMu.Lock()
	defer c.rtuMu.Unlock()

	pdu, err := modbus.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	unit := c.currentUnit()
	drainStale(c.conn)
	setDeadline(c.conn, deadlineFor(ctx))

	frame := rtu.Encode(unit, pdu)
	c.writeMu.Lock()
	_, err = c.conn.Write(frame)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	if unit == modbus.Broadcast {
		// Broadcast completes on write, per spec.md §4.5/§5.
		return nil, nil
	}

	return c.readRTUResponse(ctx, req)
}

func (c *Client) readRTUResponse(ctx context.Context, req modbus.Request) (*modbus.Response, error) {
	lengthFn := func(window []byte) (int, bool, error) {
		if len(window) < 2 {
			return 0, false, nil
		}
		responseFc := modbus.FunctionCode(window[1])
		haveByteCount := len(window) >= 3
		var byteCountByte byte
		if haveByteCount {
			byteCountByte = window[2]
		}
		return rtu.ExpectedResponseLength(req.FunctionCode(), responseFc, byteCountByte, haveByteCount)
	}

	buf := make([]byte, 0, 256)
	tmp := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return nil, modbus.ErrTimeout
		default:
		}

		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			frame, consumed, needMore, decErr := rtu.Decode(buf, lengthFn)
			if decErr != nil {
				return nil, decErr
			}
			buf = buf[consumed:]
			if !needMore {
				return modbus.DecodeResponse(frame.PDU, req)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", modbus.ErrConnectionReset, err)
		}
	}
}

func (c *Client) tcpReadLoop() {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				frame, consumed, needMore, decErr := mbap.Decode(buf)
				if decErr != nil {
					c.logger.Warn("modbus: mbap decode error, dropping buffer: %v", decErr)
					buf = buf[:0]
					break
				}
				if needMore {
					break
				}
				buf = buf[consumed:]
				c.dispatch(frame)
			}
		}
		if err != nil {
			if c.pool != nil {
				c.pool.failAll(fmt.Errorf("%w: %v", modbus.ErrConnectionReset, err))
			}
			return
		}
	}
}

func (c *Client) dispatch(frame mbap.Frame) {
	t, ok := c.pool.get(frame.TransactionID)
	if !ok {
		c.logger.Warn("modbus: dropping response for unknown transaction id %d", frame.TransactionID)
		return
	}
	c.pool.release(frame.TransactionID)
	resp, err := modbus.DecodeResponse(frame.PDU, t.request)
	t.complete(resp, err)
}
