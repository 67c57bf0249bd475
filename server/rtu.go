package server

import (
	"context"
	"io"
	"time"

	"github.com/fieldwire/gomodbus/modbus"
	"github.com/fieldwire/gomodbus/rtu"
)

// deadliner is implemented by net.Conn and by any stream exposing
// SetDeadline (a raw go.bug.st/serial port does not); Serve applies the
// configured per-read timeout only when the underlying stream supports it.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// RTUServer serves Modbus RTU requests over a single duplex stream
// (an attached serial port, or any io.ReadWriter standing in for one
// in tests). New per spec.md §4.6 step 2 and §4.4: neither the teacher
// nor Moonlight-Companies-gomodbus implements an RTU server, so this
// is built directly from spec.md, reusing the rtu package's codec and
// length oracle the client side also uses.
type RTUServer struct {
	service Service
	unitID  modbus.UnitID
	cfg     config
}

// NewRTUServer constructs a server that answers requests addressed to
// unitID (plus broadcast) on whatever stream Serve is given.
func NewRTUServer(svc Service, unitID modbus.UnitID, opts ...Option) *RTUServer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RTUServer{service: svc, unitID: unitID, cfg: cfg}
}

// Serve reads and dispatches requests from rw until ctx is canceled or
// a read error occurs.
func (s *RTUServer) Serve(ctx context.Context, rw io.ReadWriter) error {
	buf := make([]byte, 0, 512)
	tmp := make([]byte, 512)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.cfg.timeout > 0 {
			if d, ok := rw.(deadliner); ok {
				_ = d.SetDeadline(time.Now().Add(s.cfg.timeout))
			}
		}
		n, err := rw.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				frame, consumed, needMore, decErr := rtu.Decode(buf, requestLengthFn)
				buf = buf[consumed:]
				if decErr != nil {
					s.cfg.logger.Warn("modbus: rtu resync failed: %v", decErr)
					break
				}
				if needMore {
					break
				}

				if frame.UnitID != s.unitID && frame.UnitID != modbus.Broadcast {
					continue
				}

				respPDU, drop := dispatch(ctx, s.service, frame.PDU)
				if drop || frame.UnitID == modbus.Broadcast {
					continue
				}
				if _, werr := rw.Write(rtu.Encode(s.unitID, respPDU)); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			return err
		}
	}
}

func requestLengthFn(window []byte) (int, bool, error) {
	if len(window) < 2 {
		return 0, false, nil
	}
	fc := modbus.FunctionCode(window[1])
	return rtu.ExpectedRequestLength(fc, window[2:])
}
