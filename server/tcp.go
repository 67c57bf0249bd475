package server

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/fieldwire/gomodbus/mbap"
)

// TCPServer accepts Modbus TCP connections and dispatches each decoded
// request to a Service, one goroutine per connection. Grounded on
// mbserver/server.go's ModbusServer: acceptTCPClients/handleTCPClient,
// generalized from mbserver's four-method RequestHandler interface to
// the single plain Service callable spec.md §9 asks for.
type TCPServer struct {
	service Service
	cfg     config

	mu      sync.Mutex
	clients int
}

// NewTCPServer constructs a server that will invoke svc for every
// decoded request once Serve is called.
func NewTCPServer(svc Service, opts ...Option) *TCPServer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TCPServer{service: svc, cfg: cfg}
}

// Serve accepts connections on l (or a TLS-wrapped l, if WithTLSConfig
// was given) until l is closed or ctx is canceled. Each connection
// failure is isolated; Serve itself only returns when accept fails.
func (s *TCPServer) Serve(ctx context.Context, l net.Listener) error {
	if s.cfg.tlsConfig != nil {
		l = tls.NewListener(l, s.cfg.tlsConfig)
	}

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		if !s.acquireSlot() {
			s.cfg.logger.Warn("modbus: rejecting connection from %s: max clients reached", conn.RemoteAddr())
			conn.Close()
			continue
		}

		go s.handleConn(ctx, conn)
	}
}

func (s *TCPServer) acquireSlot() bool {
	if s.cfg.maxClients <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients >= s.cfg.maxClients {
		return false
	}
	s.clients++
	return true
}

func (s *TCPServer) releaseSlot() {
	if s.cfg.maxClients <= 0 {
		return
	}
	s.mu.Lock()
	s.clients--
	s.mu.Unlock()
}

func (s *TCPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer s.releaseSlot()

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)

	for {
		if s.cfg.timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(s.cfg.timeout))
		}
		n, err := conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
			for {
				frame, consumed, needMore, decErr := mbap.Decode(buf)
				if decErr != nil {
					s.cfg.logger.Warn("modbus: mbap framing error from %s, closing: %v", conn.RemoteAddr(), decErr)
					return
				}
				if needMore {
					break
				}
				buf = buf[consumed:]

				respPDU, drop := dispatch(ctx, s.service, frame.PDU)
				if drop {
					continue
				}
				out := mbap.Encode(frame.TransactionID, frame.UnitID, respPDU)
				if _, werr := conn.Write(out); werr != nil {
					s.cfg.logger.Warn("modbus: write error to %s: %v", conn.RemoteAddr(), werr)
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}
