package server

import (
	"crypto/tls"
	"time"

	"github.com/fieldwire/gomodbus/modbus"
)

// Option configures a TCPServer or RTUServer. Grounded on mbserver's
// functional-options constructors (Logger(...), Timeout(...),
// MaxClients(...)).
type Option func(*config)

type config struct {
	logger     modbus.Logger
	timeout    time.Duration
	maxClients int
	tlsConfig  *tls.Config
}

func defaultConfig() config {
	return config{
		logger:     modbus.NopLogger,
		timeout:    10 * time.Second,
		maxClients: 0, // unlimited
	}
}

// WithLogger sets the server's logger.
func WithLogger(l modbus.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithTimeout sets the per-request read/write deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithMaxClients bounds the number of concurrent TCP connections; 0
// means unlimited. Ignored by RTUServer, which always serves a single
// stream.
func WithMaxClients(n int) Option {
	return func(c *config) { c.maxClients = n }
}

// WithTLSConfig enables TLS on a TCPServer's listener. tlsConfig is
// handed to tls.NewListener verbatim; the teacher's hand-rolled
// certificate-pinning helper (tls_utils.go) is dropped in favor of
// this, since tls.Config already expresses what it built (see
// DESIGN.md).
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *config) { c.tlsConfig = tlsConfig }
}
