package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Default link budgets.
const (
	DefaultPrintTimeout = 5 * time.Second
	DefaultPingTimeout  = 2 * time.Second
	DefaultPort         = 9100
)

var (
	// ErrUnreachable is returned when the printer refuses or drops the connection.
	ErrUnreachable = errors.New("printer unreachable")
	// ErrTimeout is returned when connecting or writing exceeds the budget.
	ErrTimeout = errors.New("printer timed out")
	// ErrNoAddress is returned when a destination has no host configured.
	ErrNoAddress = errors.New("printer address not configured")
)

// Address is a raw-port network printer endpoint.
type Address struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// String returns host:port.
func (a Address) String() string {
	port := a.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(a.Host, strconv.Itoa(port))
}

// IsZero reports whether no host is set.
func (a Address) IsZero() bool {
	return a.Host == ""
}

// LinkError describes a failed send or ping. errors.Is matches it against
// ErrTimeout or ErrUnreachable.
type LinkError struct {
	Op   string
	Addr string
	Kind error
	Err  error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("printer: %s %s: %v: %v", e.Op, e.Addr, e.Kind, e.Err)
}

func (e *LinkError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsTimeout reports whether err is a printer timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Transport delivers encoded command streams to a printer.
type Transport interface {
	// Send opens a connection, writes data in full and closes.
	Send(ctx context.Context, addr Address, data []byte) error
	// Ping sends only the initialize command with the ping budget.
	Ping(ctx context.Context, addr Address) error
	// Logo returns the cached logo raster, or nil when none is loaded.
	Logo() *Raster
}

// LinkConfig configures a network Link.
type LinkConfig struct {
	PrintTimeout time.Duration
	PingTimeout  time.Duration
	LogoPath     string
	DisableLogo  bool
}

// --- Network Link (one TCP connection per job, e.g. 192.168.1.100:9100) ---

// Link is a raw TCP printer client. It holds the rasterized logo, computed
// once at construction and read-only afterward.
type Link struct {
	printTimeout time.Duration
	pingTimeout  time.Duration
	logo         *Raster
	logger       *zap.Logger
}

// NewLink creates a network Link. A logo that fails to load is logged and
// tickets print without it.
func NewLink(cfg LinkConfig, logger *zap.Logger) *Link {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Link{
		printTimeout: cfg.PrintTimeout,
		pingTimeout:  cfg.PingTimeout,
		logger:       logger.Named("printer"),
	}
	if l.printTimeout <= 0 {
		l.printTimeout = DefaultPrintTimeout
	}
	if l.pingTimeout <= 0 {
		l.pingTimeout = DefaultPingTimeout
	}

	if !cfg.DisableLogo {
		logo, err := LoadLogo(cfg.LogoPath)
		if err != nil {
			l.logger.Warn("logo unavailable, printing without it", zap.Error(err))
		} else {
			l.logo = logo
		}
	}
	return l
}

// Logo returns the cached logo raster.
func (l *Link) Logo() *Raster {
	return l.logo
}

// Send writes data to addr within the print timeout.
func (l *Link) Send(ctx context.Context, addr Address, data []byte) error {
	return l.write(ctx, "send", addr, data, l.printTimeout)
}

// Ping writes only ESC @ within the ping timeout.
func (l *Link) Ping(ctx context.Context, addr Address) error {
	return l.write(ctx, "ping", addr, []byte{ESC, '@'}, l.pingTimeout)
}

func (l *Link) write(ctx context.Context, op string, addr Address, data []byte, timeout time.Duration) error {
	if addr.IsZero() {
		return &LinkError{Op: op, Addr: addr.String(), Kind: ErrUnreachable, Err: ErrNoAddress}
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		return classify(op, addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return classify(op, addr, err)
	}
	if _, err := conn.Write(data); err != nil {
		return classify(op, addr, err)
	}

	l.logger.Debug("printer write complete",
		zap.String("op", op),
		zap.String("addr", addr.String()),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func classify(op string, addr Address, err error) error {
	kind := ErrUnreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = ErrTimeout
	}
	return &LinkError{Op: op, Addr: addr.String(), Kind: kind, Err: err}
}

// --- Null Transport (no-op, used when printing is disabled) ---

type nullTransport struct {
	logger *zap.Logger
}

// NewNullTransport creates a transport that accepts and discards every job.
func NewNullTransport(logger *zap.Logger) Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &nullTransport{logger: logger.Named("printer")}
}

func (p *nullTransport) Send(ctx context.Context, addr Address, data []byte) error {
	p.logger.Debug("printing disabled, discarding job",
		zap.String("addr", addr.String()),
		zap.Int("bytes", len(data)),
	)
	return nil
}

func (p *nullTransport) Ping(ctx context.Context, addr Address) error {
	return nil
}

func (p *nullTransport) Logo() *Raster {
	return nil
}

// NewTransportFromConfig creates the appropriate Transport based on mode.
//
//	mode: "network" or "none"
func NewTransportFromConfig(mode string, cfg LinkConfig, logger *zap.Logger) (Transport, error) {
	switch mode {
	case "network", "":
		return NewLink(cfg, logger), nil
	case "none":
		return NewNullTransport(logger), nil
	default:
		return nil, fmt.Errorf("printer: unknown printer mode %q (use network or none)", mode)
	}
}
