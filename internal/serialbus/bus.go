package serialbus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/config"
	"github.com/CreasolTech/DomBusGateway/internal/infrastructure/logging"
)

// DefaultBaudRate is used when a BusConfig leaves BaudRate at zero
// (original DomBus hardware runs its RS485 link at 115200, 8N1).
const DefaultBaudRate = 115200

// readChunkSize bounds a single Read call; DomBus frames are capped at
// frame.FrameLenMax (64 bytes) so this comfortably holds several frames'
// worth of backlog per poll.
const readChunkSize = 256

// readPollTimeout is the serial read timeout. A short timeout lets Run
// notice ctx cancellation promptly instead of blocking indefinitely on an
// idle bus.
const readPollTimeout = 200 * time.Millisecond

// Port is the subset of go.bug.st/serial.Port that Bus depends on. Narrowed
// to an interface so tests can substitute an in-memory fake instead of
// opening a real device (grounded on the mutex-guarded-transport shape of
// adibhanna-modbus-go/transport/serial.go's RTUTransport, adapted here for
// a continuous byte stream instead of request/response framing).
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// openPort is overridden in tests to avoid touching real hardware.
var openPort = func(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// Status is the operator-facing snapshot of one bus's transport state,
// consumed by internal/admin's showbus command via the admin.BusLister
// interface that internal/gateway implements on top of Bus.
type Status struct {
	Path      string
	Connected bool
}

// Bus owns one RS485 serial port and the goroutine that reads it.
type Bus struct {
	id     uint8
	cfg    config.BusConfig
	logger *logging.Logger

	mu        sync.Mutex
	port      Port
	connected bool
}

// New returns a Bus for the given bus id and configuration. The port is not
// opened until Open is called.
func New(id uint8, cfg config.BusConfig, logger *logging.Logger) *Bus {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	return &Bus{id: id, cfg: cfg, logger: logger}
}

// ID returns the configured bus identifier (1..255, spec.md §6).
func (b *Bus) ID() uint8 { return b.id }

// Path returns the configured serial device path.
func (b *Bus) Path() string { return b.cfg.SerialPort }

// Status reports the current path/connected snapshot for the admin
// interface's showbus command.
func (b *Bus) Status() Status {
	return Status{Path: b.cfg.SerialPort, Connected: b.IsConnected()}
}

// Open opens the serial port at 8N1 with the configured baud rate. A
// failure here is process-relevant but not necessarily fatal: the caller
// (internal/gateway) logs and leaves the bus absent from its active set,
// per spec.md §5's "no automatic reconnect is required by the core" — a
// bus that never opens is simply never polled.
func (b *Bus) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: b.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := openPort(b.cfg.SerialPort, mode)
	if err != nil {
		return fmt.Errorf("serialbus: open %s: %w", b.cfg.SerialPort, err)
	}
	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		port.Close()
		return fmt.Errorf("serialbus: set read timeout on %s: %w", b.cfg.SerialPort, err)
	}

	b.port = port
	b.connected = true
	return nil
}

// Close closes the underlying port, if open. Safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.port == nil {
		return nil
	}
	err := b.port.Close()
	b.port = nil
	b.connected = false
	return err
}

// IsConnected reports whether the port is currently believed open.
func (b *Bus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *Bus) currentPort() Port {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port
}

func (b *Bus) markDisconnected() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

// Write sends raw frame bytes, typically the output of frame.Builder.Bytes
// produced by the TX scheduler (spec.md §4.2). A write failure marks the
// bus disconnected and is returned for the caller to log with context
// (which frame, which bus) that this package does not have.
func (b *Bus) Write(data []byte) error {
	port := b.currentPort()
	if port == nil {
		return fmt.Errorf("serialbus: bus %02x is not open", b.id)
	}
	if _, err := port.Write(data); err != nil {
		b.markDisconnected()
		return fmt.Errorf("serialbus: write to bus %02x: %w", b.id, err)
	}
	return nil
}

// Run reads from the port in a loop, handing every non-empty chunk to feed,
// until ctx is cancelled or a transport error occurs. feed is expected to
// be a frame.Decoder's Feed method (or a wrapper around it); decoding and
// dispatch happen in the caller, not here.
//
// A read timeout is reported by go.bug.st/serial as (0, nil), which Run
// treats as "nothing to do this tick" rather than an error. Any other
// error closes out the loop and leaves the bus quiescent — spec.md §5/§7
// require log-and-continue, never a crash, and no automatic reconnect from
// the core.
func (b *Bus) Run(ctx context.Context, feed func([]byte)) error {
	buf := make([]byte, readChunkSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		port := b.currentPort()
		if port == nil {
			return fmt.Errorf("serialbus: bus %02x is not open", b.id)
		}

		n, err := port.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			b.logger.Error("serial read failed, bus going quiescent", "bus", b.id, "path", b.cfg.SerialPort, "error", err)
			b.markDisconnected()
			return err
		}
		if n > 0 {
			feed(buf[:n])
		}
	}
}
