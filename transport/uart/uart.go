// Package uart carries one frame per byte over a serial line. A frame is
// sent as 0x00 or 0xFF and read back by thresholding the received byte, so a
// photodiode front end that reports gray levels over serial is read the same
// way as a loopback cable.
package uart

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/juju/ratelimit"
	"go.bug.st/serial"

	"github.com/patte/go-framesignal"
	"github.com/patte/go-framesignal/bitseq"
	"github.com/patte/go-framesignal/internal/pacing"
	"github.com/patte/go-framesignal/internal/syncutil"
)

const channelName = "uart"

// Port is the part of serial.Port the channel needs.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Drain() error
}

// Config configures a serial channel.
type Config struct {
	PortName string `yaml:"port" toml:"port"`
	BaudRate int    `yaml:"baud_rate" toml:"baud_rate"`
	// ReadTimeout is the idle gap that ends a reception once bytes arrived.
	// Zero selects a platform default.
	ReadTimeout time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	// ReceiveTimeout bounds the wait for the first byte. Zero waits until
	// the context ends.
	ReceiveTimeout time.Duration `yaml:"receive_timeout" toml:"receive_timeout"`
	// MaxFrames stops a reception after this many frames.
	MaxFrames int `yaml:"max_frames" toml:"max_frames"`
}

// DefaultConfig returns 115200 baud with a two second receive window.
func DefaultConfig() Config {
	return Config{
		BaudRate:       115200,
		ReceiveTimeout: 2 * time.Second,
		MaxFrames:      1 << 20,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("uart: baud rate must be positive, got %d", c.BaudRate)
	}
	if c.ReadTimeout < 0 || c.ReceiveTimeout < 0 {
		return errors.New("uart: timeouts must not be negative")
	}
	if c.MaxFrames <= 0 {
		return fmt.Errorf("uart: max frames must be positive, got %d", c.MaxFrames)
	}
	return nil
}

// Channel implements framesignal.Channel on a serial port.
type Channel struct {
	port   Port
	clock  ratelimit.Clock
	config Config
	mu     syncutil.Mutex
	closed bool
}

// Option customises a Channel.
type Option func(*Channel)

// WithClock paces frames on clock instead of wall time.
func WithClock(clock ratelimit.Clock) Option {
	return func(c *Channel) { c.clock = clock }
}

// isWindows returns true if running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// defaultReadTimeout is longer on Windows, whose drivers deliver in larger,
// later chunks.
func defaultReadTimeout() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// New opens the serial port named in config.
func New(config Config, opts ...Option) (*Channel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.PortName == "" {
		return nil, errors.New("uart: port name is required")
	}
	port, err := serial.Open(config.PortName, &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, framesignal.NewChannelError("open "+config.PortName, channelName, err, framesignal.ErrorTypePermanent)
	}
	ch, err := NewWithPort(port, config, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return ch, nil
}

// NewWithPort wraps an already open port.
func NewWithPort(port Port, config Config, opts ...Option) (*Channel, error) {
	if port == nil {
		return nil, errors.New("uart: port is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaultReadTimeout()
	}
	if err := port.SetReadTimeout(config.ReadTimeout); err != nil {
		return nil, fmt.Errorf("uart: set read timeout: %w", err)
	}
	c := &Channel{port: port, config: config}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListPorts returns the serial ports present on the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("uart: list ports: %w", err)
	}
	return ports, nil
}

// Transmit writes one byte per bit, one per frame slot at format.FPS.
// Unread input is discarded first so Receive only sees this transmission.
func (c *Channel) Transmit(ctx context.Context, bits bitseq.Bits, format framesignal.FrameFormat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return framesignal.NewChannelClosedError("transmit", channelName)
	}
	if err := format.Validate(); err != nil {
		return err
	}
	pacer, err := pacing.New(format.FPS, c.clock)
	if err != nil {
		return err
	}

	if err := c.port.ResetInputBuffer(); err != nil {
		return c.ioError("reset", err)
	}
	frame := make([]byte, 1)
	for i, bit := range bits {
		if err := pacer.Wait(ctx); err != nil {
			return fmt.Errorf("transmit frame %d: %w", i, err)
		}
		frame[0] = framesignal.BitToLuminance(bit)
		if _, err := c.port.Write(frame); err != nil {
			return c.ioError("write", err)
		}
	}
	if err := c.drainWithRetry(); err != nil {
		return err
	}
	framesignal.Debugf("uart: sent %d frames at %d fps", len(bits), format.FPS)
	return nil
}

// Receive reads frames until the line goes idle after the first byte, or
// until MaxFrames arrived. It fails with a timeout error when nothing
// arrives within ReceiveTimeout.
func (c *Channel) Receive(ctx context.Context) (bitseq.Bits, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, framesignal.NewChannelClosedError("receive", channelName)
	}

	var (
		samples  []byte
		buf      = make([]byte, 256)
		deadline = time.Now().Add(c.config.ReceiveTimeout)
	)
	for len(samples) < c.config.MaxFrames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := c.port.Read(buf)
		if err != nil {
			return nil, c.ioError("read", err)
		}
		if n > 0 {
			samples = append(samples, buf[:n]...)
			continue
		}
		if len(samples) > 0 {
			break
		}
		if c.config.ReceiveTimeout > 0 && time.Now().After(deadline) {
			return nil, framesignal.NewChannelTimeoutError("receive", channelName)
		}
	}
	if len(samples) > c.config.MaxFrames {
		samples = samples[:c.config.MaxFrames]
	}
	framesignal.Debugf("uart: received %d frames", len(samples))
	return framesignal.LuminanceToBits(samples), nil
}

// Close closes the port.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.port.Close(); err != nil {
		return fmt.Errorf("uart close failed: %w", err)
	}
	return nil
}

func (*Channel) ioError(op string, err error) error {
	errType := framesignal.ErrorTypeTransient
	if framesignal.IsFatal(err) {
		errType = framesignal.ErrorTypePermanent
	}
	return framesignal.NewChannelError(op, channelName, err, errType)
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry waits for the output buffer to empty, retrying calls
// interrupted by signals.
func (c *Channel) drainWithRetry() error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := range maxRetries {
		err := c.port.Drain()
		if err == nil {
			return nil
		}
		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}
		return c.ioError("drain", err)
	}
	return c.ioError("drain", fmt.Errorf("failed after %d retries", maxRetries))
}

var _ Port = serial.Port(nil)
