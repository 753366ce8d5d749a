package testing

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"time"

	"github.com/patte/go-framesignal/internal/syncutil"
)

// ErrPortClosed is returned by VirtualPort after Close.
var ErrPortClosed = errors.New("virtual port closed")

// JitterConfig configures how VirtualPort hands data back to readers.
type JitterConfig struct {
	Seed uint64
	// FragmentReads returns between FragmentMinBytes and the available bytes
	// per Read, as USB serial bridges do.
	FragmentMinBytes int
	FragmentReads    bool
	// MaxLatency sleeps a random duration up to this before each Read.
	MaxLatency time.Duration
}

// VirtualPort is a serial port whose writes loop back to its reads. Read
// returns (0, nil) once the read timeout expires with nothing buffered, the
// same contract go.bug.st/serial ports have.
type VirtualPort struct {
	rng         *rand.Rand
	buf         bytes.Buffer
	written     bytes.Buffer
	config      JitterConfig
	readTimeout time.Duration
	resets      int
	drains      int
	mu          syncutil.Mutex
	closed      bool
	// Loopback controls whether writes are readable. Disable it to feed
	// reads only through Inject.
	Loopback bool
}

// NewVirtualPort creates a loopback port.
func NewVirtualPort(config JitterConfig) *VirtualPort {
	var rng *rand.Rand
	if config.Seed != 0 {
		rng = rand.New(rand.NewPCG(config.Seed, config.Seed^0xDEADBEEF)) //nolint:gosec // test code, not crypto
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // test code, not crypto
	}
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}
	return &VirtualPort{config: config, rng: rng, Loopback: true, readTimeout: 10 * time.Millisecond}
}

// Write records data and, in loopback mode, makes it readable.
func (p *VirtualPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	p.written.Write(data)
	if p.Loopback {
		p.buf.Write(data)
	}
	return len(data), nil
}

// Inject makes data readable without it being written.
func (p *VirtualPort) Inject(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf.Write(data)
}

// Read returns buffered data, possibly fragmented, or waits up to the read
// timeout and returns (0, nil).
func (p *VirtualPort) Read(out []byte) (int, error) {
	p.mu.Lock()
	latency := p.latency()
	p.mu.Unlock()
	if latency > 0 {
		time.Sleep(latency)
	}

	deadline := time.Now().Add(p.timeout())
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, ErrPortClosed
		}
		if p.buf.Len() > 0 {
			n := p.fragment(min(len(out), p.buf.Len()))
			n, _ = p.buf.Read(out[:n])
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()

		if time.Now().After(deadline) {
			return 0, nil
		}
		time.Sleep(time.Millisecond)
	}
}

// SetReadTimeout sets how long an empty Read waits.
func (p *VirtualPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

// ResetInputBuffer discards unread data.
func (p *VirtualPort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf.Reset()
	p.resets++
	return nil
}

// Drain counts the call; writes are never buffered.
func (p *VirtualPort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPortClosed
	}
	p.drains++
	return nil
}

// Drains returns how often Drain was called.
func (p *VirtualPort) Drains() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drains
}

// Close closes the port. Further reads and writes fail.
func (p *VirtualPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Written returns everything written so far.
func (p *VirtualPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.written.Bytes())
}

// Resets returns how often the input buffer was reset.
func (p *VirtualPort) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func (p *VirtualPort) timeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readTimeout
}

func (p *VirtualPort) latency() time.Duration {
	if p.config.MaxLatency <= 0 {
		return 0
	}
	return time.Duration(p.rng.Int64N(int64(p.config.MaxLatency) + 1))
}

func (p *VirtualPort) fragment(available int) int {
	if !p.config.FragmentReads || available <= p.config.FragmentMinBytes {
		return available
	}
	lo := p.config.FragmentMinBytes
	return lo + p.rng.IntN(available-lo+1)
}

var _ io.ReadWriteCloser = (*VirtualPort)(nil)
