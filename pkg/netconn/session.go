// Package netconn adapts arq.ControlBlock to a real UDP socket,
// providing the stream-style session and peer-address-demultiplexing
// listener that spec.md section 1 explicitly places outside the core:
// "a stream-style adapter that exposes the protocol as a connected byte
// stream and a listener that demultiplexes by peer address". It plays
// the role the teacher's Network/busManager play for CANopen frames,
// adapted from a CAN bus's COB-ID dispatch to a UDP socket's remote
// address dispatch, with the background goroutine pattern the teacher's
// VirtualCanBus uses for its receive loop.
package netconn

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/arqnet/arq"
)

// ErrClosed is returned by Session and Listener operations after Close.
var ErrClosed = errors.New("netconn: use of closed session")

// Option configures a Session's underlying control block at creation
// time, before any traffic flows.
type Option func(*arq.ControlBlock)

// WithNodelay applies the protocol's fast-mode tuning (see
// arq.ControlBlock.Nodelay).
func WithNodelay(nodelay, interval, resend int, nc bool) Option {
	return func(cb *arq.ControlBlock) { cb.Nodelay(nodelay, interval, resend, nc) }
}

// WithWindow sets the local send/receive window sizes.
func WithWindow(snd, rcv int) Option {
	return func(cb *arq.ControlBlock) { cb.WndSize(snd, rcv) }
}

// WithStream enables stream mode (see arq.ControlBlock.SetStream).
func WithStream() Option {
	return func(cb *arq.ControlBlock) { cb.SetStream(true) }
}

// NewConv generates a conversation id from a random collision-resistant
// identifier, for callers that don't coordinate one out-of-band.
func NewConv() uint32 {
	id := xid.New()
	b := id.Bytes()
	// Fold all 12 bytes together: the leading 4 are only a seconds
	// timestamp, so the counter bytes must contribute as well.
	var conv uint32
	for i := 0; i+4 <= len(b); i += 4 {
		conv ^= uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3])
	}
	return conv
}

// segmentWriter is the low-level send primitive a Session's output
// adapter calls; it differs between a connected Dial session (conn.Write)
// and a Listener-owned session sharing one socket (conn.WriteTo(remote)).
type segmentWriter func(b []byte) (int, error)

func (w segmentWriter) WriteSegment(b []byte) (int, error) { return w(b) }

// Session is a single reliable connection multiplexed over a UDP
// socket. It owns a background goroutine that drives the control
// block's Update on a fixed tick and another that waits for inbound
// datagrams (only for Dial-created sessions; Listener-owned sessions
// are fed by the listener's shared read loop). All access to the
// underlying control block is serialized through mu, implementing the
// single coordinator the core's design notes call for (spec.md section 9).
type Session struct {
	mu      sync.Mutex
	cb      *arq.ControlBlock
	conv    uint32
	started time.Time

	readReady chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup

	log *logrus.Entry
}

func newSession(conv uint32, out arq.Output, opts []Option) *Session {
	cb := arq.NewControlBlock(conv, out)
	for _, opt := range opts {
		opt(cb)
	}
	return &Session{
		cb:        cb,
		conv:      conv,
		started:   time.Now(),
		readReady: make(chan struct{}, 1),
		closed:    make(chan struct{}),
		log:       logrus.WithField("conv", conv),
	}
}

func (s *Session) nowMs() uint32 {
	return uint32(time.Since(s.started).Milliseconds())
}

// runUpdateLoop ticks the control block's Update roughly every
// tickInterval, matching the teacher's Process(ctx) periodic-processing
// loop over SDOServer's state machine.
func (s *Session) runUpdateLoop(ctx context.Context, tickInterval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.closed:
				return
			case <-ticker.C:
				s.mu.Lock()
				s.cb.Update(s.nowMs())
				s.mu.Unlock()
			}
		}
	}()
}

// deliver feeds one inbound datagram into the control block and wakes
// any blocked Read.
func (s *Session) deliver(data []byte) {
	s.mu.Lock()
	err := s.cb.Input(data)
	s.mu.Unlock()
	if err != nil {
		s.log.WithError(err).Debug("[INPUT] dropping malformed datagram")
		return
	}
	select {
	case s.readReady <- struct{}{}:
	default:
	}
}

// Write fragments and enqueues b for delivery, chunking into units the
// control block can fragment on its own (at most 255 MSS-sized
// segments per Send call).
func (s *Session) Write(b []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, ErrClosed
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maxChunk := 255 * s.cb.MSS()
	total := 0
	for len(b) > 0 {
		n := len(b)
		if n > maxChunk {
			n = maxChunk
		}
		if err := s.cb.Send(b[:n]); err != nil {
			return total, err
		}
		total += n
		b = b[n:]
	}
	return total, nil
}

// Read blocks until a complete message is available or the session is
// closed, then delivers it into buf.
func (s *Session) Read(buf []byte) (int, error) {
	for {
		s.mu.Lock()
		n, err := s.cb.Recv(buf)
		s.mu.Unlock()
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, arq.ErrNoData) {
			return 0, err
		}
		select {
		case <-s.closed:
			return 0, ErrClosed
		case <-s.readReady:
		}
	}
}

// Close stops the session's background goroutines. It does not send a
// teardown message: connection teardown is a Non-goal of the core
// protocol (spec.md section 1); Close only releases local resources.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	s.wg.Wait()
	return nil
}

// ControlBlock exposes the underlying state machine for callers that
// want direct access to inspection methods (WaitSnd, CWnd, SRTT, ...).
// Mutating calls must still be externally synchronized against
// concurrent Read/Write/deliver.
func (s *Session) ControlBlock() *arq.ControlBlock { return s.cb }

// Dial opens a connected UDP session to addr using a freshly generated
// conversation id and starts its update and receive loops.
func Dial(ctx context.Context, network, addr string, opts ...Option) (*Session, error) {
	return DialConv(ctx, network, addr, NewConv(), opts...)
}

// DialConv is Dial with an explicit, out-of-band-agreed conversation id.
func DialConv(ctx context.Context, network, addr string, conv uint32, opts ...Option) (*Session, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	s := newSession(conv, segmentWriter(conn.Write), opts)
	s.runUpdateLoop(ctx, 20*time.Millisecond)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		buf := make([]byte, 65536)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			select {
			case <-s.closed:
				return
			default:
			}
			cp := make([]byte, n)
			copy(cp, buf[:n])
			s.deliver(cp)
		}
	}()
	go func() {
		<-s.closed
		conn.Close()
	}()
	return s, nil
}
