package netconn

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arqnet/arq"
)

// Listener accepts inbound sessions on a single shared UDP socket,
// demultiplexing datagrams by remote address the way spec.md section 1
// describes for the out-of-core listener. A session's first datagram
// from a new address is peeked for its conversation id (arq.PeekConv)
// without a full decode, mirroring the teacher's busManager dispatch by
// COB-ID before it ever builds a full Frame.
type Listener struct {
	conn net.PacketConn
	ctx  context.Context
	opts []Option

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	acceptCh  chan *Session
	closeOnce sync.Once
	log       *logrus.Entry
}

// Listen starts accepting sessions on pc. ctx bounds the lifetime of
// every session's background update loop; cancelling it also makes
// Accept return. The read loop runs until reading from pc fails, which
// Close causes by closing the socket.
func Listen(ctx context.Context, pc net.PacketConn, opts ...Option) *Listener {
	l := &Listener{
		conn:     pc,
		ctx:      ctx,
		opts:     opts,
		sessions: make(map[string]*Session),
		acceptCh: make(chan *Session, 16),
		log:      logrus.WithField("component", "netconn.Listener"),
	}
	go l.readLoop()
	return l
}

func (l *Listener) readLoop() {
	buf := make([]byte, 65536)
	for {
		n, addr, err := l.conn.ReadFrom(buf)
		if err != nil {
			l.log.WithError(err).Debug("[LISTEN] read loop exiting")
			l.shutdownSessions()
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])

		key := addr.String()
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			continue
		}
		sess, ok := l.sessions[key]
		if !ok {
			conv, err := arq.PeekConv(data)
			if err != nil {
				l.mu.Unlock()
				l.log.WithError(err).Debug("[LISTEN] dropping unrecognized datagram")
				continue
			}
			sess = newSession(conv, segmentWriter(func(b []byte) (int, error) {
				return l.conn.WriteTo(b, addr)
			}), l.opts)
			sess.runUpdateLoop(l.ctx, 20*time.Millisecond)
			l.sessions[key] = sess
			l.mu.Unlock()
			select {
			case l.acceptCh <- sess:
			case <-l.ctx.Done():
				sess.Close()
				continue
			}
		} else {
			l.mu.Unlock()
		}
		sess.deliver(data)
	}
}

// Accept blocks until a new peer address has sent its first datagram,
// returning the Session created for it. It returns an error once the
// listener is closed.
func (l *Listener) Accept() (*Session, error) {
	select {
	case sess, ok := <-l.acceptCh:
		if !ok {
			return nil, ErrClosed
		}
		return sess, nil
	case <-l.ctx.Done():
		return nil, l.ctx.Err()
	}
}

// Close stops accepting new sessions and closes every session created
// so far, then closes the underlying socket.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	err := l.conn.Close()
	l.shutdownSessions()
	return err
}

func (l *Listener) shutdownSessions() {
	l.mu.Lock()
	sessions := make([]*Session, 0, len(l.sessions))
	for _, s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.sessions = make(map[string]*Session)
	l.closed = true
	l.mu.Unlock()

	l.closeOnce.Do(func() { close(l.acceptCh) })
	for _, s := range sessions {
		s.Close()
	}
}
