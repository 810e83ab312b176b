package arq

import (
	"github.com/sirupsen/logrus"
)

// Default tunables, matching the values the reference implementation
// ships as its baseline ("normal" mode) before any Nodelay/WndSize/SetMTU
// call.
const (
	defaultMTU        = 1400
	minMTU            = 50
	defaultSndWnd     = 32
	defaultRcvWnd     = 32
	defaultRTO        = 200
	rtoMinNormal      = 100
	rtoMinNodelay     = 30
	rtoMax            = 60000
	defaultInterval   = 100
	minInterval       = 10
	maxInterval       = 5000
	threshInit        = 2
	threshMin         = 2
	probeInitWait     = 7000
	probeLimitWait    = 120000
	ackFastDefault    = 0 // 0 disables fast-retransmit unless Nodelay sets fastresend
	defaultDeadLink   = 20
	maxFragmentCount  = 255
)

// Output is the byte-oriented sink the control block writes datagrams
// to. Implementations are expected to be non-blocking or best-effort;
// the control block never interprets the returned error as a signal to
// retransmit immediately, because retransmission here is always
// timer-driven (spec.md section 5, section 7).
type Output interface {
	WriteSegment(b []byte) (int, error)
}

// ackItem is one pending (sn, ts) pair awaiting an ACK emission.
type ackItem struct {
	sn uint32
	ts uint32
}

// ControlBlock is a per-connection reliable-transport state machine, as
// described in spec.md. It is single-threaded and cooperative: exactly
// one logical owner calls Send, Recv, Input, Update, Check and the
// configuration methods, strictly serialized (spec.md section 5). A
// ControlBlock never performs I/O on its own; it is driven entirely by
// its owner.
type ControlBlock struct {
	conv uint32
	mtu  int
	mss  int

	sndUna uint32
	sndNxt uint32
	rcvNxt uint32

	// RTT/RTO estimator state (spec.md section 4.5).
	srtt    int32
	rttvar  int32
	rxRTO   uint32
	rxMinRTO uint32
	hasRTT  bool

	// Window state (spec.md section 4.6 step 5, section 4.8).
	sndWnd uint32 // local configured send window, in segments
	rcvWnd uint32 // local configured receive window, in segments
	rmtWnd uint32 // peer's last advertised window

	// Congestion control (spec.md section 4.4, section 4.6 step 10).
	cwnd     uint32
	incr     uint32
	ssthresh uint32
	nocwnd   bool

	// Window probing (spec.md section 4.6 step 3).
	probe     uint8
	probeWait uint32
	tsProbe   uint32

	current uint32
	interval uint32
	tsFlush  uint32
	updated  bool

	nodelay     bool
	fastresend  uint32
	stream      bool
	deadLink    uint32
	xmitCounter uint64 // total timeout retransmissions across this connection's life

	sndQueue []*segment
	sndBuf   []*segment
	rcvBuf   []*segment
	rcvQueue []*segment
	acklist  []ackItem

	buffer []byte // scratch encode buffer, resized by SetMTU

	out Output
	log *logrus.Entry
}

// NewControlBlock creates a control block for conversation id conv that
// writes outbound datagrams to out. The defaults mirror the reference
// implementation's un-tuned ("normal") mode: 1400-byte MTU, 32-segment
// send/receive windows, a 100ms minimum RTO and 100ms update interval,
// congestion control enabled.
//
// out is borrowed for the lifetime of the control block and is only
// ever invoked from inside Flush (transitively, Update).
func NewControlBlock(conv uint32, out Output) *ControlBlock {
	cb := &ControlBlock{
		conv:     conv,
		mtu:      defaultMTU,
		mss:      defaultMTU - headerSize,
		sndWnd:   defaultSndWnd,
		rcvWnd:   defaultRcvWnd,
		rmtWnd:   defaultRcvWnd,
		rxRTO:    defaultRTO,
		rxMinRTO: rtoMinNormal,
		ssthresh: threshInit,
		cwnd:     1,
		interval: defaultInterval,
		deadLink: defaultDeadLink,
		out:      out,
		log:      logrus.WithField("conv", conv),
	}
	cb.buffer = make([]byte, 0, 3*(cb.mtu+headerSize))
	return cb
}

// Conv returns this control block's conversation id.
func (cb *ControlBlock) Conv() uint32 { return cb.conv }

// DeadLink reports whether any in-flight segment has been retransmitted
// at least DeadLink times, the reference implementation's signal that
// the peer is unreachable. The control block never acts on this itself
// (teardown is a Non-goal, spec.md section 1); callers that want to
// give up on the connection should poll it after Update.
func (cb *ControlBlock) DeadLink() bool {
	if cb.deadLink == 0 {
		return false
	}
	for _, seg := range cb.sndBuf {
		if seg.xmit >= cb.deadLink {
			return true
		}
	}
	return false
}

// SetDeadLink overrides the retransmit-count threshold DeadLink checks
// against. n == 0 disables the check (DeadLink always returns false).
func (cb *ControlBlock) SetDeadLink(n uint32) {
	cb.deadLink = n
}

// Retransmits returns the total number of timeout retransmits issued
// over the lifetime of this control block. Fast retransmits are not
// counted.
func (cb *ControlBlock) Retransmits() uint64 { return cb.xmitCounter }

// SRTT returns the current smoothed round-trip-time estimate in
// milliseconds, or 0 if no RTT sample has been taken yet.
func (cb *ControlBlock) SRTT() int32 { return cb.srtt }

// RTO returns the current retransmission timeout in milliseconds.
func (cb *ControlBlock) RTO() uint32 { return cb.rxRTO }

// CWnd returns the current congestion window, in segments.
func (cb *ControlBlock) CWnd() uint32 { return cb.cwnd }

// SSThresh returns the current slow-start threshold, in segments.
func (cb *ControlBlock) SSThresh() uint32 { return cb.ssthresh }

// MSS returns the maximum segment size: the MTU minus the segment
// header, i.e. the most payload bytes a single segment can carry.
func (cb *ControlBlock) MSS() int { return cb.mss }
