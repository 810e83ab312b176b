// Package sim provides a deterministic, scripted datagram link for
// exercising arq.ControlBlock pairs without a real socket. It plays the
// same role the teacher's VirtualCanBus (a CAN bus simulated over a TCP
// loopback connection) plays for CANopen: a drop-in Bus/Output so tests
// can drive the protocol end to end under controlled loss and delay,
// per spec.md section 8's "simulated lossy/delayed link" scenarios.
package sim

import (
	"math/rand"
)

// Packet is one datagram in flight on a Link, scheduled for delivery at
// DeliverAt (an absolute millisecond clock value in the caller's time
// base).
type Packet struct {
	Data      []byte
	DeliverAt uint32
}

// Link is a one-directional lossy, delayed channel between two
// endpoints. Each endpoint gets an *Endpoint (which implements
// arq.Output) for sending, and calls Deliver periodically (driven by
// the same clock passed to the corresponding ControlBlock.Update) to
// hand ready packets to the peer.
type Link struct {
	lossPercent int
	delayMinMs  uint32
	delayMaxMs  uint32
	rng         *rand.Rand

	pending []Packet
	onDeliver func([]byte)
}

// NewLink creates a link with the given packet loss percentage
// (0-100) and delay range in milliseconds. seed makes loss/delay
// reproducible across test runs.
func NewLink(lossPercent int, delayMinMs, delayMaxMs uint32, seed int64, onDeliver func([]byte)) *Link {
	return &Link{
		lossPercent: lossPercent,
		delayMinMs:  delayMinMs,
		delayMaxMs:  delayMaxMs,
		rng:         rand.New(rand.NewSource(seed)),
		onDeliver:   onDeliver,
	}
}

// send enqueues data for delivery at some point after now, subject to
// the link's configured loss rate. It satisfies arq.Output's
// WriteSegment shape via Endpoint, not directly.
func (l *Link) send(now uint32, data []byte) {
	if l.lossPercent > 0 && l.rng.Intn(100) < l.lossPercent {
		return
	}
	delay := l.delayMinMs
	if l.delayMaxMs > l.delayMinMs {
		delay += uint32(l.rng.Intn(int(l.delayMaxMs - l.delayMinMs + 1)))
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	l.pending = append(l.pending, Packet{Data: cp, DeliverAt: now + delay})
}

// Deliver hands every packet scheduled at or before now to the link's
// delivery callback, in scheduled order.
func (l *Link) Deliver(now uint32) {
	kept := l.pending[:0]
	deliverable := make([]Packet, 0, len(l.pending))
	for _, p := range l.pending {
		if int32(now-p.DeliverAt) >= 0 {
			deliverable = append(deliverable, p)
		} else {
			kept = append(kept, p)
		}
	}
	l.pending = kept
	for _, p := range deliverable {
		l.onDeliver(p.Data)
	}
}

// Endpoint adapts a Link to arq.Output for one direction of traffic. Two
// Links (one per direction) and two Endpoints model a full duplex
// connection between a pair of ControlBlocks.
type Endpoint struct {
	link *Link
	now  *uint32
}

// NewEndpoint returns an Output that writes onto link, timestamping
// sends with whatever *now currently holds. Callers should update *now
// before each Update/Flush call so delay scheduling uses the right
// clock.
func NewEndpoint(link *Link, now *uint32) *Endpoint {
	return &Endpoint{link: link, now: now}
}

func (e *Endpoint) WriteSegment(b []byte) (int, error) {
	e.link.send(*e.now, b)
	return len(b), nil
}
