package arq

import (
	"math"

	"github.com/sirupsen/logrus"
)

// unusedRcvWindow returns the receive window to advertise: the
// configured rcv_wnd less however many segments are already in
// rcv_queue awaiting the application, floored at 0 (spec.md section 4.6
// step 1).
func (cb *ControlBlock) unusedRcvWindow() uint16 {
	if len(cb.rcvQueue) >= int(cb.rcvWnd) {
		return 0
	}
	return uint16(int(cb.rcvWnd) - len(cb.rcvQueue))
}

// Flush packs pending ACKs, window probes, and snd_buf's data segments
// into MTU-sized datagrams and writes them to the output sink. It is a
// no-op until Update has run at least once (spec.md section 4.6).
func (cb *ControlBlock) Flush() {
	if !cb.updated {
		return
	}

	buf := cb.buffer[:0]
	wnd := cb.unusedRcvWindow()

	flushBuf := func() {
		if len(buf) > 0 {
			cb.out.WriteSegment(buf)
			buf = buf[:0]
		}
	}

	// Step 2: drain the pending ACK list.
	for _, item := range cb.acklist {
		if len(buf)+headerSize > cb.mtu {
			flushBuf()
		}
		ack := segment{conv: cb.conv, cmd: CmdAck, wnd: wnd, ts: item.ts, sn: item.sn, una: cb.rcvNxt}
		buf = ack.encode(buf)
	}
	cb.acklist = cb.acklist[:0]

	// Step 3: window-probe scheduling.
	if cb.rmtWnd == 0 {
		if cb.probeWait == 0 {
			cb.probeWait = probeInitWait
			cb.tsProbe = cb.current + cb.probeWait
		} else if timediff(cb.current, cb.tsProbe) >= 0 {
			if cb.probeWait < probeInitWait {
				cb.probeWait = probeInitWait
			}
			cb.probeWait += cb.probeWait / 2
			if cb.probeWait > probeLimitWait {
				cb.probeWait = probeLimitWait
			}
			cb.tsProbe = cb.current + cb.probeWait
			cb.probe |= askSend
			cb.log.WithField("waitMs", cb.probeWait).Debug("[PROBE] scheduling window probe")
		}
	} else {
		cb.tsProbe = 0
		cb.probeWait = 0
	}

	// Step 4: emit probe control segments.
	if cb.probe&askSend != 0 {
		if len(buf)+headerSize > cb.mtu {
			flushBuf()
		}
		ask := segment{conv: cb.conv, cmd: CmdWAsk, wnd: wnd, una: cb.rcvNxt}
		buf = ask.encode(buf)
	}
	if cb.probe&askTell != 0 {
		if len(buf)+headerSize > cb.mtu {
			flushBuf()
		}
		ins := segment{conv: cb.conv, cmd: CmdWIns, wnd: wnd, una: cb.rcvNxt}
		buf = ins.encode(buf)
	}
	cb.probe = 0

	// Step 5: effective send window.
	cwndEff := cb.sndWnd
	if cb.rmtWnd < cwndEff {
		cwndEff = cb.rmtWnd
	}
	if !cb.nocwnd && cb.cwnd < cwndEff {
		cwndEff = cb.cwnd
	}

	// Step 6: promote from snd_queue to snd_buf.
	for len(cb.sndQueue) > 0 && timediff(cb.sndNxt, cb.sndUna+cwndEff) < 0 {
		seg := cb.sndQueue[0]
		cb.sndQueue = cb.sndQueue[1:]
		seg.conv = cb.conv
		seg.cmd = CmdPush
		seg.wnd = wnd
		seg.ts = cb.current
		seg.sn = cb.sndNxt
		seg.una = cb.rcvNxt
		seg.resendts = cb.current
		seg.rto = cb.rxRTO
		seg.fastack = 0
		seg.xmit = 0
		cb.sndNxt++
		cb.sndBuf = append(cb.sndBuf, seg)
	}

	// Step 7: fast-retransmit threshold and minimum extra delay.
	resent := uint32(math.MaxUint32)
	if cb.fastresend > 0 {
		resent = cb.fastresend
	}
	var rtomin uint32
	if !cb.nodelay {
		rtomin = cb.rxRTO / 8
	}

	change := false
	lost := false

	// Step 8: classify and (re)send every segment in snd_buf.
	for _, seg := range cb.sndBuf {
		needsend := false
		switch {
		case seg.xmit == 0:
			needsend = true
			seg.xmit = 1
			seg.rto = cb.rxRTO
			seg.resendts = cb.current + seg.rto + rtomin
		case timediff(cb.current, seg.resendts) >= 0:
			oldRTO := seg.rto
			needsend = true
			seg.xmit++
			cb.xmitCounter++
			if !cb.nodelay {
				seg.rto += cb.rxRTO
			} else {
				seg.rto += cb.rxRTO / 2
			}
			seg.resendts = cb.current + seg.rto
			lost = true
			cb.log.WithFields(logrus.Fields{
				"sn": seg.sn, "xmit": seg.xmit, "rto": seg.rto, "prevRTO": oldRTO,
			}).Debug("[RTO] timeout retransmit")
		case seg.fastack >= resent:
			needsend = true
			seg.xmit++
			seg.fastack = 0
			seg.resendts = cb.current + seg.rto
			change = true
			cb.log.WithFields(logrus.Fields{"sn": seg.sn, "xmit": seg.xmit}).Debug("[FASTACK] fast retransmit")
		}
		if !needsend {
			continue
		}
		seg.ts = cb.current
		seg.wnd = wnd
		seg.una = cb.rcvNxt
		if len(buf)+headerSize+len(seg.data) > cb.mtu {
			flushBuf()
		}
		buf = seg.encode(buf)
	}

	// Step 9.
	flushBuf()

	// Step 10: loss response, order matters.
	if change {
		inflight := timediff(cb.sndNxt, cb.sndUna)
		cb.ssthresh = maxu32(uint32(inflight)/2, threshMin)
		cb.cwnd = cb.ssthresh + resent
		cb.incr = cb.cwnd * uint32(cb.mss)
		cb.log.WithFields(logrus.Fields{"ssthresh": cb.ssthresh, "cwnd": cb.cwnd}).Debug("[CWND] fast-retransmit loss response")
	}
	if lost {
		cb.ssthresh = maxu32(cwndEff/2, threshMin)
		cb.cwnd = 1
		cb.incr = uint32(cb.mss)
		cb.log.WithFields(logrus.Fields{"ssthresh": cb.ssthresh, "cwnd": cb.cwnd}).Debug("[CWND] timeout loss response")
	}
	if cb.cwnd < 1 {
		cb.cwnd = 1
	}

	cb.buffer = buf[:0]
}

func maxu32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
