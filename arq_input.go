package arq

// Input feeds inbound bytes (the payload of one received datagram,
// potentially several concatenated segments) into the control block. It
// fails the whole call with ErrUnexpectedEOF if the datagram is shorter
// than one header, ErrInvalidData if any segment's conv doesn't match or
// its cmd is unrecognized, and ErrUnexpectedEOF if a segment's declared
// length runs past the end of the datagram (spec.md section 4.4,
// section 7).
func (cb *ControlBlock) Input(data []byte) error {
	if len(data) < headerSize {
		return ErrUnexpectedEOF
	}

	sndUnaAtEntry := cb.sndUna
	ackSeen := false
	var maxAck uint32
	first := true

	for len(data) > 0 {
		seg, n, err := decodeSegment(data)
		if err != nil {
			return err
		}
		if seg.conv != cb.conv {
			return ErrInvalidData
		}
		data = data[n:]

		cb.rmtWnd = uint32(seg.wnd)
		cb.parseUna(seg.una)
		cb.shrinkBuf()

		switch seg.cmd {
		case CmdAck:
			if timediff(cb.current, seg.ts) >= 0 {
				cb.updateRTT(timediff(cb.current, seg.ts))
			}
			cb.removeAcked(seg.sn)
			if first || timediff(seg.sn, maxAck) > 0 {
				maxAck = seg.sn
			}
			ackSeen = true
			first = false
		case CmdPush:
			if timediff(seg.sn, cb.rcvNxt) >= 0 && timediff(seg.sn, cb.rcvNxt+cb.rcvWnd) < 0 {
				cb.acklist = append(cb.acklist, ackItem{sn: seg.sn, ts: seg.ts})
			}
			if timediff(seg.sn, cb.rcvNxt) >= 0 {
				owned := seg
				owned.data = append([]byte(nil), seg.data...)
				cb.parseData(&owned)
			}
		case CmdWAsk:
			cb.probe |= askTell
		case CmdWIns:
			// no-op: the advertisement arrived via seg.wnd above.
		}
	}

	if ackSeen {
		cb.parseFastack(maxAck)
	}

	if timediff(cb.sndUna, sndUnaAtEntry) > 0 {
		cb.growCongestionWindow()
	}
	return nil
}

// parseUna drops every segment from snd_buf with sn < una (spec.md
// section 4.4 step 4).
func (cb *ControlBlock) parseUna(una uint32) {
	i := 0
	for i < len(cb.sndBuf) && timediff(cb.sndBuf[i].sn, una) < 0 {
		i++
	}
	if i > 0 {
		cb.sndBuf = cb.sndBuf[i:]
	}
}

// shrinkBuf recomputes snd_una from the (possibly just-shrunk) front of
// snd_buf (spec.md section 4.4 step 5).
func (cb *ControlBlock) shrinkBuf() {
	if len(cb.sndBuf) > 0 {
		cb.sndUna = cb.sndBuf[0].sn
	} else {
		cb.sndUna = cb.sndNxt
	}
}

// removeAcked removes the segment with the given sn from snd_buf, if
// present, short-circuiting as soon as the scan passes sn (snd_buf is
// sn-ascending, spec.md section 4.4 step 6).
func (cb *ControlBlock) removeAcked(sn uint32) {
	for i, seg := range cb.sndBuf {
		if timediff(sn, seg.sn) < 0 {
			break
		}
		if seg.sn == sn {
			cb.sndBuf = append(cb.sndBuf[:i], cb.sndBuf[i+1:]...)
			break
		}
	}
}

// parseFastack increments the fastack counter of every segment still in
// snd_buf with sn strictly before maxack, enabling fast retransmit of
// segments the cumulative ACK frontier skipped over (spec.md section
// 4.4 step "after the loop", section 9 Open Question: strictly-prior
// interpretation).
func (cb *ControlBlock) parseFastack(maxAck uint32) {
	for _, seg := range cb.sndBuf {
		if timediff(seg.sn, maxAck) >= 0 {
			break
		}
		seg.fastack++
	}
}

// parseData inserts seg into rcv_buf in sn order, ignoring it if seg.sn
// falls outside [rcv_nxt, rcv_nxt+rcv_wnd) or duplicates an sn already
// present, then slides the rcv_nxt-contiguous prefix into rcv_queue
// (spec.md section 4.4 "parse_data", section 4.3).
func (cb *ControlBlock) parseData(seg *segment) {
	sn := seg.sn
	if timediff(sn, cb.rcvNxt) < 0 || timediff(sn, cb.rcvNxt+cb.rcvWnd) >= 0 {
		return
	}

	i := len(cb.rcvBuf)
	duplicate := false
	for i > 0 {
		if cb.rcvBuf[i-1].sn == sn {
			duplicate = true
			break
		}
		if timediff(cb.rcvBuf[i-1].sn, sn) < 0 {
			break
		}
		i--
	}
	if duplicate {
		return
	}
	cb.rcvBuf = append(cb.rcvBuf, nil)
	copy(cb.rcvBuf[i+1:], cb.rcvBuf[i:])
	cb.rcvBuf[i] = seg

	cb.slideRcvBuf()
}

// growCongestionWindow implements the slow-start/congestion-avoidance
// growth rule applied whenever snd_una advances (spec.md section 4.4,
// end of Input): linear growth below ssthresh, byte-granular growth at
// or above it, capped by the peer's advertised window.
func (cb *ControlBlock) growCongestionWindow() {
	mss := uint32(cb.mss)
	if cb.cwnd < cb.ssthresh {
		cb.cwnd++
		cb.incr += mss
	} else {
		if cb.incr < mss {
			cb.incr = mss
		}
		cb.incr += mss*mss/cb.incr + mss/16
		if (cb.cwnd+1)*mss <= cb.incr {
			cb.cwnd++
		}
	}
	if cb.cwnd > cb.rmtWnd {
		cb.cwnd = cb.rmtWnd
	}
}
