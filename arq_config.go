package arq

// Nodelay configures the latency/throughput tradeoff knobs. Each
// numeric parameter is left unchanged when passed a negative value.
//
//   - nodelay: 0 disables the aggressive mode (100ms minimum RTO), a
//     positive value enables it (30ms minimum RTO, spec.md section 4.5).
//   - interval: the flush/update period in milliseconds, clamped to
//     [10, 5000].
//   - resend: the fast-retransmit duplicate-ACK threshold; 0 disables
//     fast retransmit.
//   - nc: disables congestion control entirely when true (Flush's
//     effective window is then min(snd_wnd, rmt_wnd) with no cwnd term).
//
// The preset named "fastest" in the reference implementation is
// Nodelay(1, 20, 2, true).
func (cb *ControlBlock) Nodelay(nodelay, interval, resend int, nc bool) {
	if nodelay >= 0 {
		cb.nodelay = nodelay > 0
		if cb.nodelay {
			cb.rxMinRTO = rtoMinNodelay
		} else {
			cb.rxMinRTO = rtoMinNormal
		}
	}
	if interval >= 0 {
		if interval > maxInterval {
			interval = maxInterval
		} else if interval < minInterval {
			interval = minInterval
		}
		cb.interval = uint32(interval)
	}
	if resend >= 0 {
		cb.fastresend = uint32(resend)
	}
	cb.nocwnd = nc
}

// WndSize sets the local send and receive window sizes, in segments.
// Only positive values take effect; a non-positive value leaves the
// corresponding window unchanged.
func (cb *ControlBlock) WndSize(sndWnd, rcvWnd int) {
	if sndWnd > 0 {
		cb.sndWnd = uint32(sndWnd)
	}
	if rcvWnd > 0 {
		cb.rcvWnd = uint32(rcvWnd)
	}
}

// SetMTU changes the maximum transmission unit used when packing
// datagrams, recomputing mss and resizing the scratch encode buffer. It
// rejects mtu values below 50 (spec.md section 4.8, section 3 control
// block invariant "mtu >= 50 and >= 24").
func (cb *ControlBlock) SetMTU(mtu int) error {
	if mtu < minMTU || mtu < headerSize {
		return ErrInvalidMTU
	}
	cb.mtu = mtu
	cb.mss = mtu - headerSize
	cb.buffer = make([]byte, 0, 3*(mtu+headerSize))
	return nil
}
