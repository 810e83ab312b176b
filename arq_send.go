package arq

// SetStream enables or disables stream mode. In stream mode message
// boundaries are not preserved across Send calls: small writes may be
// coalesced into fewer, larger segments, and Recv delivers bytes in
// order without regard to how they were originally split across Send
// calls. In message mode (the default) each Send produces exactly one
// message delivered whole by a matching Recv.
func (cb *ControlBlock) SetStream(stream bool) { cb.stream = stream }

// Send enqueues buf for eventual transmission. It only appends to
// snd_queue: it never touches snd_buf, snd_nxt, or the wire (spec.md
// section 4.2). buf is copied; the caller's slice may be reused
// immediately after Send returns.
//
// Send fails with ErrNoData if buf is empty, and ErrTooLarge if
// fragmenting buf (after any stream-mode coalescing) would require more
// than 255 segments.
func (cb *ControlBlock) Send(buf []byte) error {
	if len(buf) == 0 {
		return ErrNoData
	}

	if cb.stream && len(cb.sndQueue) > 0 {
		tail := cb.sndQueue[len(cb.sndQueue)-1]
		if len(tail.data) < cb.mss {
			extend := cb.mss - len(tail.data)
			if extend > len(buf) {
				extend = len(buf)
			}
			tail.data = append(tail.data, buf[:extend]...)
			tail.frg = 0
			buf = buf[extend:]
			if len(buf) == 0 {
				return nil
			}
		}
	}

	count := (len(buf) + cb.mss - 1) / cb.mss
	if count > maxFragmentCount {
		return ErrTooLarge
	}
	if count == 0 {
		count = 1
	}

	for i := 0; i < count; i++ {
		n := cb.mss
		if n > len(buf) {
			n = len(buf)
		}
		chunk := make([]byte, n)
		copy(chunk, buf[:n])
		buf = buf[n:]

		seg := &segment{data: chunk}
		if cb.stream {
			seg.frg = 0
		} else {
			seg.frg = uint8(count - i - 1)
		}
		cb.sndQueue = append(cb.sndQueue, seg)
	}
	return nil
}

// WaitSnd returns the number of segments still held locally (queued
// plus in-flight but unacknowledged), for callers that want to apply
// back-pressure on further Send calls (spec.md section 4.8).
func (cb *ControlBlock) WaitSnd() int {
	return len(cb.sndBuf) + len(cb.sndQueue)
}
