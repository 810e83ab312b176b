package arq

// PeekSize inspects the head of rcv_queue without consuming anything.
// It returns the byte length of the next complete message, or
// ErrNoData if rcv_queue is empty. That is the only error it returns;
// an incomplete message (one
// whose terminal frg==0 segment hasn't arrived yet) is reported via the
// ok return being false, not an error, since it is an expected
// transient state rather than a failure (spec.md section 4.3).
func (cb *ControlBlock) PeekSize() (size int, ok bool, err error) {
	if len(cb.rcvQueue) == 0 {
		return 0, false, ErrNoData
	}
	front := cb.rcvQueue[0]
	if front.frg == 0 {
		return len(front.data), true, nil
	}
	if len(cb.rcvQueue) < int(front.frg)+1 {
		return 0, false, nil
	}
	size = 0
	for _, seg := range cb.rcvQueue {
		size += len(seg.data)
		if seg.frg == 0 {
			return size, true, nil
		}
	}
	return 0, false, nil
}

// Recv delivers the next complete message into buf, returning the
// number of bytes written. It fails with ErrNoData if rcv_queue is
// empty or the next message is not yet complete, and ErrShortBuffer
// (without consuming anything) if buf is too small to hold it.
func (cb *ControlBlock) Recv(buf []byte) (int, error) {
	size, ok, err := cb.PeekSize()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoData
	}
	if size > len(buf) {
		return 0, ErrShortBuffer
	}

	wasFull := len(cb.rcvQueue) >= int(cb.rcvWnd)

	n := 0
	consumed := 0
	for _, seg := range cb.rcvQueue {
		n += copy(buf[n:], seg.data)
		consumed++
		if seg.frg == 0 {
			break
		}
	}
	cb.rcvQueue = cb.rcvQueue[consumed:]

	cb.slideRcvBuf()

	if wasFull && len(cb.rcvQueue) < int(cb.rcvWnd) {
		cb.probe |= askTell
	}
	return n, nil
}

// slideRcvBuf advances rcv_nxt and moves the contiguous run of segments
// starting at rcv_nxt from rcv_buf into rcv_queue, bounded by rcv_wnd
// (spec.md section 4.3, section 4.4).
func (cb *ControlBlock) slideRcvBuf() {
	for len(cb.rcvBuf) > 0 && len(cb.rcvQueue) < int(cb.rcvWnd) {
		seg := cb.rcvBuf[0]
		if seg.sn != cb.rcvNxt {
			break
		}
		cb.rcvBuf = cb.rcvBuf[1:]
		cb.rcvQueue = append(cb.rcvQueue, seg)
		cb.rcvNxt++
	}
}
