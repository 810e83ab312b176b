// Package arq implements the core of a reliable, ordered,
// connection-oriented transport protocol layered atop an unreliable
// datagram substrate (typically UDP). The core is a per-connection
// control block: a synchronous, single-threaded state machine that
// accepts application writes, fragments and schedules them as protocol
// segments, runs retransmission and congestion control over the
// datagram channel, reassembles incoming segments into an ordered
// stream, and signals the application when data is available.
//
// The control block never performs I/O itself. It is fed inbound bytes
// through Input and emits outbound datagrams through an Output sink
// supplied at construction; the caller provides the clock via Update
// and Check. See pkg/netconn for a socket-backed adapter.
package arq

import "encoding/binary"

// Cmd identifies the kind of a segment on the wire.
type Cmd uint8

const (
	CmdPush Cmd = 81 // carries application payload
	CmdAck  Cmd = 82 // acknowledges one sn, echoes its ts for RTT sampling
	CmdWAsk Cmd = 83 // window probe request: "what is your window?"
	CmdWIns Cmd = 84 // window probe response: wnd field carries the answer
)

func (c Cmd) valid() bool {
	return c == CmdPush || c == CmdAck || c == CmdWAsk || c == CmdWIns
}

// headerSize is the fixed, wire-encoded portion of a segment: conv, cmd,
// frg, wnd, ts, sn, una, len. All multi-byte integers are little-endian.
const headerSize = 4 + 1 + 1 + 2 + 4 + 4 + 4 + 4

// probe flags, bits of ControlBlock.probe.
const (
	askSend uint8 = 1 // peer's window was zero: schedule a WASK
	askTell uint8 = 2 // our window recovered: schedule a WINS
)

// segment is both the wire unit and the internal queueing unit. The
// first eight fields are encoded on the wire in the order given by
// spec.md section 4.1; the remainder (resendts, rto, fastack, xmit)
// are bookkeeping local to the sender and never transmitted.
type segment struct {
	conv uint32
	cmd  Cmd
	frg  uint8
	wnd  uint16
	ts   uint32
	sn   uint32
	una  uint32
	data []byte // payload, len(data) == wire "len"

	// sender-only bookkeeping, never encoded.
	resendts uint32
	rto      uint32
	fastack  uint32
	xmit     uint32
}

// encode appends the wire representation of seg to dst and returns the
// extended slice. It never allocates a new header buffer; callers pass
// a scratch slice they manage (see flush's scratch buffer).
func (seg *segment) encode(dst []byte) []byte {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], seg.conv)
	hdr[4] = byte(seg.cmd)
	hdr[5] = seg.frg
	binary.LittleEndian.PutUint16(hdr[6:8], seg.wnd)
	binary.LittleEndian.PutUint32(hdr[8:12], seg.ts)
	binary.LittleEndian.PutUint32(hdr[12:16], seg.sn)
	binary.LittleEndian.PutUint32(hdr[16:20], seg.una)
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(len(seg.data)))
	dst = append(dst, hdr[:]...)
	dst = append(dst, seg.data...)
	return dst
}

// decodeSegment parses one segment from the front of data, returning the
// segment, the number of bytes it consumed, and an error classified per
// spec.md section 4.1/7: a header shorter than headerSize, or a declared
// length exceeding the remaining bytes, is ErrUnexpectedEOF; an unknown
// cmd byte is ErrInvalidData. The returned segment's data aliases data's
// backing array; callers that retain it across the Input call must copy.
func decodeSegment(data []byte) (seg segment, consumed int, err error) {
	if len(data) < headerSize {
		return segment{}, 0, ErrUnexpectedEOF
	}
	seg.conv = binary.LittleEndian.Uint32(data[0:4])
	cmd := Cmd(data[4])
	if !cmd.valid() {
		return segment{}, 0, ErrInvalidData
	}
	seg.cmd = cmd
	seg.frg = data[5]
	seg.wnd = binary.LittleEndian.Uint16(data[6:8])
	seg.ts = binary.LittleEndian.Uint32(data[8:12])
	seg.sn = binary.LittleEndian.Uint32(data[12:16])
	seg.una = binary.LittleEndian.Uint32(data[16:20])
	length := binary.LittleEndian.Uint32(data[20:24])
	if uint64(length) > uint64(len(data)-headerSize) {
		return segment{}, 0, ErrUnexpectedEOF
	}
	seg.data = data[headerSize : headerSize+int(length)]
	return seg, headerSize + int(length), nil
}

// PeekConv reads the conv field out of a raw inbound datagram without
// constructing a control block, so a listener can demultiplex the
// datagram to the right connection before handing it to Input. Returns
// ErrUnexpectedEOF if data is shorter than a header.
func PeekConv(data []byte) (uint32, error) {
	if len(data) < headerSize {
		return 0, ErrUnexpectedEOF
	}
	return binary.LittleEndian.Uint32(data[0:4]), nil
}

// timediff returns a-b using signed 32-bit wraparound-tolerant
// subtraction, as required throughout the control block for sn/una/ts
// comparisons (spec.md section 5, section 9).
func timediff(a, b uint32) int32 {
	return int32(a - b)
}
