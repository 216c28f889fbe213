// Package protocol implements the framed binary wire format spoken between
// jeux clients and the server: a fixed-size header followed by an optional
// payload of raw bytes.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// HeaderSize is the number of bytes occupied by a packet header on the wire.
const HeaderSize = 16

// MaxPayloadSize is the largest payload a header's size field can describe.
const MaxPayloadSize = 1<<16 - 1

// PacketType identifies the kind of packet carried by a header.
type PacketType uint8

// Client-to-server request types and server-to-client response/notification
// types. Values are not meaningful outside this package beyond identity;
// they are chosen to match the wire contract in the protocol specification.
const (
	Login PacketType = iota + 1
	Users
	Invite
	Revoke
	Decline
	Accept
	Move
	Resign

	Ack
	Nack
	Invited
	Revoked
	Accepted
	Declined
	Moved
	Resigned
	Ended
)

func (t PacketType) String() string {
	switch t {
	case Login:
		return "LOGIN"
	case Users:
		return "USERS"
	case Invite:
		return "INVITE"
	case Revoke:
		return "REVOKE"
	case Decline:
		return "DECLINE"
	case Accept:
		return "ACCEPT"
	case Move:
		return "MOVE"
	case Resign:
		return "RESIGN"
	case Ack:
		return "ACK"
	case Nack:
		return "NACK"
	case Invited:
		return "INVITED"
	case Revoked:
		return "REVOKED"
	case Accepted:
		return "ACCEPTED"
	case Declined:
		return "DECLINED"
	case Moved:
		return "MOVED"
	case Resigned:
		return "RESIGNED"
	case Ended:
		return "ENDED"
	default:
		return fmt.Sprintf("PacketType(%d)", uint8(t))
	}
}

// Header is a packet's fixed-size preamble. Multi-byte fields are host-order
// once decoded; only the wire representation is network byte order.
type Header struct {
	Type         PacketType
	ID           uint8
	Role         uint8
	Size         uint16
	TimestampSec uint32
	TimestampNs  uint32
}

// NewHeader builds a header stamped with the current wall-clock time, the way
// every outbound packet is timestamped at send time.
func NewHeader(t PacketType, id, role uint8, payloadLen int) Header {
	now := time.Now()
	return Header{
		Type:         t,
		ID:           id,
		Role:         role,
		Size:         uint16(payloadLen),
		TimestampSec: uint32(now.Unix()),
		TimestampNs:  uint32(now.Nanosecond()),
	}
}

func (h Header) encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	buf[0] = byte(h.Type)
	buf[1] = h.ID
	buf[2] = h.Role
	buf[3] = 0 // reserved
	binary.BigEndian.PutUint16(buf[4:6], h.Size)
	// buf[6:8] reserved for header alignment; left zero.
	binary.BigEndian.PutUint32(buf[8:12], h.TimestampSec)
	binary.BigEndian.PutUint32(buf[12:16], h.TimestampNs)
	return buf
}

func decodeHeader(buf [HeaderSize]byte) Header {
	return Header{
		Type:         PacketType(buf[0]),
		ID:           buf[1],
		Role:         buf[2],
		Size:         binary.BigEndian.Uint16(buf[4:6]),
		TimestampSec: binary.BigEndian.Uint32(buf[8:12]),
		TimestampNs:  binary.BigEndian.Uint32(buf[12:16]),
	}
}

// ErrEndOfStream signals that the peer closed the connection cleanly while
// this side was waiting for the next packet's header. It is distinct from an
// error: the caller's service loop should terminate without logging failure.
var ErrEndOfStream = errors.New("protocol: end of stream")

// SendPacket writes a header and, if present, its payload to w. Writes are
// fully drained; a short write or a closed peer surfaces as an error.
func SendPacket(w io.Writer, hdr Header, payload []byte) error {
	hdr.Size = uint16(len(payload))
	buf := hdr.encode()
	if _, err := writeFull(w, buf[:]); err != nil {
		return fmt.Errorf("protocol: write header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := writeFull(w, payload); err != nil {
			return fmt.Errorf("protocol: write payload: %w", err)
		}
	}
	return nil
}

// writeFull drains b to w, looping over partial writes the way a stream
// socket under back-pressure requires.
func writeFull(w io.Writer, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := w.Write(b[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RecvPacket blocks until a full packet is available on r. EOF encountered
// while reading the first byte of the header is reported as ErrEndOfStream;
// any other short read is a protocol error.
func RecvPacket(r io.Reader) (Header, []byte, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:1]); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, nil, ErrEndOfStream
		}
		return Header{}, nil, fmt.Errorf("protocol: read header: %w", err)
	}
	if _, err := io.ReadFull(r, buf[1:]); err != nil {
		return Header{}, nil, fmt.Errorf("protocol: read header: %w", err)
	}
	hdr := decodeHeader(buf)
	if hdr.Size == 0 {
		return hdr, nil, nil
	}
	payload := make([]byte, hdr.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, nil, fmt.Errorf("protocol: read payload: %w", err)
	}
	return hdr, payload, nil
}

// Sender serializes every outbound write across the whole process behind a
// single mutex, per the protocol's global send-lock requirement: writes on
// distinct connections are still allowed to interleave at the packet
// boundary, never mid-frame.
type Sender struct {
	mu sync.Mutex
}

// NewSender constructs a process-wide packet sender.
func NewSender() *Sender {
	return &Sender{}
}

// Send writes hdr and payload to w while holding the global send lock. It is
// never held while any other lock (session, invitation, player) is acquired.
func (s *Sender) Send(w io.Writer, hdr Header, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SendPacket(w, hdr, payload)
}
