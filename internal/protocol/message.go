package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Header layout constants. The 2-byte header packs a 3-bit message kind
// into the high bits and a 13-bit total length (header included) into
// the low bits, little-endian on the wire.
const (
	HeaderSize = 2

	// MaxControlLength is the largest total length representable in the
	// 13-bit length field.
	MaxControlLength = 8191

	// MaxDataLength is the total length of a full data-item message.
	// It exceeds the 13-bit range and is encoded with a zero length
	// field (the sentinel); no other length gets this treatment.
	MaxDataLength = 8194
)

// ErrMessageTooLarge is returned by Encode when header plus payload
// exceeds the 13-bit length budget and the data-item sentinel does not
// apply.
var ErrMessageTooLarge = errors.New("protocol: message exceeds maximum length")

// Kind identifies the message type carried in the top 3 header bits.
type Kind uint8

const (
	SetControlItem Kind = iota
	CurrentControlItem
	ControlItemRange
	Ack
	DataItem0
	DataItem1
	DataItem2
	DataItem3
)

// IsData reports whether the kind carries streamed sample data rather
// than a control item. Data messages carry a 16-bit sequence number
// where control messages carry an item code.
func (k Kind) IsData() bool {
	return k >= DataItem0
}

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case SetControlItem:
		return "SetControlItem"
	case CurrentControlItem:
		return "CurrentControlItem"
	case ControlItemRange:
		return "ControlItemRange"
	case Ack:
		return "Ack"
	case DataItem0:
		return "DataItem0"
	case DataItem1:
		return "DataItem1"
	case DataItem2:
		return "DataItem2"
	case DataItem3:
		return "DataItem3"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// ItemCode names a device-configurable parameter carried by control
// messages. Codes are 16-bit little-endian on the wire.
type ItemCode uint16

const (
	ItemNone                   ItemCode = 0
	ItemReceiverState          ItemCode = 0x0018
	ItemReceiverFrequency      ItemCode = 0x0020
	ItemRFFilter               ItemCode = 0x0044
	ItemADModes                ItemCode = 0x008A
	ItemIQOutputDataSampleRate ItemCode = 0x00B8
)

// Known reports whether the code is one of the item codes this client
// understands. ItemNone is not a wire value and is not known.
func (c ItemCode) Known() bool {
	switch c {
	case ItemReceiverState, ItemReceiverFrequency, ItemRFFilter,
		ItemADModes, ItemIQOutputDataSampleRate:
		return true
	default:
		return false
	}
}

// String returns a human-readable item code name.
func (c ItemCode) String() string {
	switch c {
	case ItemNone:
		return "None"
	case ItemReceiverState:
		return "ReceiverState"
	case ItemReceiverFrequency:
		return "ReceiverFrequency"
	case ItemRFFilter:
		return "RFFilter"
	case ItemADModes:
		return "ADModes"
	case ItemIQOutputDataSampleRate:
		return "IQOutputDataSampleRate"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", uint16(c))
	}
}

// Encode builds the wire form of a message: 2-byte header, optional
// 2-byte item code when item is not ItemNone, then the body.
//
// The length field holds the total encoded length. A data-item message
// whose total length is exactly MaxDataLength is encoded with a zero
// length field, because 8194 does not fit in 13 bits; every other
// message whose total length exceeds MaxControlLength fails with
// ErrMessageTooLarge.
func Encode(kind Kind, item ItemCode, body []byte) ([]byte, error) {
	prefixLen := 0
	if item != ItemNone {
		prefixLen = 2
	}

	payloadLen := prefixLen + len(body)
	total := payloadLen + HeaderSize

	lengthField := uint16(total)
	switch {
	case kind.IsData() && total == MaxDataLength:
		lengthField = 0 // sentinel: maximum data-item message
	case total > MaxControlLength:
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, total, MaxControlLength)
	}

	header := lengthField | uint16(kind)<<13

	out := make([]byte, total)
	binary.LittleEndian.PutUint16(out[0:2], header)
	if prefixLen > 0 {
		binary.LittleEndian.PutUint16(out[2:4], uint16(item))
	}
	copy(out[HeaderSize+prefixLen:], body)

	return out, nil
}

// EncodeData builds a data-item message carrying the given sequence
// number and sample payload. The sequence number occupies the two bytes
// a control message would use for its item code.
func EncodeData(kind Kind, sequence uint16, samples []byte) ([]byte, error) {
	if !kind.IsData() {
		return nil, fmt.Errorf("protocol: %s is not a data kind", kind)
	}

	body := make([]byte, 2+len(samples))
	binary.LittleEndian.PutUint16(body[0:2], sequence)
	copy(body[2:], samples)

	return Encode(kind, ItemNone, body)
}

// Result is the outcome of decoding one message. Decoding is
// best-effort: a malformed message never aborts the parse, it only
// clears OK so the caller can decide whether to discard the packet.
type Result struct {
	Kind Kind

	// Item is the control item code, or ItemNone for data messages and
	// for control messages carrying a code this client does not know.
	Item ItemCode

	// Sequence is the sender-assigned sequence number of a data
	// message. Diagnostic only; there is no retransmission.
	Sequence uint16

	// Body is everything after the header and the 2-byte item code or
	// sequence number. It aliases the input slice.
	Body []byte

	// OK is false when the item code was unknown or the body length
	// did not match the declared length field.
	OK bool
}

// String returns a debug representation of the decoded message.
func (r Result) String() string {
	if r.Kind.IsData() {
		return fmt.Sprintf("Message{kind=%s, seq=%d, body=%d bytes, ok=%v}",
			r.Kind, r.Sequence, len(r.Body), r.OK)
	}
	return fmt.Sprintf("Message{kind=%s, item=%s, body=%d bytes, ok=%v}",
		r.Kind, r.Item, len(r.Body), r.OK)
}

// Decode parses one message from data. It never fails: whatever could
// be parsed is returned, with OK reporting whether the message was
// well-formed.
func Decode(data []byte) Result {
	var res Result
	if len(data) < HeaderSize {
		return res
	}

	header := binary.LittleEndian.Uint16(data[0:2])
	res.Kind = Kind(header >> 13)
	lengthField := int(header & 0x1FFF)

	// Undo the sentinel: a zero length field on a data message means
	// the one length the 13-bit field cannot hold.
	if res.Kind.IsData() && lengthField == 0 {
		lengthField = MaxDataLength
	}

	remaining := lengthField - HeaderSize
	ok := true

	rest := data[HeaderSize:]
	if len(rest) >= 2 {
		value := binary.LittleEndian.Uint16(rest[0:2])
		if res.Kind.IsData() {
			res.Sequence = value
		} else {
			code := ItemCode(value)
			if code.Known() {
				res.Item = code
			} else {
				// Unknown item code: flag the message but hand the
				// caller the remainder anyway.
				res.Item = ItemNone
				ok = false
			}
		}
		rest = rest[2:]
		remaining -= 2
	} else {
		ok = false
	}

	res.Body = rest
	res.OK = ok && len(res.Body) == remaining
	return res
}
