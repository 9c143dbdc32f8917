// Package layer3 parses and serialises the NXDN Layer-3 call-setup
// messages this repeater's call FSM acts on: {type, srcId, dstId, group}
// plus type-specific fields, transmittable whole (FACCH1) or as four
// 18-bit SACCH fragments.
package layer3

import "github.com/openlmr/lmr-repeater/pkg/bitbuf"

// MessageType is the Layer-3 message's type tag.
type MessageType uint8

// On-air message-type codes. Zero is deliberately unassigned so an
// all-zero (idle or corrupted) buffer never parses as a setup message.
const (
	TypeVCALL   MessageType = 0x01
	TypeTXREL   MessageType = 0x08
	TypeUnknown MessageType = 0x0F
)

// Message is a decoded Layer-3 call-setup message.
type Message struct {
	Type  MessageType
	SrcID uint32
	DstID uint32
	Group bool
}

// Field layout within the 72-bit super-frame buffer: type(4b) + group(1b)
// + srcId(24b) + dstId(24b), leaving headroom within the 72-bit budget
// for protocol-specific extensions.
const (
	typeOffset  = 0
	typeBits    = 4
	groupOffset = 4
	srcOffset   = 5
	idBits      = 24
	dstOffset   = srcOffset + idBits
)

// Encode serialises msg into a 9-byte (72-bit) whole Layer-3 buffer,
// suitable for carrying inside a FACCH1 pair or a reassembled
// super-frame.
func Encode(msg Message) []byte {
	buf := bitbuf.New(make([]byte, 9))
	buf.PutBits(typeOffset, typeBits, uint32(msg.Type))
	group := uint32(0)
	if msg.Group {
		group = 1
	}
	buf.PutBits(groupOffset, 1, group)
	buf.PutBits(srcOffset, idBits, msg.SrcID)
	buf.PutBits(dstOffset, idBits, msg.DstID)
	return buf.Bytes()
}

// Decode parses a whole 72-bit Layer-3 buffer.
func Decode(data []byte) (Message, bool) {
	if len(data) < 9 {
		return Message{}, false
	}
	buf := bitbuf.New(data)
	return Message{
		Type:  MessageType(buf.GetBits(typeOffset, typeBits)),
		Group: buf.Bit(groupOffset),
		SrcID: buf.GetBits(srcOffset, idBits),
		DstID: buf.GetBits(dstOffset, idBits),
	}, true
}

// PartialType extracts just the type field from fragment 1/4, the only
// fragment the reassembly FSM needs to inspect before all four have
// arrived: a non-VCALL type here resets the accumulator.
func PartialType(fragment1of4 uint32) MessageType {
	// Fragment 1/4 carries bits 0..17 of the 72-bit message, which
	// includes the type field (bits 0..3) at its native offset.
	return MessageType((fragment1of4 >> 14) & 0xF)
}
