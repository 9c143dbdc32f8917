package dmr

import (
	"encoding/binary"
	"fmt"
)

// Burst is one DMR timeslot burst in the HBP DMRD wire layout.
type Burst struct {
	Sequence      byte
	SourceID      uint32
	DestinationID uint32
	RepeaterID    uint32
	Timeslot      int
	CallType      int
	FrameType     byte
	DataType      byte
	StreamID      uint32
	Payload       []byte
}

// Parse decodes a Burst from raw bytes.
func (b *Burst) Parse(data []byte) error {
	if len(data) != BurstSize {
		return fmt.Errorf("invalid DMR burst size: %d (expected %d)", len(data), BurstSize)
	}

	b.Sequence = data[BurstOffsetSeq]

	b.SourceID = uint32(data[BurstOffsetSrcID])<<16 |
		uint32(data[BurstOffsetSrcID+1])<<8 |
		uint32(data[BurstOffsetSrcID+2])

	b.DestinationID = uint32(data[BurstOffsetDstID])<<16 |
		uint32(data[BurstOffsetDstID+1])<<8 |
		uint32(data[BurstOffsetDstID+2])

	b.RepeaterID = binary.BigEndian.Uint32(data[BurstOffsetRptID : BurstOffsetRptID+4])

	slotByte := data[BurstOffsetSlot]
	if slotByte&SlotTimeslotMask != 0 {
		b.Timeslot = Timeslot2
	} else {
		b.Timeslot = Timeslot1
	}
	if slotByte&SlotCallTypeMask != 0 {
		b.CallType = CallTypePrivate
	} else {
		b.CallType = CallTypeGroup
	}
	b.FrameType = (slotByte & SlotFrameTypeMask) >> 4
	b.DataType = slotByte & SlotDataTypeMask

	b.StreamID = binary.BigEndian.Uint32(data[BurstOffsetStream : BurstOffsetStream+4])

	b.Payload = make([]byte, PayloadSize)
	copy(b.Payload, data[BurstOffsetPayload:BurstOffsetPayload+PayloadSize])

	return nil
}

// Encode serialises the Burst back to raw bytes.
func (b *Burst) Encode() []byte {
	data := make([]byte, BurstSize)

	data[BurstOffsetSeq] = b.Sequence

	data[BurstOffsetSrcID] = byte(b.SourceID >> 16)
	data[BurstOffsetSrcID+1] = byte(b.SourceID >> 8)
	data[BurstOffsetSrcID+2] = byte(b.SourceID)

	data[BurstOffsetDstID] = byte(b.DestinationID >> 16)
	data[BurstOffsetDstID+1] = byte(b.DestinationID >> 8)
	data[BurstOffsetDstID+2] = byte(b.DestinationID)

	binary.BigEndian.PutUint32(data[BurstOffsetRptID:BurstOffsetRptID+4], b.RepeaterID)

	var slotByte byte
	if b.Timeslot == Timeslot2 {
		slotByte |= SlotTimeslotMask
	}
	if b.CallType == CallTypePrivate {
		slotByte |= SlotCallTypeMask
	}
	slotByte |= (b.FrameType << 4) & SlotFrameTypeMask
	slotByte |= b.DataType & SlotDataTypeMask
	data[BurstOffsetSlot] = slotByte

	binary.BigEndian.PutUint32(data[BurstOffsetStream:BurstOffsetStream+4], b.StreamID)

	if len(b.Payload) >= PayloadSize {
		copy(data[BurstOffsetPayload:BurstOffsetPayload+PayloadSize], b.Payload[:PayloadSize])
	} else {
		copy(data[BurstOffsetPayload:], b.Payload)
	}

	return data
}

// ParseBurst decodes a Burst from raw bytes.
func ParseBurst(data []byte) (*Burst, error) {
	b := &Burst{}
	err := b.Parse(data)
	return b, err
}
