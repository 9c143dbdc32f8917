// Package dmr implements the shared DMR signalling blocks: Voice-LC
// header/terminator, the MS/BS-sourced voice sync patterns, embedded
// signalling, and a per-timeslot Voice pipeline built on pkg/callengine.
package dmr

// Slot byte (byte 15 of a DMRD-shaped burst) bit masks.
const (
	SlotTimeslotMask  = 0x80
	SlotCallTypeMask  = 0x40
	SlotFrameTypeMask = 0x30
	SlotDataTypeMask  = 0x0F
)

// Frame types (bits 4-5 of the slot byte).
const (
	FrameTypeVoice           = 0x00
	FrameTypeVoiceHeader     = 0x01
	FrameTypeVoiceTerminator = 0x02
	FrameTypeDataSync        = 0x03
)

// Timeslot values.
const (
	Timeslot1 = 1
	Timeslot2 = 2
)

// Call type values.
const (
	CallTypeGroup   = 0
	CallTypePrivate = 1
)

// FLCO is the DMR Full Link Control Opcode identifying what a Voice or
// Data LC describes.
type FLCO byte

const (
	FLCOGroup       FLCO = 0x00 // Group voice channel user
	FLCOUnitToUnit  FLCO = 0x03 // Unit to unit voice channel user
	FLCOTalkerAlias FLCO = 0x04 // Talker alias header
)

// Burst field offsets within the 53-byte burst this repeater exchanges
// with the network side, matching the HBP DMRD layout so pkg/network's
// framer needs no per-protocol special casing.
const (
	BurstSize         = 53
	BurstOffsetSeq    = 4
	BurstOffsetSrcID  = 5
	BurstOffsetDstID  = 8
	BurstOffsetRptID  = 11
	BurstOffsetSlot   = 15
	BurstOffsetStream = 16
	BurstOffsetPayload = 20
	PayloadSize       = 33
)
