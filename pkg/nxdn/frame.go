// Package nxdn implements the NXDN common-air-interface repeater
// pipeline: RF/NET dual FSM, collision policy, access control,
// super-frame reassembly, late entry, hang timers, and AMBE-FEC
// regeneration, built on pkg/callengine's shared scaffolding and this
// package's own channel/layer3/ambefec codecs.
package nxdn

// Tag is the first byte of the two-byte {tag, reserved} prefix carried on
// modem and network frames. The prefix is local-only, stripped before air
// transmission.
type Tag byte

const (
	TagData   Tag = 0x01
	TagEOT    Tag = 0x02
	TagHeader Tag = 0x03
)

// FrameBytes is NXDN's air-frame payload length.
const FrameBytes = 48

// Layout of the 48-byte NXDN air frame this repeater operates on: one
// LICH byte, a 5-byte SACCH field (38 bits used) carrying either
// idle/RAN data or one super-frame fragment, and a 36-byte voice region
// split into four 9-byte AMBE groups -- the same region two FACCH1
// slots can displace when stealing is in effect.
const (
	LICHOffset    = 0
	SACCHOffset   = 1
	SACCHBytes    = 5
	VoiceOffset   = 6
	VoiceGroupLen = 9
	FACCH1AOffset = VoiceOffset
	FACCH1BOffset = VoiceOffset + FACCH1Bytes
	FACCH1Bytes   = 18
)

// Frame is one inbound frame plus the modem's RSSI reading for it, when
// one is available.
type Frame struct {
	Tag     Tag
	Payload [FrameBytes]byte
	RSSI    int // 0 if unavailable
}

// VoiceGroup returns a mutable slice over voice sub-block i (0..3) within
// the frame, for in-place FEC regeneration.
func (f *Frame) VoiceGroup(i int) []byte {
	start := VoiceOffset + i*VoiceGroupLen
	return f.Payload[start : start+VoiceGroupLen]
}

// FrameSink is the outbound modem or network queue a Voice pipeline
// writes regenerated frames to. It also satisfies callengine.FrameSink.
type FrameSink interface {
	Enqueue(frame []byte)
	Clear()
}
