package dmr

// LC is a decoded Voice Link Control: who the call is from/to and what
// kind of call it is, the information a Voice-LC header, terminator, or
// embedded-signalling fragment all carry.
type LC struct {
	FLCO   FLCO
	SrcID  uint32
	DstID  uint32
}

// BuildVoiceLCHeader builds a DMR Voice LC Header payload (33 bytes):
// bytes 0-8 carry the Full LC, the remainder is Reed-Solomon FEC and
// padding this repeater leaves zeroed (pkg/fec.ReedSolomon covers the
// parity contract elsewhere; this call site only needs the clear LC to
// round-trip).
func BuildVoiceLCHeader(lc LC) []byte {
	payload := make([]byte, PayloadSize)

	full := make([]byte, 9)
	full[0] = byte(lc.FLCO) & 0x3F
	full[1] = byte(lc.DstID >> 16)
	full[2] = byte(lc.DstID >> 8)
	full[3] = byte(lc.DstID)
	full[4] = byte(lc.SrcID >> 16)
	full[5] = byte(lc.SrcID >> 8)
	full[6] = byte(lc.SrcID)

	copy(payload[0:9], full)
	return payload
}

// BuildVoiceTerminatorPayload builds a DMR Voice Terminator payload;
// terminators carry the same Full LC layout as headers.
func BuildVoiceTerminatorPayload(lc LC) []byte {
	return BuildVoiceLCHeader(lc)
}

// ParseVoiceLCHeader extracts an LC from a Voice LC Header/Terminator
// payload.
func ParseVoiceLCHeader(payload []byte) (LC, bool) {
	if len(payload) < 9 {
		return LC{}, false
	}
	return LC{
		FLCO:  FLCO(payload[0] & 0x3F),
		DstID: uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]),
		SrcID: uint32(payload[4])<<16 | uint32(payload[5])<<8 | uint32(payload[6]),
	}, true
}
