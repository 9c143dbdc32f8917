package dmr

// Voice sync patterns and embedded signalling. Bytes 13-19 of a voice
// burst carry either a sync pattern or an embedded LC fragment, with
// the outer nibbles of bytes 13 and 19 always protected by SyncMask.
var (
	// MSSourcedAudioSync is the voice sync pattern this repeater inserts
	// when originating a burst (RF -> network direction).
	MSSourcedAudioSync = []byte{0x07, 0xF7, 0xD5, 0xDD, 0x57, 0xDF, 0xD0}

	// BSSourcedAudioSync is the voice sync pattern carried on bursts
	// originated by the network side.
	BSSourcedAudioSync = []byte{0x07, 0x55, 0xFD, 0x7D, 0xF7, 0x5F, 0x70}

	// MSSourcedDataSync is the data sync pattern.
	MSSourcedDataSync = []byte{0x0D, 0x5D, 0x7F, 0x77, 0xFD, 0x75, 0x70}

	// SyncMask protects the outer nibbles of bytes 13 and 19.
	SyncMask = []byte{0x0F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xF0}
)

// InsertVoiceSync writes the voice sync pattern into bytes 13-19 of a
// burst payload, masked so the protected nibbles survive.
func InsertVoiceSync(frame []byte, bsSourced bool) {
	if len(frame) < 20 {
		return
	}
	pattern := MSSourcedAudioSync
	if bsSourced {
		pattern = BSSourcedAudioSync
	}
	for i := 0; i < 7; i++ {
		frame[i+13] = (frame[i+13] &^ SyncMask[i]) | pattern[i]
	}
}

// BuildEmbeddedLC builds one 7-byte embedded-LC fragment for voice
// sequence A-F (fragment 0-5); the Full LC is split across the six
// non-sync voice frames of a super-frame.
func BuildEmbeddedLC(lc LC, fragment int) []byte {
	data := make([]byte, 7)

	switch fragment {
	case 0:
		data[0] = byte(lc.FLCO) & 0x0F // byte 13's lower nibble is the only writable part
		data[1] = byte(lc.DstID >> 16)
		data[2] = byte(lc.DstID >> 8)
		data[3] = byte(lc.DstID)
	case 1:
		data[0] = byte(lc.SrcID >> 16)
		data[1] = byte(lc.SrcID >> 8)
		data[2] = byte(lc.SrcID)
	}
	// fragments 2-5 carry parity/options this repeater leaves unset.

	return data
}

// InsertEmbeddedLC writes one embedded-LC fragment into the sync-sized
// region (bytes 13-19) of a non-sync voice frame.
func InsertEmbeddedLC(frame []byte, lc LC, voiceSeq int) {
	if len(frame) < 20 {
		return
	}
	fragment := BuildEmbeddedLC(lc, voiceSeq)
	for i := 0; i < 7; i++ {
		frame[i+13] = (frame[i+13] &^ SyncMask[i]) | fragment[i]
	}
}
