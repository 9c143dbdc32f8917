// Package ambefec implements the AMBE-FEC regenerator: for each 9-byte voice sub-block present in a frame, extract
// the speech codeword and its parity, run Golay(24,12) and
// Hamming(15,11,3) over the protected classes, count bit corrections, and
// write the corrected codeword back in place. The regenerator never
// decodes AMBE to PCM. It only heals bit errors
// in the codeword en route.
package ambefec

import (
	"github.com/openlmr/lmr-repeater/pkg/fec"
)

// Per-frame BER denominators: 188 bits surveyed when
// all four voice groups are present, 94 when two are (the other two
// displaced by FACCH1 stealing).
const (
	FullFrameBits = 188
	HalfFrameBits = 94
)

// VoiceGroupBytes is the width of one voice sub-block this regenerator
// operates over.
const VoiceGroupBytes = 9

// DefaultSilenceThreshold is the default per-frame corrected-error count
// above which a voice pipeline tallies a frame as undecodable. The
// regenerator itself does not consult it.
const DefaultSilenceThreshold = 14

// Regenerator scans and corrects voice sub-blocks, accumulating the bit
// counts and error counts a Call context reports as BER at end of call.
type Regenerator struct {
	SilenceThreshold int
}

// New builds a Regenerator with the default silence threshold.
func New() *Regenerator {
	return &Regenerator{SilenceThreshold: DefaultSilenceThreshold}
}

// RegenerateGroup corrects one 9-byte voice sub-block in place: the first
// three bytes carry a Golay(24,12)-protected codeword half, the next
// three a second half, and the top 15 bits of bytes 6-7 a Hamming(15,11,3)
// codeword; the last bit of byte 7 and byte 8 are left unprotected, the
// protected/unprotected split of AMBE's speech-codeword classes. Returns
// the number of bit errors corrected.
func (r *Regenerator) RegenerateGroup(group []byte) (errs int) {
	if len(group) < VoiceGroupBytes {
		return 0
	}

	c1 := (uint32(group[0]) << 16) | (uint32(group[1]) << 8) | uint32(group[2])
	data1, e1 := fec.DecodeGolay2412(c1 >> 0 & 0xFFFFFF)
	code1 := fec.EncodeGolay2412(data1)
	group[0] = byte(code1 >> 16)
	group[1] = byte(code1 >> 8)
	group[2] = byte(code1)
	errs += e1

	c2 := (uint32(group[3]) << 16) | (uint32(group[4]) << 8) | uint32(group[5])
	data2, e2 := fec.DecodeGolay2412(c2 & 0xFFFFFF)
	code2 := fec.EncodeGolay2412(data2)
	group[3] = byte(code2 >> 16)
	group[4] = byte(code2 >> 8)
	group[5] = byte(code2)
	errs += e2

	h := uint16(group[6])<<7 | uint16(group[7])>>1
	dataH, eH := fec.DecodeHamming1511(h & 0x7FFF)
	codeH := fec.EncodeHamming1511(dataH)
	group[6] = byte(codeH >> 7)
	group[7] = byte(codeH<<1) | (group[7] & 0x01)
	errs += eH

	return errs
}

// RegenerateFrame walks the voice groups present in a frame (determined
// by the caller via the LICH option, which sub-windows of the 4x9-byte
// voice groups are present and which are displaced by FACCH1 fragments),
// returning the total corrected errors and the bit count to use as the
// BER denominator for this frame.
func (r *Regenerator) RegenerateFrame(groups [][]byte) (errs int, bits int) {
	for _, g := range groups {
		errs += r.RegenerateGroup(g)
	}
	if len(groups) >= 4 {
		bits = FullFrameBits
	} else {
		bits = HalfFrameBits
	}
	return errs, bits
}
