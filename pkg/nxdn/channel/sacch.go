package channel

import (
	"github.com/openlmr/lmr-repeater/pkg/bitbuf"
	"github.com/openlmr/lmr-repeater/pkg/fec"
)

// Structure labels which SACCH fragment position a super-block frame's
// signalling slot carries. The wire field is 2 bits wide
// and only ever carries the four fragment positions (0..3); StructureSingle
// is a sentinel the non-superblock path uses locally and never encodes
// into this field.
type Structure int

const (
	Structure1of4 Structure = iota
	Structure2of4
	Structure3of4
	Structure4of4
	StructureSingle
)

// SACCHFieldBits is the total width of the SACCH field before FEC
// protection: RAN(6b) + structure(2b) + 18 bits of data. Golay(20,8) adds
// 12 parity bits to the RAN/structure octet only, so the encoded field is
// 38 bits; data rides separately.
const SACCHFieldBits = 26

// SACCH is the Slow Associated Control Channel: {RAN(6b), structure(2b),
// data(18b)}, Golay(20,8)-protected on the RAN/structure octet.
type SACCH struct {
	RAN       uint8
	Structure Structure
	Data      uint32 // 18 bits
}

// Encode packs a SACCH field: the RAN/structure byte is Golay(20,8)
// encoded, the 18-bit data field follows unprotected (matching the
// original's SACCH layout, where only the header octet carries FEC and
// the data payload is itself a fragment of a Golay-protected Layer-3
// super-frame assembled across four slots).
func (s SACCH) Encode() []byte {
	header := (s.RAN << 2) | uint8(s.Structure&0x3)
	code := fec.EncodeGolay208(header)

	buf := bitbuf.New(make([]byte, 5))
	buf.PutBits(0, 20, code)
	buf.PutBits(20, 18, s.Data)
	return buf.Bytes()
}

// DecodeSACCH unpacks a SACCH field, correcting header bit errors via
// Golay(20,8) and reporting the number of bits corrected.
func DecodeSACCH(data []byte) (s SACCH, valid bool, errs int) {
	if len(data) < 5 {
		return SACCH{}, false, 0
	}
	buf := bitbuf.New(data)
	code := buf.GetBits(0, 20)
	header, e := fec.DecodeGolay208(code)
	if e > 3 {
		return SACCH{}, false, e
	}
	s.RAN = header >> 2
	s.Structure = Structure(header & 0x3)
	s.Data = buf.GetBits(20, 18)
	return s, true, e
}
