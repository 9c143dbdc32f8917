package channel

import (
	"github.com/openlmr/lmr-repeater/pkg/bitbuf"
	"github.com/openlmr/lmr-repeater/pkg/fec"
)

// FACCH1 carries a whole 72-bit Layer-3 message in one stolen slot,
// protected by a rate-1/2 trellis code: 144 coded bits, 18 bytes, the
// width of exactly two 9-byte voice groups. Stealing one FACCH1 slot
// therefore displaces half a frame's voice payload.
const (
	FACCH1MessageBytes = 9
	FACCH1Bits         = 144
	FACCH1PayloadBytes = FACCH1Bits / 8
)

// EncodeFACCH1 protects a 9-byte Layer-3 message for one FACCH1 slot,
// producing an 18-byte coded payload.
func EncodeFACCH1(message []byte) []byte {
	in := bitbuf.New(message)
	bits := make([]bool, FACCH1MessageBytes*8)
	for i := range bits {
		bits[i] = in.Bit(uint(i))
	}
	var trellis fec.Trellis12
	coded := trellis.Encode(bits)

	buf := bitbuf.New(make([]byte, FACCH1PayloadBytes))
	for i, b := range coded {
		buf.SetBit(uint(i), b)
	}
	return buf.Bytes()
}

// DecodeFACCH1 recovers the 9-byte Layer-3 message from an 18-byte
// FACCH1 payload, reporting the number of corrected symbol errors.
func DecodeFACCH1(payload []byte) (message []byte, errs int, ok bool) {
	if len(payload) < FACCH1PayloadBytes {
		return nil, 0, false
	}
	buf := bitbuf.New(payload)
	coded := make([]bool, FACCH1Bits)
	for i := range coded {
		coded[i] = buf.Bit(uint(i))
	}
	var trellis fec.Trellis12
	decoded, e := trellis.Decode(coded)

	out := bitbuf.New(make([]byte, FACCH1MessageBytes))
	for i, b := range decoded {
		out.SetBit(uint(i), b)
	}
	return out.Bytes(), e, true
}
