// Package fec implements the block codes this repeater uses to protect and
// regenerate control and voice payloads: Golay variants, Hamming, CRC-CCITT/
// 9/16, and simplified BPTC/Trellis/Reed-Solomon stand-ins.
//
// The rest of the repeater consumes these codes only through their
// contract: a pure pair of (encode, decode) functions over fixed-size
// buffers, the decode side additionally reporting how many bits it
// corrected. Depth here is intentionally shallow: each code is
// systematic-cyclic encode plus a bounded nearest-codeword decode,
// enough for the call engine's regeneration and BER accounting without
// reproducing a production-grade forward-error-correction library.
package fec

// systematicCode is a small (data, parity) cyclic code: the codeword is the
// data bits followed by a CRC-style remainder computed against a generator
// polynomial, decoded by nearest-codeword search over a table built once
// at init. One engine serves every code width used here instead of one
// hand-rolled table per code.
type systematicCode struct {
	dataBits   uint
	parityBits uint
	generator  uint32 // degree == parityBits, leading (implicit) coefficient included
	table      []uint32
}

func newSystematicCode(dataBits, parityBits uint, generator uint32) *systematicCode {
	c := &systematicCode{dataBits: dataBits, parityBits: parityBits, generator: generator}
	c.buildTable()
	return c
}

// buildTable generates the full codeword table by polynomial division, the
// same "compute the whole 2^n table once" idiom ysf/golay.go's init() uses,
// but completed rather than partial.
func (c *systematicCode) buildTable() {
	n := uint32(1) << c.dataBits
	c.table = make([]uint32, n)
	for data := uint32(0); data < n; data++ {
		c.table[data] = c.encode(data)
	}
}

// encode computes data<<parityBits | remainder(data<<parityBits, generator),
// i.e. a systematic cyclic encoding: the standard CRC-style bit-serial
// polynomial division.
func (c *systematicCode) encode(data uint32) uint32 {
	data &= (1 << c.dataBits) - 1
	reg := data << c.parityBits
	top := c.dataBits + c.parityBits - 1
	for i := int(top); i >= int(c.parityBits); i-- {
		if reg&(1<<uint(i)) != 0 {
			reg ^= c.generator << uint(uint(i)-c.parityBits)
		}
	}
	return (data << c.parityBits) | reg
}

// codewordBits is the total width of a codeword.
func (c *systematicCode) codewordBits() uint {
	return c.dataBits + c.parityBits
}

// decode finds the nearest codeword to code by Hamming distance and returns
// the recovered data value and the number of bit errors corrected.
func (c *systematicCode) decode(code uint32) (data uint32, errs int) {
	mask := uint32(1)<<c.codewordBits() - 1
	code &= mask

	bestDist := int(c.codewordBits()) + 1
	var bestData uint32
	for d, cw := range c.table {
		dist := popcount(code ^ cw)
		if dist < bestDist {
			bestDist = dist
			bestData = uint32(d)
			if dist == 0 {
				break
			}
		}
	}
	return bestData, bestDist
}

func popcount(v uint32) int {
	n := 0
	for v != 0 {
		n++
		v &= v - 1
	}
	return n
}

// Golay(23,12): generator polynomial x^11+x^10+x^6+x^5+x^4+x^2+1 (0xC75),
// the same generator ysf/golay.go uses for its Golay(24,12) table.
var golay2312 = newSystematicCode(12, 11, 0xC75)

// EncodeGolay2412 encodes 12 bits of data into a 24-bit extended Golay
// codeword: a 23-bit systematic Golay(23,12) codeword plus one overall
// even-parity bit.
func EncodeGolay2412(data uint32) uint32 {
	code23 := golay2312.encode(data & 0xFFF)
	parity := uint32(popcount(code23) & 1)
	return (code23 << 1) | parity
}

// DecodeGolay2412 decodes a 24-bit extended Golay codeword, returning the
// recovered 12-bit data and the number of bit errors corrected (0 if the
// codeword was already valid).
func DecodeGolay2412(code uint32) (data uint32, errs int) {
	code23 := (code >> 1) & 0x7FFFFF
	data, errs = golay2312.decode(code23)
	return data, errs
}

// Golay(20,8): an 8-bit systematic code with a 12-bit parity field, used by
// the LICH/FICH-style control channels. Generator chosen independently of
// Golay(23,12); only the (encode, decode, error-count) contract matters
// here, not bit-for-bit conformance with any particular air standard.
var golay208 = newSystematicCode(8, 12, 0x1C75)

// EncodeGolay208 encodes 8 bits of data into a 20-bit codeword.
func EncodeGolay208(data uint8) uint32 {
	return golay208.encode(uint32(data))
}

// DecodeGolay208 decodes a 20-bit codeword, returning the recovered 8-bit
// data and the number of bit errors corrected.
func DecodeGolay208(code uint32) (data uint8, errs int) {
	d, e := golay208.decode(code)
	return uint8(d), e
}

// Hamming(15,11,3): single-error-correcting, generator x^4+x+1 (0x13).
var hamming1511 = newSystematicCode(11, 4, 0x13)

// EncodeHamming1511 encodes 11 bits of data into a 15-bit Hamming codeword.
func EncodeHamming1511(data uint16) uint16 {
	return uint16(hamming1511.encode(uint32(data)))
}

// DecodeHamming1511 decodes a 15-bit Hamming codeword, returning the
// recovered 11-bit data and the number of bit errors corrected.
func DecodeHamming1511(code uint16) (data uint16, errs int) {
	d, e := hamming1511.decode(uint32(code))
	return uint16(d), e
}
