// Package channel implements NXDN's physical-layer control channels:
// LICH (Link Information Channel), SACCH (Slow Associated Control
// Channel) and FACCH1 (Fast Associated Control Channel) pack/unpack.
package channel

import "github.com/openlmr/lmr-repeater/pkg/bitbuf"

// Usc classifies a LICH-carried frame as non-superblock signalling or one
// of two super-block variants.
type Usc int

const (
	SacchNS Usc = iota
	SacchSSSingle
	SacchSSMulti
)

// Option describes FACCH stealing within a super-block frame.
type Option int

const (
	StealNone Option = iota
	StealFACCH
	StealFACCH1_1
	StealFACCH1_2
)

// Direction is the LICH's outbound/inbound bit.
type Direction int

const (
	Inbound Direction = iota
	Outbound
)

// LICH is the 8-bit Link Information Channel header: {RFCT(2b), FCT(2b),
// option(2b), direction(1b), parity(1b)}.
type LICH struct {
	RFCT      uint8
	FCT       uint8
	Option    Option
	Direction Direction
}

// Encode packs a LICH into a single byte, even parity over the first 7
// bits in the trailing parity bit.
func (l LICH) Encode() byte {
	buf := bitbuf.New(make([]byte, 1))
	buf.PutBits(0, 2, uint32(l.RFCT))
	buf.PutBits(2, 2, uint32(l.FCT))
	buf.PutBits(4, 2, uint32(l.Option))
	dir := uint32(0)
	if l.Direction == Outbound {
		dir = 1
	}
	buf.PutBits(6, 1, dir)

	parity := byte(0)
	for i := uint(0); i < 7; i++ {
		if buf.Bit(i) {
			parity ^= 1
		}
	}
	buf.SetBit(7, parity != 0)
	return buf.Bytes()[0]
}

// DecodeLICH unpacks a LICH byte, reporting false if its parity bit
// doesn't match the computed parity over the first 7 bits. Invalid
// parity is the sole rejection criterion.
func DecodeLICH(b byte) (LICH, bool) {
	buf := bitbuf.New([]byte{b})
	parity := byte(0)
	for i := uint(0); i < 7; i++ {
		if buf.Bit(i) {
			parity ^= 1
		}
	}
	want := buf.Bit(7)
	if (parity != 0) != want {
		return LICH{}, false
	}

	dir := Inbound
	if buf.Bit(6) {
		dir = Outbound
	}
	return LICH{
		RFCT:      uint8(buf.GetBits(0, 2)),
		FCT:       uint8(buf.GetBits(2, 2)),
		Option:    Option(buf.GetBits(4, 2)),
		Direction: dir,
	}, true
}
