package callengine

import "github.com/openlmr/lmr-repeater/pkg/bitbuf"

// SuperFrame accumulates the four 18-bit SACCH fragments (structures
// 1/4..4/4) of a 72-bit Layer-3 setup message into a 9-byte buffer,
// tracking arrivals in a 4-bit mask. Fragments may
// arrive out of order; only fragment 1/4 carries (via its embedded type
// field, inspected by the caller) the check that the aggregate is a
// VCALL.
type SuperFrame struct {
	buf  *bitbuf.Buffer
	mask uint8
}

// NewSuperFrame allocates an empty, 72-bit (9-byte) reassembly buffer.
func NewSuperFrame() *SuperFrame {
	return &SuperFrame{buf: bitbuf.New(make([]byte, 9))}
}

// fragmentBit maps a 1-based structure index (1/4..4/4) to its bit in
// mask.
func fragmentBit(structure int) uint8 {
	return 1 << uint(structure-1)
}

// WriteFragment writes an 18-bit fragment into its base-bit-offset
// position (0, 18, 36, 54) for structure ∈ {1,2,3,4} and marks its
// arrival in the mask.
func (s *SuperFrame) WriteFragment(structure int, fragment uint32) {
	if structure < 1 || structure > 4 {
		return
	}
	base := uint((structure - 1) * 18)
	s.buf.PutBits(base, 18, fragment)
	s.mask |= fragmentBit(structure)
}

// Reset clears the accumulator and mask, used when fragment 1/4 arrives
// carrying a non-VCALL type.
func (s *SuperFrame) Reset() {
	for i := range s.buf.Bytes() {
		s.buf.Bytes()[i] = 0
	}
	s.mask = 0
}

// Seed marks only fragment 1/4 as received, used when it carries a VCALL
// type and the accumulator is starting fresh.
func (s *SuperFrame) Seed(structure int, fragment uint32) {
	s.Reset()
	s.WriteFragment(structure, fragment)
}

// Complete reports whether all four fragments have arrived.
func (s *SuperFrame) Complete() bool {
	return s.mask == 0x0F
}

// Mask returns the current arrival bitmap.
func (s *SuperFrame) Mask() uint8 {
	return s.mask
}

// Bytes returns the reassembled 9-byte Layer-3 buffer.
func (s *SuperFrame) Bytes() []byte {
	return s.buf.Bytes()
}
