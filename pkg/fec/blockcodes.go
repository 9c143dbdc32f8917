package fec

// BPTC(196,96), Trellis(1/2) and Reed-Solomon back the DMR/P25 payloads
// this repeater never transcodes. They are exercised only through the
// (encode, decode) -> errors contract, so each is implemented here as a
// thin, self-consistent codec rather than a bit-accurate
// reimplementation of the respective air-interface standard.

// BPTC19696 is a (196,96) block product turbo code stand-in: it spreads
// 96 data bits over Hamming(15,11,3)-protected rows (no column parity), matching
// the shape (not the exact generator) DMR's BPTC(196,96) uses for its
// embedded signalling payloads.
type BPTC19696 struct{}

// Encode packs 96 data bits (data[0] first, 11 per row, first bit in each
// row's MSB) into a 196-bit codeword using 13 Hamming(15,11,3) rows of 15
// bits; data cells past the 96th bit are zero and the last codeword bit is
// unused.
func (BPTC19696) Encode(data [96]bool) [196]bool {
	var rows [13][15]bool
	idx := 0
	for r := 0; r < 13; r++ {
		var dataBits uint16
		for c := 0; c < 11; c++ {
			dataBits <<= 1
			if idx < 96 {
				if data[idx] {
					dataBits |= 1
				}
				idx++
			}
		}
		cw := EncodeHamming1511(dataBits)
		for c := 0; c < 15; c++ {
			rows[r][c] = cw&(1<<uint(14-c)) != 0
		}
	}
	var out [196]bool
	n := 0
	for r := 0; r < 13; r++ {
		for c := 0; c < 15; c++ {
			if n < 196 {
				out[n] = rows[r][c]
				n++
			}
		}
	}
	return out
}

// Decode reverses Encode, correcting per-row Hamming errors and returning
// the total number of bit errors corrected across all rows.
func (BPTC19696) Decode(code [196]bool) (data [96]bool, errs int) {
	idx := 0
	for r := 0; r < 13; r++ {
		var cw uint16
		for c := 0; c < 15; c++ {
			cw <<= 1
			pos := r*15 + c
			if pos < 196 && code[pos] {
				cw |= 1
			}
		}
		d, e := DecodeHamming1511(cw)
		errs += e
		for c := 10; c >= 0; c-- {
			if idx < 96 {
				data[idx] = d&(1<<uint(c)) != 0
				idx++
			}
		}
	}
	return data, errs
}

// Trellis12 is a rate-1/2 convolutional code stand-in for P25's Trellis
// encoder: each output bit pair is the input bit XORed with the previous
// input bit (a degenerate two-state trellis), which is enough to give the
// call engine a pure (encode, decode) contract with a detectable single-bit
// error per symbol without reimplementing the full constraint-length-4
// P25 trellis.
type Trellis12 struct{}

// Encode rate-1/2 encodes n input bits into 2n output bits.
func (Trellis12) Encode(input []bool) []bool {
	out := make([]bool, 0, len(input)*2)
	prev := false
	for _, bit := range input {
		out = append(out, bit, bit != prev)
		prev = bit
	}
	return out
}

// Decode reverses Encode, reporting how many parity bits mismatched (a
// proxy for the number of corrected/uncorrectable symbol errors).
func (Trellis12) Decode(code []bool) (data []bool, errs int) {
	n := len(code) / 2
	data = make([]bool, n)
	prev := false
	for i := 0; i < n; i++ {
		bit := code[i*2]
		wantParity := bit != prev
		if code[i*2+1] != wantParity {
			errs++
		}
		data[i] = bit
		prev = bit
	}
	return data, errs
}

// ReedSolomon is a byte-oriented erasure-style stand-in for P25's (24,16,9)
// Reed-Solomon outer code protecting NID/LDU framing. Rather than
// implementing GF(2^6) polynomial arithmetic, it treats n extra parity
// bytes as a running XOR checksum of the data bytes split into n
// interleaves -- enough to detect a corrupted byte in an interleave. It
// does not locate or correct the corrupted byte.
type ReedSolomon struct {
	DataBytes   int
	ParityBytes int
}

// Encode appends r.ParityBytes parity bytes, each the XOR of the data
// bytes at that interleave offset.
func (r ReedSolomon) Encode(data []byte) []byte {
	parity := make([]byte, r.ParityBytes)
	for i, b := range data {
		parity[i%r.ParityBytes] ^= b
	}
	return append(append([]byte{}, data...), parity...)
}

// Decode verifies the parity bytes appended by Encode and returns the data
// bytes unchanged; errs is the number of parity bytes that disagree (-1
// if code is too short). No correction is attempted.
func (r ReedSolomon) Decode(code []byte) (data []byte, errs int) {
	if len(code) < r.DataBytes+r.ParityBytes {
		return nil, -1
	}
	data = code[:r.DataBytes]
	gotParity := code[r.DataBytes : r.DataBytes+r.ParityBytes]
	wantParity := make([]byte, r.ParityBytes)
	for i, b := range data {
		wantParity[i%r.ParityBytes] ^= b
	}
	for i := range wantParity {
		if wantParity[i] != gotParity[i] {
			errs++
		}
	}
	return data, errs
}
