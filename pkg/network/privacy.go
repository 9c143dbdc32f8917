package network

import (
	"github.com/openlmr/lmr-repeater/pkg/aescrypto"
)

// Privacy encrypts per-protocol traffic payloads on the FNE link with
// AES-CFB under a shared site key. Handshake and keepalive packets are
// never encrypted; only the payload behind a DMRD/NXDD/P25D tag is.
// Payloads are zero-padded to the 16-byte block boundary before sealing;
// the receiving side knows each protocol's true frame length and
// discards the pad.
type Privacy struct {
	cipher *aescrypto.AES
	iv     []byte
}

// NewPrivacy builds a Privacy from a 16/24/32-byte key and a 16-byte IV.
func NewPrivacy(key, iv []byte) (*Privacy, error) {
	c, err := aescrypto.New(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != 16 {
		return nil, aescrypto.ErrInvalidLength
	}
	p := &Privacy{cipher: c, iv: make([]byte, 16)}
	copy(p.iv, iv)
	return p, nil
}

// pad returns payload zero-extended to the next 16-byte boundary, or
// payload itself when already aligned.
func pad(payload []byte) []byte {
	rem := len(payload) % 16
	if rem == 0 {
		return payload
	}
	out := make([]byte, len(payload)+16-rem)
	copy(out, payload)
	return out
}

// Seal encrypts payload for the wire.
func (p *Privacy) Seal(payload []byte) []byte {
	sealed, err := p.cipher.EncryptCFB(pad(payload), p.iv)
	if err != nil {
		// pad() guarantees block alignment; reaching here means the IV was
		// mutated after construction, which NewPrivacy prevents.
		return payload
	}
	return sealed
}

// Open decrypts a received payload. ok is false when the payload isn't
// block-aligned, meaning it cannot have been sealed by a matching peer.
func (p *Privacy) Open(payload []byte) ([]byte, bool) {
	opened, err := p.cipher.DecryptCFB(payload, p.iv)
	if err != nil {
		return nil, false
	}
	return opened, true
}
