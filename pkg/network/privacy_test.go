package network

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	privacyKey = []byte{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	}
	privacyIV = make([]byte, 16)
)

func TestPrivacySealOpenRoundTrip(t *testing.T) {
	p, err := NewPrivacy(privacyKey, privacyIV)
	require.NoError(t, err)

	// 48 bytes, block-aligned like an NXDN air payload.
	payload := bytes.Repeat([]byte{0xA5}, 48)

	sealed := p.Seal(payload)
	require.Len(t, sealed, 48)
	require.NotEqual(t, payload, sealed)

	opened, ok := p.Open(sealed)
	require.True(t, ok)
	require.Equal(t, payload, opened)
}

func TestPrivacySealPadsUnalignedPayload(t *testing.T) {
	p, err := NewPrivacy(privacyKey, privacyIV)
	require.NoError(t, err)

	// 53 bytes, a DMR burst's width; sealing pads to the next block.
	payload := bytes.Repeat([]byte{0x3C}, 53)

	sealed := p.Seal(payload)
	require.Len(t, sealed, 64)

	opened, ok := p.Open(sealed)
	require.True(t, ok)
	require.Equal(t, payload, opened[:53])
	// The pad decrypts back to the zeros Seal appended.
	require.Equal(t, make([]byte, 11), opened[53:])
}

func TestPrivacyOpenRejectsUnalignedCiphertext(t *testing.T) {
	p, err := NewPrivacy(privacyKey, privacyIV)
	require.NoError(t, err)

	_, ok := p.Open(make([]byte, 17))
	require.False(t, ok)
}

func TestNewPrivacyRejectsBadKeyAndIV(t *testing.T) {
	_, err := NewPrivacy(make([]byte, 15), privacyIV)
	require.Error(t, err)

	_, err = NewPrivacy(privacyKey, make([]byte, 8))
	require.Error(t, err)
}
