package aescrypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestECB128KnownAnswer(t *testing.T) {
	key := hexBytes(t, "000102030405060708090A0B0C0D0E0F")
	plaintext := hexBytes(t, "00112233445566778899AABBCCDDEEFF")
	wantCipher := "69C4E0D86A7B0430D8CDB78070B4C55A"

	a, err := New(key)
	require.NoError(t, err)

	cipher, err := a.EncryptECB(plaintext)
	require.NoError(t, err)
	require.Equal(t, wantCipher, hexUpper(cipher))

	back, err := a.DecryptECB(cipher)
	require.NoError(t, err)
	require.Equal(t, plaintext, back)
}

func TestCBC128KnownAnswer(t *testing.T) {
	key := hexBytes(t, "2b7e151628aed2a6abf7158809cf4f3c")
	iv := hexBytes(t, "000102030405060708090A0B0C0D0E0F")
	plaintext := hexBytes(t, "6bc1bee22e409f96e93d7e117393172a")
	wantCipher := hexBytes(t, "7649abac8119b246cee98e9b12e9197d")

	a, err := New(key)
	require.NoError(t, err)

	cipher, err := a.EncryptCBC(plaintext, iv)
	require.NoError(t, err)
	require.Equal(t, wantCipher, cipher)

	back, err := a.DecryptCBC(cipher, iv)
	require.NoError(t, err)
	require.Equal(t, plaintext, back)
}

func TestCFBRoundTripTwoBlocks(t *testing.T) {
	key := hexBytes(t, "000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F")
	iv := hexBytes(t, "000102030405060708090A0B0C0D0E0F")
	plaintext := []byte("NXDN voice privacy payload...!!!") // 32 bytes, two blocks

	a, err := New(key)
	require.NoError(t, err)

	cipher, err := a.EncryptCFB(plaintext, iv)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, cipher)

	back, err := a.DecryptCFB(cipher, iv)
	require.NoError(t, err)
	require.Equal(t, plaintext, back)
}

func TestCFBRejectsUnalignedLength(t *testing.T) {
	a, err := New(make([]byte, 16))
	require.NoError(t, err)
	_, err = a.EncryptCFB(make([]byte, 17), make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidLength)
	_, err = a.DecryptCFB(make([]byte, 17), make([]byte, 16))
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestInvalidKeyLengthRejected(t *testing.T) {
	_, err := New(make([]byte, 20))
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestECBRejectsUnalignedLength(t *testing.T) {
	a, err := New(make([]byte, 16))
	require.NoError(t, err)
	_, err = a.EncryptECB(make([]byte, 17))
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestRoundTripAllKeyLengthsAllModes(t *testing.T) {
	iv := hexBytes(t, "101112131415161718191A1B1C1D1E1F")
	plaintext := make([]byte, 64)
	for i := range plaintext {
		plaintext[i] = byte(i * 7)
	}

	for _, keyLen := range []int{16, 24, 32} {
		key := make([]byte, keyLen)
		for i := range key {
			key[i] = byte(i)
		}
		a, err := New(key)
		require.NoError(t, err)

		for _, mode := range []struct {
			name    string
			encrypt func([]byte) ([]byte, error)
			decrypt func([]byte) ([]byte, error)
		}{
			{"ECB", func(p []byte) ([]byte, error) { return a.EncryptECB(p) }, func(c []byte) ([]byte, error) { return a.DecryptECB(c) }},
			{"CBC", func(p []byte) ([]byte, error) { return a.EncryptCBC(p, iv) }, func(c []byte) ([]byte, error) { return a.DecryptCBC(c, iv) }},
			{"CFB", func(p []byte) ([]byte, error) { return a.EncryptCFB(p, iv) }, func(c []byte) ([]byte, error) { return a.DecryptCFB(c, iv) }},
		} {
			cipher, err := mode.encrypt(plaintext)
			require.NoError(t, err, "key=%d mode=%s", keyLen*8, mode.name)
			back, err := mode.decrypt(cipher)
			require.NoError(t, err, "key=%d mode=%s", keyLen*8, mode.name)
			require.Equal(t, plaintext, back, "key=%d mode=%s", keyLen*8, mode.name)
		}
	}
}

func hexUpper(b []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0xF]
	}
	return string(out)
}
