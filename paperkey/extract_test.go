package paperkey

import (
	"testing"

	"github.com/lcp29/Paperkey/openpgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mpi(value []byte) []byte {
	bits := len(value) * 8
	return append([]byte{byte(bits >> 8), byte(bits)}, value...)
}

// rsaSecretKeyBody builds a synthetic v4 RSA secret-key packet body: a
// public sub-structure followed by a secret region whose contents are
// opaque to Extract (it only needs to know where the region starts).
func rsaSecretKeyBody(secret []byte) []byte {
	body := []byte{4, 0, 0, 0, 1, byte(openpgp.AlgoRSAEncryptSign)}
	body = append(body, mpi([]byte{0x01, 0x02, 0x03})...)
	body = append(body, mpi([]byte{0x01, 0x00, 0x01})...)
	return append(body, secret...)
}

func publicPrefix(secretBody []byte, offset int) []byte {
	cp := make([]byte, offset)
	copy(cp, secretBody[:offset])
	return cp
}

func Test_Extract_RAW_SingleKey(t *testing.T) {
	secret := []byte{0x00, 0xDE, 0xAD, 0xBE, 0xEF}
	body := rsaSecretKeyBody(secret)

	input := NewStream()
	require.NoError(t, openpgp.Emit(input, 5, body))
	input.Rewind()

	out := NewStream()
	require.NoError(t, Extract(input, out, Policy{Framing: RAW}))

	artifact := out.Bytes()
	// Trailing 3-byte CRC-24 over everything before it.
	require.GreaterOrEqual(t, len(artifact), 3)
	payload := artifact[:len(artifact)-3]
	trailer := artifact[len(artifact)-3:]
	declared := uint32(trailer[0])<<16 | uint32(trailer[1])<<8 | uint32(trailer[2])
	assert.Equal(t, CRC24(CRC24Init, payload), declared)

	assert.Equal(t, byte(FormatVersion), payload[0])
	assert.Equal(t, byte(4), payload[1]) // key version
}

func Test_Extract_BASE16_SingleKey(t *testing.T) {
	secret := []byte{0x00, 0xAA, 0xBB}
	body := rsaSecretKeyBody(secret)

	input := NewStream()
	require.NoError(t, openpgp.Emit(input, 5, body))
	input.Rewind()

	out := NewStream()
	require.NoError(t, Extract(input, out, Policy{Framing: BASE16}))
	assert.Contains(t, string(out.Bytes()), "# Secret portions of key")
}

func Test_Extract_NoSecretKeyPacket(t *testing.T) {
	input := NewStream()
	require.NoError(t, openpgp.Emit(input, 13, []byte("not a key"))) // user ID only
	input.Rewind()

	out := NewStream()
	err := Extract(input, out, Policy{Framing: RAW})
	require.Error(t, err)
	pkErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, NoSecretKey, pkErr.Kind)
}

func Test_Extract_UnsupportedVersionPropagates(t *testing.T) {
	body := rsaSecretKeyBody([]byte{0x00})
	body[0] = 3 // v3

	input := NewStream()
	require.NoError(t, openpgp.Emit(input, 5, body))
	input.Rewind()

	out := NewStream()
	err := Extract(input, out, Policy{Framing: RAW})
	require.Error(t, err)
	pkErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UnsupportedVersion, pkErr.Kind)
}

func Test_Extract_SecretTooLargeIsLengthOverflow(t *testing.T) {
	secret := make([]byte, 0x10000) // one over the 16-bit length field
	body := rsaSecretKeyBody(secret)

	input := NewStream()
	require.NoError(t, openpgp.Emit(input, 5, body))
	input.Rewind()

	out := NewStream()
	err := Extract(input, out, Policy{Framing: RAW})
	require.Error(t, err)
	pkErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, LengthOverflow, pkErr.Kind)
}

func Test_Extract_PrimaryAndSubkey(t *testing.T) {
	primarySecret := []byte{0x00, 0x01}
	subSecret := []byte{0x00, 0x02, 0x03}
	primaryBody := rsaSecretKeyBody(primarySecret)
	subBody := rsaSecretKeyBody(subSecret)

	input := NewStream()
	require.NoError(t, openpgp.Emit(input, 5, primaryBody))
	require.NoError(t, openpgp.Emit(input, 7, subBody))
	input.Rewind()

	out := NewStream()
	require.NoError(t, Extract(input, out, Policy{Framing: RAW}))

	records, err := decodeRaw(NewStreamFromBytes(out.Bytes()))
	require.NoError(t, err)
	decoded, err := decodeRecords(records)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, primarySecret, decoded[0].secret)
	assert.Equal(t, subSecret, decoded[1].secret)
}
