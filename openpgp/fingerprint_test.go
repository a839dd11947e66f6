package openpgp_test

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/lcp29/Paperkey/openpgp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_Fingerprint_KnownVector checks the fingerprint formula against a
// digest computed independently (with a separate SHA-1 implementation, not
// Fingerprint's own formula reproduced inline), so a shared bug — a
// byte-order swap in the length prefix, or hashing len(body) instead of
// offset — would be caught instead of silently agreeing with itself.
func Test_Fingerprint_KnownVector(t *testing.T) {
	body, err := hex.DecodeString("044bc85f0101010101abababababababababababababababababababababababababababababababab0011010001")
	require.NoError(t, err)
	offset := len(body)

	const want = "D1540E188AA874D1BFE17EF6B70D58FE0BC38220"
	got := openpgp.Fingerprint(body, offset)
	assert.Equal(t, want, strings.ToUpper(hex.EncodeToString(got[:])))
}

func Test_Fingerprint_MatchesManualSHA1(t *testing.T) {
	body := []byte{4, 1, 2, 3, 4, 1, 0xAA, 0xBB, 0xCC}
	offset := len(body)

	h := sha1.New()
	h.Write([]byte{0x99, byte(offset >> 8), byte(offset)})
	h.Write(body[:offset])
	want := h.Sum(nil)

	got := openpgp.Fingerprint(body, offset)
	assert.Equal(t, want, got[:])
}

func Test_Fingerprint_OnlyCoversPrefix(t *testing.T) {
	body := []byte{4, 1, 2, 3, 4, 1, 0xAA, 0xBB, 0xCC, 0xFF, 0xFF, 0xFF}
	withTrailer := openpgp.Fingerprint(body, 9)
	withoutTrailer := openpgp.Fingerprint(body[:9], 9)
	assert.Equal(t, withoutTrailer, withTrailer)
}
