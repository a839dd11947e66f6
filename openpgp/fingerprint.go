package openpgp

import "crypto/sha1"

// FingerprintLen is the length in bytes of a v4 OpenPGP fingerprint.
const FingerprintLen = 20

// Fingerprint computes the RFC 4880 §12.2 v4 fingerprint over the first
// offset bytes of body: SHA-1 of the octet 0x99, the 2-byte big-endian
// length of that prefix, and the prefix itself. For a secret-key packet,
// offset is the secret locator's result (the public sub-structure only);
// for a public-key packet, offset is simply len(body), since a public-key
// packet body contains nothing else.
func Fingerprint(body []byte, offset int) [FingerprintLen]byte {
	h := sha1.New()
	h.Write([]byte{0x99, byte(offset >> 8), byte(offset)})
	h.Write(body[:offset])

	var out [FingerprintLen]byte
	copy(out[:], h.Sum(nil))
	return out
}
