package openpgp

import "github.com/pkg/errors"

// Algorithm-specific public-key field counts, RFC 4880 §5.5.2/§9.1 and
// the ECC additions in RFC 6637/draft-ietf-openpgp-rfc4880bis.
const (
	AlgoRSAEncryptSign = 1
	AlgoRSAEncryptOnly = 2
	AlgoRSASignOnly    = 3
	AlgoElgamal        = 16
	AlgoDSA            = 17
	AlgoECDH           = 18
	AlgoECDSA          = 19
	AlgoEdDSA          = 22
)

// ExtractSecrets locates the start of the secret region within a v4
// key or subkey packet body: the offset of the S2K-usage octet, i.e.
// the first byte following the packet's public sub-structure. It does
// not interpret anything at or beyond that offset.
func ExtractSecrets(body []byte) (offset int, err error) {
	const headerLen = 1 + 4 + 1 // version, creation time, algorithm

	if len(body) < headerLen {
		return 0, errors.New("openpgp: key packet too short for public header")
	}
	if body[0] != 4 {
		return 0, newUnsupportedVersion(body[0])
	}

	algo := body[5]
	pos := headerLen

	switch algo {
	case AlgoRSAEncryptSign, AlgoRSAEncryptOnly, AlgoRSASignOnly:
		pos, err = skipMPIs(body, pos, 2) // n, e
	case AlgoElgamal:
		pos, err = skipMPIs(body, pos, 3) // p, g, y
	case AlgoDSA:
		pos, err = skipMPIs(body, pos, 4) // p, q, g, y
	case AlgoECDH:
		if pos, err = skipOID(body, pos); err != nil {
			break
		}
		if pos, err = skipMPIs(body, pos, 1); err != nil { // point
			break
		}
		pos, err = skipLengthPrefixed(body, pos) // KDF parameters
	case AlgoECDSA, AlgoEdDSA:
		if pos, err = skipOID(body, pos); err != nil {
			break
		}
		pos, err = skipMPIs(body, pos, 1) // point
	default:
		return 0, newUnsupportedAlgorithm(algo)
	}
	if err != nil {
		return 0, err
	}

	return pos, nil
}

// skipOID advances past a 1-length-octet-prefixed OID, as used by the ECC
// algorithms' curve identifier field.
func skipOID(body []byte, pos int) (int, error) {
	return skipLengthPrefixed(body, pos)
}

// skipLengthPrefixed advances past a single length octet followed by
// that many bytes (used for both curve OIDs and ECDH KDF parameters).
func skipLengthPrefixed(body []byte, pos int) (int, error) {
	if pos >= len(body) {
		return 0, errors.New("openpgp: truncated length-prefixed field")
	}
	n := int(body[pos])
	pos++
	if pos+n > len(body) {
		return 0, errors.New("openpgp: length-prefixed field overruns packet body")
	}
	return pos + n, nil
}

// skipMPIs advances past n consecutive multiprecision integers: each is a
// 2-byte big-endian bit count followed by ceil(bits/8) bytes.
func skipMPIs(body []byte, pos, n int) (int, error) {
	for i := 0; i < n; i++ {
		if pos+2 > len(body) {
			return 0, errors.New("openpgp: truncated MPI length")
		}
		bits := int(body[pos])<<8 | int(body[pos+1])
		pos += 2
		nbytes := (bits + 7) / 8
		if pos+nbytes > len(body) {
			return 0, errors.New("openpgp: truncated MPI body")
		}
		pos += nbytes
	}
	return pos, nil
}
