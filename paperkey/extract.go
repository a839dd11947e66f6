package paperkey

import "github.com/lcp29/Paperkey/openpgp"

// FormatVersion is the paper-key artifact's own format version octet
// (spec §3, §6). It is currently always 0, and Restore rejects anything
// else.
const FormatVersion = 0

// Extract drives parser -> secret locator -> fingerprint -> framed
// writer to turn a secret-key stream into a paper-key artifact (spec
// §4.9). It reads exactly one primary secret-key packet (tag 5) followed
// by zero or more secret subkey packets (tag 7, with tag 5 accepted as
// an alternate match so a deliberately split input isn't rejected), and
// writes nothing else: no user IDs, no signatures, no public material.
func Extract(input Readable, output Writable, policy Policy) error {
	primary, err := openpgp.Parse(input, 5, 0)
	if err != nil {
		return classify(err, -1)
	}
	if primary == nil {
		return newErr(NoSecretKey, -1, "input contains no secret key packet")
	}

	offset, err := openpgp.ExtractSecrets(primary.Body)
	if err != nil {
		return classify(err, -1)
	}
	fingerprint := openpgp.Fingerprint(primary.Body, offset)
	policy.logger().Debugf("primary key fingerprint %X, secret region starts at offset %d", fingerprint, offset)

	sink, err := newSink(output, policy.Framing, fingerprint, policy.outputWidth())
	if err != nil {
		return err
	}

	if err := sink.writeBytes([]byte{FormatVersion}); err != nil {
		return err
	}
	if err := writeRecord(sink, primary.Body[0], fingerprint, primary.Body[offset:]); err != nil {
		return err
	}

	for {
		sub, err := openpgp.Parse(input, 7, 5)
		if err != nil {
			return classify(err, -1)
		}
		if sub == nil {
			break
		}

		subOffset, err := openpgp.ExtractSecrets(sub.Body)
		if err != nil {
			return classify(err, -1)
		}
		subFingerprint := openpgp.Fingerprint(sub.Body, subOffset)
		policy.logger().Debugf("subkey fingerprint %X, secret region starts at offset %d", subFingerprint, subOffset)

		if err := writeRecord(sink, sub.Body[0], subFingerprint, sub.Body[subOffset:]); err != nil {
			return err
		}
	}

	return sink.finish()
}

// writeRecord emits one paper-key record: key-version, fingerprint,
// 16-bit big-endian length, and the secret bytes themselves (spec §3,
// §4.9). The paper-key format version octet that precedes the very
// first record is written separately by Extract, since it appears
// exactly once per artifact, not once per key.
func writeRecord(s sink, keyVersion byte, fingerprint [openpgp.FingerprintLen]byte, secret []byte) error {
	if len(secret) > 0xFFFF {
		return newErr(LengthOverflow, -1, "secret region is %d bytes, exceeds the 65535 byte limit", len(secret))
	}

	// Extract writes the paper-key format version octet itself, once,
	// immediately before calling writeRecord for the primary key; it is
	// not part of a record and subkey records never repeat it.
	if err := s.writeBytes([]byte{keyVersion}); err != nil {
		return err
	}
	if err := s.writeBytes(fingerprint[:]); err != nil {
		return err
	}
	l := len(secret)
	if err := s.writeBytes([]byte{byte(l >> 8), byte(l)}); err != nil {
		return err
	}
	return s.writeBytes(secret)
}
