package paperkey

import (
	"io"

	"github.com/lcp29/Paperkey/openpgp"
	"github.com/pkg/errors"
)

// record is one decoded paper-key record: a key/subkey version, its
// fingerprint, and the secret-region bytes that belong after that
// fingerprint's matching public packet.
type record struct {
	keyVersion  byte
	fingerprint [openpgp.FingerprintLen]byte
	secret      []byte
}

// decodeRecords parses the paper-key binary payload (spec §4.10 step 1
// and 2): one format-version octet, then a sequence of key-version /
// fingerprint / length / secret tuples. The first record is the
// primary; the rest are subkeys in file order.
func decodeRecords(payload []byte) ([]record, error) {
	if len(payload) < 1 {
		return nil, newErr(Malformed, 0, "paper-key payload is empty")
	}
	if payload[0] != FormatVersion {
		return nil, newErr(UnsupportedVersion, 0, "paper-key format version is %d, only %d is supported", payload[0], FormatVersion)
	}

	pos := 1
	var records []record
	for pos < len(payload) {
		if pos+1+openpgp.FingerprintLen+2 > len(payload) {
			return nil, newErr(Malformed, pos, "truncated paper-key record header")
		}
		var rec record
		rec.keyVersion = payload[pos]
		pos++
		copy(rec.fingerprint[:], payload[pos:pos+openpgp.FingerprintLen])
		pos += openpgp.FingerprintLen
		length := int(payload[pos])<<8 | int(payload[pos+1])
		pos += 2
		if pos+length > len(payload) {
			return nil, newErr(Malformed, pos, "paper-key record claims %d secret bytes but only %d remain", length, len(payload)-pos)
		}
		rec.secret = payload[pos : pos+length]
		pos += length
		records = append(records, rec)
	}

	return records, nil
}

// Restore drives the public-key parser plus the paper-key reader to
// reassemble a full OpenPGP secret key (spec §4.10). framing governs how
// the paperKey stream is framed (Auto sniffs it first); publicKey is
// always raw OpenPGP packets.
func Restore(publicKey Readable, paperKey Readable, framing Framing, output Writable, policy Policy) error {
	var payload []byte
	var err error

	switch framing {
	case RAW:
		payload, err = decodeRaw(paperKey)
	case BASE16:
		payload, err = DecodeBase16(paperKey)
	case Auto:
		sniffed, serr := SniffFraming(paperKey)
		if serr != nil {
			return classify(serr, -1)
		}
		return Restore(publicKey, paperKey, sniffed, output, policy)
	default:
		return newErr(Malformed, -1, "unknown restore framing %d", framing)
	}
	if err != nil {
		return err
	}

	records, err := decodeRecords(payload)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return newErr(NoSecretKey, -1, "paper key contains no records")
	}
	primaryRecord := records[0]
	subkeyRecords := records[1:]

	used := make([]bool, len(subkeyRecords))

	sawPrimary := false

	for {
		pub, err := openpgp.ParseAny(publicKey)
		if err != nil {
			return classify(err, -1)
		}
		if pub == nil {
			break
		}

		switch pub.Tag {
		case 6:
			fp := openpgp.Fingerprint(pub.Body, len(pub.Body))
			policy.logger().Debugf("public key fingerprint %X", fp)
			if fp != primaryRecord.fingerprint {
				return newErr(FingerprintMismatch, -1, "public key fingerprint does not match the paper key's primary record")
			}
			if pub.Body[0] != primaryRecord.keyVersion {
				return newErr(Malformed, -1, "public key version %d does not match paper-key record version %d", pub.Body[0], primaryRecord.keyVersion)
			}
			if err := emitMerged(output, 5, pub.Body, primaryRecord.secret); err != nil {
				return err
			}
			sawPrimary = true

		case 14:
			fp := openpgp.Fingerprint(pub.Body, len(pub.Body))
			policy.logger().Debugf("public subkey fingerprint %X", fp)
			idx := -1
			for i, r := range subkeyRecords {
				if !used[i] && r.fingerprint == fp {
					idx = i
					break
				}
			}
			if idx < 0 {
				if policy.Strict {
					return newErr(FingerprintMismatch, -1, "public subkey has no matching paper-key record")
				}
				// Permissive default: copy the public subkey through
				// unchanged, with no secret material.
				policy.logger().Debugf("subkey %X has no paper-key record, copying through without secret material", fp)
				if err := copyThrough(output, pub); err != nil {
					return err
				}
				continue
			}
			if pub.Body[0] != subkeyRecords[idx].keyVersion {
				return newErr(Malformed, -1, "public subkey version %d does not match paper-key record version %d", pub.Body[0], subkeyRecords[idx].keyVersion)
			}
			used[idx] = true
			if err := emitMerged(output, 7, pub.Body, subkeyRecords[idx].secret); err != nil {
				return err
			}

		default:
			// User IDs, signatures, attributes, trust packets, etc: not
			// touched by extract/restore, copied through byte-for-byte
			// (spec §4.10: "All other public packets... are copied
			// through unchanged, preserving their original framing
			// bytes.").
			if err := copyThrough(output, pub); err != nil {
				return err
			}
		}
	}

	if !sawPrimary {
		return newErr(FingerprintMismatch, -1, "no public key packet in the public-key stream matched the paper key's primary record")
	}

	if policy.Strict {
		for i, r := range subkeyRecords {
			if !used[i] {
				return newErr(FingerprintMismatch, -1, "paper-key subkey record %x has no matching public subkey", r.fingerprint)
			}
		}
	}

	return nil
}

// emitMerged writes a reassembled secret-key (or subkey) packet: the
// public sub-structure as parsed, followed directly by the secret
// region from the paper key, framed under tag (5 or 7) per the writer's
// policy (spec §4.4, §4.10).
func emitMerged(output Writable, tag byte, publicBody, secret []byte) error {
	body := make([]byte, 0, len(publicBody)+len(secret))
	body = append(body, publicBody...)
	body = append(body, secret...)
	return errors.Wrap(openpgp.Emit(output, tag, body), "paperkey: emitting reassembled secret packet")
}

// copyThrough re-emits a packet exactly as it was read, using its
// original header bytes rather than re-deriving one, so packets this
// module never touches round-trip byte-for-byte.
func copyThrough(output Writable, pkt *openpgp.Packet) error {
	if _, err := output.Write(pkt.Header); err != nil {
		return errors.Wrap(err, "paperkey: copying packet header through")
	}
	if _, err := output.Write(pkt.Body); err != nil {
		return errors.Wrap(err, "paperkey: copying packet body through")
	}
	return nil
}

// decodeRaw drains a RAW-framed paper-key stream: the binary payload
// followed by a 3-byte big-endian CRC-24 over it (spec §6). The trailer
// is verified and stripped before the payload is handed to
// decodeRecords, mirroring the verification BASE16 performs inline.
func decodeRaw(r Readable) ([]byte, error) {
	all, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(all) < 3 {
		return nil, newErr(Malformed, -1, "raw paper-key stream is too short to contain a trailing CRC-24")
	}

	payload := all[:len(all)-3]
	trailer := all[len(all)-3:]
	declared := uint32(trailer[0])<<16 | uint32(trailer[1])<<8 | uint32(trailer[2])

	got := CRC24(CRC24Init, payload)
	if declared != got {
		return nil, newErr(CrcMismatch, -1, "raw paper-key CRC-24 mismatch: got %06X, want %06X", declared, got)
	}

	return payload, nil
}

// readAll drains a Readable fully.
func readAll(r Readable) ([]byte, error) {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return buf, nil
			}
			return buf, err
		}
	}
}
