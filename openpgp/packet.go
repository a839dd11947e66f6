// Package openpgp implements just enough of RFC 4880's packet framing to
// locate, relocate, and re-emit the secret-bearing parts of a transferable
// secret key. It is not a general OpenPGP implementation: no decryption,
// no signature verification, no v3 packets, no partial-length bodies.
package openpgp

import (
	"io"

	"github.com/pkg/errors"
)

// Packet is an OpenPGP packet: a tag in 0..63 and its body. Only tags 5
// (secret key), 6 (public key), 7 (secret subkey) and 14 (public subkey)
// are meaningful to the rest of this module; every other tag is still
// parsed and carried, since restore must copy user IDs, signatures, and
// trust packets through unchanged.
type Packet struct {
	Tag  byte
	Body []byte
	// Header holds the exact header bytes as read from the source
	// stream. Restore uses it to copy non-key packets (user IDs,
	// signatures, trust packets) through byte-for-byte rather than
	// re-deriving a header under the writer's own framing policy, per
	// spec §4.10's "copied through unchanged, preserving their original
	// framing bytes."
	Header []byte
}

// readHeader reads one packet header from r and returns its tag, body
// length, and the exact header bytes consumed. io.EOF is returned
// verbatim when no bytes at all could be read, so callers can
// distinguish "clean end of stream" from "truncated packet".
func readHeader(r io.Reader) (tag byte, length int64, header []byte, err error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, 0, nil, err
	}
	b := first[0]
	header = append(header, b)

	switch {
	case b&0xC0 == 0x80:
		// Old format: top two bits are 10.
		tag = (b >> 2) & 0x0F
		var n int
		switch b & 0x03 {
		case 0:
			n = 1
		case 1:
			n = 2
		case 2:
			n = 4
		case 3:
			return 0, 0, nil, errors.New("openpgp: indeterminate-length old-format packet is unsupported")
		}
		lenBytes, err := readN(r, n)
		if err != nil {
			return 0, 0, nil, errors.Wrap(err, "openpgp: reading old-format length")
		}
		header = append(header, lenBytes...)
		length = bigEndian(lenBytes)

	case b&0xC0 == 0xC0:
		// New format: top two bits are 11.
		tag = b & 0x3F
		var lb [1]byte
		if _, err := io.ReadFull(r, lb[:]); err != nil {
			return 0, 0, nil, errors.Wrap(err, "openpgp: reading new-format length")
		}
		header = append(header, lb[0])
		switch {
		case lb[0] < 192:
			length = int64(lb[0])
		case lb[0] < 224:
			var b1 [1]byte
			if _, err := io.ReadFull(r, b1[:]); err != nil {
				return 0, 0, nil, errors.Wrap(err, "openpgp: reading new-format 2-octet length")
			}
			header = append(header, b1[0])
			length = (int64(lb[0])-192)<<8 + int64(b1[0]) + 192
		case lb[0] == 255:
			lenBytes, err := readN(r, 4)
			if err != nil {
				return 0, 0, nil, errors.Wrap(err, "openpgp: reading new-format 5-octet length")
			}
			header = append(header, lenBytes...)
			length = bigEndian(lenBytes)
		default:
			return 0, 0, nil, errors.New("openpgp: partial-length packet bodies are unsupported")
		}

	default:
		return 0, 0, nil, errors.Errorf("openpgp: illegal packet header byte %#02x", b)
	}

	return tag, length, header, nil
}

func readN(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func bigEndian(buf []byte) int64 {
	var v int64
	for _, b := range buf {
		v = v<<8 | int64(b)
	}
	return v
}

// Parse scans forward from r's current position, skipping packets whose
// tag is neither want nor alt, and returns the next matching packet. It
// returns (nil, nil) at a clean end of stream. Callers invoke it
// repeatedly to enumerate matching packets in order; extract.go relies
// on this to walk tag-7 subkeys while tolerating a stray tag-5 fragment.
func Parse(r io.Reader, want, alt byte) (*Packet, error) {
	for {
		p, err := ParseAny(r)
		if err != nil || p == nil {
			return p, err
		}
		if p.Tag == want || p.Tag == alt {
			return p, nil
		}
	}
}

// ParseAny reads the single next packet of any tag from r, or returns
// (nil, nil) at a clean end of stream. Restore uses this (rather than
// Parse's tag filter) to walk the public-key stream packet by packet so
// it can copy non-key packets through untouched instead of silently
// dropping them.
func ParseAny(r io.Reader) (*Packet, error) {
	tag, length, header, err := readHeader(r)
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	body := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, errors.Wrapf(err, "openpgp: reading body of tag %d packet (%d bytes)", tag, length)
		}
	}

	return &Packet{Tag: tag, Body: body, Header: header}, nil
}

// EmitHeader writes a packet header for tag/length to w. Packets whose tag
// is below 16 are framed old-format with the smallest sufficient length
// type; tag 16 and above are framed new-format with the smallest of the
// RFC 4880 encodings. Partial lengths are never emitted. This mirrors the
// "tag < 16 uses old-format" convention shared by the dominant OpenPGP
// implementations so a secret -> paper -> secret round trip reproduces
// identical framing whenever the input already followed the same rule.
func EmitHeader(w io.Writer, tag byte, length int) error {
	var encoded []byte

	if tag < 16 {
		switch {
		case length > 0xFFFF:
			encoded = []byte{
				0x80 | (tag << 2) | 2,
				byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
			}
		case length > 0xFF:
			encoded = []byte{0x80 | (tag << 2) | 1, byte(length >> 8), byte(length)}
		default:
			encoded = []byte{0x80 | (tag << 2), byte(length)}
		}
	} else {
		switch {
		case length > 8383:
			encoded = []byte{
				0xC0 | tag, 0xFF,
				byte(length >> 24), byte(length >> 16), byte(length >> 8), byte(length),
			}
		case length > 191:
			encoded = []byte{0xC0 | tag, byte(192 + ((length - 192) >> 8)), byte(length - 192)}
		default:
			encoded = []byte{0xC0 | tag, byte(length)}
		}
	}

	_, err := w.Write(encoded)
	return errors.Wrap(err, "openpgp: writing packet header")
}

// Emit writes a full packet (header + body) to w using EmitHeader's
// framing policy.
func Emit(w io.Writer, tag byte, body []byte) error {
	if err := EmitHeader(w, tag, len(body)); err != nil {
		return err
	}
	_, err := w.Write(body)
	return errors.Wrap(err, "openpgp: writing packet body")
}
