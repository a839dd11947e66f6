package paperkey

import (
	"time"

	"github.com/lcp29/Paperkey/openpgp"
)

// FileFormatDescription is the human-readable recipe for manually
// recombining a paper key with its public key, reproduced verbatim (down
// to wording) from the original program's output_file_format(), which
// writes it as the comment header of every BASE16 artifact so a reader
// can recover a key without this program at all.
const FileFormatDescription = `File format:
a) 1 octet:  Version of the paperkey format (currently 0).
b) 1 octet:  OpenPGP key or subkey version (currently 4)
c) n octets: Key fingerprint (20 octets for a version 4 key or subkey)
d) 2 octets: 16-bit big endian length of the following secret data
e) n octets: Secret data: a partial OpenPGP secret key or subkey packet as
             specified in RFC 4880, starting with the string-to-key usage
             octet and continuing until the end of the packet.
Repeat fields b through e as needed to cover all subkeys.

To recover a secret key without using the paperkey program, use the
key fingerprint to match an existing public key packet with the
corresponding secret data from the paper key.  Next, append this secret
data to the public key packet.  Finally, switch the public key packet tag
from 6 to 5 (14 to 7 for subkeys).  This will recreate the original secret
key or secret subkey packet.  Repeat as needed for all public key or subkey
packets in the public key.  All other packets (user IDs, signatures, etc.)
may simply be copied from the public key.
`

// nowFunc is indirected so tests can pin the header's timestamp.
var nowFunc = time.Now

// base16Sink implements the BASE16 framer's write side (spec §4.7). It
// tracks a per-line CRC (reset at each line start) and a whole-stream
// CRC (never reset) exactly as output.c's print_base16 does with its
// line/line_crc/offset out-parameters, just carried as struct fields
// instead of pointer arguments threaded through every call.
type base16Sink struct {
	out       Writable
	lineItems int
	lineNo    uint
	column    int // octets written so far; column%lineItems is the position on the current line
	lineCRC   uint32
	allCRC    uint32
}

func newBase16Sink(out Writable, fingerprint [openpgp.FingerprintLen]byte, width int) (*base16Sink, error) {
	if width <= 0 {
		width = 78
	}
	lineItems := (width - 5 - 6) / 3
	if lineItems < 1 {
		return nil, newErr(Malformed, -1, "output width %d is too narrow for even one octet per line", width)
	}

	s := &base16Sink{
		out:       out,
		lineItems: lineItems,
		lineCRC:   CRC24Init,
		allCRC:    CRC24Init,
	}

	if _, err := out.Printf("# Secret portions of key %X\n", fingerprint[:]); err != nil {
		return nil, err
	}
	if _, err := out.Printf("# Base16 data extracted %s\n", nowFunc().Format("Mon Jan  2 15:04:05 2006")); err != nil {
		return nil, err
	}
	if _, err := out.Printf("# Created with paperkey\n#\n"); err != nil {
		return nil, err
	}
	for _, line := range prefixLines(FileFormatDescription, "# ") {
		if _, err := out.Printf("%s\n", line); err != nil {
			return nil, err
		}
	}
	if _, err := out.Printf("#\n# Each base16 line ends with a CRC-24 of that line.\n"); err != nil {
		return nil, err
	}
	if _, err := out.Printf("# The entire block of data ends with a CRC-24 of the entire block of data.\n\n"); err != nil {
		return nil, err
	}

	return s, nil
}

// prefixLines splits text into lines and prefixes each with prefix,
// trimming the trailing blank line produced by a trailing newline. Blank
// source lines still get the bare prefix ("# ") trimmed of its trailing
// space, matching output_file_format's `"%s\n"` calls with an empty
// body.
func prefixLines(text, prefix string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			line := text[start:i]
			if line == "" {
				lines = append(lines, prefix[:len(prefix)-1])
			} else {
				lines = append(lines, prefix+line)
			}
			start = i + 1
		}
	}
	return lines
}

func (s *base16Sink) writeBytes(buf []byte) error {
	s.allCRC = CRC24(s.allCRC, buf)

	for _, b := range buf {
		if s.column%s.lineItems == 0 {
			if s.lineNo > 0 {
				if _, err := s.out.Printf("%06X\n", s.lineCRC&0xFFFFFF); err != nil {
					return err
				}
				s.lineCRC = CRC24Init
			}
			s.lineNo++
			if _, err := s.out.Printf("%03d: ", s.lineNo); err != nil {
				return err
			}
		}

		if _, err := s.out.Printf("%02X ", b); err != nil {
			return err
		}
		s.lineCRC = CRC24(s.lineCRC, []byte{b})
		s.column++
	}

	return nil
}

func (s *base16Sink) finish() error {
	if _, err := s.out.Printf("%06X\n", s.lineCRC&0xFFFFFF); err != nil {
		return err
	}
	_, err := s.out.Printf("%03d: %06X\n", s.lineNo+1, s.allCRC&0xFFFFFF)
	return err
}
