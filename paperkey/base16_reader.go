package paperkey

import (
	"io"
	"strings"
)

// DecodeBase16 reads a BASE16 artifact (spec §4.8) and returns its
// decoded binary payload: the paper-key version octet followed by each
// record's KV‖FPR‖L‖SEC, with every per-line CRC and the final
// whole-stream CRC verified along the way. A mismatch at any point is
// fatal, even if the recovered bytes look otherwise well-formed — the
// artifact must not appear to succeed with tampered data.
func DecodeBase16(r Readable) ([]byte, error) {
	var payload []byte
	allCRC := CRC24Init
	lineNo := 0

	for {
		raw, err := r.ReadLine()
		if err != nil {
			if err == io.EOF {
				return nil, newErr(Malformed, -1, "base16 artifact ended before a final CRC line")
			}
			return nil, err
		}

		line := strings.TrimRight(string(raw), "\r\n")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || trimmed[0] == '#' {
			continue
		}

		lineNo++
		body := trimmed
		if idx := strings.IndexByte(trimmed, ':'); idx >= 0 {
			body = trimmed[idx+1:]
		}

		octets, declaredCRC, hasCRC, perr := parseHexLine(body)
		if perr != nil {
			return nil, newLineErr(Malformed, lineNo, "%s", perr.Error())
		}
		if !hasCRC {
			return nil, newLineErr(Malformed, lineNo, "data line has no trailing CRC-24 token")
		}

		if len(octets) == 0 {
			// Terminator line: whole-stream CRC over everything accepted
			// so far, nothing left to append.
			if declaredCRC != allCRC&0xFFFFFF {
				return nil, newLineErr(CrcMismatch, lineNo, "final whole-stream CRC mismatch: got %06X, want %06X", declaredCRC, allCRC&0xFFFFFF)
			}
			return payload, nil
		}

		lineCRC := CRC24(CRC24Init, octets)
		if declaredCRC != lineCRC {
			return nil, newLineErr(CrcMismatch, lineNo, "line CRC mismatch: got %06X, want %06X", declaredCRC, lineCRC)
		}

		allCRC = CRC24(allCRC, octets)
		payload = append(payload, octets...)
	}
}

// parseHexLine tokenizes a line body (the content after "NNN: ") into
// whitespace-separated hex tokens. Two-hex-digit tokens accumulate as
// payload octets; a 6-hex-digit token is the line's declared CRC, and an
// octet token after it is malformed. Whitespace, leading zeros, and case
// are all tolerant per spec §4.8; anything else is malformed.
func parseHexLine(body string) (octets []byte, crc uint32, hasCRC bool, err error) {
	fields := strings.Fields(body)
	for _, tok := range fields {
		if !isAllHex(tok) {
			return nil, 0, false, errMalformedf("invalid hex token %q", tok)
		}
		switch len(tok) {
		case 2:
			if hasCRC {
				return nil, 0, false, errMalformedf("octet token %q found after CRC token", tok)
			}
			v, _ := parseHexByte(tok)
			octets = append(octets, v)
		case 6:
			v, e := parseHexU32(tok)
			if e != nil {
				return nil, 0, false, e
			}
			crc = v
			hasCRC = true
		default:
			return nil, 0, false, errMalformedf("unexpected hex token length %d in %q", len(tok), tok)
		}
	}
	return octets, crc, hasCRC, nil
}

func isAllHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

func parseHexByte(s string) (byte, error) {
	v, err := parseHexU32(s)
	return byte(v), err
}

func parseHexU32(s string) (uint32, error) {
	var v uint32
	for i := 0; i < len(s); i++ {
		v <<= 4
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			v |= uint32(c - '0')
		case c >= 'a' && c <= 'f':
			v |= uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= uint32(c-'A') + 10
		default:
			return 0, errMalformedf("invalid hex digit %q", c)
		}
	}
	return v, nil
}

func errMalformedf(format string, args ...interface{}) error {
	return newErr(Malformed, -1, format, args...)
}
