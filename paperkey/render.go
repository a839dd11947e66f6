package paperkey

import "github.com/lcp29/Paperkey/openpgp"

// Framing selects how the paper-key artifact is encoded on the wire.
// AUTO on output behaves exactly like BASE16 (spec §4.9); AUTO passed to
// Restore sniffs the paper-key stream instead (spec §9's resolved open
// question) via SniffFraming and then decodes it as the sniffed framing.
type Framing int

const (
	RAW Framing = iota
	BASE16
	Auto
)

// Policy bundles the small set of caller-chosen knobs that the original
// C source kept as process-wide globals (verbose, the current output
// type, the static line CRC inside the printer). Spec §9 calls for
// replacing that global state with an explicit parameter block threaded
// through the pipeline; Policy is that block, while the per-call CRC and
// column bookkeeping lives in the concrete sink implementations below.
type Policy struct {
	Framing Framing
	// OutputWidth is the BASE16 column budget; ignored for RAW. Zero
	// selects the default of 78.
	OutputWidth int
	// Strict controls subkey-matching behavior on restore: when false
	// (the default, matching the original program), a public subkey
	// with no corresponding paper-key record is simply left without
	// secret material, and a paper-key subkey record with no matching
	// public subkey is dropped. When true, either condition is a hard
	// failure.
	Strict bool
	// Logger receives low-volume diagnostic messages (fingerprints,
	// secret offsets, per-subkey progress) that extract.c originally
	// emitted behind a commented-out verbose flag. Nil discards them;
	// only main.go ever supplies one, keeping this package log-free on
	// its own.
	Logger Logger
}

func (p Policy) outputWidth() int {
	if p.OutputWidth <= 0 {
		return 78
	}
	return p.OutputWidth
}

func (p Policy) logger() Logger {
	if p.Logger == nil {
		return nopLogger{}
	}
	return p.Logger
}

// Logger receives the core pipelines' diagnostic messages. Implementing
// it against a real logging library (as main.go does with logrus) is
// the caller's business; the core packages only ever call Debugf.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// sink is the small dispatch surface spec §9 asks for in place of an
// inheritance hierarchy: begin happens in the constructor, writeBytes
// appends payload (updating any running CRCs), and finish writes
// whatever trailer the framing requires.
type sink interface {
	writeBytes(buf []byte) error
	finish() error
}

// newSink builds the sink matching framing. AUTO is accepted here and
// treated as BASE16, matching the original program's output-side
// behavior; restore's input side uses SniffFraming instead; framing
// never reaches newSink as Auto from Restore since Restore resolves it
// first.
func newSink(out Writable, framing Framing, fingerprint [openpgp.FingerprintLen]byte, width int) (sink, error) {
	switch framing {
	case RAW:
		return newRawSink(out), nil
	case BASE16, Auto:
		return newBase16Sink(out, fingerprint, width)
	default:
		return nil, newErr(Malformed, -1, "unknown output framing %d", framing)
	}
}

// rawSink writes the binary payload as-is, appending a 3-byte big-endian
// CRC-24 of the entire payload on finish (spec §4.9/§6).
type rawSink struct {
	out    Writable
	allCRC uint32
}

func newRawSink(out Writable) *rawSink {
	return &rawSink{out: out, allCRC: CRC24Init}
}

func (s *rawSink) writeBytes(buf []byte) error {
	s.allCRC = CRC24(s.allCRC, buf)
	_, err := s.out.Write(buf)
	return err
}

func (s *rawSink) finish() error {
	crc := s.allCRC
	_, err := s.out.Write([]byte{byte(crc >> 16), byte(crc >> 8), byte(crc)})
	return err
}

// SniffFraming inspects the first non-whitespace byte of r without
// permanently consuming the stream's framing decision for the caller:
// '#' or a hex digit indicates BASE16, anything else indicates RAW. This
// is the embedder-side heuristic spec §9 leaves open; Restore calls it
// when given Auto, and callers may also call it directly.
func SniffFraming(r Readable) (Framing, error) {
	for {
		b, err := r.PeekByte()
		if err != nil {
			return RAW, err
		}
		switch {
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			// Consume the whitespace byte and keep scanning. A single
			// byte of pushback is all Readable promises, so we read
			// (consume) via a throwaway one-byte buffer rather than
			// trying to skip further ahead.
			var discard [1]byte
			if _, err := r.Read(discard[:]); err != nil {
				return RAW, err
			}
		case b == '#' || isHexDigit(b):
			return BASE16, nil
		default:
			return RAW, nil
		}
	}
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
