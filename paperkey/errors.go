package paperkey

import (
	"fmt"

	"github.com/lcp29/Paperkey/openpgp"
	"github.com/pkg/errors"
)

// Kind classifies a paperkey failure so the CLI (and tests) can branch on
// it without parsing error text. See spec §7.
type Kind int

const (
	// NoSecretKey means the input stream had no primary secret key packet.
	NoSecretKey Kind = iota
	// UnsupportedVersion means a key packet wasn't v4, or the paper-key
	// format version octet wasn't 0.
	UnsupportedVersion
	// UnsupportedAlgorithm means the key's public-key algorithm has no
	// defined secret-region layout.
	UnsupportedAlgorithm
	// Malformed covers framing errors, length overflows, truncated MPIs,
	// invalid base16, and other structural assertion failures.
	Malformed
	// CrcMismatch means a base16 line or whole-stream CRC didn't verify.
	CrcMismatch
	// FingerprintMismatch means no public packet matched a record's
	// fingerprint.
	FingerprintMismatch
	// LengthOverflow means a secret region exceeds 65535 bytes.
	LengthOverflow
)

func (k Kind) String() string {
	switch k {
	case NoSecretKey:
		return "no secret key"
	case UnsupportedVersion:
		return "unsupported version"
	case UnsupportedAlgorithm:
		return "unsupported algorithm"
	case Malformed:
		return "malformed"
	case CrcMismatch:
		return "CRC mismatch"
	case FingerprintMismatch:
		return "fingerprint mismatch"
	case LengthOverflow:
		return "length overflow"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every exported paperkey operation.
// The core never silently repairs bad input (spec §7): every error
// aborts the pipeline and carries enough context (an offset, a line
// number, or both) to locate the problem in the artifact.
type Error struct {
	Kind    Kind
	Message string
	Line    int // 1-based base16 line number; 0 if not applicable
	Offset  int // byte offset into the relevant stream; -1 if not applicable
	cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("paperkey: %s at line %d: %s", e.Kind, e.Line, e.Message)
	case e.Offset >= 0:
		return fmt.Sprintf("paperkey: %s at offset %d: %s", e.Kind, e.Offset, e.Message)
	default:
		return fmt.Sprintf("paperkey: %s: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, offset int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: offset, Line: 0}
}

func newLineErr(kind Kind, line int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: -1, Line: line}
}

// classify maps an error surfaced by the openpgp package onto a Kind,
// preserving the original as the cause. Anything not specifically
// recognized is Malformed, per the "never silently repair" policy: an
// unexpected shape in the input is always a hard failure, never a
// best-effort default.
func classify(err error, offset int) *Error {
	if err == nil {
		return nil
	}
	if pkErr, ok := errors.Cause(err).(*Error); ok {
		return pkErr
	}

	cause := errors.Cause(err)
	var versionErr *openpgp.UnsupportedVersionError
	var algoErr *openpgp.UnsupportedAlgorithmError
	switch e := cause.(type) {
	case *openpgp.UnsupportedVersionError:
		versionErr = e
	case *openpgp.UnsupportedAlgorithmError:
		algoErr = e
	}

	var kind Kind
	switch {
	case versionErr != nil:
		kind = UnsupportedVersion
	case algoErr != nil:
		kind = UnsupportedAlgorithm
	default:
		kind = Malformed
	}

	return &Error{Kind: kind, Message: err.Error(), Offset: offset, cause: err}
}
