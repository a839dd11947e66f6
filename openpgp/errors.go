package openpgp

import "fmt"

// UnsupportedVersionError is returned when a key or subkey packet carries
// a version other than 4. v3 packets are explicitly out of scope (spec
// §1 Non-goals); paperkeytest's own era predates v5/v6, so those aren't
// claimed as "version 4" either.
type UnsupportedVersionError struct {
	Version byte
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("openpgp: unsupported key packet version %d (only v4 is supported)", e.Version)
}

// UnsupportedAlgorithmError is returned when a key's public-key algorithm
// has no defined secret-region layout.
type UnsupportedAlgorithmError struct {
	Algorithm byte
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("openpgp: unsupported public-key algorithm %d", e.Algorithm)
}

func newUnsupportedVersion(v byte) error {
	return &UnsupportedVersionError{Version: v}
}

func newUnsupportedAlgorithm(a byte) error {
	return &UnsupportedAlgorithmError{Algorithm: a}
}
