package hopcrypt

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of failure categories a pipeline invocation
// can terminate with. Every exported error from this package and from
// internal/archiver and internal/gzipcodec, once wrapped by the engine,
// carries one of these.
type Kind int

const (
	// KindIO covers filesystem and stream errors not otherwise classified.
	KindIO Kind = iota
	// KindEncryption covers AEAD seal failures (should be unreachable in
	// practice; seal does not fail on well-formed input).
	KindEncryption
	// KindDecryption covers non-AEAD decrypt-path failures.
	KindDecryption
	// KindInvalidMagic means the 7-byte magic at offset 0 did not match.
	KindInvalidMagic
	// KindUnsupportedVersion means the header's version field is not Version.
	KindUnsupportedVersion
	// KindInvalidPassword is returned for any AEAD open failure: wrong
	// password, wrong nonce, wrong AAD, or tampered bytes. Callers
	// cannot tell these apart.
	KindInvalidPassword
	// KindCorruptedData covers structurally invalid decoded content that an
	// AEAD tag did not catch.
	KindCorruptedData
	// KindCompression covers archiver/gzip codec failures.
	KindCompression
	// KindKeyDerivation covers Argon2id/HKDF primitive failures.
	KindKeyDerivation
	// KindHeaderParse covers malformed (too-short, truncated) header bytes.
	KindHeaderParse
	// KindInvalidHeader covers well-formed but out-of-bounds header fields.
	KindInvalidHeader
	// KindSerialization covers metadata encode/decode failures.
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindEncryption:
		return "encryption"
	case KindDecryption:
		return "decryption"
	case KindInvalidMagic:
		return "invalid_magic"
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindInvalidPassword:
		return "invalid_password"
	case KindCorruptedData:
		return "corrupted_data"
	case KindCompression:
		return "compression"
	case KindKeyDerivation:
		return "key_derivation"
	case KindHeaderParse:
		return "header_parse"
	case KindInvalidHeader:
		return "invalid_header"
	case KindSerialization:
		return "serialization"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across package and pipeline
// boundaries. Its Kind is the stable, closed classification; its message
// and wrapped cause carry detail for logs and %w chains.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// newErr constructs an *Error, the package-internal constructor used by
// every other file instead of ad hoc fmt.Errorf.
func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Sentinel errors for the few cases worth matching with errors.Is without
// inspecting Kind.
var (
	ErrInvalidPassword    = newErr(KindInvalidPassword, "wrong password or corrupted ciphertext", nil)
	ErrInvalidMagic       = newErr(KindInvalidMagic, "bad container magic", nil)
	ErrUnsupportedVersion = newErr(KindUnsupportedVersion, "unsupported container version", nil)
)

// IsInvalidPassword reports whether err is (or wraps) an invalid-password
// failure, the collapse point for all AEAD tamper/wrong-key/wrong-AAD cases.
func IsInvalidPassword(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindInvalidPassword
	}
	return false
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise. Binding layers use this to translate into their own transport.
func KindOf(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
