package hopcrypt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PublicHeader is the fixed 109-byte on-disk prefix of every container.
// All multi-byte fields are little-endian. See config.go for exact
// offsets and bounds.
type PublicHeader struct {
	Version           uint16
	Salt              [SaltLen]byte
	Argon2TCost       uint32
	Argon2MCostKiB    uint32
	Argon2Parallelism uint32
	ChunkSize         uint32
	DataBaseNonce     [NonceLen]byte
	HeaderNonce       [NonceLen]byte
	EncryptedMetaLen  uint32
}

// ToBytes serializes h to the fixed 109-byte layout. Used both to write the
// header to disk and, with EncryptedMetaLen forced to zero by the caller,
// as metadata AAD material.
func (h *PublicHeader) ToBytes() []byte {
	buf := make([]byte, PublicHeaderSize)
	off := 0
	off += copy(buf[off:], Magic)
	binary.LittleEndian.PutUint16(buf[off:], h.Version)
	off += 2
	off += copy(buf[off:], h.Salt[:])
	binary.LittleEndian.PutUint32(buf[off:], h.Argon2TCost)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.Argon2MCostKiB)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.Argon2Parallelism)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.ChunkSize)
	off += 4
	off += copy(buf[off:], h.DataBaseNonce[:])
	off += copy(buf[off:], h.HeaderNonce[:])
	binary.LittleEndian.PutUint32(buf[off:], h.EncryptedMetaLen)
	off += 4
	if off != PublicHeaderSize {
		panic("hopcrypt: header codec offset mismatch")
	}
	return buf
}

// AADBytes returns ToBytes with EncryptedMetaLen zeroed, the form used as
// metadata AAD. The field is excluded because it is only known after
// sealing; zeroing it for AAD purposes on both seal and open sides makes
// the binding order-independent.
func (h *PublicHeader) AADBytes() []byte {
	clone := *h
	clone.EncryptedMetaLen = 0
	return clone.ToBytes()
}

// WriteTo writes the fixed header bytes to w.
func (h *PublicHeader) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(h.ToBytes())
	return int64(n), err
}

// ParseHeader reads exactly PublicHeaderSize bytes from r and validates
// magic, version, and every numeric parameter against its bound. Bounds
// are validated before any Argon2 work is possible: the anti-DoS gate
// that keeps a malicious header from requesting gigabytes of memory or a
// giant metadata allocation before the password is even checked.
func ParseHeader(r io.Reader) (*PublicHeader, error) {
	buf := make([]byte, PublicHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, newErr(KindHeaderParse, "reading header bytes", err)
	}
	return DecodeHeader(buf)
}

// DecodeHeader parses and validates a 109-byte header already in memory.
func DecodeHeader(buf []byte) (*PublicHeader, error) {
	if len(buf) != PublicHeaderSize {
		return nil, newErr(KindHeaderParse, fmt.Sprintf("expected %d bytes, got %d", PublicHeaderSize, len(buf)), nil)
	}

	if string(buf[0:7]) != Magic {
		return nil, ErrInvalidMagic
	}

	h := &PublicHeader{}
	off := 7
	h.Version = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	if h.Version != Version {
		return nil, newErr(KindUnsupportedVersion, fmt.Sprintf("version %d", h.Version), ErrUnsupportedVersion)
	}

	copy(h.Salt[:], buf[off:off+SaltLen])
	off += SaltLen

	h.Argon2TCost = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.Argon2MCostKiB = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.Argon2Parallelism = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.ChunkSize = binary.LittleEndian.Uint32(buf[off:])
	off += 4

	copy(h.DataBaseNonce[:], buf[off:off+NonceLen])
	off += NonceLen
	copy(h.HeaderNonce[:], buf[off:off+NonceLen])
	off += NonceLen

	h.EncryptedMetaLen = binary.LittleEndian.Uint32(buf[off:])
	off += 4

	if off != PublicHeaderSize {
		panic("hopcrypt: header codec offset mismatch")
	}

	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *PublicHeader) validate() error {
	if h.ChunkSize < MinChunkSize || h.ChunkSize > MaxChunkSize {
		return newErr(KindInvalidHeader, fmt.Sprintf("chunk_size out of bounds: %d", h.ChunkSize), nil)
	}
	if h.EncryptedMetaLen > MaxEncryptedMetaLen {
		return newErr(KindInvalidHeader, fmt.Sprintf("encrypted_meta_len out of bounds: %d", h.EncryptedMetaLen), nil)
	}
	if h.Argon2TCost < 1 || h.Argon2TCost > MaxArgon2TCost {
		return newErr(KindInvalidHeader, fmt.Sprintf("argon2_t_cost out of bounds: %d", h.Argon2TCost), nil)
	}
	if h.Argon2MCostKiB < 1 || h.Argon2MCostKiB > MaxArgon2MCostKiB {
		return newErr(KindInvalidHeader, fmt.Sprintf("argon2_m_cost_kib out of bounds: %d", h.Argon2MCostKiB), nil)
	}
	if h.Argon2Parallelism < 1 || h.Argon2Parallelism > MaxArgon2Parallelism {
		return newErr(KindInvalidHeader, fmt.Sprintf("argon2_parallelism out of bounds: %d", h.Argon2Parallelism), nil)
	}
	return nil
}

// ToArgon2Params extracts the Argon2id cost parameters stored in the header.
func (h *PublicHeader) ToArgon2Params() Argon2Params {
	return Argon2Params{TCost: h.Argon2TCost, MCostKiB: h.Argon2MCostKiB, Parallelism: h.Argon2Parallelism}
}
