package hopcrypt

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// EncryptedMetadata is the sealed record describing the original input.
// Its version-1 wire encoding is fixed by encode below and is part of
// the container format.
type EncryptedMetadata struct {
	OriginalFilename  string
	OriginalExtension string
	GzipCompressed    bool
	OriginalSize      uint64
	UUID              string
	Metadata          map[string]string
}

// encode serializes m to the version-1 canonical binary form: every string
// is a u32_le length prefix followed by its UTF-8 bytes, and the metadata
// map is emitted as a u32_le count followed by key/value pairs in
// ascending key order; sorting makes the encoding deterministic despite
// Go's randomized map iteration, independent of any security property of
// the AEAD that seals it.
func (m *EncryptedMetadata) encode() []byte {
	keys := make([]string, 0, len(m.Metadata))
	for k := range m.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	size := 4 + len(m.OriginalFilename) +
		4 + len(m.OriginalExtension) +
		1 +
		8 +
		4 + len(m.UUID) +
		4
	for _, k := range keys {
		size += 4 + len(k) + 4 + len(m.Metadata[k])
	}

	buf := make([]byte, size)
	off := 0
	off = putString(buf, off, m.OriginalFilename)
	off = putString(buf, off, m.OriginalExtension)
	if m.GzipCompressed {
		buf[off] = 1
	}
	off++
	binary.LittleEndian.PutUint64(buf[off:], m.OriginalSize)
	off += 8
	off = putString(buf, off, m.UUID)
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(keys)))
	off += 4
	for _, k := range keys {
		off = putString(buf, off, k)
		off = putString(buf, off, m.Metadata[k])
	}
	return buf
}

func putString(buf []byte, off int, s string) int {
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(s)))
	off += 4
	off += copy(buf[off:], s)
	return off
}

func getString(buf []byte, off int) (string, int, error) {
	if off+4 > len(buf) {
		return "", 0, fmt.Errorf("truncated length prefix at offset %d", off)
	}
	n := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	if n < 0 || off+n > len(buf) {
		return "", 0, fmt.Errorf("truncated string at offset %d (len %d)", off, n)
	}
	return string(buf[off : off+n]), off + n, nil
}

// decodeMetadata parses the version-1 canonical form produced by encode.
func decodeMetadata(buf []byte) (*EncryptedMetadata, error) {
	m := &EncryptedMetadata{}
	off := 0

	var err error
	m.OriginalFilename, off, err = getString(buf, off)
	if err != nil {
		return nil, err
	}
	m.OriginalExtension, off, err = getString(buf, off)
	if err != nil {
		return nil, err
	}

	if off+1 > len(buf) {
		return nil, fmt.Errorf("truncated gzip_compressed flag")
	}
	m.GzipCompressed = buf[off] != 0
	off++

	if off+8 > len(buf) {
		return nil, fmt.Errorf("truncated original_size")
	}
	m.OriginalSize = binary.LittleEndian.Uint64(buf[off:])
	off += 8

	m.UUID, off, err = getString(buf, off)
	if err != nil {
		return nil, err
	}

	if off+4 > len(buf) {
		return nil, fmt.Errorf("truncated metadata count")
	}
	count := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	m.Metadata = make(map[string]string, count)
	for i := 0; i < count; i++ {
		var key, val string
		key, off, err = getString(buf, off)
		if err != nil {
			return nil, err
		}
		val, off, err = getString(buf, off)
		if err != nil {
			return nil, err
		}
		m.Metadata[key] = val
	}

	if off != len(buf) {
		return nil, fmt.Errorf("%d trailing bytes after metadata record", len(buf)-off)
	}
	return m, nil
}

// SealMetadata encodes m and AEAD-seals it under headerKey/headerNonce
// with headerAAD (the public header bytes, EncryptedMetaLen zeroed).
func SealMetadata(m *EncryptedMetadata, headerKey, headerNonce, headerAAD []byte) ([]byte, error) {
	return Seal(headerKey, headerNonce, m.encode(), headerAAD)
}

// UnsealMetadata opens a sealed metadata block and decodes it. An AEAD
// failure surfaces as ErrInvalidPassword; a decode failure on already
// authenticated bytes surfaces as KindSerialization and should be
// unreachable in practice: it indicates a format bug or corruption the
// tag did not catch.
func UnsealMetadata(sealed, headerKey, headerNonce, headerAAD []byte) (*EncryptedMetadata, error) {
	plaintext, err := Open(headerKey, headerNonce, sealed, headerAAD)
	if err != nil {
		return nil, err
	}
	m, err := decodeMetadata(plaintext)
	if err != nil {
		return nil, newErr(KindSerialization, "decoding metadata record", err)
	}
	return m, nil
}
