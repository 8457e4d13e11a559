package hopcrypt

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"
)

// Seal authenticates and encrypts plaintext under key/nonce/aad, returning
// ciphertext‖tag. key must be 32 bytes, nonce must be 24 bytes.
func Seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, newErr(KindEncryption, "constructing AEAD", err)
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open authenticates and decrypts ciphertext (which must include the
// trailing 16-byte tag) under key/nonce/aad. Any failure (wrong key,
// wrong nonce, wrong AAD, tampered bytes) is reported identically as
// ErrInvalidPassword; callers cannot tell them apart.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, newErr(KindEncryption, "constructing AEAD", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plaintext, nil
}

// ChunkAAD builds the associated data bound to chunk index i of the file
// identified by uuid: uuid_utf8 ‖ u16_le(version) ‖ u64_le(index). This
// binds every chunk to the file's identity, the format version, and its
// ordinal position so chunks cannot be reordered, duplicated, truncated
// silently, or transplanted between files or versions.
func ChunkAAD(uuid string, version uint16, index uint64) []byte {
	aad := make([]byte, len(uuid)+2+8)
	n := copy(aad, uuid)
	binary.LittleEndian.PutUint16(aad[n:], version)
	binary.LittleEndian.PutUint64(aad[n+2:], index)
	return aad
}
