package hopcrypt

import (
	"crypto/rand"
	"encoding/binary"
)

// NewHeaderNonce returns 24 fully random bytes used to seal the metadata
// block.
func NewHeaderNonce() ([]byte, error) {
	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, newErr(KindIO, "generating header nonce", err)
	}
	return nonce, nil
}

// NewDataBaseNonce returns 24 bytes: 16 random, then 8 zero bytes reserved
// for the per-chunk counter. Never use this value directly to seal a
// chunk; derive a chunk nonce from it with ChunkNonce.
func NewDataBaseNonce() ([]byte, error) {
	base := make([]byte, NonceLen)
	if _, err := rand.Read(base[:NonceRandomLen]); err != nil {
		return nil, newErr(KindIO, "generating data base nonce", err)
	}
	// base[NonceRandomLen:] stays zero by construction.
	return base, nil
}

// ChunkNonce derives the nonce for chunk index i from a data base nonce:
// the 16 random prefix bytes are kept, and the trailing 8 bytes are
// replaced with the little-endian chunk index. The last 8 bytes of base
// are ignored (they must already be zero).
func ChunkNonce(base []byte, i uint64) []byte {
	nonce := make([]byte, NonceLen)
	copy(nonce, base[:NonceRandomLen])
	binary.LittleEndian.PutUint64(nonce[NonceRandomLen:], i)
	return nonce
}
