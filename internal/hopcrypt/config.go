// Package hopcrypt implements the HOPLIXI file encryption container: a
// fixed public header, an AEAD-sealed metadata block, and chunked
// XChaCha20-Poly1305 ciphertext. See Engine for the encrypt/decrypt
// pipelines.
package hopcrypt

const (
	// Magic is the fixed 7-byte ASCII marker at offset 0 of every container.
	Magic = "HOPLIXI"

	// Version is the current format version. Any other value on parse is
	// UnsupportedVersion.
	Version uint16 = 1

	// SaltLen is the Argon2id salt size in bytes.
	SaltLen = 32
	// NonceLen is the XChaCha20-Poly1305 nonce size in bytes.
	NonceLen = 24
	// TagLen is the Poly1305 authentication tag size in bytes.
	TagLen = 16
	// KeyLen is the size in bytes of every derived key (master, header, data).
	KeyLen = 32

	// NonceRandomLen is the random-prefix portion of a data base nonce.
	NonceRandomLen = 16
	// NonceCounterLen is the little-endian chunk-counter suffix of a data
	// base nonce; zero in the stored base, filled in per chunk.
	NonceCounterLen = 8

	// PublicHeaderSize is the fixed on-disk size of PublicHeader:
	// magic(7) + version(2) + salt(32) + t_cost(4) + m_cost_kib(4) +
	// parallelism(4) + chunk_size(4) + data_base_nonce(24) +
	// header_nonce(24) + encrypted_meta_len(4) = 109.
	PublicHeaderSize = 7 + 2 + 32 + 4 + 4 + 4 + 4 + 24 + 24 + 4

	// DefaultExtension is used when the caller does not supply one.
	DefaultExtension = ".enc"

	// DesktopChunkSize and MobileChunkSize are the two chunk-size presets
	// named in the engine's inputs.
	DesktopChunkSize = 1 << 20   // 1 MiB
	MobileChunkSize  = 256 << 10 // 256 KiB

	// MinChunkSize and MaxChunkSize bound the on-disk chunk_size field.
	MinChunkSize = 64
	MaxChunkSize = 64 << 20 // 64 MiB

	// MaxEncryptedMetaLen bounds the sealed-metadata length field.
	MaxEncryptedMetaLen = 1 << 20 // 1 MiB

	// Argon2 parameter bounds, enforced on header parse before any hashing.
	MaxArgon2TCost       = 100
	MaxArgon2MCostKiB    = 4 << 20 // 4 GiB expressed in KiB
	MaxArgon2Parallelism = 255

	// ArchiveExtensionSentinel marks a sealed metadata record whose payload
	// is an archived directory tree, regardless of the concrete archive
	// mechanism behind it (see internal/archiver).
	ArchiveExtensionSentinel = "7z"

	// HKDF info strings domain-separate the two sub-keys expanded from one
	// Argon2id master key.
	hkdfInfoHeaderKey = "hoplixi-header-key-v1"
	hkdfInfoDataKey   = "hoplixi-data-key-v1"
)

// Argon2Params holds the three cost parameters stored in every PublicHeader.
type Argon2Params struct {
	TCost       uint32
	MCostKiB    uint32
	Parallelism uint32
}

// DefaultArgon2Params returns the preset used unless a caller overrides it.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{TCost: 3, MCostKiB: 32768, Parallelism: 4}
}
