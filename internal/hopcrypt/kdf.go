package hopcrypt

import (
	"crypto/sha256"
	"io"
	"runtime"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// DerivedKeys is the transient {header_key, data_key} pair produced by
// DeriveKeys. Both keys live in memguard-locked, page-aligned memory for
// the pipeline's lifetime and must be released with Wipe on every exit
// path, success or error.
type DerivedKeys struct {
	headerKey *memguard.LockedBuffer
	dataKey   *memguard.LockedBuffer
}

// HeaderKey returns the 32-byte key used to seal/open the metadata block.
// The returned slice aliases memguard-locked memory; do not retain it past
// Wipe.
func (d *DerivedKeys) HeaderKey() []byte { return d.headerKey.Bytes() }

// DataKey returns the 32-byte key used to seal/open ciphertext chunks.
func (d *DerivedKeys) DataKey() []byte { return d.dataKey.Bytes() }

// Wipe destroys both locked buffers, zeroing their backing memory. Safe to
// call more than once.
func (d *DerivedKeys) Wipe() {
	if d.headerKey != nil {
		d.headerKey.Destroy()
	}
	if d.dataKey != nil {
		d.dataKey.Destroy()
	}
}

// SecureZero overwrites b with zeros, pinned against dead-store
// elimination. Exported for callers holding password bytes outside this
// package (e.g. a CLI front-end) that want the same zeroization
// discipline this package applies to its own scratch key material.
func SecureZero(b []byte) {
	secureWipe(b)
}

// secureWipe overwrites a plain (non-memguard) scratch buffer with zeros
// and pins it with runtime.KeepAlive so the compiler cannot prove the
// write is dead and elide it.
func secureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// DeriveKeys runs Argon2id over password and salt to produce a 32-byte
// master key, then expands it via HKDF-SHA256 into two domain-separated
// sub-keys. The master key is wiped before this function returns; only
// header_key and data_key survive, inside memguard-locked buffers.
//
// This is CPU- and memory-heavy (Argon2id); callers on a reactor/event
// loop should invoke it from a dedicated goroutine, which is what Engine
// does internally (see engine.go).
func DeriveKeys(password []byte, salt []byte, params Argon2Params) (*DerivedKeys, error) {
	if len(salt) != SaltLen {
		return nil, newErr(KindKeyDerivation, "salt must be 32 bytes", nil)
	}

	master := argon2.IDKey(password, salt, params.TCost, params.MCostKiB, uint8(params.Parallelism), KeyLen)
	defer secureWipe(master)

	headerKey := make([]byte, KeyLen)
	if err := hkdfExpand(master, []byte(hkdfInfoHeaderKey), headerKey); err != nil {
		secureWipe(headerKey)
		return nil, newErr(KindKeyDerivation, "expanding header key", err)
	}

	dataKey := make([]byte, KeyLen)
	if err := hkdfExpand(master, []byte(hkdfInfoDataKey), dataKey); err != nil {
		secureWipe(headerKey)
		secureWipe(dataKey)
		return nil, newErr(KindKeyDerivation, "expanding data key", err)
	}

	headerBuf := memguard.NewBufferFromBytes(headerKey)
	dataBuf := memguard.NewBufferFromBytes(dataKey)

	return &DerivedKeys{headerKey: headerBuf, dataKey: dataBuf}, nil
}

func hkdfExpand(secret, info, out []byte) error {
	reader := hkdf.New(sha256.New, secret, nil, info)
	_, err := io.ReadFull(reader, out)
	return err
}
