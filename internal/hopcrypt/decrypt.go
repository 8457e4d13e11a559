package hopcrypt

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vartec/hoplixi/internal/archiver"
	"github.com/vartec/hoplixi/internal/gzipcodec"
)

// ReadHeader runs steps 1-4 of Decrypt and returns only the metadata,
// without touching the ciphertext payload. Argon2id is still paid since
// the metadata is sealed under the header key. Used to show file info
// before committing to a full decrypt.
func (e *Engine) ReadHeader(ctx context.Context, opts DecryptOptions) (*EncryptedMetadata, error) {
	in, err := os.Open(opts.InputPath)
	if err != nil {
		return nil, newErr(KindIO, "opening input file", err)
	}
	defer in.Close()

	header, err := ParseHeader(in)
	if err != nil {
		return nil, err
	}

	sealedMeta := make([]byte, header.EncryptedMetaLen)
	if _, err := io.ReadFull(in, sealedMeta); err != nil {
		return nil, newErr(KindHeaderParse, "reading sealed metadata", err)
	}

	keys, err := deriveKeysAsync(ctx, opts.Password, header.Salt[:], header.ToArgon2Params())
	if err != nil {
		return nil, err
	}
	defer keys.Wipe()

	return UnsealMetadata(sealedMeta, keys.HeaderKey(), header.HeaderNonce[:], header.AADBytes())
}

// Decrypt runs the full decrypt pipeline: parse and validate the public
// header, unseal metadata, stream-decrypt
// the payload, then reverse any gzip/archive steps that were applied at
// encrypt time.
func (e *Engine) Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = opts.OutputDir
	}

	log := e.log.WithField("input", opts.InputPath)
	guard := newTempGuard(log)
	defer guard.Close()

	in, err := os.Open(opts.InputPath)
	if err != nil {
		return nil, newErr(KindIO, "opening input file", err)
	}
	defer in.Close()

	header, err := ParseHeader(in)
	if err != nil {
		return nil, err
	}

	sealedMeta := make([]byte, header.EncryptedMetaLen)
	if _, err := io.ReadFull(in, sealedMeta); err != nil {
		return nil, newErr(KindHeaderParse, "reading sealed metadata", err)
	}

	keys, err := deriveKeysAsync(ctx, opts.Password, header.Salt[:], header.ToArgon2Params())
	if err != nil {
		return nil, err
	}
	defer keys.Wipe()

	meta, err := UnsealMetadata(sealedMeta, keys.HeaderKey(), header.HeaderNonce[:], header.AADBytes())
	if err != nil {
		return nil, err
	}

	// Step 5: stream-decrypt payload into a staging file.
	payloadStaging, err := stagingPath(tempDir, "payload")
	if err != nil {
		return nil, err
	}
	guard.Track(payloadStaging)

	if err := decryptToStaging(ctx, payloadStaging, in, header, keys.DataKey(), meta, opts.OnProgress); err != nil {
		return nil, err
	}
	current := payloadStaging

	// Step 6: un-gzip.
	if meta.GzipCompressed {
		ungzipPath, err := stagingPath(tempDir, "ungzip")
		if err != nil {
			return nil, err
		}
		guard.Track(ungzipPath)

		emit(opts.OnProgress, StageDecompressingGzip, 0, 0)
		if err := gzipcodec.Decompress(current, ungzipPath); err != nil {
			return nil, newErr(KindCompression, "gzip decompressing", err)
		}
		guard.RemoveNow(current)
		current = ungzipPath
	}

	// Step 7 / 8: un-archive, or move the final staging file into place.
	var outputPath string
	if meta.OriginalExtension == ArchiveExtensionSentinel {
		outputPath = filepath.Join(opts.OutputDir, meta.OriginalFilename)
		emit(opts.OnProgress, StageDecompressingDirectory, 0, 0)
		if err := archiver.Extract(current, outputPath, nil); err != nil {
			return nil, newErr(KindCompression, "extracting archive", err)
		}
		// current remains tracked and is removed by Finish.
	} else {
		outputPath = filepath.Join(opts.OutputDir, joinNameExt(meta.OriginalFilename, meta.OriginalExtension))
		if err := publishAtomically(current, outputPath); err != nil {
			return nil, err
		}
		guard.Release(current)
	}

	guard.Finish()
	emit(opts.OnProgress, StageDone, 0, 0)

	return &DecryptResult{OutputPath: outputPath, Metadata: meta}, nil
}

func decryptToStaging(ctx context.Context, outPath string, in io.Reader, header *PublicHeader, dataKey []byte, meta *EncryptedMetadata, onProgress ProgressFunc) error {
	out, err := os.Create(outPath)
	if err != nil {
		return newErr(KindIO, "creating plaintext staging file", err)
	}
	defer out.Close()

	ciphertextChunkSize := int(header.ChunkSize) + TagLen
	buf := make([]byte, ciphertextChunkSize)
	var bytesProcessed uint64
	var index uint64

	for {
		if err := ctx.Err(); err != nil {
			return newErr(KindIO, "cancelled mid-chunk", err)
		}

		n, readErr := io.ReadFull(in, buf)
		if readErr == io.EOF {
			break
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return newErr(KindIO, "reading ciphertext chunk", readErr)
		}

		// A trailing read of 16 bytes or fewer cannot carry a valid
		// ciphertext+tag; Open rejects it like any other tampered chunk.
		nonce := ChunkNonce(header.DataBaseNonce[:], index)
		aad := ChunkAAD(meta.UUID, header.Version, index)
		plaintext, err := Open(dataKey, nonce, buf[:n], aad)
		if err != nil {
			return err
		}
		if _, err := out.Write(plaintext); err != nil {
			return newErr(KindIO, "writing plaintext chunk", err)
		}
		bytesProcessed += uint64(len(plaintext))
		index++
		emit(onProgress, StageDecrypting, bytesProcessed, meta.OriginalSize)

		if readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	// A file truncated at an exact chunk boundary opens every remaining
	// chunk cleanly; the total plaintext length is the only signal left.
	if bytesProcessed != meta.OriginalSize {
		return newErr(KindCorruptedData, fmt.Sprintf("payload is %d bytes, sealed metadata records %d", bytesProcessed, meta.OriginalSize), nil)
	}

	return out.Sync()
}
