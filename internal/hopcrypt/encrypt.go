package hopcrypt

import (
	"bufio"
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"

	"github.com/vartec/hoplixi/internal/archiver"
	"github.com/vartec/hoplixi/internal/gzipcodec"
)

// Encrypt runs the full encrypt pipeline: optional directory archiving,
// optional gzip, chunked XChaCha20-Poly1305 encryption, and atomic
// publication of the result. Every staging file
// it creates is removed on every exit path except the final output.
func (e *Engine) Encrypt(ctx context.Context, opts EncryptOptions) (*EncryptResult, error) {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = opts.OutputDir
	}
	extension := opts.Extension
	if extension == "" {
		extension = DefaultExtension
	}
	chunkSize := opts.ChunkSize
	if chunkSize == 0 {
		chunkSize = DesktopChunkSize
	}
	argon2Params := opts.Argon2
	if argon2Params == (Argon2Params{}) {
		argon2Params = DefaultArgon2Params()
	}
	id := opts.UUID
	if id == "" {
		id = newUUID()
	}

	log := e.log.WithField("uuid", id)
	guard := newTempGuard(log)
	defer guard.Close()

	// Step 1: archive if directory.
	source := opts.InputPath
	var originalFilename, originalExtension string

	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return nil, newErr(KindIO, "stat input path", err)
	}

	if info.IsDir() {
		archivePath, err := stagingPath(tempDir, "archive")
		if err != nil {
			return nil, err
		}
		guard.Track(archivePath)

		emit(opts.OnProgress, StageCompressingDirectory, 0, 0)
		if err := archiver.Archive(opts.InputPath, archivePath, nil); err != nil {
			return nil, newErr(KindCompression, "archiving directory", err)
		}
		originalFilename = filepath.Base(filepath.Clean(opts.InputPath))
		originalExtension = ArchiveExtensionSentinel
		source = archivePath
	} else {
		originalFilename, originalExtension = splitNameExt(opts.InputPath)
	}

	// Step 2: optional gzip.
	if opts.Gzip {
		gzipPath, err := stagingPath(tempDir, "gzip")
		if err != nil {
			return nil, err
		}
		guard.Track(gzipPath)

		emit(opts.OnProgress, StageCompressingGzip, 0, 0)
		if err := gzipcodec.Compress(source, gzipPath, gzipcodec.DefaultLevel); err != nil {
			return nil, newErr(KindCompression, "gzip compressing", err)
		}
		if source != opts.InputPath {
			// The previous staging file (the archive) is a large
			// intermediate; remove it now instead of waiting for Finish.
			guard.RemoveNow(source)
		}
		source = gzipPath
	}

	// Step 3: measure.
	sourceInfo, err := os.Stat(source)
	if err != nil {
		return nil, newErr(KindIO, "stat source to encrypt", err)
	}
	originalSize := uint64(sourceInfo.Size())

	// Step 4: generate salt/nonces/uuid (uuid already resolved above).
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, newErr(KindIO, "generating salt", err)
	}
	dataBaseNonce, err := NewDataBaseNonce()
	if err != nil {
		return nil, err
	}
	headerNonce, err := NewHeaderNonce()
	if err != nil {
		return nil, err
	}

	// Step 5: derive keys off the reactor.
	keys, err := deriveKeysAsync(ctx, opts.Password, salt, argon2Params)
	if err != nil {
		return nil, err
	}
	defer keys.Wipe()

	// Step 6: seal metadata.
	header := &PublicHeader{
		Version:           Version,
		Argon2TCost:       argon2Params.TCost,
		Argon2MCostKiB:    argon2Params.MCostKiB,
		Argon2Parallelism: argon2Params.Parallelism,
		ChunkSize:         chunkSize,
	}
	copy(header.Salt[:], salt)
	copy(header.DataBaseNonce[:], dataBaseNonce)
	copy(header.HeaderNonce[:], headerNonce)

	meta := &EncryptedMetadata{
		OriginalFilename:  originalFilename,
		OriginalExtension: originalExtension,
		GzipCompressed:    opts.Gzip,
		OriginalSize:      originalSize,
		UUID:              id,
		Metadata:          opts.Metadata,
	}
	if meta.Metadata == nil {
		meta.Metadata = map[string]string{}
	}

	sealedMeta, err := SealMetadata(meta, keys.HeaderKey(), headerNonce, header.AADBytes())
	if err != nil {
		return nil, err
	}
	header.EncryptedMetaLen = uint32(len(sealedMeta))

	// Step 7: stage output and stream-encrypt.
	stagingOut, err := stagingPath(opts.OutputDir, "ciphertext")
	if err != nil {
		return nil, err
	}
	guard.Track(stagingOut)

	if err := encryptToStaging(ctx, stagingOut, source, header, sealedMeta, keys.DataKey(), id, chunkSize, originalSize, opts.OnProgress); err != nil {
		return nil, err
	}

	// Step 8: flush and atomically publish.
	finalPath := filepath.Join(opts.OutputDir, id+extension)
	if err := publishAtomically(stagingOut, finalPath); err != nil {
		return nil, err
	}
	guard.Release(stagingOut)

	// Step 9: finalize.
	guard.Finish()
	emit(opts.OnProgress, StageDone, 0, 0)

	return &EncryptResult{OutputPath: finalPath, UUID: id, OriginalSize: originalSize}, nil
}

func encryptToStaging(ctx context.Context, stagingOut, sourcePath string, header *PublicHeader, sealedMeta, dataKey []byte, id string, chunkSize uint32, totalSize uint64, onProgress ProgressFunc) error {
	f, err := os.Create(stagingOut)
	if err != nil {
		return newErr(KindIO, "creating ciphertext staging file", err)
	}
	defer f.Close()

	out := bufio.NewWriterSize(f, 64*1024)

	if _, err := header.WriteTo(out); err != nil {
		return newErr(KindIO, "writing public header", err)
	}
	if _, err := out.Write(sealedMeta); err != nil {
		return newErr(KindIO, "writing sealed metadata", err)
	}

	in, err := os.Open(sourcePath)
	if err != nil {
		return newErr(KindIO, "opening source to encrypt", err)
	}
	defer in.Close()

	buf := make([]byte, chunkSize)
	var bytesProcessed uint64
	var index uint64

	for {
		if err := ctx.Err(); err != nil {
			return newErr(KindIO, "cancelled mid-chunk", err)
		}

		n, readErr := io.ReadFull(in, buf)
		if readErr != nil && readErr != io.ErrUnexpectedEOF && readErr != io.EOF {
			return newErr(KindIO, "reading plaintext chunk", readErr)
		}
		if n > 0 {
			nonce := ChunkNonce(header.DataBaseNonce[:], index)
			aad := ChunkAAD(id, header.Version, index)
			ciphertext, err := Seal(dataKey, nonce, buf[:n], aad)
			if err != nil {
				return err
			}
			if _, err := out.Write(ciphertext); err != nil {
				return newErr(KindIO, "writing ciphertext chunk", err)
			}
			bytesProcessed += uint64(n)
			index++
			emit(onProgress, StageEncrypting, bytesProcessed, totalSize)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	if err := out.Flush(); err != nil {
		return newErr(KindIO, "flushing ciphertext staging file", err)
	}
	return f.Sync()
}
