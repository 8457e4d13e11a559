package hopcrypt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.PanicLevel)
	return NewEngine(log)
}

// fastArgon2 keeps these tests quick; the tampering/bounds properties
// don't depend on real-world cost parameters.
func fastArgon2() Argon2Params {
	return Argon2Params{TCost: 1, MCostKiB: 64, Parallelism: 1}
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestEngineEncryptDecryptRoundTripFile(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "hello.txt", []byte("Hello, HOPLIXI encryption!"))

	e := testEngine()
	encRes, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("test-password"),
		ChunkSize: 256,
		Argon2:    Argon2Params{TCost: 1, MCostKiB: 64, Parallelism: 1},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(encRes.OutputPath)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), PublicHeaderSize)
	assert.Equal(t, Magic, string(raw[0:7]))
	header, err := DecodeHeader(raw[:PublicHeaderSize])
	require.NoError(t, err)
	assert.Equal(t, Version, header.Version)

	outDir := t.TempDir()
	decRes, err := e.Decrypt(context.Background(), DecryptOptions{
		InputPath: encRes.OutputPath,
		OutputDir: outDir,
		Password:  []byte("test-password"),
	})
	require.NoError(t, err)

	assert.Equal(t, "hello", decRes.Metadata.OriginalFilename)
	assert.Equal(t, "txt", decRes.Metadata.OriginalExtension)
	assert.False(t, decRes.Metadata.GzipCompressed)

	got, err := os.ReadFile(decRes.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "Hello, HOPLIXI encryption!", string(got))
}

func TestEngineEncryptDecryptRoundTripGzip(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte{0xAB}, 10000)
	input := writeFile(t, dir, "blob.bin", content)

	e := testEngine()
	encRes, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("gzip-pass"),
		UUID:      "test-uuid",
		Extension: ".encrypted",
		Gzip:      true,
		ChunkSize: 4096,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test-uuid.encrypted"), encRes.OutputPath)

	outDir := t.TempDir()
	decRes, err := e.Decrypt(context.Background(), DecryptOptions{
		InputPath: encRes.OutputPath,
		OutputDir: outDir,
		Password:  []byte("gzip-pass"),
	})
	require.NoError(t, err)
	assert.True(t, decRes.Metadata.GzipCompressed)

	got, err := os.ReadFile(decRes.OutputPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got))
}

func TestEngineDecryptWrongPasswordLeavesNoResidue(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "secret.txt", []byte("top secret"))

	e := testEngine()
	encRes, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("correct-password"),
		ChunkSize: 256,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)

	outDir := t.TempDir()
	_, err = e.Decrypt(context.Background(), DecryptOptions{
		InputPath: encRes.OutputPath,
		OutputDir: outDir,
		Password:  []byte("wrong-password"),
	})
	require.Error(t, err)
	assert.True(t, IsInvalidPassword(err))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed decryption must leave no residual files")
}

func TestEngineEncryptDecryptRoundTripDirectory(t *testing.T) {
	root := t.TempDir()
	srcDir := filepath.Join(root, "my_folder")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "sub"), 0o755))
	writeFile(t, srcDir, "a.txt", []byte("file a content"))
	writeFile(t, filepath.Join(srcDir, "sub"), "b.txt", []byte("file b content"))

	outEncDir := t.TempDir()
	e := testEngine()
	encRes, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: srcDir,
		OutputDir: outEncDir,
		Password:  []byte("dir-pass"),
		ChunkSize: 1024,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)

	outDir := t.TempDir()
	decRes, err := e.Decrypt(context.Background(), DecryptOptions{
		InputPath: encRes.OutputPath,
		OutputDir: outDir,
		Password:  []byte("dir-pass"),
	})
	require.NoError(t, err)
	assert.Equal(t, "7z", decRes.Metadata.OriginalExtension)
	assert.Equal(t, filepath.Join(outDir, "my_folder"), decRes.OutputPath)

	gotA, err := os.ReadFile(filepath.Join(decRes.OutputPath, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "file a content", string(gotA))

	gotB, err := os.ReadFile(filepath.Join(decRes.OutputPath, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "file b content", string(gotB))
}

func TestEngineChunkBoundariesMatchChunkSize(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 1000)
	for i := range content {
		content[i] = byte(i % 256)
	}
	input := writeFile(t, dir, "thousand.bin", content)

	e := testEngine()
	encRes, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("chunk-pass"),
		ChunkSize: 256,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(encRes.OutputPath)
	require.NoError(t, err)

	header, err := DecodeHeader(raw[:PublicHeaderSize])
	require.NoError(t, err)
	ciphertextStart := PublicHeaderSize + int(header.EncryptedMetaLen)
	remaining := len(raw) - ciphertextStart

	// 4 chunks: 256+16, 256+16, 256+16, 232+16.
	assert.Equal(t, (256+16)*3+(232+16), remaining)

	outDir := t.TempDir()
	decRes, err := e.Decrypt(context.Background(), DecryptOptions{
		InputPath: encRes.OutputPath,
		OutputDir: outDir,
		Password:  []byte("chunk-pass"),
	})
	require.NoError(t, err)
	got, err := os.ReadFile(decRes.OutputPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, got))
}

func TestEngineMetadataMapRoundTrips(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "tagged.txt", []byte("payload"))

	e := testEngine()
	encRes, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("meta-pass"),
		ChunkSize: 256,
		Argon2:    fastArgon2(),
		Metadata:  map[string]string{"note": "hello", "z": "last", "a": "first"},
	})
	require.NoError(t, err)

	outDir := t.TempDir()
	decRes, err := e.Decrypt(context.Background(), DecryptOptions{
		InputPath: encRes.OutputPath,
		OutputDir: outDir,
		Password:  []byte("meta-pass"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"note": "hello", "z": "last", "a": "first"}, decRes.Metadata.Metadata)
}

func TestEngineReadHeaderDoesNotWriteOutput(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "info.txt", []byte("peek at me"))

	e := testEngine()
	encRes, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("info-pass"),
		ChunkSize: 256,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)

	outDir := t.TempDir()
	meta, err := e.ReadHeader(context.Background(), DecryptOptions{
		InputPath: encRes.OutputPath,
		OutputDir: outDir,
		Password:  []byte("info-pass"),
	})
	require.NoError(t, err)
	assert.Equal(t, "info", meta.OriginalFilename)
	assert.EqualValues(t, 10, meta.OriginalSize)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "ReadHeader must not touch the payload or write output")
}

// --- Tampering properties (§8) ---

func encryptSample(t *testing.T, dir string, content []byte) (string, *Engine) {
	t.Helper()
	input := writeFile(t, dir, "tamper.txt", content)
	e := testEngine()
	res, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("tamper-pass"),
		ChunkSize: 64,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)
	return res.OutputPath, e
}

func decryptExpectInvalidPassword(t *testing.T, e *Engine, path string) {
	t.Helper()
	outDir := t.TempDir()
	_, err := e.Decrypt(context.Background(), DecryptOptions{
		InputPath: path,
		OutputDir: outDir,
		Password:  []byte("tamper-pass"),
	})
	require.Error(t, err)
	assert.True(t, IsInvalidPassword(err))
}

func TestTamperFlipChunkByte(t *testing.T) {
	dir := t.TempDir()
	path, e := encryptSample(t, dir, bytes.Repeat([]byte{0x42}, 500))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	decryptExpectInvalidPassword(t, e, path)
}

func TestTamperFlipSealedMetadataByte(t *testing.T) {
	dir := t.TempDir()
	path, e := encryptSample(t, dir, []byte("short content"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[PublicHeaderSize] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	decryptExpectInvalidPassword(t, e, path)
}

func TestTamperFlipHeaderByte(t *testing.T) {
	dir := t.TempDir()
	path, e := encryptSample(t, dir, []byte("header tamper content"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[10] ^= 0xFF // inside salt, covered by AAD
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	decryptExpectInvalidPassword(t, e, path)
}

func TestTamperTruncateMidChunk(t *testing.T) {
	dir := t.TempDir()
	path, e := encryptSample(t, dir, bytes.Repeat([]byte{0x07}, 500))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-5], 0o644))

	decryptExpectInvalidPassword(t, e, path)
}

func TestTamperTruncateIntoFinalTag(t *testing.T) {
	dir := t.TempDir()
	path, e := encryptSample(t, dir, []byte("one chunk only"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// Leave fewer than TagLen bytes of the only chunk.
	header, err := DecodeHeader(raw[:PublicHeaderSize])
	require.NoError(t, err)
	chunkStart := PublicHeaderSize + int(header.EncryptedMetaLen)
	require.NoError(t, os.WriteFile(path, raw[:chunkStart+TagLen-1], 0o644))

	decryptExpectInvalidPassword(t, e, path)
}

func TestTamperTruncateAtChunkBoundary(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte{0x0C}, 64*3)
	path, e := encryptSample(t, dir, content)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	header, err := DecodeHeader(raw[:PublicHeaderSize])
	require.NoError(t, err)
	chunkLen := int(header.ChunkSize) + TagLen

	// Drop the whole last chunk; every remaining chunk still opens
	// cleanly, so only the original_size check can catch this.
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-chunkLen], 0o644))

	outDir := t.TempDir()
	_, err = e.Decrypt(context.Background(), DecryptOptions{
		InputPath: path,
		OutputDir: outDir,
		Password:  []byte("tamper-pass"),
	})
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindCorruptedData, kind)
}

func TestTamperAppendForgedChunk(t *testing.T) {
	dir := t.TempDir()
	path, e := encryptSample(t, dir, []byte("append tamper"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	forged := append(raw, bytes.Repeat([]byte{0x99}, 80)...)
	require.NoError(t, os.WriteFile(path, forged, 0o644))

	decryptExpectInvalidPassword(t, e, path)
}

func TestTamperSwapChunks(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte{0x01}, 64*3)
	path, e := encryptSample(t, dir, content)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	header, err := DecodeHeader(raw[:PublicHeaderSize])
	require.NoError(t, err)
	chunkStart := PublicHeaderSize + int(header.EncryptedMetaLen)
	chunkLen := int(header.ChunkSize) + TagLen

	// Swap chunk 0 and chunk 1.
	c0 := append([]byte(nil), raw[chunkStart:chunkStart+chunkLen]...)
	c1 := append([]byte(nil), raw[chunkStart+chunkLen:chunkStart+2*chunkLen]...)
	copy(raw[chunkStart:chunkStart+chunkLen], c1)
	copy(raw[chunkStart+chunkLen:chunkStart+2*chunkLen], c0)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	decryptExpectInvalidPassword(t, e, path)
}

// --- Cleanup / atomicity properties (§8) ---

func TestCleanupLeavesNoStagingFilesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	tempDir := t.TempDir()
	input := writeFile(t, dir, "clean.txt", []byte("clean content"))

	e := testEngine()
	res, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		TempDir:   tempDir,
		Password:  []byte("clean-pass"),
		ChunkSize: 256,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	outDir := t.TempDir()
	_, err = e.Decrypt(context.Background(), DecryptOptions{
		InputPath: res.OutputPath,
		OutputDir: outDir,
		TempDir:   tempDir,
		Password:  []byte("clean-pass"),
	})
	require.NoError(t, err)

	entries, err = os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCleanupLeavesNoStagingFilesOnEncryptError(t *testing.T) {
	dir := t.TempDir()
	tempDir := t.TempDir()

	e := testEngine()
	_, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: filepath.Join(dir, "does-not-exist.txt"),
		OutputDir: dir,
		TempDir:   tempDir,
		Password:  []byte("x"),
		ChunkSize: 256,
		Argon2:    fastArgon2(),
	})
	require.Error(t, err)

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	outEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, outEntries, "no partial output should exist at the final path")
}

func TestEncryptEmptyFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "empty.txt", []byte{})

	e := testEngine()
	res, err := e.Encrypt(context.Background(), EncryptOptions{
		InputPath: input,
		OutputDir: dir,
		Password:  []byte("empty-pass"),
		ChunkSize: 256,
		Argon2:    fastArgon2(),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.OriginalSize)

	outDir := t.TempDir()
	decRes, err := e.Decrypt(context.Background(), DecryptOptions{
		InputPath: res.OutputPath,
		OutputDir: outDir,
		Password:  []byte("empty-pass"),
	})
	require.NoError(t, err)

	got, err := os.ReadFile(decRes.OutputPath)
	require.NoError(t, err)
	assert.Empty(t, got)
}
