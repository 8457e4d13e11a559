// Package gzipcodec implements the gzip collaborator contract: Compress
// and Decompress operate path-to-path, streaming with a bounded buffer,
// never loading a whole file into memory. The output is RFC 1952 gzip
// framing, not raw deflate; the container's gzip_compressed flag
// promises a stream any gzip reader can open.
package gzipcodec

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

const bufSize = 64 * 1024

// Level controls the trade-off between speed and ratio; values are the
// same constants compress/gzip accepts.
type Level int

const (
	DefaultLevel Level = Level(gzip.DefaultCompression)
	FastLevel    Level = Level(gzip.BestSpeed)
	BestLevel    Level = Level(gzip.BestCompression)
)

// Compress streams src through a gzip writer at level into dst.
func Compress(src, dst string, level Level) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("gzipcodec: open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("gzipcodec: create target: %w", err)
	}
	defer out.Close()

	bufOut := bufio.NewWriterSize(out, bufSize)
	gzWriter, err := gzip.NewWriterLevel(bufOut, int(level))
	if err != nil {
		return fmt.Errorf("gzipcodec: create gzip writer: %w", err)
	}

	bufIn := bufio.NewReaderSize(in, bufSize)
	if _, err := io.Copy(gzWriter, bufIn); err != nil {
		return fmt.Errorf("gzipcodec: compress: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("gzipcodec: flush gzip trailer: %w", err)
	}
	return bufOut.Flush()
}

// Decompress streams src through a gzip reader into dst.
func Decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("gzipcodec: open source: %w", err)
	}
	defer in.Close()

	bufIn := bufio.NewReaderSize(in, bufSize)
	gzReader, err := gzip.NewReader(bufIn)
	if err != nil {
		return fmt.Errorf("gzipcodec: open gzip stream: %w", err)
	}
	defer gzReader.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("gzipcodec: create target: %w", err)
	}
	defer out.Close()

	bufOut := bufio.NewWriterSize(out, bufSize)
	if _, err := io.Copy(bufOut, gzReader); err != nil {
		return fmt.Errorf("gzipcodec: decompress: %w", err)
	}
	return bufOut.Flush()
}
