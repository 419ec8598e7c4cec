package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// gzip magic bytes
const (
	gzipID1 = 0x1f
	gzipID2 = 0x8b
)

// IsGzip reports whether data starts with the gzip magic header
func IsGzip(data []byte) bool {
	return len(data) > 1 && data[0] == gzipID1 && data[1] == gzipID2
}

// Compress compresses data using gzip
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)

	if _, err := writer.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write compressed data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses gzip data
func Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	result, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read decompressed data: %w", err)
	}

	return result, nil
}

// DecompressReader wraps a reader with gzip decompression
func DecompressReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}
