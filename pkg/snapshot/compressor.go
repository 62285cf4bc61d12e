// Package snapshot implements an offline export/import tool for a
// pool instance's data file. It sits outside the buffer pool's hot
// path entirely: compression here is a property of the exported
// archive, never of a resident page.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
)

// Algorithm identifies a compression codec for a snapshot archive.
type Algorithm int

const (
	// AlgorithmNone disables compression.
	AlgorithmNone Algorithm = iota
	// AlgorithmSnappy favors speed over ratio.
	AlgorithmSnappy
	// AlgorithmZstd balances speed and ratio; the default.
	AlgorithmZstd
	// AlgorithmGzip is the standard library codec.
	AlgorithmGzip
	// AlgorithmZlib is similar to gzip with a different framing.
	AlgorithmZlib
)

// String returns the algorithm's name as used on the CLI.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmSnappy:
		return "snappy"
	case AlgorithmZstd:
		return "zstd"
	case AlgorithmGzip:
		return "gzip"
	case AlgorithmZlib:
		return "zlib"
	default:
		return "unknown"
	}
}

// Config holds the codec and level used to build a Compressor.
type Config struct {
	Algorithm Algorithm
	Level     int
}

// DefaultConfig returns Zstd at its balanced default level.
func DefaultConfig() *Config {
	return &Config{Algorithm: AlgorithmZstd, Level: 3}
}

// Compressor compresses and decompresses whole snapshot pages.
type Compressor struct {
	config  *Config
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
	scratch bytes.Buffer
}

// NewCompressor builds a Compressor for config, or DefaultConfig if
// config is nil.
func NewCompressor(config *Config) (*Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	c := &Compressor{config: config}

	if config.Algorithm == AlgorithmZstd {
		var err error
		level := zstd.EncoderLevelFromZstd(config.Level)
		c.zstdEnc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to create zstd encoder: %w", err)
		}
		c.zstdDec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to create zstd decoder: %w", err)
		}
	}
	return c, nil
}

// Compress compresses data per the compressor's configured algorithm.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	switch c.config.Algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmSnappy:
		return snappy.Encode(nil, data), nil

	case AlgorithmZstd:
		return c.zstdEnc.EncodeAll(data, nil), nil

	case AlgorithmGzip:
		c.scratch.Reset()
		w, err := gzip.NewWriterLevel(&c.scratch, c.config.Level)
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to create gzip writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("snapshot: failed to write gzip data: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("snapshot: failed to close gzip writer: %w", err)
		}
		return append([]byte(nil), c.scratch.Bytes()...), nil

	case AlgorithmZlib:
		c.scratch.Reset()
		w, err := zlib.NewWriterLevel(&c.scratch, c.config.Level)
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to create zlib writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("snapshot: failed to write zlib data: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("snapshot: failed to close zlib writer: %w", err)
		}
		return append([]byte(nil), c.scratch.Bytes()...), nil

	default:
		return nil, fmt.Errorf("snapshot: unsupported compression algorithm: %v", c.config.Algorithm)
	}
}

// Decompress reverses Compress.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}

	switch c.config.Algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmSnappy:
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to decode snappy: %w", err)
		}
		return decoded, nil

	case AlgorithmZstd:
		decoded, err := c.zstdDec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to decode zstd: %w", err)
		}
		return decoded, nil

	case AlgorithmGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to create gzip reader: %w", err)
		}
		defer r.Close()
		c.scratch.Reset()
		if _, err := io.Copy(&c.scratch, r); err != nil {
			return nil, fmt.Errorf("snapshot: failed to read gzip data: %w", err)
		}
		return append([]byte(nil), c.scratch.Bytes()...), nil

	case AlgorithmZlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("snapshot: failed to create zlib reader: %w", err)
		}
		defer r.Close()
		c.scratch.Reset()
		if _, err := io.Copy(&c.scratch, r); err != nil {
			return nil, fmt.Errorf("snapshot: failed to read zlib data: %w", err)
		}
		return append([]byte(nil), c.scratch.Bytes()...), nil

	default:
		return nil, fmt.Errorf("snapshot: unsupported compression algorithm: %v", c.config.Algorithm)
	}
}

// Close releases the zstd encoder/decoder, if any were created.
func (c *Compressor) Close() error {
	if c.zstdEnc != nil {
		c.zstdEnc.Close()
	}
	if c.zstdDec != nil {
		c.zstdDec.Close()
	}
	return nil
}

// CompressionRatio is compressed size over original size.
func CompressionRatio(originalSize, compressedSize int) float64 {
	if originalSize == 0 {
		return 0
	}
	return float64(compressedSize) / float64(originalSize)
}
