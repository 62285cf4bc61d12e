package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/halvardsen/pagepool/pkg/storage"
)

// recordHeaderSize is the size of a snapshot record's fixed header:
// [8-byte page id][1-byte algorithm][4-byte original size][4-byte compressed size].
const recordHeaderSize = 17

// Export reads pageCount pages (ids 0..pageCount-1) from src through
// the given Compressor and writes a length-framed, compressed archive
// to w. It is meant to be run offline, against a data file no
// poolserver process currently has open.
func Export(w io.Writer, src storage.DiskManager, pageCount int, c *Compressor) error {
	var buf [storage.PageSize]byte
	header := make([]byte, recordHeaderSize)

	for id := 0; id < pageCount; id++ {
		pid := storage.PageID(id)
		if err := src.ReadPage(pid, &buf); err != nil {
			return fmt.Errorf("snapshot: failed to read page %d: %w", pid, err)
		}

		compressed, err := c.Compress(buf[:])
		if err != nil {
			return fmt.Errorf("snapshot: failed to compress page %d: %w", pid, err)
		}

		binary.LittleEndian.PutUint64(header[0:8], uint64(pid))
		header[8] = byte(c.config.Algorithm)
		binary.LittleEndian.PutUint32(header[9:13], uint32(storage.PageSize))
		binary.LittleEndian.PutUint32(header[13:17], uint32(len(compressed)))

		if _, err := w.Write(header); err != nil {
			return fmt.Errorf("snapshot: failed to write record header for page %d: %w", pid, err)
		}
		if _, err := w.Write(compressed); err != nil {
			return fmt.Errorf("snapshot: failed to write record body for page %d: %w", pid, err)
		}
	}
	return nil
}

// Import reads an archive produced by Export from r and writes each
// page back through dst. It returns the number of pages restored.
func Import(r io.Reader, dst storage.DiskManager, c *Compressor) (int, error) {
	header := make([]byte, recordHeaderSize)
	count := 0

	for {
		_, err := io.ReadFull(r, header)
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("snapshot: failed to read record header: %w", err)
		}

		pid := storage.PageID(binary.LittleEndian.Uint64(header[0:8]))
		algorithm := Algorithm(header[8])
		originalSize := binary.LittleEndian.Uint32(header[9:13])
		compressedSize := binary.LittleEndian.Uint32(header[13:17])

		if algorithm != c.config.Algorithm {
			return count, fmt.Errorf("snapshot: page %d: algorithm mismatch: archive has %v, compressor configured for %v",
				pid, algorithm, c.config.Algorithm)
		}
		if originalSize != storage.PageSize {
			return count, fmt.Errorf("snapshot: page %d: unexpected original size %d, want %d",
				pid, originalSize, storage.PageSize)
		}

		compressed := make([]byte, compressedSize)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return count, fmt.Errorf("snapshot: failed to read record body for page %d: %w", pid, err)
		}

		decompressed, err := c.Decompress(compressed)
		if err != nil {
			return count, fmt.Errorf("snapshot: failed to decompress page %d: %w", pid, err)
		}
		if len(decompressed) != storage.PageSize {
			return count, fmt.Errorf("snapshot: page %d: decompressed to %d bytes, want %d",
				pid, len(decompressed), storage.PageSize)
		}

		var buf [storage.PageSize]byte
		copy(buf[:], decompressed)
		if err := dst.WritePage(pid, &buf); err != nil {
			return count, fmt.Errorf("snapshot: failed to write page %d: %w", pid, err)
		}
		count++
	}
}
