package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// BestCompression is the default gzip level. Assets are compressed once at
// build time and served many times from flash, so size wins over speed.
const BestCompression = gzip.BestCompression

// encoder wraps w in a compressing writer.
type encoder func(w io.Writer) (io.WriteCloser, error)

func gzipEncoder(level int) encoder {
	return func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriterLevel(w, level)
	}
}

func brotliEncoder() encoder {
	return func(w io.Writer) (io.WriteCloser, error) {
		return brotli.NewWriterLevel(w, brotli.BestCompression), nil
	}
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeCompressed encodes data into dest, creating parent directories.
// The stream goes to a temp file that is renamed over dest once complete.
// Returns the compressed size.
func writeCompressed(dest string, data []byte, enc encoder) (int64, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file for %s: %w", dest, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // no-op after a successful rename

	counter := &countingWriter{w: tmp}
	zw, err := enc(counter)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to create encoder for %s: %w", dest, err)
	}
	if _, err := zw.Write(data); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to compress %s: %w", dest, err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to flush %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return 0, fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return 0, fmt.Errorf("failed to replace %s: %w", dest, err)
	}

	return counter.n, nil
}
