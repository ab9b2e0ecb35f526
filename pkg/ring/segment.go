// Package ring implements the single-producer/multi-consumer shared-memory
// rings: a memory-mapped file carrying a cache-line-aligned control header,
// a reader-cursor array, and a record region. Two record shapes ride the
// same mechanics: fixed trade records (trade.go) and variable order-book
// deltas (delta.go).
package ring

import (
	"fmt"
	"os"
	"syscall"
)

// segment is a memory-mapped file. Readers map read-write even though they
// never intend to write: on Apple Silicon a read-only mapping has been
// observed to fail sub-word atomic RMW across process boundaries, so every
// attacher takes the same PROT_READ|PROT_WRITE mapping.
type segment struct {
	file *os.File
	data []byte
}

// createSegment creates (or truncates) path to exactly size bytes and maps
// it read-write. Only the writer side calls this.
func createSegment(path string, size int) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("ring: open %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: truncate %s to %d: %w", path, size, err)
	}
	return mapSegment(f, size)
}

// openSegment attaches to an existing ring file. size must match the
// capacity the writer created it with; the caller derives size from the
// capacity it expects to find, then openSegment verifies the file is at
// least that large.
func openSegment(path string, size int) (*segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("ring: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: stat %s: %w", path, err)
	}
	if info.Size() < int64(size) {
		f.Close()
		return nil, fmt.Errorf("ring: %s is %d bytes, want at least %d", path, info.Size(), size)
	}
	return mapSegment(f, size)
}

func mapSegment(f *os.File, size int) (*segment, error) {
	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: mmap %s: %w", f.Name(), err)
	}
	return &segment{file: f, data: data}, nil
}

// Close unmaps and closes the backing file. It does not remove the file.
func (s *segment) Close() error {
	err := syscall.Munmap(s.data)
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func alignUp(n, align int) int {
	if align <= 0 {
		return n
	}
	return (n + align - 1) / align * align
}
