package store

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Body is the fixed-record state file: state record i lives at byte offset
// i*RecordSize (slot 0 is unused padding; StateId ranges over
// [1, stateCapacity]). Body itself is layout-agnostic; Store owns
// interpreting record bytes as flags/label/transitions.
type Body struct {
	file       *os.File
	recordSize int
}

// CreateBody creates a new, empty body file at path with the given record
// size, truncating any existing file.
func CreateBody(path string, recordSize int) (*Body, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "store: create body %s", path)
	}
	return &Body{file: f, recordSize: recordSize}, nil
}

// OpenBody opens an existing body file at path with the given record size.
func OpenBody(path string, recordSize int) (*Body, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "store: open body %s", path)
	}
	return &Body{file: f, recordSize: recordSize}, nil
}

// RecordSize returns the fixed record width in bytes.
func (b *Body) RecordSize() int { return b.recordSize }

// ReadRecord returns a copy of the recordSize bytes at slot id. Slots past
// the current end of file read back as all-zero (an unwritten/padding
// record), matching the "exists" flag convention rather than erroring.
func (b *Body) ReadRecord(id StateId) ([]byte, error) {
	buf := make([]byte, b.recordSize)
	off := int64(id) * int64(b.recordSize)
	n, err := b.file.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "store: read record %d", id)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return buf, nil
}

// WriteRecord writes rec (which must be exactly RecordSize bytes) to slot
// id, extending the file with zero bytes if necessary.
func (b *Body) WriteRecord(id StateId, rec []byte) error {
	if len(rec) != b.recordSize {
		return errors.Errorf("store: record size mismatch: got %d, want %d", len(rec), b.recordSize)
	}
	off := int64(id) * int64(b.recordSize)
	if _, err := b.file.WriteAt(rec, off); err != nil {
		return errors.Wrapf(err, "store: write record %d", id)
	}
	return nil
}

// Sync flushes the body file to stable storage.
func (b *Body) Sync() error {
	return errors.Wrap(b.file.Sync(), "store: sync body")
}

// Close releases the body file handle.
func (b *Body) Close() error {
	return errors.Wrap(b.file.Close(), "store: close body")
}

// Path returns the underlying file's name.
func (b *Body) Path() string {
	return b.file.Name()
}
