// Package settings persists the last-selected kernel index across power
// cycles with forward-compatible schema handling and deferred write-back.
//
// The persisted record is a fixed-size little-endian binary pair
// {schemaVersion int32, selectedIndex int32}. A record with the wrong
// schema version is treated as absent: the store resets itself to defaults
// and marks the result dirty so the next flush rewrites it.
package settings

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// SchemaVersion is the record version written by this build.
const SchemaVersion int32 = 1

// recordSize is the fixed size of the persisted record in bytes.
const recordSize = 8

// ErrShortRecord is returned when the persisted record is truncated.
var ErrShortRecord = errors.New("settings: record too short")

// PersistedSettings is the versioned on-disk record.
type PersistedSettings struct {
	SchemaVersion int32
	SelectedIndex int32
}

// Store owns the in-memory copy of the persisted settings and the dirty
// flag decoupling "state changed" from "flush requested".
//
// All methods are control-rate only; nothing here may be called from the
// audio path.
type Store struct {
	storage      Storage
	defaultIndex int32

	record PersistedSettings
	dirty  bool
}

// NewStore returns a Store bound to the given storage collaborator.
// defaultIndex is the selection applied when no valid record exists.
func NewStore(storage Storage, defaultIndex int) *Store {
	return &Store{
		storage:      storage,
		defaultIndex: int32(defaultIndex),
	}
}

// Load reads the persisted record. On a read failure, truncated record, or
// schema version mismatch the store migrates: it resets to
// {SchemaVersion, defaultIndex} and marks itself dirty so the reset is
// written back on the next flush. A reset always yields a valid record, so
// no retry is needed.
func (s *Store) Load() PersistedSettings {
	data, err := s.storage.Load()
	if err != nil {
		s.migrate("read failed", err)
		return s.record
	}

	rec, err := decodeRecord(data)
	if err != nil {
		s.migrate("record malformed", err)
		return s.record
	}

	if rec.SchemaVersion != SchemaVersion {
		s.migrate(fmt.Sprintf("schema version %d, expected %d", rec.SchemaVersion, SchemaVersion), nil)
		return s.record
	}

	s.record = rec
	s.dirty = false

	return s.record
}

// migrate resets the in-memory record to defaults and marks it dirty.
func (s *Store) migrate(reason string, err error) {
	s.record = PersistedSettings{
		SchemaVersion: SchemaVersion,
		SelectedIndex: s.defaultIndex,
	}
	s.dirty = true

	logrus.WithFields(logrus.Fields{
		"reason":        reason,
		"error":         err,
		"default_index": s.defaultIndex,
	}).Info("settings: resetting persisted record to defaults")
}

// MarkDirty updates the in-memory selected index and sets the dirty flag.
// No I/O happens here; multiple calls coalesce into one write on the next
// flush.
func (s *Store) MarkDirty(index int) {
	s.record.SelectedIndex = int32(index)
	s.dirty = true
}

// FlushIfDirty writes the record if the dirty flag is set. On success the
// flag is cleared; on failure it stays set so the next control tick
// retries. The returned error is non-fatal.
func (s *Store) FlushIfDirty() error {
	if !s.dirty {
		return nil
	}

	err := s.storage.Store(encodeRecord(s.record))
	if err != nil {
		logrus.WithError(err).Warn("settings: flush failed, will retry")
		return fmt.Errorf("settings: writing record: %w", err)
	}

	s.dirty = false

	return nil
}

// Dirty reports whether an unflushed change is pending.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Selected returns the in-memory selected index.
func (s *Store) Selected() int {
	return int(s.record.SelectedIndex)
}

func encodeRecord(rec PersistedSettings) []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(rec.SchemaVersion))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(rec.SelectedIndex))

	return buf
}

func decodeRecord(data []byte) (PersistedSettings, error) {
	if len(data) < recordSize {
		return PersistedSettings{}, fmt.Errorf("%w: %d bytes", ErrShortRecord, len(data))
	}

	return PersistedSettings{
		SchemaVersion: int32(binary.LittleEndian.Uint32(data[0:4])),
		SelectedIndex: int32(binary.LittleEndian.Uint32(data[4:8])),
	}, nil
}
