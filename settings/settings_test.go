package settings

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeRaw(version, index int32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(version))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(index))
	return buf
}

func TestLoadValidRecord(t *testing.T) {
	storage := &MemStorage{Data: encodeRaw(SchemaVersion, 7)}
	store := NewStore(storage, 0)

	rec := store.Load()

	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, int32(7), rec.SelectedIndex)
	assert.False(t, store.Dirty(), "a valid record must not be dirty")
	assert.Equal(t, 7, store.Selected())
}

// Any schema version other than the expected one yields the default record
// with the dirty flag set, regardless of the stored index.
func TestMigrationDeterminism(t *testing.T) {
	tests := []struct {
		name    string
		version int32
		index   int32
	}{
		{"version zero", 0, 5},
		{"future version", 2, 9},
		{"garbage version", 12345, -1},
		{"negative version", -7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &MemStorage{Data: encodeRaw(tt.version, tt.index)}
			store := NewStore(storage, 4)

			rec := store.Load()

			assert.Equal(t, SchemaVersion, rec.SchemaVersion)
			assert.Equal(t, int32(4), rec.SelectedIndex)
			assert.True(t, store.Dirty(), "migration must mark the store dirty")
		})
	}
}

func TestLoadAbsentRecord(t *testing.T) {
	store := NewStore(&MemStorage{}, 2)

	rec := store.Load()

	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, int32(2), rec.SelectedIndex)
	assert.True(t, store.Dirty())
}

func TestLoadShortRecord(t *testing.T) {
	storage := &MemStorage{Data: []byte{1, 0, 0}}
	store := NewStore(storage, 0)

	rec := store.Load()

	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, int32(0), rec.SelectedIndex)
	assert.True(t, store.Dirty())
}

// N MarkDirty calls followed by one FlushIfDirty produce exactly one write.
func TestWriteCoalescing(t *testing.T) {
	storage := &MemStorage{Data: encodeRaw(SchemaVersion, 0)}
	store := NewStore(storage, 0)
	store.Load()

	for i := 1; i <= 10; i++ {
		store.MarkDirty(i)
	}

	require.NoError(t, store.FlushIfDirty())
	assert.Equal(t, 1, storage.Writes, "all MarkDirty calls must coalesce into one write")
	assert.Equal(t, encodeRaw(SchemaVersion, 10), storage.Data)

	// Nothing pending: flushing again writes nothing.
	require.NoError(t, store.FlushIfDirty())
	assert.Equal(t, 1, storage.Writes)
}

func TestFlushFailureRetries(t *testing.T) {
	writeErr := errors.New("flash busy")
	storage := &MemStorage{Data: encodeRaw(SchemaVersion, 0), StoreErr: writeErr}
	store := NewStore(storage, 0)
	store.Load()

	store.MarkDirty(3)

	err := store.FlushIfDirty()
	require.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.True(t, store.Dirty(), "failed flush must leave the dirty flag set")

	// Next tick succeeds.
	storage.StoreErr = nil
	require.NoError(t, store.FlushIfDirty())
	assert.False(t, store.Dirty())
	assert.Equal(t, encodeRaw(SchemaVersion, 3), storage.Data)
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.bin")
	storage := NewFileStorage(path)

	store := NewStore(storage, 1)
	rec := store.Load()
	require.Equal(t, int32(1), rec.SelectedIndex, "missing file falls back to default")

	store.MarkDirty(6)
	require.NoError(t, store.FlushIfDirty())

	// A fresh store sees the persisted selection.
	reloaded := NewStore(NewFileStorage(path), 1)
	rec = reloaded.Load()
	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, int32(6), rec.SelectedIndex)
	assert.False(t, reloaded.Dirty())
}
