package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Writer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	w, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestRecordSegmentAndRecent(t *testing.T) {
	w := openTemp(t)

	err := w.RecordSegment(NewRecord{
		Name:       "seg-001",
		Devices:    []string{"camA", "camB"},
		FrameCount: 300,
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)

	rows, err := w.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "seg-001", rows[0].Name)
	assert.Equal(t, 300, rows[0].FrameCount)
	assert.ElementsMatch(t, []string{"camA", "camB"}, rows[0].Devices())
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	w := openTemp(t)

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	require.NoError(t, w.RecordSegment(NewRecord{Name: "older", Devices: []string{"camA"}, FrameCount: 100, CreatedAt: older}))
	require.NoError(t, w.RecordSegment(NewRecord{Name: "newer", Devices: []string{"camA"}, FrameCount: 100, CreatedAt: newer}))

	rows, err := w.Recent(10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "newer", rows[0].Name)
	assert.Equal(t, "older", rows[1].Name)
}

func TestRecentRespectsLimit(t *testing.T) {
	w := openTemp(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.RecordSegment(NewRecord{Name: "seg", Devices: []string{"camA"}, FrameCount: 1, CreatedAt: time.Now()}))
	}

	rows, err := w.Recent(2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestDevicesSplitsEmptyListToNil(t *testing.T) {
	r := SegmentRecord{DeviceList: ""}
	assert.Nil(t, r.Devices())
}
