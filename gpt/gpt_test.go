package gpt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlevel-dev/survival/gpt"
)

func buildTestLayout(t *testing.T) *gpt.Layout {
	t.Helper()
	diskGUID, err := gpt.ParseGUID("11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	partGUID, err := gpt.ParseGUID("66666666-7777-8888-9999-AAAAAAAAAAAA")
	require.NoError(t, err)

	l, err := gpt.BuildLayout(524288, diskGUID, partGUID, "SURVIVAL")
	require.NoError(t, err)
	return l
}

func TestProtectiveMBRFields(t *testing.T) {
	l := buildTestLayout(t)
	m, err := gpt.ToMBR(l.ProtectiveMBR[:])
	require.NoError(t, err)
	assert.True(t, m.SignatureValid())
	assert.EqualValues(t, 0xEE, m.PartitionType(0))
	assert.EqualValues(t, 1, m.StartLBA(0))
}

func TestPrimaryHeaderFields(t *testing.T) {
	l := buildTestLayout(t)
	h, err := gpt.ToHeader(l.PrimaryHeader[:])
	require.NoError(t, err)
	assert.EqualValues(t, 1, h.CurrentLBA())
	assert.EqualValues(t, 524287, h.AlternateLBA())
	assert.EqualValues(t, 34, h.FirstUsableLBA())
	assert.EqualValues(t, 2, h.PartitionEntryLBA())
	assert.EqualValues(t, gpt.EntriesPerRegion, h.NumberOfPartitionEntries())
}

func TestHeaderCRCRoundTrips(t *testing.T) {
	l := buildTestLayout(t)
	ok, err := gpt.ValidateHeaderCRC(l.PrimaryHeader[:])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gpt.ValidateHeaderCRC(l.BackupHeader[:])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBackupMirrorsSwappedLBAs(t *testing.T) {
	l := buildTestLayout(t)
	primary, err := gpt.ToHeader(l.PrimaryHeader[:])
	require.NoError(t, err)
	backup, err := gpt.ToHeader(l.BackupHeader[:])
	require.NoError(t, err)

	assert.Equal(t, primary.CurrentLBA(), backup.AlternateLBA())
	assert.Equal(t, primary.AlternateLBA(), backup.CurrentLBA())
	assert.Equal(t, primary.PartitionEntriesCRC32(), backup.PartitionEntriesCRC32())
}

func TestESPPartitionEntry(t *testing.T) {
	l := buildTestLayout(t)
	pe, err := gpt.ToPartitionEntry(l.PrimaryEntries[0:128])
	require.NoError(t, err)
	assert.Equal(t, gpt.ESPTypeGUID, pe.TypeGUID())
	assert.EqualValues(t, 2048, pe.FirstLBA())
	assert.Equal(t, "SURVIVAL", pe.Name())
}
