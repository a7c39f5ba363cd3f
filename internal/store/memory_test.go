package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/drive-media-sync/internal/process"
)

func strptr(s string) *string { return &s }

func TestMemoryListLinkedUnitsSkipsUnlinked(t *testing.T) {
	linked := ExternalUnit{ID: uuid.New(), SheetRowID: strptr("42")}
	m := NewMemory(linked, ExternalUnit{ID: uuid.New()})

	units, err := m.ListLinkedUnits(context.Background())
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, linked.ID, units[0].ID)
}

func TestMemoryMediaLifecycle(t *testing.T) {
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	m := NewMemory(ExternalUnit{ID: a, SheetRowID: strptr("1")}, ExternalUnit{ID: b, SheetRowID: strptr("2")})

	for i, unit := range []uuid.UUID{a, a, b} {
		require.NoError(t, m.InsertMedia(ctx, &ExternalUnitMedia{ID: uuid.New(), UnitID: unit, DisplayOrder: 2 - i}))
	}
	require.Error(t, m.InsertMedia(ctx, &ExternalUnitMedia{ID: uuid.New(), UnitID: uuid.New()}), "unknown unit")

	rows, err := m.ListUnitMedia(ctx, a)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Less(t, rows[0].DisplayOrder, rows[1].DisplayOrder)

	n, err := m.DeleteUnitMedia(ctx, a)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Len(t, m.UnitMedia(b), 1)

	n, err = m.DeleteAllMedia(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	all, err := m.ListMedia(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryJournal(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	latest, err := m.LatestRun(ctx, process.KindReconcile)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := process.NewRun(process.KindReconcile)
	require.NoError(t, m.CreateRun(ctx, first))
	second := process.NewRun(process.KindReconcile)
	require.NoError(t, m.CreateRun(ctx, second))
	assert.False(t, second.CleanupDone)
	second.CleanupDone = true
	process.MarkFailed(second, nil)
	require.NoError(t, m.UpdateRun(ctx, second))

	latest, err = m.LatestRun(ctx, process.KindReconcile)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, process.RunStatusFailed, latest.Status)
	assert.True(t, latest.CleanupDone)

	unit := uuid.New()
	require.NoError(t, m.RecordUnit(ctx, process.UnitResult{RunID: second.ID, UnitID: unit, Status: process.UnitStatusImported}))
	done, err := m.CompletedUnits(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, done[unit])

	done, err = m.CompletedUnits(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, done)
}
