package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tendant/drive-media-sync/internal/process"
)

// Memory implements the repository and journal in process memory. It backs
// local dry runs and tests.
type Memory struct {
	mu       sync.Mutex
	units    []ExternalUnit
	media    []ExternalUnitMedia
	runs     []process.Run
	runUnits map[uuid.UUID]map[uuid.UUID]process.UnitResult

	// InsertErr, when set, fails every InsertMedia call.
	InsertErr error
}

func NewMemory(units ...ExternalUnit) *Memory {
	return &Memory{
		units:    append([]ExternalUnit(nil), units...),
		runUnits: make(map[uuid.UUID]map[uuid.UUID]process.UnitResult),
	}
}

func (m *Memory) ListLinkedUnits(_ context.Context) ([]ExternalUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExternalUnit
	for _, u := range m.units {
		if u.SheetRowID != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) ListMedia(_ context.Context) ([]ExternalUnitMedia, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]ExternalUnitMedia(nil), m.media...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UnitID != out[j].UnitID {
			return out[i].UnitID.String() < out[j].UnitID.String()
		}
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out, nil
}

func (m *Memory) DeleteAllMedia(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.media))
	m.media = nil
	return n, nil
}

func (m *Memory) DeleteUnitMedia(_ context.Context, unitID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.media[:0]
	var n int64
	for _, md := range m.media {
		if md.UnitID == unitID {
			n++
			continue
		}
		kept = append(kept, md)
	}
	m.media = kept
	return n, nil
}

func (m *Memory) InsertMedia(_ context.Context, md *ExternalUnitMedia) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	found := false
	for _, u := range m.units {
		if u.ID == md.UnitID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("insert media %s: unknown unit %s", md.DriveFileID, md.UnitID)
	}
	m.media = append(m.media, *md)
	return nil
}

// ListUnitMedia returns the rows of one unit ordered by display order.
func (m *Memory) ListUnitMedia(ctx context.Context, unitID uuid.UUID) ([]ExternalUnitMedia, error) {
	all, err := m.ListMedia(ctx)
	if err != nil {
		return nil, err
	}
	var out []ExternalUnitMedia
	for _, md := range all {
		if md.UnitID == unitID {
			out = append(out, md)
		}
	}
	return out, nil
}

// UnitMedia is ListUnitMedia for tests.
func (m *Memory) UnitMedia(unitID uuid.UUID) []ExternalUnitMedia {
	out, _ := m.ListUnitMedia(context.Background(), unitID)
	return out
}

func (m *Memory) CreateRun(_ context.Context, r *process.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *r)
	return nil
}

func (m *Memory) UpdateRun(_ context.Context, r *process.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == r.ID {
			m.runs[i] = *r
			return nil
		}
	}
	return fmt.Errorf("update run %s: not found", r.ID)
}

func (m *Memory) LatestRun(_ context.Context, kind string) (*process.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].Kind == kind {
			r := m.runs[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *Memory) RecordUnit(_ context.Context, u process.UnitResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runUnits[u.RunID] == nil {
		m.runUnits[u.RunID] = make(map[uuid.UUID]process.UnitResult)
	}
	m.runUnits[u.RunID][u.UnitID] = u
	return nil
}

func (m *Memory) CompletedUnits(_ context.Context, runID uuid.UUID) (map[uuid.UUID]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	done := make(map[uuid.UUID]bool, len(m.runUnits[runID]))
	for id := range m.runUnits[runID] {
		done[id] = true
	}
	return done, nil
}
