// Package memory provides in-memory implementations of the storage ports.
// Nothing survives process exit; it exists for tests and for the "memory"
// storage driver.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/tome/internal/core/domain"
	"github.com/custodia-labs/tome/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string]driven.VectorEntry
	order   []string // insertion order, for stable scans
	dim     int
}

// NewVectorIndex creates a new in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		entries: make(map[string]driven.VectorEntry),
	}
}

// Add appends entries, upserting on ID collisions.
func (v *VectorIndex) Add(_ context.Context, entries []driven.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	dim := len(entries[0].Embedding)
	if dim == 0 {
		return fmt.Errorf("%w: entry %s has an empty embedding", domain.ErrInvalidInput, entries[0].ID)
	}
	for _, e := range entries {
		if len(e.Embedding) != dim {
			return &domain.DimensionMismatchError{Expected: dim, Actual: len(e.Embedding)}
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dim != 0 && v.dim != dim {
		return &domain.DimensionMismatchError{Expected: v.dim, Actual: dim}
	}
	v.dim = dim

	for _, e := range entries {
		if _, exists := v.entries[e.ID]; !exists {
			v.order = append(v.order, e.ID)
		}
		v.entries[e.ID] = e
	}
	return nil
}

// Query returns up to k nearest entries by Euclidean distance.
func (v *VectorIndex) Query(_ context.Context, embedding []float32, k int, filter domain.Filter) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dim == 0 {
		return nil, nil
	}
	if len(embedding) != v.dim {
		return nil, &domain.DimensionMismatchError{Expected: v.dim, Actual: len(embedding)}
	}

	var hits []driven.VectorHit
	for _, id := range v.order {
		entry := v.entries[id]
		if !matchesFilter(entry, filter) {
			continue
		}
		dist := distance(embedding, entry.Embedding)
		hits = append(hits, driven.VectorHit{
			Entry:      entry,
			Distance:   dist,
			Similarity: 1 / (1 + dist),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Get returns entries matching the given IDs.
func (v *VectorIndex) Get(_ context.Context, ids []string) ([]driven.VectorEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var result []driven.VectorEntry
	for _, id := range ids {
		if entry, ok := v.entries[id]; ok {
			result = append(result, entry)
		}
	}
	return result, nil
}

// DeleteByFilter removes entries matching the filter and reports the count.
func (v *VectorIndex) DeleteByFilter(_ context.Context, filter domain.Filter) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("%w: refusing to delete without a filter (use Reset)", domain.ErrInvalidInput)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	deleted := 0
	kept := v.order[:0]
	for _, id := range v.order {
		if matchesFilter(v.entries[id], filter) {
			delete(v.entries, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	v.order = kept
	if len(v.entries) == 0 {
		v.dim = 0
	}
	return deleted, nil
}

// Scan pages through all entries in insertion order.
func (v *VectorIndex) Scan(_ context.Context, limit, offset int) ([]driven.VectorEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if offset >= len(v.order) {
		return nil, nil
	}
	if limit <= 0 {
		limit = len(v.order)
	}
	end := offset + limit
	if end > len(v.order) {
		end = len(v.order)
	}

	result := make([]driven.VectorEntry, 0, end-offset)
	for _, id := range v.order[offset:end] {
		result = append(result, v.entries[id])
	}
	return result, nil
}

// Count returns the total number of entries.
func (v *VectorIndex) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries), nil
}

// Reset wipes all entries.
func (v *VectorIndex) Reset(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = make(map[string]driven.VectorEntry)
	v.order = nil
	v.dim = 0
	return nil
}

// DetectDimension returns the stored dimension, 0 when empty.
func (v *VectorIndex) DetectDimension(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dim, nil
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}

func matchesFilter(entry driven.VectorEntry, filter domain.Filter) bool {
	for key, want := range filter {
		got, _ := entry.Metadata[key].(string)
		if got != want {
			return false
		}
	}
	return true
}

func distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
