// Package flat implements one partition's embedding index: an exact L2
// index keyed by record-store unit IDs, with a parallel metadata map and
// file-based persistence.
//
// Instances are not safe for concurrent mutation. The orchestrator
// serializes mutations per partition by running them synchronously inside
// that partition's commit step; callers must preserve that invariant.
package flat

import (
	"fmt"
	"math"
	"sort"
)

// IDIndex is a flat (exhaustive) L2 index over fixed-dimension vectors with
// explicit int64 keys. Keys are supplied by the caller and never remapped,
// so delete-by-id stays valid across saves and loads.
type IDIndex struct {
	dim  int
	ids  []int64
	data []float32 // len(ids) * dim, row-major
}

func NewIDIndex(dim int) *IDIndex {
	return &IDIndex{dim: dim}
}

func (x *IDIndex) Dim() int  { return x.dim }
func (x *IDIndex) Size() int { return len(x.ids) }

// IDs returns the keys currently present, in insertion order.
func (x *IDIndex) IDs() []int64 {
	out := make([]int64, len(x.ids))
	copy(out, x.ids)
	return out
}

// Add appends (id, vector) pairs. Duplicate ids are not deduplicated; the
// intended caller only ever adds freshly persisted, never-indexed units.
func (x *IDIndex) Add(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors mismatch: %d/%d", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != x.dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", ids[i], len(v), x.dim)
		}
	}
	for i, v := range vectors {
		x.ids = append(x.ids, ids[i])
		x.data = append(x.data, v...)
	}
	return nil
}

// Remove drops every vector whose id is in the set and returns how many
// were removed.
func (x *IDIndex) Remove(idSet map[int64]struct{}) int {
	if len(idSet) == 0 || len(x.ids) == 0 {
		return 0
	}
	kept := 0
	for i, id := range x.ids {
		if _, drop := idSet[id]; drop {
			continue
		}
		if kept != i {
			x.ids[kept] = id
			copy(x.data[kept*x.dim:(kept+1)*x.dim], x.data[i*x.dim:(i+1)*x.dim])
		}
		kept++
	}
	removed := len(x.ids) - kept
	x.ids = x.ids[:kept]
	x.data = x.data[:kept*x.dim]
	return removed
}

// Candidate is one search hit before metadata join and filtering.
type Candidate struct {
	ID       int64
	Distance float32
}

// Search returns the k nearest vectors by squared L2 distance, nearest
// first. k larger than the index size is capped.
func (x *IDIndex) Search(query []float32, k int) ([]Candidate, error) {
	if len(query) != x.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), x.dim)
	}
	if k <= 0 || len(x.ids) == 0 {
		return nil, nil
	}
	if k > len(x.ids) {
		k = len(x.ids)
	}

	candidates := make([]Candidate, len(x.ids))
	for i, id := range x.ids {
		candidates[i] = Candidate{ID: id, Distance: l2Squared(query, x.data[i*x.dim:(i+1)*x.dim])}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	return candidates[:k], nil
}

func l2Squared(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

// Score converts an L2 distance into the similarity reported to callers.
func Score(distance float32) float64 {
	d := float64(distance)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return 1.0 / (1.0 + d)
}
