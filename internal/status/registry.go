// Package status holds the process-wide job progress registry polled by
// external callers. Each key belongs to one logical job, so writes are
// last-write-wins with no merge semantics.
package status

import (
	"fmt"
	"sync"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

// DocumentKey derives the registry key for a document ingestion job.
func DocumentKey(documentID int64) string {
	return fmt.Sprintf("%d", documentID)
}

// ModuleKey derives the registry key for a module-generation job.
func ModuleKey(documentID int64) string {
	return fmt.Sprintf("learning_path_%d", documentID)
}

type Registry struct {
	mu   sync.RWMutex
	jobs map[string]domain.JobStatus
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]domain.JobStatus)}
}

func (r *Registry) Set(key string, status domain.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[key] = status
}

func (r *Registry) Get(key string) (domain.JobStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.jobs[key]
	return s, ok
}

func (r *Registry) Clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, key)
}

// Snapshot returns a copy safe to serialize while writers keep running.
func (r *Registry) Snapshot() map[string]domain.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.JobStatus, len(r.jobs))
	for k, v := range r.jobs {
		out[k] = v
	}
	return out
}
