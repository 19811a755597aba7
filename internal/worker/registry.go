package worker

import (
	"sync"

	"github.com/google/uuid"
)

// RunRegistry hands out a generation number per job run. A restart bumps
// the generation, so a still-running older pass can notice it has been
// superseded and stop writing results instead of racing the new run.
type RunRegistry struct {
	mu          sync.Mutex
	generations map[uuid.UUID]int
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{generations: make(map[uuid.UUID]int)}
}

// Begin starts a new run for the job and returns its generation.
func (r *RunRegistry) Begin(jobID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generations[jobID]++
	return r.generations[jobID]
}

// Superseded reports whether a newer run has started since generation.
func (r *RunRegistry) Superseded(jobID uuid.UUID, generation int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.generations[jobID] != generation
}

// Finish forgets a job once its latest run completed, keeping the map
// from growing without bound.
func (r *RunRegistry) Finish(jobID uuid.UUID, generation int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.generations[jobID] == generation {
		delete(r.generations, jobID)
	}
}
