package export

import (
	"sort"
	"sync"
)

// Registry tracks active jobs by id. Entries are inserted when a job starts
// and removed on its terminal state or on cancel.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Job)}
}

// Insert adds job. It returns false if the id is already present.
func (r *Registry) Insert(job *Job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return false
	}
	r.jobs[job.ID] = job
	return true
}

// Remove deletes and returns the job, or nil if it was not present.
func (r *Registry) Remove(id string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil
	}
	delete(r.jobs, id)
	return job
}

// Get returns the job, or nil.
func (r *Registry) Get(id string) *Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}

// Len returns the number of active jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// List returns the active jobs, oldest first.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].createdAt.Before(jobs[j].createdAt)
	})
	return jobs
}
