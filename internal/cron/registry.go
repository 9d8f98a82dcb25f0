package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is one reconciliation task. The service never runs a job more often
// than its Interval.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// Registry holds jobs in the order they were added.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry rejects nil jobs, blank or repeated names and non-positive
// intervals.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for i, job := range jobs {
		if err := r.add(job); err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
	}
	return r, nil
}

func (r *Registry) add(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("duplicate job %q", name)
	}
	if job.Interval() <= 0 {
		return fmt.Errorf("job %q needs a positive interval", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}
