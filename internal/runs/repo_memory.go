package runs

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analysis runs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]AnalysisRun
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]AnalysisRun)}
}

// Create stores the run.
func (r *MemoryRepo) Create(ctx context.Context, run AnalysisRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[run.ID] = cloneRun(run)
	return nil
}

// GetByID returns a run by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, runID string) (AnalysisRun, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisRun{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.byID[runID]
	if !ok {
		return AnalysisRun{}, ErrNotFound
	}
	return cloneRun(run), nil
}

// Update replaces the stored run.
func (r *MemoryRepo) Update(ctx context.Context, run AnalysisRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[run.ID]; !ok {
		return ErrNotFound
	}
	r.byID[run.ID] = cloneRun(run)
	return nil
}

// List returns runs newest first with limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]AnalysisRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]AnalysisRun, 0, len(r.byID))
	for _, run := range r.byID {
		all = append(all, cloneRun(run))
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []AnalysisRun{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// cloneRun deep-copies the step slice so callers cannot mutate stored state.
func cloneRun(run AnalysisRun) AnalysisRun {
	steps := make([]Step, len(run.Steps))
	copy(steps, run.Steps)
	run.Steps = steps
	return run
}
