package runs

import "context"

// Repo defines persistence operations for analysis runs.
type Repo interface {
	Create(ctx context.Context, run AnalysisRun) error
	GetByID(ctx context.Context, runID string) (AnalysisRun, error)
	Update(ctx context.Context, run AnalysisRun) error
	List(ctx context.Context, limit, offset int) ([]AnalysisRun, error)
}
