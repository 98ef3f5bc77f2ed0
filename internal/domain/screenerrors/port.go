package screenerrors

import (
	"context"
)

// Repository defines persistence for screen errors
type Repository interface {
	Save(ctx context.Context, e *ScreenError) error
	ListByRun(ctx context.Context, tenant string, runID string, limit int) ([]*ScreenError, error)
}
