package analysis

import "context"

// Client is the AI provider port
type Client interface {
	Analyze(ctx context.Context, fileURL string) (string, error)
}

// Repository defines persistence for analyses
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Analysis, error)
}
