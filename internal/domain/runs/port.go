package runs

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Get(ctx context.Context, tenant string, id RunID) (*Run, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Run, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (total, denied, hazards int, err error)
}

// ArtifactStore port (interface untuk penyimpanan export JSON)
type ArtifactStore interface {
	UploadJSON(ctx context.Context, key string, data []byte) (string, error)
}
