package analysis

import (
	"context"

	"github.com/google/uuid"

	"github.com/bryanwahyu/synthscreen/internal/application"
	domain "github.com/bryanwahyu/synthscreen/internal/domain/analysis"
)

// Service implements use-cases untuk AI risk narratives
type Service struct {
	client domain.Client
	repo   domain.Repository
	clock  application.Clock
}

func NewService(client domain.Client, repo domain.Repository, clock application.Clock) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{client: client, repo: repo, clock: clock}
}

// AnalyzeAndStore runs the AI narrative over a screening artifact and
// persists the outcome for auditing.
func (s *Service) AnalyzeAndStore(ctx context.Context, tenant, runID, fileURL string) (*domain.Analysis, error) {
	result, err := s.client.Analyze(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	a := &domain.Analysis{
		ID:        domain.AnalysisID(uuid.New().String()),
		TenantID:  tenant,
		RunID:     runID,
		FileURL:   fileURL,
		Result:    result,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalyses returns a page of stored narratives, newest first.
func (s *Service) ListAnalyses(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Analysis, error) {
	return s.repo.Paginate(ctx, tenant, page, pageSize)
}
