package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/synthscreen/internal/domain/screenerrors"
)

type ScreenErrorRepository struct {
	db *sql.DB
}

func NewScreenErrorRepository(db *sql.DB) *ScreenErrorRepository {
	return &ScreenErrorRepository{db: db}
}

func (r *ScreenErrorRepository) Save(ctx context.Context, e *domain.ScreenError) error {
	const q = `
INSERT INTO screening_errors
  (tenant_id, run_id, phase, message, details_json, created_at)
VALUES (?,?,?,?,?,?)
`
	tenant := stringOrDash(e.TenantID)
	run := stringOrDash(e.RunID)
	phase := stringOrDash(e.Phase)
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, tenant, run, phase, msg, details, created)
	return err
}

// ListByRun returns error entries for one run, newest first
func (r *ScreenErrorRepository) ListByRun(ctx context.Context, tenant string, runID string, limit int) ([]*domain.ScreenError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, run_id, phase, message, details_json, created_at
FROM screening_errors
WHERE tenant_id=? AND run_id=?
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ScreenError
	for rows.Next() {
		var e domain.ScreenError
		if err := rows.Scan(&e.ID, &e.TenantID, &e.RunID, &e.Phase, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
