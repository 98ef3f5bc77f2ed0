package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/synthscreen/internal/domain/runs"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save insert/update Run record
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	const q = `
INSERT INTO screening_runs
(id, tenant_id, submitted_at, request_id, permission, provider_reference, status,
 records, hazards, unique_organisms, base_pairs,
 artifact_url, duration_ms)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 permission=VALUES(permission), provider_reference=VALUES(provider_reference),
 records=VALUES(records), hazards=VALUES(hazards),
 unique_organisms=VALUES(unique_organisms), base_pairs=VALUES(base_pairs),
 artifact_url=VALUES(artifact_url), duration_ms=VALUES(duration_ms);
`
	// Ensure non-nullable string fields have safe defaults and numbers fall back to 0
	tenant := stringOrDash(run.TenantID)
	status := stringOrDash(string(run.Status))
	submitted := run.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		run.ID, tenant, submitted, run.RequestID, run.Permission, run.ProviderReference, status,
		run.Counts.Records, run.Counts.Hazards, run.Counts.UniqueOrganisms, run.Counts.BasePairs,
		run.ArtifactURL, run.DurationMS,
	)
	return err
}

// Get by ID + Tenant
func (r *RunRepository) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	const q = `
SELECT id, tenant_id, submitted_at, request_id, permission, provider_reference, status,
       records, hazards, unique_organisms, base_pairs,
       artifact_url, duration_ms
FROM screening_runs
WHERE tenant_id=? AND id=? LIMIT 1;
`
	row := r.db.QueryRowContext(ctx, q, tenant, id)

	var run domain.Run
	if err := row.Scan(
		&run.ID, &run.TenantID, &run.SubmittedAt, &run.RequestID,
		&run.Permission, &run.ProviderReference, &run.Status,
		&run.Counts.Records, &run.Counts.Hazards, &run.Counts.UniqueOrganisms, &run.Counts.BasePairs,
		&run.ArtifactURL, &run.DurationMS,
	); err != nil {
		return nil, err
	}
	return &run, nil
}

// Latest runs per tenant
func (r *RunRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, submitted_at, request_id, permission, provider_reference, status,
       records, hazards, unique_organisms, base_pairs,
       artifact_url, duration_ms
FROM screening_runs
WHERE tenant_id=? ORDER BY submitted_at DESC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(
			&run.ID, &run.TenantID, &run.SubmittedAt, &run.RequestID,
			&run.Permission, &run.ProviderReference, &run.Status,
			&run.Counts.Records, &run.Counts.Hazards, &run.Counts.UniqueOrganisms, &run.Counts.BasePairs,
			&run.ArtifactURL, &run.DurationMS,
		); err != nil {
			return nil, err
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}

// Summary counts screening outcomes since N days
func (r *RunRepository) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total_runs,
       COALESCE(SUM(permission='denied'),0) AS denied,
       COALESCE(SUM(hazards),0) AS hazards
FROM screening_runs
WHERE tenant_id=? AND submitted_at >= ?;
`
	var total, denied, hazards int
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&total, &denied, &hazards); err != nil {
		return 0, 0, 0, err
	}
	return total, denied, hazards, nil
}
