package runs

import (
	"time"
)

// ID tipe untuk Run
type RunID string

// Status enum
type Status string

const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// HitCounts value object: overview numbers persisted per screening run
type HitCounts struct {
	Records         int `json:"records"`
	Hazards         int `json:"hazards"`
	UniqueOrganisms int `json:"unique_organisms"`
	BasePairs       int `json:"base_pairs"`
}

// Aggregate Root: Run, one screening attempt of one tenant
type Run struct {
	ID                RunID     `json:"id"`
	TenantID          string    `json:"tenant_id"`
	SubmittedAt       time.Time `json:"submitted_at"`
	RequestID         string    `json:"request_id"`
	Permission        string    `json:"permission,omitempty"` // granted | denied, empty while running
	ProviderReference string    `json:"provider_reference,omitempty"`
	Status            Status    `json:"status"`
	Counts            HitCounts `json:"counts"`
	ArtifactURL       string    `json:"artifact_url,omitempty"`
	DurationMS        int64     `json:"duration_ms"`
}
