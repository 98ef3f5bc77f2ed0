package analysis

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis represents an AI risk narrative over one screening artifact,
// stored for auditing and retrieval
type Analysis struct {
	ID        AnalysisID `json:"id"`
	TenantID  string     `json:"tenant_id"`
	RunID     string     `json:"run_id,omitempty"`
	FileURL   string     `json:"file_url"`
	Result    string     `json:"result"` // JSON string from AI
	CreatedAt time.Time  `json:"created_at"`
}
