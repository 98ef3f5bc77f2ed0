package screenerrors

import "time"

// ScreenError represents a persisted engine-failure entry
type ScreenError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	RunID       string    `json:"run_id"`
	Phase       string    `json:"phase,omitempty"` // validate | screen | export | other
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
