package domain

import "time"

type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskDone      TaskStatus = "done"
	TaskDismissed TaskStatus = "dismissed"
)

// FollowUpTask is generated from a risk factor above the severity
// threshold. (document_id, risk_factor_type) is unique, which makes
// generation idempotent across pipeline re-runs.
type FollowUpTask struct {
	ID             string     `json:"id"`
	DocumentID     string     `json:"document_id"`
	RiskFactorType string     `json:"risk_factor_type"`
	Title          string     `json:"title"`
	Details        string     `json:"details,omitempty"`
	Severity       Severity   `json:"severity"`
	Status         TaskStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FolderRecommendation is a best-effort classification suggestion.
// It never moves the document; acceptance is an explicit user action.
type FolderRecommendation struct {
	DocumentID string    `json:"document_id"`
	Folder     string    `json:"folder"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	Accepted   bool      `json:"accepted"`
	CreatedAt  time.Time `json:"created_at"`
}
