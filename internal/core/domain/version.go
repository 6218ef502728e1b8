package domain

import "time"

// DocumentVersion is one stored revision of a document. Exactly one
// version per document has IsCurrent=true; switching is atomic.
type DocumentVersion struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	StoragePath   string    `json:"storage_path"`
	SizeBytes     int64     `json:"size_bytes"`
	IsCurrent     bool      `json:"is_current"`
	ChangeNotes   string    `json:"change_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
