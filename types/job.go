package types

import "time"

// JobStatus represents the current status of a scan job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Track is a library entry built from one scanned file
type Track struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album"`
	Duration      float64 `json:"duration"`
	Path          string  `json:"path"`
	CoverData     *string `json:"cover_data,omitempty"`
	CoverMIMEType *string `json:"cover_mime_type,omitempty"`
}

// ScanJob represents a library folder scan in the queue
type ScanJob struct {
	ID          string     `json:"id"`
	Directory   string     `json:"directory"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Skipped     int        `json:"skipped"`
	Tracks      []Track    `json:"tracks,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ScanRequest is the body of a scan request
type ScanRequest struct {
	Directory string `json:"directory" binding:"required"`
}
