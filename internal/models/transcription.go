package models

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Progress milestones written by the worker while a job moves through the
// relay. Complete always lands on 100.
const (
	ProgressCreated   = 0
	ProgressReceived  = 10
	ProgressPublished = 25
	ProgressForwarded = 50
	ProgressComplete  = 100
)

type TranscriptionRecord struct {
	Filename  string    `db:"filename" json:"filename"`
	JobID     string    `db:"job_id" json:"job_id"`
	Language  string    `db:"language" json:"language"`
	Text      string    `db:"text" json:"text"`
	Progress  int       `db:"progress" json:"progress"`
	Status    Status    `db:"status" json:"status"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ProgressEvent is broadcast to websocket subscribers watching a filename.
type ProgressEvent struct {
	Filename string `json:"file"`
	JobID    string `json:"jobId"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}
