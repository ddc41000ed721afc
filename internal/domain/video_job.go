package domain

import "time"

type VideoJobStatus string

const (
	VideoJobQueued     VideoJobStatus = "queued"
	VideoJobProcessing VideoJobStatus = "processing"
	VideoJobCompleted  VideoJobStatus = "completed"
	VideoJobFailed     VideoJobStatus = "failed"
)

func (s VideoJobStatus) IsTerminal() bool {
	return s == VideoJobCompleted || s == VideoJobFailed
}

type VideoJob struct {
	ID              string
	OrderID         string
	Status          VideoJobStatus
	ExternalVideoID *string
	VideoURL        *string
	ThumbnailURL    *string
	RetryCount      int
	ErrorMessage    *string
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
