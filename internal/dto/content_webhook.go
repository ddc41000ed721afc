package dto

import "time"

// ContentWebhookPayload is the flat callback body sent by the content
// provider. Exactly one of VideoID and ConversationID is set.
type ContentWebhookPayload struct {
	VideoID        string     `json:"video_id"`
	ConversationID string     `json:"conversation_id"`
	Status         string     `json:"status"`
	DownloadURL    string     `json:"download_url"`
	HostedURL      string     `json:"hosted_url"`
	ThumbnailURL   string     `json:"thumbnail_url"`
	ErrorMessage   string     `json:"error_message"`
	Duration       *int       `json:"duration"`
	StartedAt      *time.Time `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
}
