package domain

import "time"

// VideoRequest asks the content provider to render a pre-recorded video.
type VideoRequest struct {
	Name        string
	Script      string
	CallbackURL string
}

type VideoSubmission struct {
	ExternalID string
	Status     string
}

// ConversationRequest books a live avatar call.
type ConversationRequest struct {
	Name        string
	Context     string
	Greeting    string
	CallbackURL string
	ScheduledAt time.Time
}

type ConversationBooking struct {
	ExternalID string
	RoomURL    string
}
