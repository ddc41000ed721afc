package domain

import "time"

type ConversationStatus string

const (
	ConversationScheduled ConversationStatus = "scheduled"
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationMissed    ConversationStatus = "missed"
	ConversationCancelled ConversationStatus = "cancelled"
)

func (s ConversationStatus) IsTerminal() bool {
	switch s {
	case ConversationCompleted, ConversationMissed, ConversationCancelled:
		return true
	}
	return false
}

type Conversation struct {
	ID                     string
	OrderID                string
	Status                 ConversationStatus
	ExternalConversationID *string
	RoomURL                *string
	ScheduledAt            time.Time
	StartedAt              *time.Time
	EndedAt                *time.Time
	DurationSeconds        *int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
