package content

import (
	"strings"

	"avatarbook/internal/domain"
)

var videoStatuses = map[string]domain.VideoJobStatus{
	"queued":     domain.VideoJobQueued,
	"generating": domain.VideoJobProcessing,
	"processing": domain.VideoJobProcessing,
	"ready":      domain.VideoJobCompleted,
	"completed":  domain.VideoJobCompleted,
	"error":      domain.VideoJobFailed,
	"failed":     domain.VideoJobFailed,
	"deleted":    domain.VideoJobFailed,
}

var conversationStatuses = map[string]domain.ConversationStatus{
	"active":      domain.ConversationActive,
	"started":     domain.ConversationActive,
	"in_progress": domain.ConversationActive,
	"ended":       domain.ConversationCompleted,
	"completed":   domain.ConversationCompleted,
	"shutdown":    domain.ConversationCompleted,
}

// mapVideoStatus returns processing with known=false for vocabulary it does
// not recognize; callers log the fallback.
func mapVideoStatus(raw string) (status domain.VideoJobStatus, known bool) {
	status, known = videoStatuses[strings.ToLower(strings.TrimSpace(raw))]
	if !known {
		return domain.VideoJobProcessing, false
	}
	return status, true
}

func mapConversationStatus(raw string) (domain.ConversationStatus, bool) {
	status, ok := conversationStatuses[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}
