package booking

import (
	"fmt"
	"time"

	apperrors "avatarbook/internal/errors"
)

// SchedulingWindow bounds when a live call may be booked. Hours are local to
// the customer's declared timezone; StartHour is inclusive and EndHour
// exclusive.
type SchedulingWindow struct {
	MinLead   time.Duration
	MaxLead   time.Duration
	StartHour int
	EndHour   int
}

var DefaultWindow = SchedulingWindow{
	MinLead:   2 * time.Hour,
	MaxLead:   7 * 24 * time.Hour,
	StartHour: 16,
	EndHour:   20,
}

// Check returns one detail per violated rule, or nil when at is bookable.
func (w SchedulingWindow) Check(now, at time.Time, loc *time.Location) []apperrors.ValidationDetail {
	var details []apperrors.ValidationDetail

	lead := at.Sub(now)
	if lead < w.MinLead {
		details = append(details, apperrors.ValidationDetail{
			Field:   "scheduledAt",
			Message: fmt.Sprintf("scheduledAt must be at least %s from now", humanDuration(w.MinLead)),
		})
	}
	if lead > w.MaxLead {
		details = append(details, apperrors.ValidationDetail{
			Field:   "scheduledAt",
			Message: fmt.Sprintf("scheduledAt must be within %s from now", humanDuration(w.MaxLead)),
		})
	}

	hour := at.In(loc).Hour()
	if hour < w.StartHour || hour >= w.EndHour {
		details = append(details, apperrors.ValidationDetail{
			Field:   "scheduledAt",
			Message: fmt.Sprintf("scheduledAt must fall between %02d:00 and %02d:00 in %s", w.StartHour, w.EndHour, loc),
		})
	}

	return details
}

// WindowView is the client-facing description of the same rules.
type WindowView struct {
	MinLeadMinutes int `json:"minLeadMinutes"`
	MaxLeadMinutes int `json:"maxLeadMinutes"`
	StartHour      int `json:"startHour"`
	EndHour        int `json:"endHour"`
}

func (w SchedulingWindow) View() WindowView {
	return WindowView{
		MinLeadMinutes: int(w.MinLead / time.Minute),
		MaxLeadMinutes: int(w.MaxLead / time.Minute),
		StartHour:      w.StartHour,
		EndHour:        w.EndHour,
	}
}

func humanDuration(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	}
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}
