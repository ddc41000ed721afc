package booking

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"avatarbook/internal/domain"
	"avatarbook/internal/dto"
	apperrors "avatarbook/internal/errors"
)

const (
	maxChildNameLen    = 60
	minChildAge        = 1
	maxChildAge        = 17
	maxInterests       = 5
	maxInterestLen     = 40
	maxGiftHintLen     = 80
	maxMessageLen      = 500
	maxCustomerNameLen = 100
)

var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// Validate checks a booking request and returns the pending order it
// describes, without identifiers. bypassWindow skips only the scheduling
// window; the timestamp must still parse.
func Validate(req dto.CheckoutRequest, now time.Time, window SchedulingWindow, bypassWindow bool) (*domain.Order, error) {
	var details []apperrors.ValidationDetail
	add := func(field, msg string) {
		details = append(details, apperrors.ValidationDetail{Field: field, Message: msg})
	}

	orderType := domain.OrderType(strings.TrimSpace(req.OrderType))
	if !orderType.Valid() {
		add("orderType", "orderType must be one of video, call")
	}

	email := strings.TrimSpace(req.CustomerEmail)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		add("customerEmail", "customerEmail must be a valid email address")
	}

	customerName := strings.TrimSpace(req.CustomerName)
	if utf8.RuneCountInString(customerName) > maxCustomerNameLen {
		add("customerName", fmt.Sprintf("customerName must be at most %d characters", maxCustomerNameLen))
	}

	child := domain.ChildProfile{
		Name: strings.TrimSpace(req.Child.Name),
		Age:  req.Child.Age,
	}
	if child.Name == "" {
		add("child.name", "child.name is required")
	} else if utf8.RuneCountInString(child.Name) > maxChildNameLen {
		add("child.name", fmt.Sprintf("child.name must be at most %d characters", maxChildNameLen))
	}

	if child.Age < minChildAge || child.Age > maxChildAge {
		add("child.age", fmt.Sprintf("child.age must be between %d and %d", minChildAge, maxChildAge))
	}

	if len(req.Child.Interests) > maxInterests {
		add("child.interests", fmt.Sprintf("child.interests must have at most %d entries", maxInterests))
	}
	child.Interests = make([]string, 0, len(req.Child.Interests))
	for i, interest := range req.Child.Interests {
		interest = strings.TrimSpace(interest)
		field := fmt.Sprintf("child.interests[%d]", i)
		switch {
		case interest == "":
			add(field, "interest must not be empty")
		case utf8.RuneCountInString(interest) > maxInterestLen:
			add(field, fmt.Sprintf("interest must be at most %d characters", maxInterestLen))
		default:
			child.Interests = append(child.Interests, interest)
		}
	}

	child.GiftHint = optionalText(req.Child.GiftHint, "child.giftHint", maxGiftHintLen, add)
	child.Message = optionalText(req.Child.Message, "child.message", maxMessageLen, add)

	order := &domain.Order{
		OrderType:     orderType,
		Status:        domain.OrderStatusPending,
		CustomerEmail: email,
		CustomerName:  customerName,
		Child:         child,
	}

	scheduledRaw := trimmed(req.ScheduledAt)
	timezone := trimmed(req.Timezone)

	switch orderType {
	case domain.OrderTypeVideo:
		if scheduledRaw != "" {
			add("scheduledAt", "scheduledAt is only allowed for call orders")
		}
		if timezone != "" {
			add("timezone", "timezone is only allowed for call orders")
		}
	case domain.OrderTypeCall:
		loc, locErr := loadLocation(timezone)
		if locErr != nil {
			add("timezone", locErr.Error())
		}
		if scheduledRaw == "" {
			add("scheduledAt", "scheduledAt is required for call orders")
		}
		if locErr == nil && scheduledRaw != "" {
			at, err := parseScheduledAt(scheduledRaw, loc)
			if err != nil {
				add("scheduledAt", "scheduledAt must be RFC3339 or local YYYY-MM-DDTHH:MM")
			} else {
				if !bypassWindow {
					details = append(details, window.Check(now, at, loc)...)
				}
				utc := at.UTC()
				order.ScheduledAt = &utc
				order.Timezone = &timezone
			}
		}
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	return order, nil
}

func optionalText(value *string, field string, max int, add func(field, msg string)) *string {
	if value == nil {
		return nil
	}
	text := strings.TrimSpace(*value)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > max {
		add(field, fmt.Sprintf("%s must be at most %d characters", field, max))
		return nil
	}
	return &text
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("timezone is required for call orders")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timezone %q is not a known IANA zone", name)
	}
	return loc, nil
}

// parseScheduledAt accepts an absolute RFC3339 instant or a wall-clock time
// interpreted in loc.
func parseScheduledAt(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
