package commons

import "context"

// Locker is a best-effort mutual exclusion for webhook deliveries. The
// database conditional updates stay authoritative.
type Locker interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}

// NoLocker always grants the lock. It is used when Redis is not configured.
type NoLocker struct{}

func (NoLocker) TryLock(ctx context.Context, scope, key string) (bool, error) { return true, nil }

func (NoLocker) Release(ctx context.Context, scope, key string) error { return nil }

// OutcomeRecorder counts webhook outcomes.
type OutcomeRecorder interface {
	RecordWebhook(source, outcome string)
}

type NopRecorder struct{}

func (NopRecorder) RecordWebhook(source, outcome string) {}
