package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"avatarbook/internal/domain"
	"avatarbook/internal/errors"
)

const videoJobColumns = `id, orderId, status, externalVideoId, videoUrl, thumbnailUrl,
	retryCount, errorMessage, completedAt, createdAt, updatedAt`

type MySQLVideoJobRepository struct {
	db *sql.DB
}

func NewMySQLVideoJobRepository(db *sql.DB) *MySQLVideoJobRepository {
	return &MySQLVideoJobRepository{db: db}
}

// StartVideoFulfillment inserts the job and moves its order paid→processing in
// one transaction. The unique orderId index turns a second attempt into a
// ConflictError.
func (r *MySQLVideoJobRepository) StartVideoFulfillment(ctx context.Context, job *domain.VideoJob) error {
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO VideoJobs (id, orderId, status, retryCount, createdAt, updatedAt)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := tx.ExecContext(ctx, query, job.ID, job.OrderID, job.Status, job.RetryCount, now, now)
		if isDuplicateEntry(err) {
			return errors.NewConflictError(fmt.Sprintf("order %s already has a video job", job.OrderID))
		}
		if err != nil {
			return wrap("inserting video job", err)
		}

		return transitionOrder(ctx, tx, job.OrderID, domain.OrderStatusPaid, domain.OrderStatusProcessing, "")
	})
}

func (r *MySQLVideoJobRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.VideoJob, error) {
	return r.findOne(ctx, "orderId = ?", fmt.Sprintf("no video job for order %s", orderID), orderID)
}

func (r *MySQLVideoJobRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.VideoJob, error) {
	return r.findOne(ctx, "externalVideoId = ?", fmt.Sprintf("no video job for external video %s", externalID), externalID)
}

func (r *MySQLVideoJobRepository) findOne(ctx context.Context, where, notFound string, args ...any) (*domain.VideoJob, error) {
	query := `SELECT ` + videoJobColumns + ` FROM VideoJobs WHERE ` + where

	var job domain.VideoJob
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&job.ID, &job.OrderID, &job.Status, &job.ExternalVideoID, &job.VideoURL, &job.ThumbnailURL,
		&job.RetryCount, &job.ErrorMessage, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(notFound)
	}
	if err != nil {
		return nil, wrap("querying video job", err)
	}

	return &job, nil
}

// MarkSubmitted records the provider's id once generation has been accepted.
func (r *MySQLVideoJobRepository) MarkSubmitted(ctx context.Context, jobID, externalID string) error {
	query := `
		UPDATE VideoJobs
		SET externalVideoId = ?, status = 'processing'
		WHERE id = ? AND status = 'queued'
	`

	result, err := r.db.ExecContext(ctx, query, externalID, jobID)
	if err != nil {
		return wrap("recording external video id", err)
	}

	return expectOneRow(result, fmt.Sprintf("video job %s is not queued", jobID))
}

// UpdateStatus moves a job between its non-terminal statuses.
func (r *MySQLVideoJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.VideoJobStatus) error {
	if status.IsTerminal() {
		return fmt.Errorf("terminal video job status %s requires Complete or Fail", status)
	}

	query := `
		UPDATE VideoJobs
		SET status = ?
		WHERE id = ? AND status IN ('queued', 'processing')
	`

	result, err := r.db.ExecContext(ctx, query, status, jobID)
	if err != nil {
		return wrap("updating video job status", err)
	}

	return expectOneRow(result, fmt.Sprintf("video job %s is already terminal", jobID))
}

// CompleteVideoJob stores the asset URLs and makes the order ready for delivery.
func (r *MySQLVideoJobRepository) CompleteVideoJob(ctx context.Context, jobID, orderID, videoURL string, thumbnailURL *string, completedAt time.Time) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE VideoJobs
			SET status = 'completed', videoUrl = ?, thumbnailUrl = ?, completedAt = ?, errorMessage = NULL
			WHERE id = ? AND status IN ('queued', 'processing')
		`
		result, err := tx.ExecContext(ctx, query, videoURL, thumbnailURL, completedAt.UTC(), jobID)
		if err != nil {
			return wrap("completing video job", err)
		}
		if err := expectOneRow(result, fmt.Sprintf("video job %s is already terminal", jobID)); err != nil {
			return err
		}

		return transitionOrder(ctx, tx, orderID, domain.OrderStatusProcessing, domain.OrderStatusReady, ", deliveryUrl = ?", videoURL)
	})
}

// FailVideoJob marks both the job and its order failed with message.
func (r *MySQLVideoJobRepository) FailVideoJob(ctx context.Context, jobID, orderID, message string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE VideoJobs
			SET status = 'failed', errorMessage = ?
			WHERE id = ? AND status IN ('queued', 'processing')
		`
		result, err := tx.ExecContext(ctx, query, message, jobID)
		if err != nil {
			return wrap("failing video job", err)
		}
		if err := expectOneRow(result, fmt.Sprintf("video job %s is already terminal", jobID)); err != nil {
			return err
		}

		return transitionOrder(ctx, tx, orderID, domain.OrderStatusProcessing, domain.OrderStatusFailed, ", errorMessage = ?", message)
	})
}

// Requeue is the operator recovery path for a failed job. It bumps the retry
// counter and reopens the order.
func (r *MySQLVideoJobRepository) Requeue(ctx context.Context, jobID, orderID string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE VideoJobs
			SET status = 'queued', retryCount = retryCount + 1, externalVideoId = NULL, errorMessage = NULL
			WHERE id = ? AND status = 'failed'
		`
		result, err := tx.ExecContext(ctx, query, jobID)
		if err != nil {
			return wrap("requeueing video job", err)
		}
		if err := expectOneRow(result, fmt.Sprintf("video job %s is not failed", jobID)); err != nil {
			return err
		}

		return transitionOrder(ctx, tx, orderID, domain.OrderStatusFailed, domain.OrderStatusProcessing, ", errorMessage = NULL")
	})
}
