package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

func (db *DB) EnqueueRecommendation(ctx context.Context, requestID string) (string, error) {
	jobID := uuid.NewString()
	_, err := db.q.Exec(ctx, `INSERT INTO recommendation_jobs (id, request_id) VALUES ($1, $2)`, jobID, requestID)
	if err != nil {
		return "", mapErr(err, "request not found")
	}
	return jobID, nil
}

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.RecommendationJob, found bool, err error) {
	err = db.withTx(ctx, func(tx *DB) error {
		err := tx.q.QueryRow(ctx, `
			SELECT id, request_id FROM recommendation_jobs
			WHERE status = 'queued'
			ORDER BY queued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`).Scan(&job.ID, &job.RequestID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		_, err = tx.q.Exec(ctx, `
			UPDATE recommendation_jobs SET status = 'running', started_at = now(), attempts = attempts + 1
			WHERE id = $1
		`, job.ID)
		return err
	})
	if err != nil {
		return ports.RecommendationJob{}, false, err
	}
	return job, found, nil
}

func (db *DB) finishJob(ctx context.Context, jobID, status, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tag, err := db.q.Exec(ctx, `
		UPDATE recommendation_jobs SET status = $2, reason = $3, finished_at = now() WHERE id = $1
	`, jobID, status, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("job not found")
	}
	return nil
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	return db.finishJob(ctx, jobID, "completed", "")
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return db.finishJob(ctx, jobID, "failed", reason)
}

// StartJobForRequest marks the queued job of one request as running and returns its id.
func (db *DB) StartJobForRequest(ctx context.Context, requestID string) (jobID string, err error) {
	if !validID(requestID) {
		return "", domain.NotFoundf("request not found")
	}
	err = db.withTx(ctx, func(tx *DB) error {
		err := tx.q.QueryRow(ctx, `
			SELECT id FROM recommendation_jobs
			WHERE request_id = $1 AND status = 'queued'
			ORDER BY queued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`, requestID).Scan(&jobID)
		if err != nil {
			return mapErr(err, "no queued job for request")
		}
		_, err = tx.q.Exec(ctx, `
			UPDATE recommendation_jobs SET status = 'running', started_at = now(), attempts = attempts + 1
			WHERE id = $1
		`, jobID)
		return err
	})
	return jobID, err
}
