package ports

import "context"

// RecommendationJob asks a worker to attach a donor recommendation to a request.
type RecommendationJob struct {
	ID        string
	RequestID string
}

// JobRepository supports enqueueing, claiming and finishing recommendation jobs.
type JobRepository interface {
	EnqueueRecommendation(ctx context.Context, requestID string) (jobID string, err error)
	ClaimNext(ctx context.Context) (job RecommendationJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	// StartJobForRequest claims the queued job of one request for inline processing.
	StartJobForRequest(ctx context.Context, requestID string) (jobID string, err error)
}
