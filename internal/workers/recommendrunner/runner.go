// Package recommendrunner drains the recommendation job queue.
package recommendrunner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/ports"
	"bloodlink/internal/recommend"
)

// Processor performs the work for a job's request id.
type Processor interface {
	Process(ctx context.Context, requestID string) error
}

type Recommender interface {
	Recommend(ctx context.Context, in recommend.Input) recommend.Result
}

// RequestProcessor computes a recommendation and stores it on the request.
// A degraded recommendation is stored like any other; only persistence
// failures fail the job.
type RequestProcessor struct {
	Requests    ports.RequestRepository
	Recommender Recommender
	Log         *zap.Logger
}

func (p RequestProcessor) Process(ctx context.Context, requestID string) error {
	req, err := p.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	res := p.Recommender.Recommend(ctx, recommend.InputFor(req))
	if p.Log != nil {
		p.Log.Debug("recommendation computed",
			zap.String("request_id", requestID),
			zap.Stringer("outcome", res.Outcome),
			zap.Int("donors", len(res.Donors)))
	}
	// The recommendation may have used up ctx; storing the result must not.
	storeCtx, cancel := settle(ctx)
	defer cancel()
	return p.Requests.SetRecommendation(storeCtx, requestID, res.Prediction, res.DonorIDs())
}

// persistTimeout bounds writes that run after the caller's deadline passed.
const persistTimeout = 5 * time.Second

func settle(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// Run starts a dispatcher that claims jobs every pollInterval and
// concurrency workers that process them. The returned channel closes once
// every worker has exited after ctx is cancelled.
func Run(ctx context.Context, repo ports.JobRepository, processor Processor, concurrency int, pollInterval time.Duration, log *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if concurrency < 1 {
		close(done)
		return done
	}
	jobsCh := make(chan ports.RecommendationJob, concurrency)

	go func() {
		defer close(jobsCh)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for {
				job, found, err := repo.ClaimNext(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Error("job claim failed", zap.Error(err))
					}
					break
				}
				if !found {
					break
				}
				select {
				case jobsCh <- job:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for job := range jobsCh {
				if err := processor.Process(ctx, job.RequestID); err != nil {
					_ = repo.MarkFailed(context.WithoutCancel(ctx), job.ID, err.Error())
					log.Warn("recommendation job failed",
						zap.Int("worker", idx), zap.String("job_id", job.ID), zap.Error(err))
					continue
				}
				if err := repo.MarkCompleted(context.WithoutCancel(ctx), job.ID); err != nil {
					log.Error("mark job completed", zap.Int("worker", idx), zap.String("job_id", job.ID), zap.Error(err))
				}
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// ProcessInline claims the queued job of one request and processes it
// synchronously with the same processor the background workers use.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor Processor, requestID string) error {
	jobID, err := repo.StartJobForRequest(ctx, requestID)
	if err != nil {
		return err
	}
	err = processor.Process(ctx, requestID)
	markCtx, cancel := settle(ctx)
	defer cancel()
	if err != nil {
		_ = repo.MarkFailed(markCtx, jobID, err.Error())
		return err
	}
	return repo.MarkCompleted(markCtx, jobID)
}
