package memory

import (
	"context"

	"github.com/google/uuid"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

func (s *Store) EnqueueRecommendation(_ context.Context, requestID string) (string, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	j := job{ID: uuid.NewString(), RequestID: requestID, Status: "queued"}
	s.keepJob(j.ID)
	s.st.jobs = append(s.st.jobs, j)
	return j.ID, nil
}

// ClaimNext takes the oldest queued job and marks it running.
func (s *Store) ClaimNext(_ context.Context) (ports.RecommendationJob, bool, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for i := range s.st.jobs {
		if s.st.jobs[i].Status == "queued" {
			s.keepJob(s.st.jobs[i].ID)
			s.st.jobs[i].Status = "running"
			s.st.jobs[i].Attempts++
			j := s.st.jobs[i]
			return ports.RecommendationJob{ID: j.ID, RequestID: j.RequestID}, true, nil
		}
	}
	return ports.RecommendationJob{}, false, nil
}

func (s *Store) setJobStatus(jobID, status, reason string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for i := range s.st.jobs {
		if s.st.jobs[i].ID == jobID {
			s.keepJob(jobID)
			s.st.jobs[i].Status = status
			s.st.jobs[i].Reason = reason
			return nil
		}
	}
	return domain.NotFoundf("job not found")
}

func (s *Store) MarkCompleted(_ context.Context, jobID string) error {
	return s.setJobStatus(jobID, "completed", "")
}

func (s *Store) MarkFailed(_ context.Context, jobID string, reason string) error {
	return s.setJobStatus(jobID, "failed", reason)
}

func (s *Store) StartJobForRequest(_ context.Context, requestID string) (string, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for i := range s.st.jobs {
		if s.st.jobs[i].RequestID == requestID && s.st.jobs[i].Status == "queued" {
			s.keepJob(s.st.jobs[i].ID)
			s.st.jobs[i].Status = "running"
			s.st.jobs[i].Attempts++
			return s.st.jobs[i].ID, nil
		}
	}
	return "", domain.NotFoundf("no queued job for request")
}

// JobStatus reports the state of the latest job for a request; "" when none.
func (s *Store) JobStatus(requestID string) string {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	status := ""
	for _, j := range s.st.jobs {
		if j.RequestID == requestID {
			status = j.Status
		}
	}
	return status
}
