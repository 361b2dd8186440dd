package memory

import (
	"context"
	"slices"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

func (s *Store) CreateDonation(_ context.Context, d *domain.Donation) error {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.donors[d.DonorID]; !ok {
		return domain.NotFoundf("donor not found")
	}
	if _, ok := st.banks[d.BloodBankID]; !ok {
		return domain.NotFoundf("blood bank not found")
	}
	s.track(&d.ID)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	keep(s, st.donations, d.ID)
	st.donations[d.ID] = *d
	return nil
}

func (s *Store) GetDonation(_ context.Context, id string) (domain.Donation, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	d, ok := s.st.donations[id]
	if !ok {
		return domain.Donation{}, domain.NotFoundf("donation not found")
	}
	return d, nil
}

func (s *Store) LockDonation(ctx context.Context, id string) (domain.Donation, error) {
	return s.GetDonation(ctx, id)
}

func (s *Store) UpdateDonation(_ context.Context, d domain.Donation) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cur, ok := s.st.donations[d.ID]
	if !ok {
		return domain.NotFoundf("donation not found")
	}
	d.CreatedAt = cur.CreatedAt
	keep(s, s.st.donations, d.ID)
	s.st.donations[d.ID] = d
	return nil
}

func (s *Store) ListDonations(_ context.Context, f ports.DonationFilter) ([]domain.Donation, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	var out []domain.Donation
	for _, d := range s.st.donations {
		if f.DonorID != "" && d.DonorID != f.DonorID {
			continue
		}
		if f.BloodBankID != "" && d.BloodBankID != f.BloodBankID {
			continue
		}
		out = append(out, d)
	}
	newestFirst(s.st, out, func(d domain.Donation) string { return d.ID })
	return out, nil
}

func (s *Store) CreateRequest(_ context.Context, r *domain.BloodRequest) error {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	s.track(&r.ID)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	keep(s, st.requests, r.ID)
	st.requests[r.ID] = cloneRequest(*r)
	return nil
}

func (s *Store) GetRequest(_ context.Context, id string) (domain.BloodRequest, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	r, ok := s.st.requests[id]
	if !ok {
		return domain.BloodRequest{}, domain.NotFoundf("request not found")
	}
	return cloneRequest(r), nil
}

func (s *Store) LockRequest(ctx context.Context, id string) (domain.BloodRequest, error) {
	return s.GetRequest(ctx, id)
}

func (s *Store) UpdateRequest(_ context.Context, r domain.BloodRequest) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cur, ok := s.st.requests[r.ID]
	if !ok {
		return domain.NotFoundf("request not found")
	}
	r.CreatedAt = cur.CreatedAt
	r.MLPrediction, r.RecommendedDonors = cur.MLPrediction, cur.RecommendedDonors
	keep(s, s.st.requests, r.ID)
	s.st.requests[r.ID] = cloneRequest(r)
	return nil
}

func (s *Store) DeleteRequest(_ context.Context, id string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, ok := s.st.requests[id]; !ok {
		return domain.NotFoundf("request not found")
	}
	keep(s, s.st.requests, id)
	delete(s.st.requests, id)
	keep(s, s.st.order, id)
	delete(s.st.order, id)
	return nil
}

func (s *Store) ListRequests(_ context.Context, f ports.RequestFilter) ([]domain.BloodRequest, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	var out []domain.BloodRequest
	for _, r := range s.st.requests {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
			continue
		}
		if f.Urgency != "" && r.Urgency != f.Urgency {
			continue
		}
		if f.RequestedBy != "" && r.RequestedBy != f.RequestedBy {
			continue
		}
		out = append(out, cloneRequest(r))
	}
	newestFirst(s.st, out, func(r domain.BloodRequest) string { return r.ID })
	return out, nil
}

func (s *Store) SetRecommendation(_ context.Context, id string, prediction string, donorIDs []string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	r, ok := s.st.requests[id]
	if !ok {
		return domain.NotFoundf("request not found")
	}
	r = cloneRequest(r)
	r.MLPrediction = prediction
	r.RecommendedDonors = slices.Clone(donorIDs)
	keep(s, s.st.requests, id)
	s.st.requests[id] = r
	return nil
}
