package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

// checkDonorUnique enforces unique phone and unique non-empty email. Caller holds mu.
func (st *state) checkDonorUnique(d domain.Donor) error {
	for id, existing := range st.donors {
		if id == d.ID {
			continue
		}
		if existing.Phone == d.Phone {
			return domain.Conflictf("this phone is already registered")
		}
		if d.Email != "" && strings.EqualFold(existing.Email, d.Email) {
			return domain.Conflictf("this email is already registered")
		}
	}
	return nil
}

func (s *Store) CreateDonor(_ context.Context, d *domain.Donor) error {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.checkDonorUnique(*d); err != nil {
		return err
	}
	s.track(&d.ID)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	keep(s, st.donors, d.ID)
	st.donors[d.ID] = cloneDonor(*d)
	return nil
}

func (s *Store) GetDonor(_ context.Context, id string) (domain.Donor, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	d, ok := s.st.donors[id]
	if !ok {
		return domain.Donor{}, domain.NotFoundf("donor not found")
	}
	return cloneDonor(d), nil
}

func (s *Store) GetDonorByPhone(_ context.Context, phone string) (domain.Donor, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	for _, d := range s.st.donors {
		if d.Phone == phone {
			return cloneDonor(d), nil
		}
	}
	return domain.Donor{}, domain.NotFoundf("donor not found")
}

func (s *Store) UpdateDonor(_ context.Context, d domain.Donor) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cur, ok := s.st.donors[d.ID]
	if !ok {
		return domain.NotFoundf("donor not found")
	}
	if err := s.st.checkDonorUnique(d); err != nil {
		return err
	}
	d.CreatedAt = cur.CreatedAt
	keep(s, s.st.donors, d.ID)
	s.st.donors[d.ID] = cloneDonor(d)
	return nil
}

func (s *Store) ListDonors(_ context.Context) ([]domain.Donor, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	out := make([]domain.Donor, 0, len(s.st.donors))
	for _, d := range s.st.donors {
		out = append(out, cloneDonor(d))
	}
	newestFirst(s.st, out, func(d domain.Donor) string { return d.ID })
	return out, nil
}

func (s *Store) CountDonors(_ context.Context) (int, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	return len(s.st.donors), nil
}

func (s *Store) RecordDonation(_ context.Context, donorID string, at time.Time) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	d, ok := s.st.donors[donorID]
	if !ok {
		return domain.NotFoundf("donor not found")
	}
	d = cloneDonor(d)
	d.DonationCount++
	d.LastDonationDate = &at
	keep(s, s.st.donors, donorID)
	s.st.donors[donorID] = d
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (s *Store) FindRecommended(ctx context.Context, q ports.DonorQuery) ([]domain.Donor, error) {
	all, err := s.ListDonors(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Donor
	for _, d := range all {
		if d.BloodGroup != q.BloodGroup || !d.Available {
			continue
		}
		if containsFold(d.Address.City, q.City) || containsFold(d.Address.State, q.State) {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Donor) int {
		if c := cmp.Compare(b.DonationCount, a.DonationCount); c != 0 {
			return c
		}
		switch {
		case a.LastDonationDate == nil && b.LastDonationDate == nil:
			return 0
		case a.LastDonationDate == nil:
			return -1
		case b.LastDonationDate == nil:
			return 1
		}
		return a.LastDonationDate.Compare(*b.LastDonationDate)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
