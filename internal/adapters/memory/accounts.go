package memory

import (
	"context"
	"strings"

	"bloodlink/internal/domain"
)

func (s *Store) CreateIdentity(_ context.Context, ident *domain.Identity) error {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))
	for _, existing := range st.identities {
		if existing.Email == ident.Email {
			return domain.Conflictf("user with this email already exists")
		}
	}
	s.track(&ident.ID)
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = s.now()
	}
	keep(s, st.identities, ident.ID)
	st.identities[ident.ID] = *ident
	return nil
}

func (s *Store) GetIdentity(_ context.Context, id string) (domain.Identity, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	ident, ok := s.st.identities[id]
	if !ok {
		return domain.Identity{}, domain.NotFoundf("user not found")
	}
	return ident, nil
}

func (s *Store) GetIdentityByEmail(_ context.Context, email string) (domain.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	for _, ident := range s.st.identities {
		if ident.Email == email {
			return ident, nil
		}
	}
	return domain.Identity{}, domain.NotFoundf("user not found")
}

func (s *Store) ListIdentities(_ context.Context) ([]domain.Identity, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	out := make([]domain.Identity, 0, len(s.st.identities))
	for _, ident := range s.st.identities {
		out = append(out, ident)
	}
	newestFirst(s.st, out, func(i domain.Identity) string { return i.ID })
	return out, nil
}

func (s *Store) SetIdentityActive(_ context.Context, id string, active bool) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	ident, ok := s.st.identities[id]
	if !ok {
		return domain.NotFoundf("user not found")
	}
	ident.Active = active
	keep(s, s.st.identities, id)
	s.st.identities[id] = ident
	return nil
}

func (s *Store) CreateHospital(_ context.Context, h *domain.Hospital) error {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()

	h.Email = strings.ToLower(strings.TrimSpace(h.Email))
	for _, existing := range st.hospitals {
		if existing.RegistrationNumber == h.RegistrationNumber {
			return domain.Conflictf("hospital with this registration number already exists")
		}
		if existing.Email == h.Email {
			return domain.Conflictf("hospital with this email already exists")
		}
	}
	s.track(&h.ID)
	if h.CreatedAt.IsZero() {
		h.CreatedAt = s.now()
	}
	keep(s, st.hospitals, h.ID)
	st.hospitals[h.ID] = *h
	return nil
}

func (s *Store) GetHospital(_ context.Context, id string) (domain.Hospital, error) {
	s.st.mu.RLock()
	defer s.st.mu.RUnlock()
	h, ok := s.st.hospitals[id]
	if !ok {
		return domain.Hospital{}, domain.NotFoundf("hospital not found")
	}
	return h, nil
}

func (s *Store) UpdateHospital(_ context.Context, h domain.Hospital) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, ok := s.st.hospitals[h.ID]; !ok {
		return domain.NotFoundf("hospital not found")
	}
	keep(s, s.st.hospitals, h.ID)
	s.st.hospitals[h.ID] = h
	return nil
}
