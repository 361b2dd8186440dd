package hospitals

import (
	"context"
	"strings"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type Service struct {
	store ports.Store
}

var _ ports.Hospitals = (*Service)(nil)

func New(store ports.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Profile(ctx context.Context, actor domain.Principal) (domain.Hospital, error) {
	if actor.Role != domain.RoleHospital {
		return domain.Hospital{}, domain.Forbiddenf("hospital access required")
	}
	return s.store.GetHospital(ctx, actor.ID)
}

// UpdateProfile changes the caller's own profile; registration number,
// email and the verified flag are fixed.
func (s *Service) UpdateProfile(ctx context.Context, actor domain.Principal, patch ports.HospitalPatch) (domain.Hospital, error) {
	if actor.Role != domain.RoleHospital {
		return domain.Hospital{}, domain.Forbiddenf("hospital access required")
	}
	var out domain.Hospital
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		h, err := tx.GetHospital(ctx, actor.ID)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return domain.Validationf("name must not be empty")
			}
			h.Name = name
		}
		if patch.Phone != nil {
			h.Phone = *patch.Phone
		}
		if patch.EmergencyContact != nil {
			h.EmergencyContact = *patch.EmergencyContact
		}
		if patch.Address != nil {
			h.Address = h.Address.Merge(*patch.Address)
		}
		if err := tx.UpdateHospital(ctx, h); err != nil {
			return err
		}
		out = h
		return nil
	})
	return out, err
}
