// Package donors manages identity-less donor profiles keyed by phone.
package donors

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type Service struct {
	store ports.Store
	log   *zap.Logger
	now   func() time.Time
}

var _ ports.Donors = (*Service)(nil)

func New(store ports.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// merge copies every supplied field of info onto d. Fields left empty in
// info keep their stored value.
func merge(d *domain.Donor, info ports.DonorInfo) error {
	if name := strings.TrimSpace(info.FullName); name != "" {
		d.FullName = name
	}
	if email := strings.ToLower(strings.TrimSpace(info.Email)); email != "" {
		d.Email = email
	}
	if info.BloodGroup != "" {
		g, err := domain.ParseBloodGroup(info.BloodGroup)
		if err != nil {
			return err
		}
		d.BloodGroup = g
	}
	if info.Gender != "" {
		g, err := domain.ParseGender(strings.ToLower(info.Gender))
		if err != nil {
			return err
		}
		d.Gender = g
	}
	if info.DateOfBirth != nil {
		d.DateOfBirth = *info.DateOfBirth
	}
	d.Address = d.Address.Merge(info.Address)
	if info.Diseases != nil {
		d.MedicalHistory.Diseases = info.Diseases
	}
	if info.Medications != nil {
		d.MedicalHistory.Medications = info.Medications
	}
	if info.Allergies != nil {
		d.MedicalHistory.Allergies = info.Allergies
	}
	if info.LastDonationDate != nil {
		t := *info.LastDonationDate
		d.LastDonationDate = &t
	}
	if info.Available != nil {
		d.Available = *info.Available
	}
	return nil
}

func newDonor(info ports.DonorInfo, now time.Time) (domain.Donor, error) {
	d := domain.Donor{Phone: strings.TrimSpace(info.Phone), Available: true, CreatedAt: now}
	if err := merge(&d, info); err != nil {
		return domain.Donor{}, err
	}
	var missing []string
	if d.FullName == "" {
		missing = append(missing, "fullName")
	}
	if d.Phone == "" {
		missing = append(missing, "phone")
	}
	if d.BloodGroup == "" {
		missing = append(missing, "bloodGroup")
	}
	if len(missing) > 0 {
		return domain.Donor{}, domain.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return d, nil
}

// Upsert resolves the donor by phone inside the caller's transaction,
// merging supplied fields into an existing profile or creating a new one.
func Upsert(ctx context.Context, tx ports.Store, info ports.DonorInfo, now time.Time) (domain.Donor, error) {
	phone := strings.TrimSpace(info.Phone)
	if phone == "" {
		return domain.Donor{}, domain.Validationf("donor phone is required")
	}
	existing, err := tx.GetDonorByPhone(ctx, phone)
	switch {
	case err == nil:
		if err := merge(&existing, info); err != nil {
			return domain.Donor{}, err
		}
		if err := tx.UpdateDonor(ctx, existing); err != nil {
			return domain.Donor{}, err
		}
		return existing, nil
	case errors.Is(err, domain.ErrNotFound):
		d, err := newDonor(info, now)
		if err != nil {
			return domain.Donor{}, err
		}
		if err := tx.CreateDonor(ctx, &d); err != nil {
			return domain.Donor{}, err
		}
		return d, nil
	default:
		return domain.Donor{}, err
	}
}

// Create registers a new profile; an existing phone is a conflict.
func (s *Service) Create(ctx context.Context, info ports.DonorInfo) (domain.Donor, error) {
	d, err := newDonor(info, s.now())
	if err != nil {
		return domain.Donor{}, err
	}
	if err := s.store.CreateDonor(ctx, &d); err != nil {
		return domain.Donor{}, err
	}
	s.log.Info("donor profile created", zap.String("donor_id", d.ID))
	return d, nil
}

// Update is open to admins, blood banks and the donor linked to the profile.
func (s *Service) Update(ctx context.Context, actor domain.Principal, id string, info ports.DonorInfo) (domain.Donor, error) {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleBloodBank:
	case domain.RoleDonor:
		if actor.ID != id {
			return domain.Donor{}, domain.Forbiddenf("not allowed to update this donor")
		}
	default:
		return domain.Donor{}, domain.Forbiddenf("not allowed to update donors")
	}
	var out domain.Donor
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		d, err := tx.GetDonor(ctx, id)
		if err != nil {
			return err
		}
		if phone := strings.TrimSpace(info.Phone); phone != "" {
			d.Phone = phone
		}
		if err := merge(&d, info); err != nil {
			return err
		}
		if err := tx.UpdateDonor(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	return out, err
}

func (s *Service) List(ctx context.Context) ([]domain.Donor, error) {
	return s.store.ListDonors(ctx)
}
