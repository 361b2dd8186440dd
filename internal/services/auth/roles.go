package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

// roleProfile is the per-role behaviour chosen once at registration.
type roleProfile interface {
	validate(reg ports.Registration) error
	onRegister(ctx context.Context, tx ports.Store, ident domain.Identity, reg ports.Registration, now time.Time) error
	profile(ctx context.Context, store ports.Store, ident domain.Identity) (any, error)
}

var roleProfiles = map[domain.Role]roleProfile{
	domain.RoleDonor:     donorRole{},
	domain.RoleBloodBank: bloodBankRole{},
	domain.RoleHospital:  hospitalRole{},
	domain.RoleAdmin:     adminRole{},
}

func requireFields(fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return domain.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// donorRole links a donor profile to the account when a phone is given and
// not yet taken by an anonymous profile.
type donorRole struct{}

func (donorRole) validate(ports.Registration) error { return nil }

func (donorRole) onRegister(ctx context.Context, tx ports.Store, ident domain.Identity, reg ports.Registration, now time.Time) error {
	phone := strings.TrimSpace(reg.Phone)
	if phone == "" {
		return nil
	}
	if _, err := tx.GetDonorByPhone(ctx, phone); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	name := strings.TrimSpace(reg.Name)
	if name == "" {
		name = ident.Email
	}
	return tx.CreateDonor(ctx, &domain.Donor{
		ID:        ident.ID,
		FullName:  name,
		Phone:     phone,
		Email:     ident.Email,
		Address:   reg.Address,
		Available: true,
		CreatedAt: now,
	})
}

func (donorRole) profile(ctx context.Context, store ports.Store, ident domain.Identity) (any, error) {
	d, err := store.GetDonor(ctx, ident.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return ident, nil
	}
	return d, err
}

type bloodBankRole struct{}

func (bloodBankRole) validate(reg ports.Registration) error {
	return requireFields([2]string{"name", reg.Name}, [2]string{"registrationNumber", reg.RegistrationNumber})
}

func (bloodBankRole) onRegister(ctx context.Context, tx ports.Store, ident domain.Identity, reg ports.Registration, now time.Time) error {
	email := strings.TrimSpace(reg.ContactEmail)
	if email == "" {
		email = ident.Email
	}
	hours := domain.OperatingHours{Open: "09:00", Close: "17:00"}
	if reg.OpenTime != "" {
		hours.Open = reg.OpenTime
	}
	if reg.CloseTime != "" {
		hours.Close = reg.CloseTime
	}
	return tx.CreateBloodBank(ctx, &domain.BloodBank{
		ID:                 ident.ID,
		Name:               strings.TrimSpace(reg.Name),
		RegistrationNumber: strings.TrimSpace(reg.RegistrationNumber),
		Phone:              reg.Phone,
		Email:              email,
		Address:            reg.Address,
		Inventory:          domain.NewInventory(now),
		OperatingHours:     hours,
		CreatedAt:          now,
	})
}

func (bloodBankRole) profile(ctx context.Context, store ports.Store, ident domain.Identity) (any, error) {
	return store.GetBloodBank(ctx, ident.ID)
}

type hospitalRole struct{}

func (hospitalRole) validate(reg ports.Registration) error {
	return requireFields([2]string{"name", reg.Name}, [2]string{"registrationNumber", reg.RegistrationNumber})
}

func (hospitalRole) onRegister(ctx context.Context, tx ports.Store, ident domain.Identity, reg ports.Registration, now time.Time) error {
	return tx.CreateHospital(ctx, &domain.Hospital{
		ID:                 ident.ID,
		Email:              ident.Email,
		Name:               strings.TrimSpace(reg.Name),
		RegistrationNumber: strings.TrimSpace(reg.RegistrationNumber),
		Phone:              reg.Phone,
		Address:            reg.Address,
		EmergencyContact:   reg.EmergencyContact,
		Active:             true,
		CreatedAt:          now,
	})
}

func (hospitalRole) profile(ctx context.Context, store ports.Store, ident domain.Identity) (any, error) {
	return store.GetHospital(ctx, ident.ID)
}

type adminRole struct{}

func (adminRole) validate(ports.Registration) error { return nil }

func (adminRole) onRegister(context.Context, ports.Store, domain.Identity, ports.Registration, time.Time) error {
	return nil
}

func (adminRole) profile(_ context.Context, _ ports.Store, ident domain.Identity) (any, error) {
	return ident, nil
}
