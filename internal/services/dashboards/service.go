// Package dashboards assembles the read models behind the landing pages.
package dashboards

import (
	"context"
	"errors"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

type Service struct {
	store ports.Store
}

var _ ports.Dashboards = (*Service)(nil)

func New(store ports.Store) *Service {
	return &Service{store: store}
}

// Home lists the banks offered on the donation form.
func (s *Service) Home(ctx context.Context, user *domain.Principal) (domain.Home, error) {
	banks, err := s.store.ListBloodBanks(ctx)
	if err != nil {
		return domain.Home{}, err
	}
	if banks == nil {
		banks = []domain.BloodBank{}
	}
	return domain.Home{User: user, BloodBanks: banks}, nil
}

// Hospital shows the caller's own requests, newest first.
func (s *Service) Hospital(ctx context.Context, actor domain.Principal) (domain.HospitalDashboard, error) {
	if actor.Role != domain.RoleHospital {
		return domain.HospitalDashboard{}, domain.Forbiddenf("hospital access required")
	}
	var out domain.HospitalDashboard
	h, err := s.store.GetHospital(ctx, actor.ID)
	switch {
	case err == nil:
		out.Hospital = &h
	case !errors.Is(err, domain.ErrNotFound):
		return out, err
	}
	reqs, err := s.store.ListRequests(ctx, ports.RequestFilter{RequestedBy: actor.ID})
	if err != nil {
		return out, err
	}
	out.Requests = nonNil(reqs)
	return out, nil
}

// BloodBank shows the bank's ledger, its donations and the open requests
// it could serve.
func (s *Service) BloodBank(ctx context.Context, actor domain.Principal) (domain.BloodBankDashboard, error) {
	if actor.Role != domain.RoleBloodBank {
		return domain.BloodBankDashboard{}, domain.Forbiddenf("blood bank access required")
	}
	bank, err := s.store.GetBloodBank(ctx, actor.ID)
	if err != nil {
		return domain.BloodBankDashboard{}, err
	}
	donations, err := s.store.ListDonations(ctx, ports.DonationFilter{BloodBankID: actor.ID})
	if err != nil {
		return domain.BloodBankDashboard{}, err
	}
	reqs, err := s.store.ListRequests(ctx, ports.RequestFilter{
		Statuses: []domain.RequestStatus{domain.RequestPending, domain.RequestApproved},
	})
	if err != nil {
		return domain.BloodBankDashboard{}, err
	}
	donors, err := s.store.ListDonors(ctx)
	if err != nil {
		return domain.BloodBankDashboard{}, err
	}
	return domain.BloodBankDashboard{
		Bank:             &bank,
		Inventory:        bank.Inventory,
		Donations:        nonNil(donations),
		RegisteredDonors: len(donors),
		Requests:         nonNil(reqs),
		Donors:           nonNil(donors),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
