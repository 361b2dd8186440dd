// Package donations schedules donations and applies their completion effects.
package donations

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
	"bloodlink/internal/services/donors"
)

type Options struct {
	// StrictTransitions rejects status changes the transition table forbids.
	StrictTransitions bool
}

type Service struct {
	store ports.Store
	log   *zap.Logger
	opts  Options
	now   func() time.Time
}

var _ ports.Donations = (*Service)(nil)

func New(store ports.Store, log *zap.Logger, opts Options) *Service {
	return &Service{store: store, log: log, opts: opts, now: time.Now}
}

// Schedule upserts the donor by phone and records a scheduled donation.
// Inventory is untouched until completion.
func (s *Service) Schedule(ctx context.Context, in ports.ScheduleDonation) (domain.Donation, error) {
	if strings.TrimSpace(in.BloodBankID) == "" {
		return domain.Donation{}, domain.Validationf("bloodBank is required")
	}
	group, err := domain.ParseBloodGroup(in.BloodGroup)
	if err != nil {
		return domain.Donation{}, err
	}
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return domain.Donation{}, domain.Validationf("quantity must be at least 1")
	}
	now := s.now()
	date := now
	if in.DonationDate != nil {
		date = *in.DonationDate
	}
	info := in.Donor
	if info.BloodGroup == "" {
		info.BloodGroup = string(group)
	}

	var out domain.Donation
	err = s.store.InTx(ctx, func(tx ports.Store) error {
		if _, err := tx.GetBloodBank(ctx, in.BloodBankID); err != nil {
			return err
		}
		donor, err := donors.Upsert(ctx, tx, info, now)
		if err != nil {
			return err
		}
		out = domain.Donation{
			DonorID:      donor.ID,
			BloodBankID:  in.BloodBankID,
			BloodGroup:   group,
			Quantity:     qty,
			DonationDate: date,
			Status:       domain.DonationScheduled,
			Notes:        in.Notes,
			CreatedAt:    now,
		}
		return tx.CreateDonation(ctx, &out)
	})
	if err != nil {
		return domain.Donation{}, err
	}
	s.log.Info("donation scheduled",
		zap.String("donation_id", out.ID), zap.String("bank_id", out.BloodBankID), zap.String("donor_id", out.DonorID))
	return out, nil
}

// UpdateStatus changes the status. The first transition into completed
// credits the donor and the bank inventory in the same transaction; repeated
// completions change nothing.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Principal, id string, upd ports.DonationStatusUpdate) (domain.Donation, error) {
	next, err := domain.ParseDonationStatus(strings.ToLower(strings.TrimSpace(upd.Status)))
	if err != nil {
		return domain.Donation{}, err
	}
	var (
		out      domain.Donation
		credited bool
	)
	err = s.store.InTx(ctx, func(tx ports.Store) error {
		d, err := tx.LockDonation(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanManageBank(d.BloodBankID) {
			return domain.Forbiddenf("not allowed to update this donation")
		}
		prev := d.Status
		if s.opts.StrictTransitions && !prev.CanTransition(next) {
			return domain.Conflictf("cannot change donation status from %s to %s", prev, next)
		}
		if next == domain.DonationCompleted && prev != domain.DonationCompleted {
			now := s.now()
			if err := s.credit(ctx, tx, d, now); err != nil {
				return err
			}
			d.CompletedDate = &now
			credited = true
		}
		d.Status = next
		if upd.TestResults != nil {
			d.TestResults = *upd.TestResults
		}
		if err := tx.UpdateDonation(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return domain.Donation{}, err
	}
	s.log.Info("donation status updated",
		zap.String("donation_id", id), zap.String("status", string(next)), zap.Bool("credited", credited))
	return out, nil
}

func (s *Service) credit(ctx context.Context, tx ports.Store, d domain.Donation, now time.Time) error {
	if err := tx.RecordDonation(ctx, d.DonorID, now); err != nil {
		return err
	}
	bank, err := tx.LockBloodBank(ctx, d.BloodBankID)
	if err != nil {
		return err
	}
	qty := d.Quantity
	if qty < 1 {
		qty = 1
	}
	entry, err := bank.Inventory.Add(d.BloodGroup, qty, now)
	if err != nil {
		return err
	}
	return tx.SaveInventory(ctx, bank.ID, entry)
}

// List scopes donations by role: donors and banks see their own.
func (s *Service) List(ctx context.Context, actor domain.Principal) ([]domain.Donation, error) {
	var f ports.DonationFilter
	switch actor.Role {
	case domain.RoleDonor:
		f.DonorID = actor.ID
	case domain.RoleBloodBank:
		f.BloodBankID = actor.ID
	}
	return s.store.ListDonations(ctx, f)
}

// Get returns the donation with its donor and bank. Only admins, the bank
// and the donor may read it.
func (s *Service) Get(ctx context.Context, actor domain.Principal, id string) (domain.DonationDetails, error) {
	d, err := s.store.GetDonation(ctx, id)
	if err != nil {
		return domain.DonationDetails{}, err
	}
	allowed := actor.CanManageBank(d.BloodBankID) || (actor.Role == domain.RoleDonor && actor.ID == d.DonorID)
	if !allowed {
		return domain.DonationDetails{}, domain.Forbiddenf("not allowed to view this donation")
	}
	out := domain.DonationDetails{Donation: d}
	donor, err := s.store.GetDonor(ctx, d.DonorID)
	switch {
	case err == nil:
		out.Donor = &donor
	case !errors.Is(err, domain.ErrNotFound):
		return domain.DonationDetails{}, err
	}
	bank, err := s.store.GetBloodBank(ctx, d.BloodBankID)
	switch {
	case err == nil:
		summary := bank.Summary()
		out.BloodBank = &summary
	case !errors.Is(err, domain.ErrNotFound):
		return domain.DonationDetails{}, err
	}
	return out, nil
}
