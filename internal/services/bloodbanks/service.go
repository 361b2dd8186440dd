// Package bloodbanks manages bank profiles and direct inventory adjustments.
package bloodbanks

import (
	"context"
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

var _ ports.BloodBanks = (*Service)(nil)

func New(store ports.Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// Create adds a bank that has no login account of its own. Supplied
// inventory rows are applied on top of the eight zero entries.
func (s *Service) Create(ctx context.Context, actor domain.Principal, in ports.NewBloodBank) (domain.BloodBank, error) {
	if !actor.IsAdmin() {
		return domain.BloodBank{}, domain.Forbiddenf("admin access required")
	}
	name := strings.TrimSpace(in.Name)
	regNo := strings.TrimSpace(in.RegistrationNumber)
	if name == "" || regNo == "" {
		return domain.BloodBank{}, domain.Validationf("name and registrationNumber are required")
	}
	now := s.now()
	inv := domain.NewInventory(now)
	if _, err := inv.SetAll(in.Inventory, now); err != nil {
		return domain.BloodBank{}, err
	}
	hours := domain.OperatingHours{Open: "09:00", Close: "17:00"}
	if in.OperatingHours != nil {
		hours = *in.OperatingHours
	}
	bank := domain.BloodBank{
		Name:               name,
		RegistrationNumber: regNo,
		Phone:              in.Phone,
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		Address:            in.Address,
		Inventory:          inv,
		OperatingHours:     hours,
		Verified:           in.Verified,
		CreatedAt:          now,
	}
	if err := s.store.CreateBloodBank(ctx, &bank); err != nil {
		return domain.BloodBank{}, err
	}
	s.log.Info("blood bank created", zap.String("bank_id", bank.ID), zap.String("admin_id", actor.ID))
	return bank, nil
}

func (s *Service) List(ctx context.Context) ([]domain.BloodBank, error) {
	return s.store.ListBloodBanks(ctx)
}

// FilterByGroup lists banks holding at least one unit of the group.
func (s *Service) FilterByGroup(ctx context.Context, group string) ([]domain.BloodBank, error) {
	g, err := domain.ParseBloodGroup(group)
	if err != nil {
		return nil, err
	}
	return s.store.ListBloodBanksWithStock(ctx, g)
}

func (s *Service) Get(ctx context.Context, id string) (domain.BloodBank, error) {
	return s.store.GetBloodBank(ctx, id)
}

// UpdateProfile applies the allow-listed fields. Only admins may change the
// verified flag.
func (s *Service) UpdateProfile(ctx context.Context, actor domain.Principal, id string, patch ports.BloodBankPatch) (domain.BloodBank, error) {
	if !actor.CanManageBank(id) {
		return domain.BloodBank{}, domain.Forbiddenf("not allowed to manage this blood bank")
	}
	if patch.Verified != nil && !actor.IsAdmin() {
		return domain.BloodBank{}, domain.Forbiddenf("only admins can verify blood banks")
	}
	var out domain.BloodBank
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		bank, err := tx.LockBloodBank(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return domain.Validationf("name must not be empty")
			}
			bank.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Phone != nil {
			bank.Phone = *patch.Phone
		}
		if patch.Email != nil {
			bank.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
		}
		if patch.Address != nil {
			bank.Address = bank.Address.Merge(*patch.Address)
		}
		if patch.OperatingHours != nil {
			bank.OperatingHours = *patch.OperatingHours
		}
		if patch.Verified != nil {
			bank.Verified = *patch.Verified
		}
		if err := tx.UpdateBloodBank(ctx, bank); err != nil {
			return err
		}
		out = bank
		return nil
	})
	return out, err
}

func (s *Service) Inventory(ctx context.Context, actor domain.Principal, id string) (domain.Inventory, error) {
	if !actor.CanManageBank(id) {
		return nil, domain.Forbiddenf("not allowed to manage this blood bank")
	}
	bank, err := s.store.GetBloodBank(ctx, id)
	if err != nil {
		return nil, err
	}
	return bank.Inventory, nil
}

// UpdateInventory applies one add/remove/set adjustment under the bank lock.
func (s *Service) UpdateInventory(ctx context.Context, actor domain.Principal, id string, change ports.InventoryChange) (domain.Inventory, error) {
	if !actor.CanManageBank(id) {
		return nil, domain.Forbiddenf("not allowed to manage this blood bank")
	}
	op, err := domain.ParseInventoryOp(change.Operation)
	if err != nil {
		return nil, err
	}
	group, err := domain.ParseBloodGroup(change.BloodGroup)
	if err != nil {
		return nil, err
	}
	if change.Quantity < 0 && op != domain.InventorySet {
		return nil, domain.Validationf("quantity must not be negative")
	}
	var out domain.Inventory
	err = s.store.InTx(ctx, func(tx ports.Store) error {
		bank, err := tx.LockBloodBank(ctx, id)
		if err != nil {
			return err
		}
		entry, err := bank.Inventory.Apply(op, group, change.Quantity, s.now())
		if err != nil {
			return err
		}
		if err := tx.SaveInventory(ctx, id, entry); err != nil {
			return err
		}
		out = bank.Inventory
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("inventory adjusted",
		zap.String("bank_id", id), zap.String("op", string(op)),
		zap.String("blood_group", string(group)), zap.Int("quantity", change.Quantity))
	return out, nil
}

// BulkUpdateInventory sets every listed group. One invalid group rejects
// the whole batch before anything is written.
func (s *Service) BulkUpdateInventory(ctx context.Context, actor domain.Principal, id string, updates []domain.InventoryUpdate) (domain.Inventory, error) {
	if !actor.CanManageBank(id) {
		return nil, domain.Forbiddenf("not allowed to manage this blood bank")
	}
	if len(updates) == 0 {
		return nil, domain.Validationf("inventory updates must be a non-empty list")
	}
	normalized := make([]domain.InventoryUpdate, len(updates))
	for i, u := range updates {
		g, err := domain.ParseBloodGroup(string(u.BloodGroup))
		if err != nil {
			return nil, err
		}
		normalized[i] = domain.InventoryUpdate{BloodGroup: g, Quantity: u.Quantity}
	}
	var out domain.Inventory
	err := s.store.InTx(ctx, func(tx ports.Store) error {
		bank, err := tx.LockBloodBank(ctx, id)
		if err != nil {
			return err
		}
		changed, err := bank.Inventory.SetAll(normalized, s.now())
		if err != nil {
			return err
		}
		if err := tx.SaveInventory(ctx, id, changed...); err != nil {
			return err
		}
		out = bank.Inventory
		return nil
	})
	return out, err
}
